package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
)

// NotificationStore 每個帳戶一份 append-only 的通知列表
type NotificationStore struct {
	mu        sync.RWMutex
	byAccount map[uuid.UUID][]*domain.Notification
	byID      map[uuid.UUID]*domain.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		byAccount: make(map[uuid.UUID][]*domain.Notification),
		byID:      make(map[uuid.UUID]*domain.Notification),
	}
}

// CreateNotification implements usecase.NotificationRepository.
func (s *NotificationStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[n.ID]; ok {
		return nil
	}
	cp := *n
	s.byID[cp.ID] = &cp
	s.byAccount[cp.AccountID] = append(s.byAccount[cp.AccountID], &cp)
	return nil
}

// ListNotifications implements usecase.NotificationRepository.
func (s *NotificationStore) ListNotifications(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.Notification, error) {
	s.mu.RLock()
	list := s.byAccount[accountID]
	out := make([]*domain.Notification, 0, len(list))
	for _, n := range list {
		cp := *n
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkRead implements usecase.NotificationRepository.
func (s *NotificationStore) MarkRead(ctx context.Context, accountID, notificationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[notificationID]
	if !ok || n.AccountID != accountID {
		return domain.ErrNotificationNotFound
	}
	n.Read = true
	return nil
}

// MarkAllRead implements usecase.NotificationRepository.
func (s *NotificationStore) MarkAllRead(ctx context.Context, accountID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for _, n := range s.byAccount[accountID] {
		if !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

var _ usecase.NotificationRepository = (*NotificationStore)(nil)
