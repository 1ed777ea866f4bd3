package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
)

const (
	DefaultNotificationLimit = 100
	MaxNotificationLimit     = 500
)

// NotificationUseCase 通知列表、已讀與即時訂閱
type NotificationUseCase struct {
	repo NotificationRepository
	feed NotificationFeed
}

func NewNotificationUseCase(repo NotificationRepository, feed NotificationFeed) *NotificationUseCase {
	return &NotificationUseCase{repo: repo, feed: feed}
}

// List 由新到舊
func (n *NotificationUseCase) List(ctx context.Context, sess *domain.Session, limit int) ([]*domain.Notification, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}
	return n.repo.ListNotifications(ctx, sess.AccountID, clampLimit(limit, DefaultNotificationLimit, MaxNotificationLimit))
}

// UnreadCount 未讀數量
func (n *NotificationUseCase) UnreadCount(ctx context.Context, sess *domain.Session) (int, error) {
	list, err := n.List(ctx, sess, MaxNotificationLimit)
	if err != nil {
		return 0, err
	}
	return domain.UnreadCount(list), nil
}

// MarkRead 標記單一通知已讀，只能標記自己的通知
func (n *NotificationUseCase) MarkRead(ctx context.Context, sess *domain.Session, id uuid.UUID) error {
	if sess == nil {
		return domain.ErrUnauthenticated
	}
	return n.repo.MarkRead(ctx, sess.AccountID, id)
}

// MarkAllRead 標記全部已讀，回傳更新筆數
func (n *NotificationUseCase) MarkAllRead(ctx context.Context, sess *domain.Session) (int64, error) {
	if sess == nil {
		return 0, domain.ErrUnauthenticated
	}
	return n.repo.MarkAllRead(ctx, sess.AccountID)
}

// Subscribe 訂閱 session 本人的新通知，ctx 結束時 channel 關閉
// 投遞為 at-least-once，可能比餘額更新晚到
func (n *NotificationUseCase) Subscribe(ctx context.Context, sess *domain.Session) (<-chan *domain.Notification, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}
	return n.feed.Subscribe(ctx, sess.AccountID)
}
