package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
)

// subscriberBuffer 每個訂閱者的緩衝，滿了就丟棄 (客戶端仍可拉取列表)
const subscriberBuffer = 64

type subscriber struct {
	ch chan *domain.Notification
}

// Hub 單一行程內的通知推播
type Hub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[*subscriber]struct{})}
}

// Publish implements usecase.NotificationFeed.
// 不會阻塞，慢的訂閱者會漏掉推播
func (h *Hub) Publish(ctx context.Context, n *domain.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[n.AccountID] {
		cp := *n
		select {
		case sub.ch <- &cp:
		default:
		}
	}
	return nil
}

// Subscribe implements usecase.NotificationFeed.
func (h *Hub) Subscribe(ctx context.Context, accountID uuid.UUID) (<-chan *domain.Notification, error) {
	sub := &subscriber{ch: make(chan *domain.Notification, subscriberBuffer)}

	h.mu.Lock()
	if h.subs[accountID] == nil {
		h.subs[accountID] = make(map[*subscriber]struct{})
	}
	h.subs[accountID][sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[accountID], sub)
		if len(h.subs[accountID]) == 0 {
			delete(h.subs, accountID)
		}
		close(sub.ch)
		h.mu.Unlock()
	}()
	return sub.ch, nil
}

// Subscribers 目前的訂閱數
func (h *Hub) Subscribers(accountID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[accountID])
}

var _ usecase.NotificationFeed = (*Hub)(nil)
