package nats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
)

func runFeed(t *testing.T) *Feed {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)

	conn, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(conn.Close)
	return NewFeed(conn, "", zerolog.Nop())
}

func TestFeedDeliversOnlyToOwner(t *testing.T) {
	feed := runFeed(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice, bob := uuid.New(), uuid.New()
	aliceCh, err := feed.Subscribe(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	bobCh, err := feed.Subscribe(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}

	n := &domain.Notification{
		ID:            uuid.New(),
		AccountID:     alice,
		TransactionID: uuid.New(),
		Title:         "Pix recebido",
		Body:          "Você recebeu um Pix de R$ 10,00 de @bob.",
		CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := feed.Publish(ctx, n); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-aliceCh:
		if got.ID != n.ID || got.Title != n.Title || !got.CreatedAt.Equal(n.CreatedAt) {
			t.Fatalf("unexpected notification %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("alice did not receive the notification")
	}

	select {
	case got := <-bobCh:
		t.Fatalf("bob received someone else's notification: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFeedClosesOnCancel(t *testing.T) {
	feed := runFeed(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := feed.Subscribe(ctx, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
