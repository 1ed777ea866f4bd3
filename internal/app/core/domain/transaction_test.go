package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTransactionCheckReplay(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	orig := &TransactionRequest{
		RequestID: uuid.New(), SenderID: alice, ReceiverID: bob,
		Amount: NewAmount(30, 0), Kind: TransactionKindPix, Description: "aluguel",
	}
	tx := NewTransaction(orig, time.Now())

	tests := []struct {
		name    string
		edit    func(r *TransactionRequest)
		wantErr error
	}{
		{"same request", func(r *TransactionRequest) {}, nil},
		{"description ignored", func(r *TransactionRequest) { r.Description = "outro" }, nil},
		{"other sender", func(r *TransactionRequest) { r.SenderID = uuid.New() }, ErrIdempotencyConflict},
		{"swapped parties", func(r *TransactionRequest) { r.SenderID, r.ReceiverID = bob, alice }, ErrIdempotencyConflict},
		{"other amount", func(r *TransactionRequest) { r.Amount++ }, ErrIdempotencyConflict},
		{"other kind", func(r *TransactionRequest) { r.Kind = TransactionKindTransfer }, ErrIdempotencyConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := *orig
			tt.edit(&req)
			if err := tx.CheckReplay(&req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckReplay err=%v want=%v", err, tt.wantErr)
			}
		})
	}
}
