package grpc

import (
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	pb "github.com/JoeShih716/go-nox-ledger/proto"
)

// toAccount withBalance 只在回傳 session 本人的資料時為 true
func toAccount(a *domain.Account, withBalance bool) *pb.Account {
	out := &pb.Account{
		ID:          a.ID,
		Number:      string(a.Number),
		Username:    a.Username,
		Handle:      a.Handle(),
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
	}
	if withBalance {
		balance := int64(a.Balance)
		out.Balance = &balance
	}
	return out
}

func toAccountList(accounts []*domain.Account) *pb.AccountList {
	out := &pb.AccountList{Accounts: make([]*pb.Account, 0, len(accounts))}
	for _, a := range accounts {
		out.Accounts = append(out.Accounts, toAccount(a, false))
	}
	return out
}

func toTransaction(tx *domain.Transaction) *pb.Transaction {
	return &pb.Transaction{
		Sequence:    tx.Sequence,
		ID:          tx.ID,
		RequestID:   tx.RequestID,
		SenderID:    tx.SenderID,
		ReceiverID:  tx.ReceiverID,
		Amount:      int64(tx.Amount),
		Kind:        tx.Kind.String(),
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
	}
}

func toHistory(entries []domain.HistoryEntry, summary domain.Summary) *pb.HistoryResponse {
	out := &pb.HistoryResponse{
		Entries: make([]*pb.HistoryEntry, 0, len(entries)),
		Summary: &pb.Summary{
			Income:  int64(summary.Income),
			Expense: int64(summary.Expense),
			Net:     int64(summary.Net),
			Count:   int32(summary.Count),
		},
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, &pb.HistoryEntry{
			TransactionID:     e.TransactionID,
			Kind:              e.Kind.String(),
			Direction:         string(e.Direction),
			Amount:            int64(e.Amount),
			SignedAmount:      int64(e.SignedAmount),
			CounterpartID:     e.CounterpartID,
			CounterpartLabel:  e.CounterpartLabel,
			CounterpartHandle: e.CounterpartHandle,
			Description:       e.Description,
			CreatedAt:         e.CreatedAt,
		})
	}
	return out
}

func toNotification(n *domain.Notification) *pb.Notification {
	return &pb.Notification{
		ID:            n.ID,
		TransactionID: n.TransactionID,
		Title:         n.Title,
		Body:          n.Body,
		Read:          n.Read,
		CreatedAt:     n.CreatedAt,
	}
}
