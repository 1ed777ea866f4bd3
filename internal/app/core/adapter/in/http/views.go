package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
)

// 金額一律以兩位小數字串輸出，例如 "70.00"；display 為 pt-BR 格式

type accountView struct {
	ID          uuid.UUID `json:"id"`
	Number      string    `json:"number"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Balance     string    `json:"balance,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newAccountView(a *domain.Account, withBalance bool) accountView {
	v := accountView{
		ID:          a.ID,
		Number:      string(a.Number),
		Handle:      a.Handle(),
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
		CreatedAt:   a.CreatedAt,
	}
	if withBalance {
		v.Balance = a.Balance.String()
	}
	return v
}

func newAccountViews(accounts []*domain.Account) []accountView {
	out := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, newAccountView(a, false))
	}
	return out
}

type balanceView struct {
	Balance string `json:"balance"`
	Display string `json:"display"`
}

func newBalanceView(a domain.Amount) balanceView {
	return balanceView{Balance: a.String(), Display: a.FormatBRL()}
}

type transactionView struct {
	ID          uuid.UUID `json:"id"`
	RequestID   uuid.UUID `json:"request_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	ReceiverID  uuid.UUID `json:"receiver_id"`
	Amount      string    `json:"amount"`
	Kind        string    `json:"kind"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newTransactionView(tx *domain.Transaction) transactionView {
	return transactionView{
		ID:          tx.ID,
		RequestID:   tx.RequestID,
		SenderID:    tx.SenderID,
		ReceiverID:  tx.ReceiverID,
		Amount:      tx.Amount.String(),
		Kind:        tx.Kind.String(),
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
	}
}

type historyEntryView struct {
	TransactionID     uuid.UUID        `json:"transaction_id"`
	Kind              string           `json:"kind"`
	Direction         domain.Direction `json:"direction"`
	Amount            string           `json:"amount"`
	SignedAmount      string           `json:"signed_amount"`
	Display           string           `json:"display"`
	CounterpartLabel  string           `json:"counterpart_label"`
	CounterpartHandle string           `json:"counterpart_handle,omitempty"`
	Description       string           `json:"description,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

type summaryView struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
	Count   int    `json:"count"`
}

type historyView struct {
	Entries []historyEntryView `json:"entries"`
	Summary summaryView        `json:"summary"`
}

func newHistoryView(entries []domain.HistoryEntry) historyView {
	summary := domain.Summarize(entries)
	v := historyView{
		Entries: make([]historyEntryView, 0, len(entries)),
		Summary: summaryView{
			Income:  summary.Income.String(),
			Expense: summary.Expense.String(),
			Net:     summary.Net.String(),
			Count:   summary.Count,
		},
	}
	for _, e := range entries {
		v.Entries = append(v.Entries, historyEntryView{
			TransactionID:     e.TransactionID,
			Kind:              e.Kind.String(),
			Direction:         e.Direction,
			Amount:            e.Amount.String(),
			SignedAmount:      e.SignedAmount.String(),
			Display:           e.SignedAmount.FormatBRL(),
			CounterpartLabel:  e.CounterpartLabel,
			CounterpartHandle: e.CounterpartHandle,
			Description:       e.Description,
			CreatedAt:         e.CreatedAt,
		})
	}
	return v
}

type notificationView struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

func newNotificationViews(list []*domain.Notification) []notificationView {
	out := make([]notificationView, 0, len(list))
	for _, n := range list {
		out = append(out, notificationView{
			ID:            n.ID,
			TransactionID: n.TransactionID,
			Title:         n.Title,
			Body:          n.Body,
			Read:          n.Read,
			CreatedAt:     n.CreatedAt,
		})
	}
	return out
}
