package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Direction 從檢視者角度看的資金方向
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// DepositLabel 存款交易固定顯示的對方名稱
const DepositLabel = "Deposit"

// HistoryEntry 交易紀錄的唯讀投影
type HistoryEntry struct {
	TransactionID uuid.UUID
	Kind          TransactionKind
	Direction     Direction
	// SignedAmount: 支出為負、收入為正
	SignedAmount Amount
	Amount       Amount
	// CounterpartID: 存款時為 uuid.Nil
	CounterpartID     uuid.UUID
	CounterpartLabel  string
	CounterpartHandle string
	Description       string
	CreatedAt         time.Time
}

// DeriveHistoryEntry 由檢視者與交易推導出顯示資料，純函式不會修改任何狀態
//
// 參數:
//
//	viewer: 檢視者帳戶 ID
//	tx: 交易
//	accounts: 對方帳戶資料 (可缺少，缺少時 label 為空)
func DeriveHistoryEntry(viewer uuid.UUID, tx *Transaction, accounts map[uuid.UUID]*Account) HistoryEntry {
	isDeposit := tx.IsDeposit()
	isOutgoing := tx.SenderID == viewer && !isDeposit

	entry := HistoryEntry{
		TransactionID: tx.ID,
		Kind:          tx.Kind,
		Amount:        tx.Amount,
		Description:   tx.Description,
		CreatedAt:     tx.CreatedAt,
	}

	if isOutgoing {
		entry.Direction = DirectionExpense
		entry.SignedAmount = -tx.Amount
	} else {
		entry.Direction = DirectionIncome
		entry.SignedAmount = tx.Amount
	}

	switch {
	case isDeposit:
		entry.CounterpartLabel = DepositLabel
	case isOutgoing:
		entry.CounterpartID = tx.ReceiverID
	default:
		entry.CounterpartID = tx.SenderID
	}
	if acc, ok := accounts[entry.CounterpartID]; ok && !isDeposit {
		entry.CounterpartLabel = acc.DisplayName
		entry.CounterpartHandle = acc.Handle()
	}
	return entry
}

// DeriveHistory 推導整份歷史紀錄，依建立時間由新到舊排序
func DeriveHistory(viewer uuid.UUID, txs []*Transaction, accounts map[uuid.UUID]*Account) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(txs))
	for _, tx := range txs {
		if !tx.Involves(viewer) {
			continue
		}
		entries = append(entries, DeriveHistoryEntry(viewer, tx, accounts))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries
}

// CounterpartIDs 回傳需要查詢名稱的對方帳戶 ID (不含存款)
func CounterpartIDs(viewer uuid.UUID, txs []*Transaction) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0, len(txs))
	for _, tx := range txs {
		if tx.IsDeposit() {
			continue
		}
		id := tx.SenderID
		if id == viewer {
			id = tx.ReceiverID
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Summary 收支統計
type Summary struct {
	Income  Amount
	Expense Amount
	Net     Amount
	Count   int
}

// Summarize 統計收入、支出與淨額
func Summarize(entries []HistoryEntry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Direction {
		case DirectionIncome:
			s.Income += e.Amount
		case DirectionExpense:
			s.Expense += e.Amount
		}
		s.Count++
	}
	s.Net = s.Income - s.Expense
	return s
}
