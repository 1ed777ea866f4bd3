package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification 通知，只有擁有者可以標記已讀
type Notification struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Title         string
	Body          string
	Read          bool
	CreatedAt     time.Time
}

// NewTransactionNotifications 依入帳交易產生通知
// 收款人一定會收到；非存款交易的付款人也會收到一則「已送出」通知
func NewTransactionNotifications(tx *Transaction, sender, receiver *Account, now time.Time) []*Notification {
	amount := tx.Amount.FormatBRL()
	if tx.IsDeposit() {
		return []*Notification{
			newNotification(tx, tx.ReceiverID, "Depósito confirmado",
				fmt.Sprintf("Seu depósito de %s foi creditado.", amount), now),
		}
	}

	var title, verb string
	switch tx.Kind {
	case TransactionKindPix:
		title, verb = "Pix recebido", "um Pix"
	case TransactionKindPayment:
		title, verb = "Pagamento recebido", "um pagamento"
	default:
		title, verb = "Transferência recebida", "uma transferência"
	}

	return []*Notification{
		newNotification(tx, tx.ReceiverID, title,
			fmt.Sprintf("Você recebeu %s de %s de %s.", verb, amount, label(sender)), now),
		newNotification(tx, tx.SenderID, sentTitle(tx.Kind),
			fmt.Sprintf("Você enviou %s para %s.", amount, label(receiver)), now),
	}
}

// NotificationID 由交易與收件人決定，同一筆交易重送不會產生重複通知
func NotificationID(txID, owner uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(txID, owner[:])
}

func newNotification(tx *Transaction, owner uuid.UUID, title, body string, now time.Time) *Notification {
	return &Notification{
		ID:            NotificationID(tx.ID, owner),
		AccountID:     owner,
		TransactionID: tx.ID,
		Title:         title,
		Body:          body,
		CreatedAt:     now,
	}
}

func label(a *Account) string {
	if a == nil {
		return "outra conta"
	}
	return fmt.Sprintf("%s (%s)", a.DisplayName, a.Handle())
}

func sentTitle(k TransactionKind) string {
	switch k {
	case TransactionKindPix:
		return "Pix enviado"
	case TransactionKindPayment:
		return "Pagamento enviado"
	default:
		return "Transferência enviada"
	}
}

// UnreadCount 未讀數量
func UnreadCount(ns []*Notification) int {
	n := 0
	for _, x := range ns {
		if !x.Read {
			n++
		}
	}
	return n
}
