package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-nox-ledger/pkg/mysql"
)

type MySQLLedger struct {
	client *mysql.Client
	logger zerolog.Logger
	now    func() time.Time
}

func NewMySQLLedger(client *mysql.Client, logger zerolog.Logger) *MySQLLedger {
	return &MySQLLedger{
		client: client,
		logger: logger.With().Str("component", "mysql_ledger").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ProcessTransaction 在同一個資料庫交易內完成扣款、入帳與交易紀錄
// 依排序後的帳戶 ID 使用 SELECT ... FOR UPDATE 悲觀鎖，避免死鎖
func (ledger *MySQLLedger) ProcessTransaction(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var result *domain.Transaction
	err := ledger.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先檢查是否有這筆交易記錄
		if req.RequestID != uuid.Nil {
			existing, err := findByRequestID(tx, req.RequestID)
			if err == nil {
				if err := existing.CheckReplay(req); err != nil {
					return err
				}
				ledger.logger.Debug().Str("request", req.RequestID.String()).Msg("replayed request")
				result = existing
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				ledger.logger.Error().Err(err).Msg("select transaction failed")
				return domain.ErrSelectTransactionFailed
			}
		}

		// 取得鎖定帳號 以及lockID 悲觀鎖
		lockIDs := domain.LockOrder(req.SenderID, req.ReceiverID)
		var rows []sqlAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", idList(lockIDs)).
			Order("id").
			Find(&rows).Error; err != nil {
			return err
		}
		accounts := make(map[uuid.UUID]*sqlAccount, len(rows))
		for i := range rows {
			accounts[uuidFrom(rows[i].ID)] = &rows[i]
		}

		// 安全檢查：確保涉及的帳號都存在且可用
		sender, ok := accounts[req.SenderID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		receiver, ok := accounts[req.ReceiverID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if !sender.toDomain().Active() || !receiver.toDomain().Active() {
			return domain.ErrAccountBlocked
		}

		// 扣款的需檢查餘額，入帳的需檢查溢位
		if !domain.Amount(receiver.Balance).CanAdd(req.Amount) {
			return domain.ErrBalanceOverflow
		}
		amount := int64(req.Amount)
		if req.Kind == domain.TransactionKindDeposit {
			receiver.Balance += amount
		} else {
			if sender.Balance < amount {
				return domain.ErrInsufficientBalance
			}
			sender.Balance -= amount
			receiver.Balance += amount
		}

		// 更新資料庫
		for id, acc := range accounts {
			if err := tx.Model(&sqlAccount{}).Where("id = ?", idBytes(id)).
				Update("balance", acc.Balance).Error; err != nil {
				return err
			}
		}

		// 建立交易紀錄
		created := domain.NewTransaction(req, ledger.now())
		row := sqlTransaction{
			TxID:        idBytes(created.ID),
			RequestID:   idBytes(created.RequestID),
			SenderID:    idBytes(created.SenderID),
			ReceiverID:  idBytes(created.ReceiverID),
			Amount:      int64(created.Amount),
			Kind:        uint8(created.Kind),
			Description: created.Description,
			CreatedAt:   created.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		result = row.toDomain()
		return nil
	})

	// 同一個 RequestID 同時送進來，後到的那筆撞到唯一鍵：回傳先入帳的交易
	if errors.Is(err, gorm.ErrDuplicatedKey) && req.RequestID != uuid.Nil {
		existing, err := findByRequestID(ledger.client.DB().WithContext(ctx), req.RequestID)
		if err != nil {
			return nil, err
		}
		if err := existing.CheckReplay(req); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func findByRequestID(db *gorm.DB, requestID uuid.UUID) (*domain.Transaction, error) {
	var row sqlTransaction
	if err := db.Where("request_id = ?", idBytes(requestID)).Take(&row).Error; err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// GetAccountBalance 取得帳戶餘額
func (ledger *MySQLLedger) GetAccountBalance(ctx context.Context, accountID uuid.UUID) (domain.Amount, error) {
	var row sqlAccount
	err := ledger.client.DB().WithContext(ctx).Select("balance").Where("id = ?", idBytes(accountID)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, domain.ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}
	return domain.Amount(row.Balance), nil
}

var _ usecase.Ledger = (*MySQLLedger)(nil)
