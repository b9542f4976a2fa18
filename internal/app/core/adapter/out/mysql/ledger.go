package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-bank/pkg/mysql"
)

// MySQLLedger 使用 MySQL 持久化的帳本 (Level 0)
// 入帳規則與記憶體帳本相同，都由 domain.Account 負責
type MySQLLedger struct {
	client *mysql.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewMySQLLedger(client *mysql.Client, logger *zap.Logger) *MySQLLedger {
	return &MySQLLedger{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Migrate 建立 customers / accounts / transactions 表
func (ledger *MySQLLedger) Migrate(ctx context.Context) error {
	return ledger.client.DB().WithContext(ctx).AutoMigrate(&sqlCustomer{}, &sqlAccount{}, &sqlTransaction{})
}

// CreateCustomer 建立客戶
func (ledger *MySQLLedger) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	if customer.Kind == 0 {
		customer.Kind = domain.CustomerKindIndividual
	}
	customer.CreatedAt = ledger.now()
	customer.Accounts = make([]int64, 0)
	row := customerFromDomain(customer)

	return ledger.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&sqlCustomer{}).Where("document = ?", customer.Document).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrDuplicateCustomer
		}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicateCustomer
			}
			return err
		}
		return nil
	})
}

// GetCustomer 依證件號碼取得客戶
func (ledger *MySQLLedger) GetCustomer(ctx context.Context, document string) (*domain.Customer, error) {
	db := ledger.client.DB().WithContext(ctx)
	var row sqlCustomer
	if err := db.Where("document = ?", document).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	var numbers []int64
	if err := db.Model(&sqlAccount{}).Where("customer_document = ?", document).Order("number").Pluck("number", &numbers).Error; err != nil {
		return nil, err
	}
	return row.toDomain(numbers), nil
}

// ListCustomers 依建立順序列出所有客戶
func (ledger *MySQLLedger) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	db := ledger.client.DB().WithContext(ctx)
	var rows []sqlCustomer
	if err := db.Order("created_at, document").Find(&rows).Error; err != nil {
		return nil, err
	}
	var accounts []sqlAccount
	if err := db.Select("number", "customer_document").Order("number").Find(&accounts).Error; err != nil {
		return nil, err
	}
	owned := make(map[string][]int64)
	for _, a := range accounts {
		owned[a.CustomerDocument] = append(owned[a.CustomerDocument], a.Number)
	}
	out := make([]*domain.Customer, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain(owned[rows[i].Document]))
	}
	return out, nil
}

// CreateAccount 開戶，帳號由資料庫自動遞增
func (ledger *MySQLLedger) CreateAccount(ctx context.Context, account *domain.Account) error {
	return ledger.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&sqlCustomer{}).Where("document = ?", account.CustomerDocument).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrCustomerNotFound
		}
		created := domain.NewAccount(0, account.Branch, account.CustomerDocument, account.Limits, ledger.now())
		row := accountFromDomain(created)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		created.Number = row.Number
		*account = *created
		return nil
	})
}

// GetAccount 取得帳戶與完整交易歷史
func (ledger *MySQLLedger) GetAccount(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	db := ledger.client.DB().WithContext(ctx)
	var row sqlAccount
	if err := db.Where("number = ?", accountNumber).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	var history []sqlTransaction
	if err := db.Where("account_number = ?", accountNumber).Order("id").Find(&history).Error; err != nil {
		return nil, err
	}
	return row.toDomain(history), nil
}

// ListAccounts 列出所有帳戶 (不含交易歷史)
func (ledger *MySQLLedger) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	var rows []sqlAccount
	if err := ledger.client.DB().WithContext(ctx).Order("number").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Account, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain(nil))
	}
	return out, nil
}

// PostTransaction 在資料庫交易內鎖定帳戶 (悲觀鎖) 後入帳
//
// 參數:
//
//	ctx: 上下文
//	tran: 交易請求物件
//
// 回傳:
//
//	error: 處理錯誤，失敗時整筆 rollback
func (ledger *MySQLLedger) PostTransaction(ctx context.Context, tran *domain.Transaction) error {
	return ledger.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先檢查是否有這筆交易記錄
		var existing sqlTransaction
		err := tx.Where("ref_id = ?", tran.TransactionID[:]).First(&existing).Error
		if err == nil {
			done := existing.toDomain()
			if !done.SameRequest(tran) {
				return domain.ErrDuplicateRefID
			}
			ledger.logger.Debug("transaction already processed", zap.String("ref_id", tran.TransactionID.String()))
			*tran = done
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			ledger.logger.Error("select transaction failed", zap.Error(err))
			return fmt.Errorf("%w: %v", domain.ErrSelectTransactionFailed, err)
		}

		// 鎖定帳號
		var row sqlAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("number = ?", tran.AccountNumber).
			First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrAccountNotFound
			}
			return err
		}

		// 當日交易足以判斷限額
		now := ledger.now()
		start, end := dayRange(now)
		var today []sqlTransaction
		if err := tx.Where("account_number = ? AND created_at >= ? AND created_at < ?", row.Number, start, end).
			Order("id").
			Find(&today).Error; err != nil {
			return err
		}
		account := row.toDomain(today)
		if err := account.Post(tran, now); err != nil {
			return err
		}

		// 更新餘額並建立交易紀錄
		if err := tx.Model(&sqlAccount{}).Where("number = ?", row.Number).Update("balance", account.Balance).Error; err != nil {
			return err
		}
		record := transactionFromDomain(tran)
		return tx.Create(&record).Error
	})
}

// GetAccountBalance 取得帳戶餘額
func (ledger *MySQLLedger) GetAccountBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error) {
	var row sqlAccount
	err := ledger.client.DB().WithContext(ctx).Select("balance").Where("number = ?", accountNumber).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, domain.ErrAccountNotFound
		}
		return decimal.Zero, err
	}
	return row.Balance, nil
}

var _ usecase.Ledger = (*MySQLLedger)(nil)
