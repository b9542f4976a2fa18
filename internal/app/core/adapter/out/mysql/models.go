package mysql

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
)

// sqlCustomer 對應資料庫的 customers 表
type sqlCustomer struct {
	Document  string     `gorm:"primaryKey;size:32"`
	Name      string     `gorm:"size:100;not null"`
	BirthDate *time.Time `gorm:"type:date"`
	Address   string     `gorm:"size:255"`
	Kind      uint8      `gorm:"not null;default:1"`
	CreatedAt time.Time  `gorm:"index"`
}

func (*sqlCustomer) TableName() string {
	return "customers"
}

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	Number             int64           `gorm:"primaryKey;autoIncrement"`
	Branch             string          `gorm:"size:8;not null"`
	CustomerDocument   string          `gorm:"size:32;not null;index"`
	Balance            decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	PerWithdrawalLimit decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	DailyWithdrawals   int
	DailyTransactions  int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransaction 對應資料庫的 transactions 表
type sqlTransaction struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	RefID         []byte          `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.TransactionID
	AccountNumber int64           `gorm:"not null;index:idx_account_created,priority:1"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Type          uint8           `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"index:idx_account_created,priority:2"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

func customerFromDomain(c *domain.Customer) sqlCustomer {
	row := sqlCustomer{
		Document:  c.Document,
		Name:      c.Name,
		Address:   c.Address,
		Kind:      uint8(c.Kind),
		CreatedAt: c.CreatedAt,
	}
	if !c.BirthDate.IsZero() {
		birthDate := c.BirthDate
		row.BirthDate = &birthDate
	}
	return row
}

func (row *sqlCustomer) toDomain(accounts []int64) *domain.Customer {
	c := &domain.Customer{
		Document:  row.Document,
		Name:      row.Name,
		Address:   row.Address,
		Kind:      domain.CustomerKind(row.Kind),
		Accounts:  accounts,
		CreatedAt: row.CreatedAt,
	}
	if row.BirthDate != nil {
		c.BirthDate = *row.BirthDate
	}
	if c.Accounts == nil {
		c.Accounts = make([]int64, 0)
	}
	return c
}

func accountFromDomain(a *domain.Account) sqlAccount {
	return sqlAccount{
		Number:             a.Number,
		Branch:             a.Branch,
		CustomerDocument:   a.CustomerDocument,
		Balance:            a.Balance,
		PerWithdrawalLimit: a.Limits.PerWithdrawal,
		DailyWithdrawals:   a.Limits.DailyWithdrawals,
		DailyTransactions:  a.Limits.DailyTransactions,
		CreatedAt:          a.CreatedAt,
	}
}

// toDomain 轉為 domain.Account，history 為依入帳順序的交易
func (row *sqlAccount) toDomain(history []sqlTransaction) *domain.Account {
	transactions := make([]domain.Transaction, 0, len(history))
	for i := range history {
		transactions = append(transactions, history[i].toDomain())
	}
	return &domain.Account{
		Number:           row.Number,
		Branch:           row.Branch,
		CustomerDocument: row.CustomerDocument,
		Balance:          row.Balance,
		Limits: domain.Limits{
			PerWithdrawal:     row.PerWithdrawalLimit,
			DailyWithdrawals:  row.DailyWithdrawals,
			DailyTransactions: row.DailyTransactions,
		},
		CreatedAt: row.CreatedAt,
		History:   domain.NewHistory(transactions),
	}
}

func transactionFromDomain(t *domain.Transaction) sqlTransaction {
	return sqlTransaction{
		RefID:         t.TransactionID[:],
		AccountNumber: t.AccountNumber,
		Amount:        t.Amount,
		Type:          uint8(t.Type),
		CreatedAt:     t.CreatedAt,
	}
}

func (row *sqlTransaction) toDomain() domain.Transaction {
	var id uuid.UUID
	copy(id[:], row.RefID)
	return domain.Transaction{
		TransactionID: id,
		AccountNumber: row.AccountNumber,
		Amount:        row.Amount,
		CreatedAt:     row.CreatedAt,
		Type:          domain.TransactionType(row.Type),
	}
}

// dayRange 回傳 now 所在日曆日的 [start, end)
func dayRange(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}
