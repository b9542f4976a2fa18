package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
)

// Ledger 是帳務系統的介面 (Driven Port)
// 所有實作回傳的 Customer / Account 都是拷貝，呼叫端修改不會影響帳本
type Ledger interface {
	// CreateCustomer 建立客戶，證件號碼重複回傳 ErrDuplicateCustomer
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
	// GetCustomer 依證件號碼取得客戶
	GetCustomer(ctx context.Context, document string) (*domain.Customer, error)
	// ListCustomers 依建立順序列出所有客戶
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)
	// CreateAccount 開戶，由帳本分配帳號並填回 account.Number 與 CreatedAt
	CreateAccount(ctx context.Context, account *domain.Account) error
	// GetAccount 取得帳戶 (含交易歷史)
	GetAccount(ctx context.Context, accountNumber int64) (*domain.Account, error)
	// ListAccounts 依帳號順序列出所有帳戶
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
	// PostTransaction 不分 Deposit/Withdraw，直接看 tran.Type 決定
	// 同一個 TransactionID 重複送入時回傳第一次的結果，不重複入帳
	PostTransaction(ctx context.Context, tran *domain.Transaction) error
	// GetAccountBalance 取得帳戶餘額
	GetAccountBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error)
}
