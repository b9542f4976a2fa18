package usecase

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
)

// CoreUseCase 是核心業務邏輯層，也是整個 session 的應用程式上下文
type CoreUseCase struct {
	ledger Ledger
	branch string
	limits domain.Limits
}

// Option 設定 CoreUseCase
type Option func(*CoreUseCase)

// WithBranch 設定開戶使用的分行代碼
func WithBranch(branch string) Option {
	return func(c *CoreUseCase) {
		if branch != "" {
			c.branch = branch
		}
	}
}

// WithLimits 設定新開帳戶的提款限制
func WithLimits(limits domain.Limits) Option {
	return func(c *CoreUseCase) {
		c.limits = limits
	}
}

func NewCoreUseCase(ledger Ledger, opts ...Option) *CoreUseCase {
	c := &CoreUseCase{
		ledger: ledger,
		branch: domain.DefaultBranch,
		limits: domain.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateCustomerInput 建立客戶的輸入
type CreateCustomerInput struct {
	Document  string
	Name      string
	BirthDate string
	Address   string
}

// CreateCustomer 建立客戶
//
// 參數:
//
//	ctx: 上下文
//	in: 客戶資料
//
// 回傳:
//
//	*domain.Customer: 新客戶
//	error: ErrInvalidCustomer / ErrDuplicateCustomer
func (c *CoreUseCase) CreateCustomer(ctx context.Context, in CreateCustomerInput) (*domain.Customer, error) {
	birthDate, err := domain.ParseBirthDate(in.BirthDate)
	if err != nil {
		return nil, err
	}
	customer, err := domain.NewCustomer(in.Document, in.Name, birthDate, in.Address)
	if err != nil {
		return nil, err
	}
	if err := c.ledger.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// GetCustomer 取得客戶
func (c *CoreUseCase) GetCustomer(ctx context.Context, document string) (*domain.Customer, error) {
	return c.ledger.GetCustomer(ctx, document)
}

// ListCustomers 列出所有客戶
func (c *CoreUseCase) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	return c.ledger.ListCustomers(ctx)
}

// CreateAccount 為客戶開立新帳戶，使用預設分行與限額
func (c *CoreUseCase) CreateAccount(ctx context.Context, document string) (*domain.Account, error) {
	if _, err := c.ledger.GetCustomer(ctx, document); err != nil {
		return nil, err
	}
	account := domain.NewAccount(0, c.branch, document, c.limits, time.Time{})
	if err := c.ledger.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccount 取得帳戶
func (c *CoreUseCase) GetAccount(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	return c.ledger.GetAccount(ctx, accountNumber)
}

// ListAccounts 列出帳戶，document 不為空時只列出該客戶名下帳戶
func (c *CoreUseCase) ListAccounts(ctx context.Context, document string) ([]*domain.Account, error) {
	if document != "" {
		if _, err := c.ledger.GetCustomer(ctx, document); err != nil {
			return nil, err
		}
	}
	accounts, err := c.ledger.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if document == "" {
		return accounts, nil
	}
	out := make([]*domain.Account, 0)
	for _, account := range accounts {
		if account.CustomerDocument == document {
			out = append(out, account)
		}
	}
	return out, nil
}

// Deposit 存款
//
// 參數:
//
//	refID: 外部追蹤號，uuid.Nil 時自動產生
func (c *CoreUseCase) Deposit(ctx context.Context, accountNumber int64, amount decimal.Decimal, refID uuid.UUID) (*domain.Transaction, error) {
	return c.post(ctx, domain.TransactionTypeDeposit, accountNumber, amount, refID)
}

// Withdraw 提款
func (c *CoreUseCase) Withdraw(ctx context.Context, accountNumber int64, amount decimal.Decimal, refID uuid.UUID) (*domain.Transaction, error) {
	return c.post(ctx, domain.TransactionTypeWithdraw, accountNumber, amount, refID)
}

// PostTransaction 處理交易
func (c *CoreUseCase) PostTransaction(ctx context.Context, tran *domain.Transaction) error {
	if tran.TransactionID == uuid.Nil {
		tran.TransactionID = uuid.New()
	}
	return c.ledger.PostTransaction(ctx, tran)
}

// Statement 取得帳戶交易明細
//
// 參數:
//
//	ctx: 上下文
//	accountNumber: 帳戶號碼
//	types: 要列出的交易類型，不傳則全部
//
// 回傳:
//
//	iter.Seq[domain.Transaction]: 可重複迭代的交易序列
//	error: ErrAccountNotFound
func (c *CoreUseCase) Statement(ctx context.Context, accountNumber int64, types ...domain.TransactionType) (iter.Seq[domain.Transaction], error) {
	account, err := c.ledger.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	return account.History.Statement(types...), nil
}

// GetAccountBalance 取得帳戶餘額
func (c *CoreUseCase) GetAccountBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error) {
	return c.ledger.GetAccountBalance(ctx, accountNumber)
}

func (c *CoreUseCase) post(ctx context.Context, tranType domain.TransactionType, accountNumber int64, amount decimal.Decimal, refID uuid.UUID) (*domain.Transaction, error) {
	tran := &domain.Transaction{
		TransactionID: refID,
		AccountNumber: accountNumber,
		Amount:        amount,
		Type:          tranType,
	}
	if err := c.PostTransaction(ctx, tran); err != nil {
		return nil, err
	}
	return tran, nil
}
