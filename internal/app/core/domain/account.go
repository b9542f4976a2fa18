package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultBranch 預設分行代碼
const DefaultBranch = "0001"

// Limits 帳戶提款限制，零值代表不限制
type Limits struct {
	// PerWithdrawal: 單筆提款上限
	PerWithdrawal decimal.Decimal `json:"per_withdrawal"`
	// DailyWithdrawals: 每日提款次數上限
	DailyWithdrawals int `json:"daily_withdrawals"`
	// DailyTransactions: 每日交易次數上限 (存款與提款合計)
	DailyTransactions int `json:"daily_transactions"`
}

// DefaultLimits 單筆 500、每日 3 次提款、交易次數不限
func DefaultLimits() Limits {
	return Limits{
		PerWithdrawal:    decimal.NewFromInt(500),
		DailyWithdrawals: 3,
	}
}

// Account 帳戶
// 餘額只能透過 Post 改變，且餘額與歷史一定同時更新
type Account struct {
	Number           int64
	Branch           string
	CustomerDocument string
	Balance          decimal.Decimal
	Limits           Limits
	CreatedAt        time.Time
	History          History
}

// NewAccount 建立餘額為 0 的新帳戶
func NewAccount(number int64, branch string, customerDocument string, limits Limits, createdAt time.Time) *Account {
	if branch == "" {
		branch = DefaultBranch
	}
	return &Account{
		Number:           number,
		Branch:           branch,
		CustomerDocument: customerDocument,
		Balance:          decimal.Zero,
		Limits:           limits,
		CreatedAt:        createdAt,
	}
}

// Deposit 存款
func (a *Account) Deposit(amount decimal.Decimal, now time.Time) (Transaction, error) {
	tran := Transaction{Type: TransactionTypeDeposit, Amount: amount}
	err := a.Post(&tran, now)
	return tran, err
}

// Withdraw 提款
func (a *Account) Withdraw(amount decimal.Decimal, now time.Time) (Transaction, error) {
	tran := Transaction{Type: TransactionTypeWithdraw, Amount: amount}
	err := a.Post(&tran, now)
	return tran, err
}

// Check 檢查交易能否入帳，不改變任何狀態
//
// 檢查順序:
//
//	金額 <= 0 或超過兩位小數 -> ErrInvalidAmount
//	當日交易次數已達上限     -> ErrDailyTransactionLimitExceeded
//	提款金額 > 餘額         -> ErrInsufficientFunds
//	提款金額 > 單筆上限      -> ErrPerOperationLimitExceeded
//	當日提款次數已達上限     -> ErrDailyLimitExceeded
func (a *Account) Check(tranType TransactionType, amount decimal.Decimal, now time.Time) error {
	if !tranType.Valid() {
		return ErrInvalidTransactionType
	}
	if !ValidAmount(amount) {
		return ErrInvalidAmount
	}
	if a.Limits.DailyTransactions > 0 && a.History.countToday(now) >= a.Limits.DailyTransactions {
		return ErrDailyTransactionLimitExceeded
	}
	if tranType != TransactionTypeWithdraw {
		return nil
	}
	if amount.GreaterThan(a.Balance) {
		return ErrInsufficientFunds
	}
	if a.Limits.PerWithdrawal.IsPositive() && amount.GreaterThan(a.Limits.PerWithdrawal) {
		return ErrPerOperationLimitExceeded
	}
	if a.Limits.DailyWithdrawals > 0 &&
		a.History.countToday(now, TransactionTypeWithdraw) >= a.Limits.DailyWithdrawals {
		return ErrDailyLimitExceeded
	}
	return nil
}

// Post 檢查並入帳 (check-then-commit)
// 成功時會填入 tran 的 TransactionID (若為空)、AccountNumber 與 CreatedAt
//
// 參數:
//
//	tran: 交易物件，只需 Type 與 Amount
//	now: 入帳時間，也用來判斷「當日」
//
// 回傳:
//
//	error: 檢查失敗時回傳，帳戶狀態不變
func (a *Account) Post(tran *Transaction, now time.Time) error {
	if err := a.Check(tran.Type, tran.Amount, now); err != nil {
		return err
	}
	if tran.TransactionID == uuid.Nil {
		tran.TransactionID = uuid.New()
	}
	tran.AccountNumber = a.Number
	tran.CreatedAt = now
	a.apply(*tran)
	return nil
}

// Replay 重放已入帳的交易 (WAL 恢復用)
// 交易當時已通過檢查，這裡只擋掉不合法的紀錄，不再檢查限額
func (a *Account) Replay(tran Transaction) error {
	if err := tran.Validate(); err != nil {
		return err
	}
	a.apply(tran)
	return nil
}

// WithdrawalsToday 當日已提款次數
func (a *Account) WithdrawalsToday(now time.Time) int {
	return a.History.countToday(now, TransactionTypeWithdraw)
}

// Clone 深拷貝，供外部讀取而不暴露內部狀態
func (a *Account) Clone() *Account {
	cp := *a
	cp.History = a.History.clone()
	return &cp
}

func (a *Account) apply(tran Transaction) {
	switch tran.Type {
	case TransactionTypeDeposit:
		a.Balance = a.Balance.Add(tran.Amount)
	case TransactionTypeWithdraw:
		a.Balance = a.Balance.Sub(tran.Amount)
	}
	a.History.append(tran)
}
