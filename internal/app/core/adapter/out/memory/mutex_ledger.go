package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
)

// MutexLedger 是一個使用 Mutex 實現的帳本
//
// 結構:
//
//	mu: RWMutex 用於保護帳本狀態，寫入互斥、讀取共享
//	state: 客戶、帳戶與已處理交易
type MutexLedger struct {
	mu    sync.RWMutex
	state *bankState
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 參數:
//
//	opts: WithWAL / WithClock
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewMutexLedger(opts ...Option) (*MutexLedger, error) {
	ledger := &MutexLedger{
		state: newBankState(opts...),
	}
	if err := ledger.state.recoverFromWAL(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// CreateCustomer 建立客戶
func (m *MutexLedger) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.createCustomer(customer)
}

// GetCustomer 依證件號碼取得客戶
func (m *MutexLedger) GetCustomer(ctx context.Context, document string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getCustomer(document)
}

// ListCustomers 列出所有客戶
func (m *MutexLedger) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listCustomers(), nil
}

// CreateAccount 開戶
func (m *MutexLedger) CreateAccount(ctx context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.createAccount(account)
}

// GetAccount 取得帳戶
func (m *MutexLedger) GetAccount(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getAccount(accountNumber)
}

// ListAccounts 列出所有帳戶
func (m *MutexLedger) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listAccounts(), nil
}

// PostTransaction 處理交易請求 (Level 1: Mutex Lock)
//
// 參數:
//
//	ctx: 上下文
//	tran: 交易請求物件
//
// 回傳:
//
//	error: 處理錯誤
func (m *MutexLedger) PostTransaction(ctx context.Context, tran *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.postTransaction(tran)
}

// GetAccountBalance 取得指定帳戶的當前餘額
//
// 參數:
//
//	ctx: 上下文
//	accountNumber: 帳戶號碼
//
// 回傳:
//
//	decimal.Decimal: 帳戶餘額
//	error: 查詢錯誤 (如帳戶不存在)
func (m *MutexLedger) GetAccountBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getAccountBalance(accountNumber)
}

var _ usecase.Ledger = (*MutexLedger)(nil)
