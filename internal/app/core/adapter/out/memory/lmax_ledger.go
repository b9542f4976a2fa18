package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
)

// request 請求包裝channel，讓呼叫端可以等待結果
type request struct {
	fn     func(s *bankState) error
	result chan error // 讓呼叫端等這個 channel
}

// LMAXLedger 所有讀寫都交給單一 goroutine 依序執行，狀態不需要鎖
// 必須先呼叫 Start 才會開始處理請求
type LMAXLedger struct {
	state *bankState
	// 輸送帶 負責接收請求
	requests chan *request
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	// 核心停止後關閉
	done chan struct{}
	once sync.Once
}

// NewLMAXLedger 建立一個新的 LMAXLedger 實例
//
// 參數:
//
//	opts: WithWAL / WithClock
//
// 回傳:
//
//	*LMAXLedger: LMAXLedger 實例
//	error: 初始化錯誤
func NewLMAXLedger(opts ...Option) (*LMAXLedger, error) {
	ledger := &LMAXLedger{
		state:    newBankState(opts...),
		requests: make(chan *request, 1000), // Buffer 1000
		requestPool: sync.Pool{
			New: func() interface{} {
				return &request{
					result: make(chan error, 1),
				}
			},
		},
		done: make(chan struct{}),
	}

	// 在啟動前先恢復資料
	if err := ledger.state.recoverFromWAL(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// Start 啟動核心引擎 (非同步)，ctx 取消後處理完剩下的請求才停止
func (l *LMAXLedger) Start(ctx context.Context) {
	l.once.Do(func() {
		go l.run(ctx)
	})
}

// Done 核心停止後關閉
func (l *LMAXLedger) Done() <-chan struct{} {
	return l.done
}

func (l *LMAXLedger) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的請求處理完
			l.drain()
			return
		case req := <-l.requests:
			req.result <- req.fn(l.state)
		}
	}
}

func (l *LMAXLedger) drain() {
	for {
		select {
		case req := <-l.requests:
			req.result <- req.fn(l.state)
		default:
			return
		}
	}
}

// do 把工作放上輸送帶並等待結果
// do -> Channel -> Run Loop (核心) -> WAL -> Map Update -> Result Channel -> do(收到結果)
func (l *LMAXLedger) do(ctx context.Context, fn func(s *bankState) error) error {
	req := l.requestPool.Get().(*request)
	req.fn = fn
	// 清空 Channel (理論上應該是空的)
	select {
	case <-req.result:
	default:
	}

	select {
	case l.requests <- req:
	case <-ctx.Done():
		req.fn = nil
		l.requestPool.Put(req)
		return ctx.Err()
	case <-l.done:
		return ErrLedgerStopped
	}

	select {
	case err := <-req.result:
		req.fn = nil
		l.requestPool.Put(req)
		return err
	case <-l.done:
		// 核心在 drain 之後才收到的請求不會被處理
		select {
		case err := <-req.result:
			return err
		default:
			return ErrLedgerStopped
		}
	}
}

// CreateCustomer 建立客戶
func (l *LMAXLedger) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	return l.do(ctx, func(s *bankState) error {
		return s.createCustomer(customer)
	})
}

// GetCustomer 依證件號碼取得客戶
func (l *LMAXLedger) GetCustomer(ctx context.Context, document string) (*domain.Customer, error) {
	var customer *domain.Customer
	err := l.do(ctx, func(s *bankState) error {
		var err error
		customer, err = s.getCustomer(document)
		return err
	})
	return customer, err
}

// ListCustomers 列出所有客戶
func (l *LMAXLedger) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	err := l.do(ctx, func(s *bankState) error {
		customers = s.listCustomers()
		return nil
	})
	return customers, err
}

// CreateAccount 開戶
func (l *LMAXLedger) CreateAccount(ctx context.Context, account *domain.Account) error {
	return l.do(ctx, func(s *bankState) error {
		return s.createAccount(account)
	})
}

// GetAccount 取得帳戶
func (l *LMAXLedger) GetAccount(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	var account *domain.Account
	err := l.do(ctx, func(s *bankState) error {
		var err error
		account, err = s.getAccount(accountNumber)
		return err
	})
	return account, err
}

// ListAccounts 列出所有帳戶
func (l *LMAXLedger) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	var accounts []*domain.Account
	err := l.do(ctx, func(s *bankState) error {
		accounts = s.listAccounts()
		return nil
	})
	return accounts, err
}

// PostTransaction 接收交易請求
func (l *LMAXLedger) PostTransaction(ctx context.Context, tran *domain.Transaction) error {
	return l.do(ctx, func(s *bankState) error {
		return s.postTransaction(tran)
	})
}

// GetAccountBalance 取得指定帳戶的當前餘額
func (l *LMAXLedger) GetAccountBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error) {
	balance := decimal.Zero
	err := l.do(ctx, func(s *bankState) error {
		var err error
		balance, err = s.getAccountBalance(accountNumber)
		return err
	})
	return balance, err
}

var _ usecase.Ledger = (*LMAXLedger)(nil)
