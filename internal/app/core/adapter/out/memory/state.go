package memory

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/pkg/wal"
)

// ErrLedgerStopped 帳本核心已停止，不再接受請求
var ErrLedgerStopped = errors.New("ledger stopped")

// Option 設定記憶體帳本
type Option func(*bankState)

// WithWAL 設定 Write-Ahead Log，nil 代表不落盤
func WithWAL(w *wal.WAL) Option {
	return func(s *bankState) {
		s.wal = w
	}
}

// WithClock 設定時間來源 (測試用)
func WithClock(now func() time.Time) Option {
	return func(s *bankState) {
		if now != nil {
			s.now = now
		}
	}
}

// bankState 帳本的記憶體狀態
// 本身不做同步，由 MutexLedger (鎖) 或 LMAXLedger (單一執行緒) 保證序列化
//
// 結構:
//
//	customers: 證件號碼 -> 客戶
//	customerOrder: 客戶建立順序
//	accounts: 帳號 -> 帳戶
//	processedTransactions: 已處理過的交易 (冪等用)
//	wal: Write-Ahead Log 實例
type bankState struct {
	customers             map[string]*domain.Customer
	customerOrder         []string
	accounts              map[int64]*domain.Account
	lastAccountNumber     int64
	processedTransactions map[uuid.UUID]domain.Transaction
	wal                   *wal.WAL
	now                   func() time.Time
}

func newBankState(opts ...Option) *bankState {
	s := &bankState{
		customers:             make(map[string]*domain.Customer),
		customerOrder:         make([]string, 0),
		accounts:              make(map[int64]*domain.Account),
		processedTransactions: make(map[uuid.UUID]domain.Transaction),
		now:                   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
// 只在建構時呼叫 (單執行緒)，不需 Lock
//
// 回傳:
//
//	error: 恢復過程錯誤
func (s *bankState) recoverFromWAL() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.ReadAll(func(jsonRaw []byte) error {
		entry, err := decodeEntry(jsonRaw)
		if err != nil {
			return err
		}
		return s.applyRecoverEntry(entry)
	})
}

// applyRecoverEntry 恢復單筆紀錄至記憶體 (不寫入 WAL，不檢查限額)
func (s *bankState) applyRecoverEntry(entry journalEntry) error {
	switch entry.Kind {
	case entryCustomer:
		if entry.Customer == nil {
			return fmt.Errorf("wal: customer entry without payload")
		}
		s.putCustomer(entry.Customer.Clone())
	case entryAccount:
		rec := entry.Account
		if rec == nil {
			return fmt.Errorf("wal: account entry without payload")
		}
		if _, ok := s.customers[rec.CustomerDocument]; !ok {
			return fmt.Errorf("wal: account %d: %w", rec.Number, domain.ErrCustomerNotFound)
		}
		s.putAccount(domain.NewAccount(rec.Number, rec.Branch, rec.CustomerDocument, rec.Limits, rec.CreatedAt))
	case entryTransaction:
		tran := entry.Transaction
		if tran == nil {
			return fmt.Errorf("wal: transaction entry without payload")
		}
		account, ok := s.accounts[tran.AccountNumber]
		if !ok {
			return fmt.Errorf("wal: transaction %s: %w", tran.TransactionID, domain.ErrAccountNotFound)
		}
		if err := account.Replay(*tran); err != nil {
			return fmt.Errorf("wal: transaction %s: %w", tran.TransactionID, err)
		}
		s.processedTransactions[tran.TransactionID] = *tran
	default:
		return fmt.Errorf("wal: unknown entry kind %q", entry.Kind)
	}
	return nil
}

// journal 寫入 WAL (Critical Path)，寫入成功才能改變記憶體狀態
func (s *bankState) journal(entry journalEntry) error {
	if s.wal == nil {
		return nil
	}
	if err := s.wal.Write(entry); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
	}
	return nil
}

func (s *bankState) createCustomer(customer *domain.Customer) error {
	if _, ok := s.customers[customer.Document]; ok {
		return domain.ErrDuplicateCustomer
	}
	if customer.Kind == 0 {
		customer.Kind = domain.CustomerKindIndividual
	}
	customer.CreatedAt = s.now()
	customer.Accounts = make([]int64, 0)
	if err := s.journal(customerEntry(customer)); err != nil {
		return err
	}
	s.putCustomer(customer.Clone())
	return nil
}

func (s *bankState) createAccount(account *domain.Account) error {
	if _, ok := s.customers[account.CustomerDocument]; !ok {
		return domain.ErrCustomerNotFound
	}
	// 帳號依序遞增，從 1 開始
	created := domain.NewAccount(s.lastAccountNumber+1, account.Branch, account.CustomerDocument, account.Limits, s.now())
	if err := s.journal(accountEntry(created)); err != nil {
		return err
	}
	s.putAccount(created)
	*account = *created.Clone()
	return nil
}

// postTransaction 執行交易核心邏輯
//
// 參數:
//
//	tran: 交易物件，成功時填入 CreatedAt
//
// 回傳:
//
//	error: 處理錯誤，失敗時狀態不變
func (s *bankState) postTransaction(tran *domain.Transaction) error {
	if done, ok := s.processedTransactions[tran.TransactionID]; ok {
		// 同一追蹤號只能重送相同內容
		if !done.SameRequest(tran) {
			return domain.ErrDuplicateRefID
		}
		*tran = done
		return nil
	}
	account, ok := s.accounts[tran.AccountNumber]
	if !ok {
		return domain.ErrAccountNotFound
	}

	// 1. 先檢查，不合法的交易不寫 WAL
	now := s.now()
	if err := account.Check(tran.Type, tran.Amount, now); err != nil {
		return err
	}
	if tran.TransactionID == uuid.Nil {
		tran.TransactionID = uuid.New()
	}

	// 2. 寫入 WAL
	pending := *tran
	pending.CreatedAt = now
	if err := s.journal(transactionEntry(&pending)); err != nil {
		return err
	}

	// 3. 入帳 (同一個 now 檢查已通過)
	if err := account.Post(tran, now); err != nil {
		return err
	}
	s.processedTransactions[tran.TransactionID] = *tran
	return nil
}

func (s *bankState) getCustomer(document string) (*domain.Customer, error) {
	customer, ok := s.customers[document]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return customer.Clone(), nil
}

func (s *bankState) listCustomers() []*domain.Customer {
	out := make([]*domain.Customer, 0, len(s.customerOrder))
	for _, document := range s.customerOrder {
		out = append(out, s.customers[document].Clone())
	}
	return out
}

func (s *bankState) getAccount(accountNumber int64) (*domain.Account, error) {
	account, ok := s.accounts[accountNumber]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (s *bankState) listAccounts() []*domain.Account {
	numbers := make([]int64, 0, len(s.accounts))
	for number := range s.accounts {
		numbers = append(numbers, number)
	}
	slices.Sort(numbers)
	out := make([]*domain.Account, 0, len(numbers))
	for _, number := range numbers {
		out = append(out, s.accounts[number].Clone())
	}
	return out
}

func (s *bankState) getAccountBalance(accountNumber int64) (decimal.Decimal, error) {
	account, ok := s.accounts[accountNumber]
	if !ok {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	return account.Balance, nil
}

func (s *bankState) putCustomer(customer *domain.Customer) {
	if _, ok := s.customers[customer.Document]; !ok {
		s.customerOrder = append(s.customerOrder, customer.Document)
	}
	if customer.Accounts == nil {
		customer.Accounts = make([]int64, 0)
	}
	s.customers[customer.Document] = customer
}

func (s *bankState) putAccount(account *domain.Account) {
	s.accounts[account.Number] = account
	if account.Number > s.lastAccountNumber {
		s.lastAccountNumber = account.Number
	}
	if customer, ok := s.customers[account.CustomerDocument]; ok {
		customer.AddAccount(account.Number)
	}
}
