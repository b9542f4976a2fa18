package grpc

import (
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
)

// 以 JSON codec 傳輸的 BankService 訊息
// 金額一律以十進位字串表示

type CreateCustomerRequest struct {
	Document  string `json:"document"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date,omitempty"` // 2006-01-02 或 02-01-2006
	Address   string `json:"address,omitempty"`
}

type GetCustomerRequest struct {
	Document string `json:"document"`
}

type ListCustomersRequest struct{}

type ListCustomersResponse struct {
	Customers []*Customer `json:"customers"`
}

type Customer struct {
	Document  string                 `json:"document"`
	Name      string                 `json:"name"`
	BirthDate string                 `json:"birth_date,omitempty"`
	Address   string                 `json:"address,omitempty"`
	Kind      string                 `json:"kind"`
	Accounts  []int64                `json:"accounts"`
	CreatedAt *timestamppb.Timestamp `json:"created_at,omitempty"`
}

type CreateAccountRequest struct {
	Document string `json:"document"`
}

type GetAccountRequest struct {
	AccountNumber int64 `json:"account_number"`
}

type ListAccountsRequest struct {
	Document string `json:"document,omitempty"` // 空字串時列出全部
}

type ListAccountsResponse struct {
	Accounts []*Account `json:"accounts"`
}

type Account struct {
	Number           int64                  `json:"number"`
	Branch           string                 `json:"branch"`
	CustomerDocument string                 `json:"customer_document"`
	Balance          decimal.Decimal        `json:"balance"`
	Limits           domain.Limits          `json:"limits"`
	Transactions     int                    `json:"transactions"`
	CreatedAt        *timestamppb.Timestamp `json:"created_at,omitempty"`
}

// TransactionRequest 存款與提款共用
type TransactionRequest struct {
	RefID         string `json:"ref_id,omitempty"` // UUID，空字串時由伺服器產生
	AccountNumber int64  `json:"account_number"`
	Amount        string `json:"amount"`
}

// TransactionResponse 是 soft failure 回應，業務錯誤放在 Code / Message
type TransactionResponse struct {
	Success        bool            `json:"success"`
	Code           string          `json:"code,omitempty"`
	Message        string          `json:"message,omitempty"`
	Transaction    *Transaction    `json:"transaction,omitempty"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

type Transaction struct {
	RefID         string                 `json:"ref_id"`
	AccountNumber int64                  `json:"account_number"`
	Type          string                 `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	CreatedAt     *timestamppb.Timestamp `json:"created_at"`
}

type GetBalanceRequest struct {
	AccountNumber int64 `json:"account_number"`
}

type GetBalanceResponse struct {
	AccountNumber int64           `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
}

type StatementRequest struct {
	AccountNumber int64    `json:"account_number"`
	Types         []string `json:"types,omitempty"` // deposit / withdraw，空白時全部
}

func customerToMessage(c *domain.Customer) *Customer {
	msg := &Customer{
		Document:  c.Document,
		Name:      c.Name,
		Address:   c.Address,
		Kind:      c.Kind.String(),
		Accounts:  append(make([]int64, 0, len(c.Accounts)), c.Accounts...),
		CreatedAt: timestamppb.New(c.CreatedAt),
	}
	if !c.BirthDate.IsZero() {
		msg.BirthDate = c.BirthDate.Format(domain.BirthDateLayout)
	}
	return msg
}

func accountToMessage(a *domain.Account) *Account {
	return &Account{
		Number:           a.Number,
		Branch:           a.Branch,
		CustomerDocument: a.CustomerDocument,
		Balance:          a.Balance,
		Limits:           a.Limits,
		Transactions:     a.History.Len(),
		CreatedAt:        timestamppb.New(a.CreatedAt),
	}
}

func transactionToMessage(t *domain.Transaction) *Transaction {
	return &Transaction{
		RefID:         t.TransactionID.String(),
		AccountNumber: t.AccountNumber,
		Type:          t.Type.String(),
		Amount:        t.Amount,
		CreatedAt:     timestamppb.New(t.CreatedAt),
	}
}
