package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
)

type GrpcServer struct {
	core   *usecase.CoreUseCase
	logger *zap.Logger
}

func NewGrpcServer(core *usecase.CoreUseCase, logger *zap.Logger) *GrpcServer {
	return &GrpcServer{
		core:   core,
		logger: logger,
	}
}

func (s *GrpcServer) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*Customer, error) {
	customer, err := s.core.CreateCustomer(ctx, usecase.CreateCustomerInput{
		Document:  req.Document,
		Name:      req.Name,
		BirthDate: req.BirthDate,
		Address:   req.Address,
	})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return customerToMessage(customer), nil
}

func (s *GrpcServer) GetCustomer(ctx context.Context, req *GetCustomerRequest) (*Customer, error) {
	customer, err := s.core.GetCustomer(ctx, req.Document)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return customerToMessage(customer), nil
}

func (s *GrpcServer) ListCustomers(ctx context.Context, _ *ListCustomersRequest) (*ListCustomersResponse, error) {
	customers, err := s.core.ListCustomers(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	resp := &ListCustomersResponse{Customers: make([]*Customer, 0, len(customers))}
	for _, c := range customers {
		resp.Customers = append(resp.Customers, customerToMessage(c))
	}
	return resp, nil
}

func (s *GrpcServer) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*Account, error) {
	account, err := s.core.CreateAccount(ctx, req.Document)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return accountToMessage(account), nil
}

func (s *GrpcServer) GetAccount(ctx context.Context, req *GetAccountRequest) (*Account, error) {
	account, err := s.core.GetAccount(ctx, req.AccountNumber)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return accountToMessage(account), nil
}

func (s *GrpcServer) ListAccounts(ctx context.Context, req *ListAccountsRequest) (*ListAccountsResponse, error) {
	accounts, err := s.core.ListAccounts(ctx, req.Document)
	if err != nil {
		return nil, s.toStatus(err)
	}
	resp := &ListAccountsResponse{Accounts: make([]*Account, 0, len(accounts))}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, accountToMessage(a))
	}
	return resp, nil
}

func (s *GrpcServer) Deposit(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error) {
	return s.post(ctx, domain.TransactionTypeDeposit, req)
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error) {
	return s.post(ctx, domain.TransactionTypeWithdraw, req)
}

// post 處理存提款
// 業務錯誤回傳 Success=false (Soft Failure)，只有 context 錯誤轉為 gRPC status
func (s *GrpcServer) post(ctx context.Context, tranType domain.TransactionType, req *TransactionRequest) (*TransactionResponse, error) {
	// 1. UUID 解析
	refID := uuid.Nil
	if req.RefID != "" {
		u, err := uuid.Parse(req.RefID)
		if err != nil {
			return &TransactionResponse{
				Success: false,
				Code:    "INVALID_REF_ID",
				Message: "invalid ref_id: " + err.Error(),
			}, nil
		}
		refID = u
	}

	// 2. 金額解析
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return softFailure(domain.ErrInvalidAmount), nil
	}

	// 3. 執行交易
	tran := &domain.Transaction{
		TransactionID: refID,
		AccountNumber: req.AccountNumber,
		Amount:        amount,
		Type:          tranType,
	}
	if err := s.core.PostTransaction(ctx, tran); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		if errorCode(err) == "INTERNAL" {
			s.logger.Error("post transaction failed",
				zap.Int64("account_number", req.AccountNumber),
				zap.String("ref_id", tran.TransactionID.String()),
				zap.Error(err),
			)
		}
		return softFailure(err), nil
	}

	// 4. 最新餘額 (Best Effort)，重送時以已入帳交易的帳號為準
	balance, _ := s.core.GetAccountBalance(ctx, tran.AccountNumber)

	return &TransactionResponse{
		Success:        true,
		Transaction:    transactionToMessage(tran),
		CurrentBalance: balance,
	}, nil
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error) {
	balance, err := s.core.GetAccountBalance(ctx, req.AccountNumber)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &GetBalanceResponse{
		AccountNumber: req.AccountNumber,
		Balance:       balance,
	}, nil
}

// Statement 以 server streaming 依入帳順序送出交易明細
func (s *GrpcServer) Statement(req *StatementRequest, stream grpc.ServerStreamingServer[Transaction]) error {
	types := make([]domain.TransactionType, 0, len(req.Types))
	for _, name := range req.Types {
		t, err := domain.ParseTransactionType(name)
		if err != nil {
			return s.toStatus(err)
		}
		types = append(types, t)
	}

	ctx := stream.Context()
	statement, err := s.core.Statement(ctx, req.AccountNumber, types...)
	if err != nil {
		return s.toStatus(err)
	}
	for tran := range statement {
		if err := ctx.Err(); err != nil {
			return status.FromContextError(err).Err()
		}
		if err := stream.Send(transactionToMessage(&tran)); err != nil {
			return err
		}
	}
	return nil
}

func softFailure(err error) *TransactionResponse {
	return &TransactionResponse{
		Success: false,
		Code:    errorCode(err),
		Message: err.Error(),
	}
}

// errorCode 回傳 domain 錯誤對應的穩定代碼
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, domain.ErrPerOperationLimitExceeded):
		return "PER_OPERATION_LIMIT_EXCEEDED"
	case errors.Is(err, domain.ErrDailyLimitExceeded):
		return "DAILY_LIMIT_EXCEEDED"
	case errors.Is(err, domain.ErrDailyTransactionLimitExceeded):
		return "DAILY_TRANSACTION_LIMIT_EXCEEDED"
	case errors.Is(err, domain.ErrInvalidTransactionType):
		return "INVALID_TRANSACTION_TYPE"
	case errors.Is(err, domain.ErrInvalidCustomer):
		return "INVALID_CUSTOMER"
	case errors.Is(err, domain.ErrCustomerNotFound):
		return "CUSTOMER_NOT_FOUND"
	case errors.Is(err, domain.ErrDuplicateCustomer):
		return "DUPLICATE_CUSTOMER"
	case errors.Is(err, domain.ErrDuplicateRefID):
		return "DUPLICATE_REF_ID"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "ACCOUNT_NOT_FOUND"
	default:
		return "INTERNAL"
	}
}

// toStatus 將錯誤轉為 gRPC status
func (s *GrpcServer) toStatus(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound), errors.Is(err, domain.ErrAccountNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrDuplicateCustomer), errors.Is(err, domain.ErrDuplicateRefID):
		code = codes.AlreadyExists
	case errors.Is(err, domain.ErrInvalidCustomer),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidTransactionType):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrPerOperationLimitExceeded):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrDailyLimitExceeded), errors.Is(err, domain.ErrDailyTransactionLimitExceeded):
		code = codes.ResourceExhausted
	default:
		s.logger.Error("request failed", zap.Error(err))
		return status.Error(codes.Internal, err.Error())
	}
	return status.Error(code, err.Error())
}

var _ BankServiceServer = (*GrpcServer)(nil)
