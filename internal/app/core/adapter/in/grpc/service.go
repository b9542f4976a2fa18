package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName 是 BankService 的完整服務名稱
const ServiceName = "bank.v1.BankService"

const (
	methodCreateCustomer = "CreateCustomer"
	methodGetCustomer    = "GetCustomer"
	methodListCustomers  = "ListCustomers"
	methodCreateAccount  = "CreateAccount"
	methodGetAccount     = "GetAccount"
	methodListAccounts   = "ListAccounts"
	methodDeposit        = "Deposit"
	methodWithdraw       = "Withdraw"
	methodGetBalance     = "GetBalance"
	methodStatement      = "Statement"
)

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// BankServiceServer 是 BankService 的伺服器端介面
type BankServiceServer interface {
	CreateCustomer(context.Context, *CreateCustomerRequest) (*Customer, error)
	GetCustomer(context.Context, *GetCustomerRequest) (*Customer, error)
	ListCustomers(context.Context, *ListCustomersRequest) (*ListCustomersResponse, error)
	CreateAccount(context.Context, *CreateAccountRequest) (*Account, error)
	GetAccount(context.Context, *GetAccountRequest) (*Account, error)
	ListAccounts(context.Context, *ListAccountsRequest) (*ListAccountsResponse, error)
	Deposit(context.Context, *TransactionRequest) (*TransactionResponse, error)
	Withdraw(context.Context, *TransactionRequest) (*TransactionResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	Statement(*StatementRequest, grpc.ServerStreamingServer[Transaction]) error
}

// RegisterBankServiceServer 註冊 BankService
func RegisterBankServiceServer(s grpc.ServiceRegistrar, srv BankServiceServer) {
	s.RegisterService(&BankServiceDesc, srv)
}

// BankServiceDesc 是手寫的服務描述，訊息由 JSON codec 編碼
var BankServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BankServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodCreateCustomer, Handler: unaryHandler(methodCreateCustomer, BankServiceServer.CreateCustomer)},
		{MethodName: methodGetCustomer, Handler: unaryHandler(methodGetCustomer, BankServiceServer.GetCustomer)},
		{MethodName: methodListCustomers, Handler: unaryHandler(methodListCustomers, BankServiceServer.ListCustomers)},
		{MethodName: methodCreateAccount, Handler: unaryHandler(methodCreateAccount, BankServiceServer.CreateAccount)},
		{MethodName: methodGetAccount, Handler: unaryHandler(methodGetAccount, BankServiceServer.GetAccount)},
		{MethodName: methodListAccounts, Handler: unaryHandler(methodListAccounts, BankServiceServer.ListAccounts)},
		{MethodName: methodDeposit, Handler: unaryHandler(methodDeposit, BankServiceServer.Deposit)},
		{MethodName: methodWithdraw, Handler: unaryHandler(methodWithdraw, BankServiceServer.Withdraw)},
		{MethodName: methodGetBalance, Handler: unaryHandler(methodGetBalance, BankServiceServer.GetBalance)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    methodStatement,
			Handler:       statementHandler,
			ServerStreams: true,
		},
	},
	Metadata: "bank/v1/bank.json",
}

// unaryHandler 將型別化的方法轉為 grpc.MethodHandler
func unaryHandler[Req, Resp any](method string, call func(BankServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(BankServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func statementHandler(srv any, stream grpc.ServerStream) error {
	in := new(StatementRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(BankServiceServer).Statement(in, &grpc.GenericServerStream[StatementRequest, Transaction]{ServerStream: stream})
}
