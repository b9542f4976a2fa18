package grpc

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
)

var testNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type testEnv struct {
	client *Client
	audit  *observer.ObservedLogs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ledger, err := memory.NewMutexLedger(memory.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("NewMutexLedger: %v", err)
	}
	core := usecase.NewCoreUseCase(ledger)

	auditCore, logs := observer.New(zapcore.InfoLevel)
	audit := zap.New(auditCore)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(AuditUnaryInterceptor(audit)),
		grpc.ChainStreamInterceptor(AuditStreamInterceptor(audit)),
	)
	RegisterBankServiceServer(s, NewGrpcServer(core, zap.NewNop()))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &testEnv{client: NewClient(conn), audit: logs}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Fatalf("code=%v want=%v (err=%v)", got, want, err)
	}
}

func (env *testEnv) openAccount(t *testing.T, ctx context.Context, document string) int64 {
	t.Helper()
	if _, err := env.client.CreateCustomer(ctx, &CreateCustomerRequest{Document: document, Name: "Ana", BirthDate: "1990-05-01"}); err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	account, err := env.client.CreateAccount(ctx, &CreateAccountRequest{Document: document})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return account.Number
}

func TestCustomerAndAccountRPCs(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext(t)

	customer, err := env.client.CreateCustomer(ctx, &CreateCustomerRequest{
		Document:  "123",
		Name:      "Ana",
		BirthDate: "01-05-1990",
		Address:   "Rua A, 1",
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if customer.BirthDate != "1990-05-01" || customer.Kind != "individual" {
		t.Fatalf("unexpected customer: %+v", customer)
	}
	if !customer.CreatedAt.AsTime().Equal(testNow) {
		t.Fatalf("CreatedAt=%v want=%v", customer.CreatedAt.AsTime(), testNow)
	}

	_, err = env.client.CreateCustomer(ctx, &CreateCustomerRequest{Document: "123", Name: "Bob"})
	assertCode(t, err, codes.AlreadyExists)
	_, err = env.client.CreateCustomer(ctx, &CreateCustomerRequest{Document: "", Name: "Bob"})
	assertCode(t, err, codes.InvalidArgument)
	_, err = env.client.GetCustomer(ctx, &GetCustomerRequest{Document: "999"})
	assertCode(t, err, codes.NotFound)
	_, err = env.client.CreateAccount(ctx, &CreateAccountRequest{Document: "999"})
	assertCode(t, err, codes.NotFound)

	first, err := env.client.CreateAccount(ctx, &CreateAccountRequest{Document: "123"})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	second, err := env.client.CreateAccount(ctx, &CreateAccountRequest{Document: "123"})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if first.Number != 1 || second.Number != 2 || first.Branch != "0001" {
		t.Fatalf("unexpected accounts: %+v %+v", first, second)
	}
	if !first.Limits.PerWithdrawal.Equal(dec("500")) || first.Limits.DailyWithdrawals != 3 {
		t.Fatalf("unexpected limits: %+v", first.Limits)
	}

	got, err := env.client.GetCustomer(ctx, &GetCustomerRequest{Document: "123"})
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if len(got.Accounts) != 2 {
		t.Fatalf("Accounts=%v want 2 entries", got.Accounts)
	}

	list, err := env.client.ListAccounts(ctx, &ListAccountsRequest{Document: "123"})
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(list.Accounts) != 2 {
		t.Fatalf("ListAccounts=%d want=2", len(list.Accounts))
	}
	customers, err := env.client.ListCustomers(ctx, &ListCustomersRequest{})
	if err != nil {
		t.Fatalf("ListCustomers: %v", err)
	}
	if len(customers.Customers) != 1 {
		t.Fatalf("ListCustomers=%d want=1", len(customers.Customers))
	}
}

func TestTransactionRPCs(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext(t)
	number := env.openAccount(t, ctx, "123")

	resp, err := env.client.Deposit(ctx, &TransactionRequest{AccountNumber: number, Amount: "1000"})
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if !resp.Success || !resp.CurrentBalance.Equal(dec("1000")) || resp.Transaction.Type != "deposit" {
		t.Fatalf("unexpected deposit response: %+v", resp)
	}

	cases := []struct {
		name   string
		amount string
		code   string
	}{
		{"over per-operation limit", "600", "PER_OPERATION_LIMIT_EXCEEDED"},
		{"not a number", "abc", "INVALID_AMOUNT"},
		{"negative", "-5", "INVALID_AMOUNT"},
		{"sub-cent", "0.001", "INVALID_AMOUNT"},
		{"huge exponent", "1e-2000000000", "INVALID_AMOUNT"},
		{"insufficient funds", "5000", "INSUFFICIENT_FUNDS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := env.client.Withdraw(ctx, &TransactionRequest{AccountNumber: number, Amount: tc.amount})
			if err != nil {
				t.Fatalf("Withdraw: %v", err)
			}
			if resp.Success || resp.Code != tc.code {
				t.Fatalf("response=%+v want code %s", resp, tc.code)
			}
		})
	}

	for i := 0; i < 3; i++ {
		resp, err := env.client.Withdraw(ctx, &TransactionRequest{AccountNumber: number, Amount: "100"})
		if err != nil || !resp.Success {
			t.Fatalf("Withdraw #%d: resp=%+v err=%v", i+1, resp, err)
		}
	}
	resp, err = env.client.Withdraw(ctx, &TransactionRequest{AccountNumber: number, Amount: "100"})
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if resp.Success || resp.Code != "DAILY_LIMIT_EXCEEDED" {
		t.Fatalf("response=%+v want DAILY_LIMIT_EXCEEDED", resp)
	}

	resp, err = env.client.Deposit(ctx, &TransactionRequest{AccountNumber: 42, Amount: "10"})
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if resp.Code != "ACCOUNT_NOT_FOUND" {
		t.Fatalf("response=%+v want ACCOUNT_NOT_FOUND", resp)
	}
	resp, err = env.client.Deposit(ctx, &TransactionRequest{AccountNumber: number, Amount: "10", RefID: "nope"})
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if resp.Code != "INVALID_REF_ID" {
		t.Fatalf("response=%+v want INVALID_REF_ID", resp)
	}

	balance, err := env.client.GetBalance(ctx, &GetBalanceRequest{AccountNumber: number})
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !balance.Balance.Equal(dec("700")) {
		t.Fatalf("balance=%s want=700", balance.Balance)
	}
	_, err = env.client.GetBalance(ctx, &GetBalanceRequest{AccountNumber: 42})
	assertCode(t, err, codes.NotFound)
}

func TestDepositIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext(t)
	number := env.openAccount(t, ctx, "123")

	refID := uuid.NewString()
	first, err := env.client.Deposit(ctx, &TransactionRequest{RefID: refID, AccountNumber: number, Amount: "25.50"})
	if err != nil || !first.Success {
		t.Fatalf("Deposit: resp=%+v err=%v", first, err)
	}
	again, err := env.client.Deposit(ctx, &TransactionRequest{RefID: refID, AccountNumber: number, Amount: "25.50"})
	if err != nil || !again.Success {
		t.Fatalf("Deposit replay: resp=%+v err=%v", again, err)
	}
	if again.Transaction.RefID != refID || !again.CurrentBalance.Equal(dec("25.50")) {
		t.Fatalf("replay changed state: %+v", again)
	}
}

// TestRefIDReusedWithOtherContent 追蹤號重複但內容不同時回傳 DUPLICATE_REF_ID，不洩漏其他帳戶餘額
func TestRefIDReusedWithOtherContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext(t)
	mine := env.openAccount(t, ctx, "123")
	theirs := env.openAccount(t, ctx, "456")

	refID := uuid.NewString()
	first, err := env.client.Deposit(ctx, &TransactionRequest{RefID: refID, AccountNumber: theirs, Amount: "900"})
	if err != nil || !first.Success {
		t.Fatalf("Deposit: resp=%+v err=%v", first, err)
	}

	for _, tc := range []struct {
		name     string
		withdraw bool
		account  int64
		amount   string
	}{
		{"other account", false, mine, "900"},
		{"other type", true, theirs, "900"},
		{"other amount", false, theirs, "1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := &TransactionRequest{RefID: refID, AccountNumber: tc.account, Amount: tc.amount}
			var resp *TransactionResponse
			var err error
			if tc.withdraw {
				resp, err = env.client.Withdraw(ctx, req)
			} else {
				resp, err = env.client.Deposit(ctx, req)
			}
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			if resp.Success || resp.Code != "DUPLICATE_REF_ID" {
				t.Fatalf("response=%+v want DUPLICATE_REF_ID", resp)
			}
			if resp.Transaction != nil || !resp.CurrentBalance.IsZero() {
				t.Fatalf("failure leaked state: %+v", resp)
			}
		})
	}

	for number, want := range map[int64]string{mine: "0", theirs: "900"} {
		balance, err := env.client.GetBalance(ctx, &GetBalanceRequest{AccountNumber: number})
		if err != nil {
			t.Fatalf("GetBalance(%d): %v", number, err)
		}
		if !balance.Balance.Equal(dec(want)) {
			t.Fatalf("balance(%d)=%s want=%s", number, balance.Balance, want)
		}
	}
}

func collect(t *testing.T, stream grpc.ServerStreamingClient[Transaction]) ([]*Transaction, error) {
	t.Helper()
	var out []*Transaction
	for {
		tran, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, tran)
	}
}

func TestStatementStream(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext(t)
	number := env.openAccount(t, ctx, "123")

	for _, step := range []struct {
		withdraw bool
		amount   string
	}{{false, "100"}, {true, "30"}, {false, "50"}} {
		req := &TransactionRequest{AccountNumber: number, Amount: step.amount}
		var resp *TransactionResponse
		var err error
		if step.withdraw {
			resp, err = env.client.Withdraw(ctx, req)
		} else {
			resp, err = env.client.Deposit(ctx, req)
		}
		if err != nil || !resp.Success {
			t.Fatalf("post %s: resp=%+v err=%v", step.amount, resp, err)
		}
	}

	stream, err := env.client.Statement(ctx, &StatementRequest{AccountNumber: number})
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	all, err := collect(t, stream)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if len(all) != 3 || all[0].Amount.String() != "100" || all[1].Type != "withdraw" || all[2].Amount.String() != "50" {
		t.Fatalf("unexpected statement: %+v", all)
	}

	stream, err = env.client.Statement(ctx, &StatementRequest{AccountNumber: number, Types: []string{"deposit"}})
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	deposits, err := collect(t, stream)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if len(deposits) != 2 {
		t.Fatalf("deposits=%d want=2", len(deposits))
	}

	stream, err = env.client.Statement(ctx, &StatementRequest{AccountNumber: number, Types: []string{"transfer"}})
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	_, err = collect(t, stream)
	assertCode(t, err, codes.InvalidArgument)

	stream, err = env.client.Statement(ctx, &StatementRequest{AccountNumber: 42})
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	_, err = collect(t, stream)
	assertCode(t, err, codes.NotFound)
}

func TestAuditLog(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext(t)
	number := env.openAccount(t, ctx, "123")

	if _, err := env.client.Deposit(ctx, &TransactionRequest{AccountNumber: number, Amount: "10"}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if _, err := env.client.Withdraw(ctx, &TransactionRequest{AccountNumber: number, Amount: "999"}); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	stream, err := env.client.Statement(ctx, &StatementRequest{AccountNumber: number})
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	if _, err := collect(t, stream); err != nil {
		t.Fatalf("Recv: %v", err)
	}
	_, _ = env.client.GetCustomer(ctx, &GetCustomerRequest{Document: "999"})

	deposit := env.audit.FilterField(zap.String("method", "Deposit")).All()
	if len(deposit) != 1 || deposit[0].ContextMap()["success"] != true {
		t.Fatalf("deposit audit entries=%+v", deposit)
	}
	withdraw := env.audit.FilterField(zap.String("method", "Withdraw")).All()
	if len(withdraw) != 1 || withdraw[0].Level != zapcore.WarnLevel || withdraw[0].ContextMap()["code"] != "INSUFFICIENT_FUNDS" {
		t.Fatalf("withdraw audit entries=%+v", withdraw)
	}
	statement := env.audit.FilterField(zap.String("method", "Statement")).All()
	if len(statement) != 1 || statement[0].ContextMap()["sent"] != int64(1) {
		t.Fatalf("statement audit entries=%+v", statement)
	}
	missing := env.audit.FilterField(zap.String("method", "GetCustomer")).All()
	if len(missing) != 1 || missing[0].ContextMap()["code"] != codes.NotFound.String() {
		t.Fatalf("get customer audit entries=%+v", missing)
	}
}
