package domain

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testDay = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestAccount() *Account {
	return NewAccount(1, DefaultBranch, "12345678900", DefaultLimits(), testDay)
}

// assertUnchanged 確認餘額與歷史筆數都沒有變
func assertUnchanged(t *testing.T, a *Account, balance string, historyLen int) {
	t.Helper()
	if !a.Balance.Equal(dec(balance)) {
		t.Fatalf("balance=%s want=%s", a.Balance, balance)
	}
	if a.History.Len() != historyLen {
		t.Fatalf("history len=%d want=%d", a.History.Len(), historyLen)
	}
}

// TestInvalidAmount 非正數金額一律 ErrInvalidAmount 且不改變狀態
func TestInvalidAmount(t *testing.T) {
	a := newTestAccount()
	if _, err := a.Deposit(dec("100"), testDay); err != nil {
		t.Fatal(err)
	}

	for _, amt := range []string{"0", "-1", "-0.01"} {
		if _, err := a.Deposit(dec(amt), testDay); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("deposit %s: want ErrInvalidAmount, got %v", amt, err)
		}
		if _, err := a.Withdraw(dec(amt), testDay); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("withdraw %s: want ErrInvalidAmount, got %v", amt, err)
		}
		assertUnchanged(t, a, "100", 1)
	}
}

// TestAmountScale 超過兩位小數或指數過大的金額一律 ErrInvalidAmount，且餘額的 scale 不受影響
func TestAmountScale(t *testing.T) {
	a := newTestAccount()
	if _, err := a.Deposit(dec("100"), testDay); err != nil {
		t.Fatal(err)
	}

	for _, amt := range []string{"0.001", "10.005", "1e-100", "1e-2000000000", "1e30", "1e18"} {
		if _, err := a.Deposit(dec(amt), testDay); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("deposit %s: want ErrInvalidAmount, got %v", amt, err)
		}
		if _, err := a.Withdraw(dec(amt), testDay); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("withdraw %s: want ErrInvalidAmount, got %v", amt, err)
		}
		assertUnchanged(t, a, "100", 1)
	}
	if a.Balance.Exponent() < -AmountScale {
		t.Fatalf("balance exponent=%d", a.Balance.Exponent())
	}

	// 尾端的 0 不算額外小數位
	for _, amt := range []string{"0.01", "10.50", "1.100", "2e2"} {
		if _, err := a.Deposit(dec(amt), testDay); err != nil {
			t.Fatalf("deposit %s: %v", amt, err)
		}
	}
	if !a.Balance.Equal(dec("311.61")) {
		t.Fatalf("balance=%s want=311.61", a.Balance)
	}
}

// TestReplayRejectsInvalidAmount WAL 重放也套用相同的金額規則
func TestReplayRejectsInvalidAmount(t *testing.T) {
	a := newTestAccount()
	err := a.Replay(Transaction{Type: TransactionTypeDeposit, Amount: dec("0.001"), CreatedAt: testDay})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount, got %v", err)
	}
	assertUnchanged(t, a, "0", 0)
}

// TestSameRequest 重送判斷只看帳號、類型與金額
func TestSameRequest(t *testing.T) {
	done := Transaction{AccountNumber: 1, Type: TransactionTypeWithdraw, Amount: dec("10"), CreatedAt: testDay}
	cases := []struct {
		name string
		tran Transaction
		want bool
	}{
		{"identical", Transaction{AccountNumber: 1, Type: TransactionTypeWithdraw, Amount: dec("10.00")}, true},
		{"other account", Transaction{AccountNumber: 2, Type: TransactionTypeWithdraw, Amount: dec("10")}, false},
		{"other type", Transaction{AccountNumber: 1, Type: TransactionTypeDeposit, Amount: dec("10")}, false},
		{"other amount", Transaction{AccountNumber: 1, Type: TransactionTypeWithdraw, Amount: dec("11")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := done.SameRequest(&tc.tran); got != tc.want {
				t.Fatalf("SameRequest=%v want=%v", got, tc.want)
			}
		})
	}
}

// TestDeposit 存款金額精確累加，且每次只追加一筆 Deposit
func TestDeposit(t *testing.T) {
	a := newTestAccount()
	amounts := []string{"0.10", "0.20", "1000.55"}
	for i, amt := range amounts {
		tran, err := a.Deposit(dec(amt), testDay)
		if err != nil {
			t.Fatal(err)
		}
		if tran.Type != TransactionTypeDeposit || !tran.Amount.Equal(dec(amt)) {
			t.Fatalf("unexpected transaction: %+v", tran)
		}
		if a.History.Len() != i+1 {
			t.Fatalf("history len=%d want=%d", a.History.Len(), i+1)
		}
	}
	assertUnchanged(t, a, "1000.85", 3)
}

// TestWithdrawInsufficientFunds 提款超過餘額
func TestWithdrawInsufficientFunds(t *testing.T) {
	a := newTestAccount()
	_, _ = a.Deposit(dec("50"), testDay)
	if _, err := a.Withdraw(dec("50.01"), testDay); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	assertUnchanged(t, a, "50", 1)
}

// TestWithdrawLimits 單筆上限 500、每日 3 次
func TestWithdrawLimits(t *testing.T) {
	a := newTestAccount()
	_, _ = a.Deposit(dec("1000"), testDay)

	if _, err := a.Withdraw(dec("600"), testDay); !errors.Is(err, ErrPerOperationLimitExceeded) {
		t.Fatalf("want ErrPerOperationLimitExceeded, got %v", err)
	}
	assertUnchanged(t, a, "1000", 1)

	for i := 0; i < 3; i++ {
		if _, err := a.Withdraw(dec("100"), testDay); err != nil {
			t.Fatalf("withdraw #%d: %v", i+1, err)
		}
	}
	if _, err := a.Withdraw(dec("1"), testDay); !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("want ErrDailyLimitExceeded, got %v", err)
	}
	assertUnchanged(t, a, "700", 4)
	if got := a.WithdrawalsToday(testDay); got != 3 {
		t.Fatalf("withdrawals today=%d want=3", got)
	}
}

// TestWithdrawScenario 存 1000 後連續提款，第 4 次提款被當日上限擋下
func TestWithdrawScenario(t *testing.T) {
	a := NewAccount(1, DefaultBranch, "doc", DefaultLimits(), testDay)
	steps := []struct {
		tranType   TransactionType
		amount     string
		wantErr    error
		balance    string
		historyLen int
	}{
		{TransactionTypeDeposit, "1000", nil, "1000", 1},
		{TransactionTypeWithdraw, "200", nil, "800", 2},
		{TransactionTypeWithdraw, "400", nil, "400", 3},
		{TransactionTypeWithdraw, "100", nil, "300", 4},
		{TransactionTypeWithdraw, "50", ErrDailyLimitExceeded, "300", 4},
	}
	for i, s := range steps {
		tran := Transaction{Type: s.tranType, Amount: dec(s.amount)}
		err := a.Post(&tran, testDay.Add(time.Duration(i)*time.Minute))
		if !errors.Is(err, s.wantErr) {
			t.Fatalf("step %d: err=%v want=%v", i, err, s.wantErr)
		}
		assertUnchanged(t, a, s.balance, s.historyLen)
	}
}

// TestDailyLimitResetsAtMidnight 當日次數由時間戳計算，隔天自動歸零
func TestDailyLimitResetsAtMidnight(t *testing.T) {
	a := newTestAccount()
	_, _ = a.Deposit(dec("1000"), testDay)
	for i := 0; i < 3; i++ {
		if _, err := a.Withdraw(dec("10"), testDay); err != nil {
			t.Fatal(err)
		}
	}
	endOfDay := time.Date(2026, 10, 14, 23, 59, 59, 0, time.UTC)
	if _, err := a.Withdraw(dec("10"), endOfDay); !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("want ErrDailyLimitExceeded, got %v", err)
	}
	nextDay := time.Date(2026, 10, 15, 0, 0, 1, 0, time.UTC)
	if _, err := a.Withdraw(dec("10"), nextDay); err != nil {
		t.Fatalf("next day withdraw: %v", err)
	}
	if got := len(a.History.TransactionsToday(nextDay)); got != 1 {
		t.Fatalf("transactions today=%d want=1", got)
	}
}

// TestDailyTransactionLimit 每日交易次數上限同時計算存款與提款
func TestDailyTransactionLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.DailyTransactions = 2
	a := NewAccount(1, "", "doc", limits, testDay)
	if a.Branch != DefaultBranch {
		t.Fatalf("branch=%q want=%q", a.Branch, DefaultBranch)
	}

	_, _ = a.Deposit(dec("100"), testDay)
	_, _ = a.Withdraw(dec("10"), testDay)
	if _, err := a.Deposit(dec("1"), testDay); !errors.Is(err, ErrDailyTransactionLimitExceeded) {
		t.Fatalf("want ErrDailyTransactionLimitExceeded, got %v", err)
	}
	assertUnchanged(t, a, "90", 2)
}

// TestUnlimited 零值限制代表不限制
func TestUnlimited(t *testing.T) {
	a := NewAccount(1, DefaultBranch, "doc", Limits{}, testDay)
	_, _ = a.Deposit(dec("10000"), testDay)
	for i := 0; i < 10; i++ {
		if _, err := a.Withdraw(dec("900"), testDay); err != nil {
			t.Fatalf("withdraw #%d: %v", i+1, err)
		}
	}
	assertUnchanged(t, a, "1000", 11)
}

// TestPostFillsTransaction 入帳後填入 ID、帳號與時間
func TestPostFillsTransaction(t *testing.T) {
	a := NewAccount(42, DefaultBranch, "doc", DefaultLimits(), testDay)
	tran := Transaction{Type: TransactionTypeDeposit, Amount: dec("5")}
	if err := a.Post(&tran, testDay); err != nil {
		t.Fatal(err)
	}
	if tran.AccountNumber != 42 || !tran.CreatedAt.Equal(testDay) || tran.TransactionID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("transaction not filled: %+v", tran)
	}

	bad := Transaction{Type: TransactionType(9), Amount: dec("5")}
	if err := a.Post(&bad, testDay); !errors.Is(err, ErrInvalidTransactionType) {
		t.Fatalf("want ErrInvalidTransactionType, got %v", err)
	}
}

// TestReplaySkipsLimits 重放不檢查限額，但仍拒絕不合法的紀錄
func TestReplaySkipsLimits(t *testing.T) {
	a := newTestAccount()
	records := []Transaction{
		{Type: TransactionTypeDeposit, Amount: dec("2000"), CreatedAt: testDay},
		{Type: TransactionTypeWithdraw, Amount: dec("900"), CreatedAt: testDay},
	}
	for _, r := range records {
		if err := a.Replay(r); err != nil {
			t.Fatal(err)
		}
	}
	assertUnchanged(t, a, "1100", 2)

	if err := a.Replay(Transaction{Type: TransactionTypeDeposit, Amount: dec("0")}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount, got %v", err)
	}
}

// TestClone 拷貝後修改不影響原帳戶
func TestClone(t *testing.T) {
	a := newTestAccount()
	_, _ = a.Deposit(dec("10"), testDay)
	cp := a.Clone()
	_, _ = cp.Deposit(dec("10"), testDay)

	assertUnchanged(t, a, "10", 1)
	if cp.History.Len() != 2 {
		t.Fatalf("clone history len=%d want=2", cp.History.Len())
	}
	if got := slices.Collect(a.History.Statement()); len(got) != 1 {
		t.Fatalf("original statement len=%d want=1", len(got))
	}
}
