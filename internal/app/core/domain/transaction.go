package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType 交易類型
// 為了節省記憶體，使用 uint8
type TransactionType uint8

const (
	// 存款
	TransactionTypeDeposit TransactionType = 1
	// 提款
	TransactionTypeWithdraw TransactionType = 2
)

// String 回傳交易類型名稱，與 ParseTransactionType 互為反函式
func (t TransactionType) String() string {
	switch t {
	case TransactionTypeDeposit:
		return "deposit"
	case TransactionTypeWithdraw:
		return "withdraw"
	default:
		return fmt.Sprintf("TransactionType(%d)", uint8(t))
	}
}

// Valid 是否為已知交易類型
func (t TransactionType) Valid() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeWithdraw
}

// ParseTransactionType 解析交易類型字串 (不分大小寫)
//
// 參數:
//
//	s: "deposit" 或 "withdraw" ("withdrawal" 亦可)
//
// 回傳:
//
//	TransactionType: 交易類型
//	error: ErrInvalidTransactionType
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return TransactionTypeDeposit, nil
	case "withdraw", "withdrawal":
		return TransactionTypeWithdraw, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
	}
}

// Transaction 交易紀錄，寫入帳戶歷史後不可變更
type Transaction struct {
	// TransactionID: 外部追蹤號 (UUID)，同一個 ID 只會入帳一次
	TransactionID uuid.UUID `json:"transaction_id"`
	// AccountNumber: 帳戶號碼
	AccountNumber int64 `json:"account_number"`
	// Amount: 金額 (正數)
	Amount decimal.Decimal `json:"amount"`
	// CreatedAt: 入帳時間，由帳本填入
	CreatedAt time.Time `json:"created_at"`
	// Type: 交易類型
	Type TransactionType `json:"type"`
}

// AmountScale 金額最多兩位小數，與資料庫 decimal(20,2) 欄位一致
const AmountScale = 2

// maxAmountExponent 限制指數範圍，避免 1e-2000000000 之類的輸入在 rescale 時耗盡記憶體
const maxAmountExponent = 18

// maxAmount decimal(20,2) 可表示的整數位上限
var maxAmount = decimal.New(1, maxAmountExponent)

// ValidAmount 金額必須為正數、最多 AmountScale 位小數且小於 maxAmount
func ValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	// 先擋指數，後面的 Truncate / Equal 才不會 rescale 出超大整數
	exp := amount.Exponent()
	if exp < -maxAmountExponent || exp > maxAmountExponent {
		return false
	}
	return amount.Equal(amount.Truncate(AmountScale)) && amount.LessThan(maxAmount)
}

// Validate 檢查交易類型與金額，不檢查帳戶狀態
func (t *Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if !ValidAmount(t.Amount) {
		return ErrInvalidAmount
	}
	return nil
}

// SameRequest 判斷重送的交易是否與已入帳的交易內容一致 (帳號、類型、金額)
func (t *Transaction) SameRequest(other *Transaction) bool {
	return t.AccountNumber == other.AccountNumber &&
		t.Type == other.Type &&
		t.Amount.Equal(other.Amount)
}
