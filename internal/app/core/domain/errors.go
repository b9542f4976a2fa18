package domain

import "errors"

var (
	// ErrInvalidAmount 金額必須為正數且最多兩位小數
	ErrInvalidAmount = errors.New("amount must be positive with at most two decimal places")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPerOperationLimitExceeded 單筆提款超過上限
	ErrPerOperationLimitExceeded = errors.New("withdrawal limit exceeded")

	// ErrDailyLimitExceeded 當日提款次數已達上限
	ErrDailyLimitExceeded = errors.New("daily withdrawal limit exceeded")

	// ErrDailyTransactionLimitExceeded 當日交易次數已達上限 (存款與提款合計)
	ErrDailyTransactionLimitExceeded = errors.New("daily transaction limit exceeded")

	// ErrInvalidTransactionType 未知的交易類型
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrInvalidCustomer 客戶資料不完整
	ErrInvalidCustomer = errors.New("invalid customer")

	// ErrCustomerNotFound 找不到客戶
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrDuplicateCustomer 客戶證件號碼已存在
	ErrDuplicateCustomer = errors.New("customer already exists")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateRefID 追蹤號已用於內容不同的交易
	ErrDuplicateRefID = errors.New("ref id already used by a different transaction")

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")

	// ErrSelectTransactionFailed 查詢交易失敗
	ErrSelectTransactionFailed = errors.New("select transaction failed")
)
