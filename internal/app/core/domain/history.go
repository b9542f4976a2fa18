package domain

import (
	"iter"
	"slices"
	"time"
)

// History 帳戶交易歷史，只能追加 (append-only)
type History struct {
	transactions []Transaction
}

// NewHistory 以既有交易紀錄建立歷史 (依入帳順序)
func NewHistory(transactions []Transaction) History {
	return History{transactions: slices.Clone(transactions)}
}

// Len 交易筆數
func (h *History) Len() int {
	return len(h.transactions)
}

// Transactions 回傳所有交易紀錄的拷貝
func (h *History) Transactions() []Transaction {
	return slices.Clone(h.transactions)
}

// TransactionsToday 回傳與 now 同一天的交易紀錄
// 每次呼叫都重新計算，過了午夜自動不再計入
func (h *History) TransactionsToday(now time.Time) []Transaction {
	out := make([]Transaction, 0)
	for _, tran := range h.transactions {
		if sameDay(tran.CreatedAt, now) {
			out = append(out, tran)
		}
	}
	return out
}

// Statement 回傳交易紀錄的迭代器，可選擇只列出指定類型
//
// 參數:
//
//	types: 要列出的交易類型，不傳則全部列出
//
// 回傳:
//
//	iter.Seq[Transaction]: 依入帳順序的惰性序列，可重複迭代
func (h *History) Statement(types ...TransactionType) iter.Seq[Transaction] {
	// 只追加不修改，擷取當下的 slice 即為一致的快照
	transactions := h.transactions
	return func(yield func(Transaction) bool) {
		for _, tran := range transactions {
			if len(types) > 0 && !slices.Contains(types, tran.Type) {
				continue
			}
			if !yield(tran) {
				return
			}
		}
	}
}

// countToday 計算與 now 同一天的交易數，types 為空代表所有類型
func (h *History) countToday(now time.Time, types ...TransactionType) int {
	count := 0
	for _, tran := range h.transactions {
		if !sameDay(tran.CreatedAt, now) {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, tran.Type) {
			continue
		}
		count++
	}
	return count
}

func (h *History) append(tran Transaction) {
	h.transactions = append(h.transactions, tran)
}

func (h *History) clone() History {
	return History{transactions: slices.Clone(h.transactions)}
}

// sameDay 以 now 的時區判斷是否為同一個日曆日
func sameDay(t, now time.Time) bool {
	y1, m1, d1 := t.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
