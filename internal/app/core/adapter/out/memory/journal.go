package memory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
)

// entryKind WAL 紀錄類型
type entryKind string

const (
	entryCustomer    entryKind = "customer"
	entryAccount     entryKind = "account"
	entryTransaction entryKind = "transaction"
)

// accountRecord 開戶紀錄，不含交易歷史 (歷史由交易紀錄重放)
type accountRecord struct {
	Number           int64         `json:"number"`
	Branch           string        `json:"branch"`
	CustomerDocument string        `json:"customer_document"`
	Limits           domain.Limits `json:"limits"`
	CreatedAt        time.Time     `json:"created_at"`
}

// journalEntry WAL 中的一行
type journalEntry struct {
	Kind        entryKind           `json:"kind"`
	Customer    *domain.Customer    `json:"customer,omitempty"`
	Account     *accountRecord      `json:"account,omitempty"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

func customerEntry(c *domain.Customer) journalEntry {
	cp := c.Clone()
	// 名下帳戶由開戶紀錄重建
	cp.Accounts = nil
	return journalEntry{Kind: entryCustomer, Customer: cp}
}

func accountEntry(a *domain.Account) journalEntry {
	return journalEntry{Kind: entryAccount, Account: &accountRecord{
		Number:           a.Number,
		Branch:           a.Branch,
		CustomerDocument: a.CustomerDocument,
		Limits:           a.Limits,
		CreatedAt:        a.CreatedAt,
	}}
}

func transactionEntry(tran *domain.Transaction) journalEntry {
	cp := *tran
	return journalEntry{Kind: entryTransaction, Transaction: &cp}
}

func decodeEntry(raw []byte) (journalEntry, error) {
	var entry journalEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return entry, fmt.Errorf("decode wal entry: %w", err)
	}
	return entry, nil
}
