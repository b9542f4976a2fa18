package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// CustomerKind 客戶類型
type CustomerKind uint8

const (
	// 個人戶
	CustomerKindIndividual CustomerKind = 1
)

func (k CustomerKind) String() string {
	switch k {
	case CustomerKindIndividual:
		return "individual"
	default:
		return fmt.Sprintf("CustomerKind(%d)", uint8(k))
	}
}

// BirthDateLayout 出生日期格式
const BirthDateLayout = "2006-01-02"

// Customer 客戶，以證件號碼 (Document) 為唯一鍵
type Customer struct {
	Document  string       `json:"document"`
	Name      string       `json:"name"`
	BirthDate time.Time    `json:"birth_date"`
	Address   string       `json:"address"`
	Kind      CustomerKind `json:"kind"`
	// Accounts: 名下帳戶號碼，依開戶順序
	Accounts  []int64   `json:"accounts"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCustomer 建立個人戶客戶
//
// 參數:
//
//	document: 證件號碼 (必填)
//	name: 姓名 (必填)
//	birthDate: 出生日期，可為零值
//	address: 地址
//
// 回傳:
//
//	*Customer: 客戶
//	error: ErrInvalidCustomer
func NewCustomer(document, name string, birthDate time.Time, address string) (*Customer, error) {
	document = strings.TrimSpace(document)
	name = strings.TrimSpace(name)
	if document == "" {
		return nil, fmt.Errorf("%w: document is required", ErrInvalidCustomer)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCustomer)
	}
	return &Customer{
		Document:  document,
		Name:      name,
		BirthDate: birthDate,
		Address:   strings.TrimSpace(address),
		Kind:      CustomerKindIndividual,
		Accounts:  make([]int64, 0),
	}, nil
}

// ParseBirthDate 解析出生日期，接受 2006-01-02 或 02-01-2006，空字串回傳零值
func ParseBirthDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{BirthDateLayout, "02-01-2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad birth date %q", ErrInvalidCustomer, s)
}

// AddAccount 登記名下帳戶
func (c *Customer) AddAccount(number int64) {
	if !slices.Contains(c.Accounts, number) {
		c.Accounts = append(c.Accounts, number)
	}
}

// Clone 深拷貝
func (c *Customer) Clone() *Customer {
	cp := *c
	cp.Accounts = slices.Clone(c.Accounts)
	if cp.Accounts == nil {
		cp.Accounts = make([]int64, 0)
	}
	return &cp
}
