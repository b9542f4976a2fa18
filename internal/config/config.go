package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/pkg/logger"
	"github.com/JoeShih716/go-mem-bank/pkg/mysql"
)

// DefaultPath 是預設的設定檔路徑，可用 BANK_CONFIG 覆寫
const DefaultPath = "config/config.yaml"

// LedgerType 選擇帳本實作
type LedgerType string

const (
	LedgerTypeMySQL       LedgerType = "mysql"        // Level 0
	LedgerTypeMemoryMutex LedgerType = "memory_mutex" // Level 1
	LedgerTypeMemoryLMAX  LedgerType = "memory_lmax"  // Level 2
)

type Config struct {
	Server ServerConfig  `yaml:"server"`
	Ledger LedgerConfig  `yaml:"ledger"`
	Bank   BankConfig    `yaml:"bank"`
	Log    logger.Config `yaml:"log"`
	MySQL  mysql.Config  `yaml:"mysql"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LedgerConfig struct {
	Type    LedgerType `yaml:"type"`
	WALPath string     `yaml:"wal_path"` // 記憶體帳本的 WAL 檔，空字串時不落盤
}

// BankConfig 是新開帳戶的分行與限額，0 表示不限制
type BankConfig struct {
	Branch             string `yaml:"branch"`
	PerWithdrawalLimit string `yaml:"per_withdrawal_limit"`
	DailyWithdrawals   int    `yaml:"daily_withdrawals"`
	DailyTransactions  int    `yaml:"daily_transactions"`
}

// Default 回傳預設設定
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":50051",
			ShutdownTimeout: 10 * time.Second,
		},
		Ledger: LedgerConfig{
			Type:    LedgerTypeMemoryMutex,
			WALPath: "wal.log",
		},
		Bank: BankConfig{
			Branch:             domain.DefaultBranch,
			PerWithdrawalLimit: "500",
			DailyWithdrawals:   3,
		},
		Log: logger.Config{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load 載入 .env 與設定檔，並套用環境變數
//
// 參數:
//
//	path: 設定檔路徑，空字串時使用 BANK_CONFIG 或 DefaultPath；檔案不存在時只使用預設值
//
// 回傳值:
//
//	Config: 設定
//	error: 讀取、解析或驗證失敗
func Load(path string) (Config, error) {
	// .env 為選用
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("BANK_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse 解析 yaml，未寫的欄位保留預設值
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.MySQL.ApplyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BANK_GRPC_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("BANK_LEDGER_TYPE"); v != "" {
		c.Ledger.Type = LedgerType(v)
	}
	if v, ok := os.LookupEnv("BANK_WAL_PATH"); ok {
		c.Ledger.WALPath = v
	}
	if v := os.Getenv("MYSQL_HOST"); v != "" {
		c.MySQL.Host = v
	}
	if v := os.Getenv("MYSQL_PASSWORD"); v != "" {
		c.MySQL.Password = v
	}
}

// Validate 檢查設定
func (c *Config) Validate() error {
	switch c.Ledger.Type {
	case LedgerTypeMySQL:
		if c.MySQL.Host == "" || c.MySQL.DBName == "" {
			return errors.New("config: mysql ledger requires mysql.host and mysql.dbname")
		}
	case LedgerTypeMemoryMutex, LedgerTypeMemoryLMAX:
	default:
		return fmt.Errorf("config: unknown ledger type %q", c.Ledger.Type)
	}
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	if _, err := c.Bank.Limits(); err != nil {
		return err
	}
	return nil
}

// Limits 轉為 domain.Limits
func (b BankConfig) Limits() (domain.Limits, error) {
	limits := domain.Limits{
		DailyWithdrawals:  b.DailyWithdrawals,
		DailyTransactions: b.DailyTransactions,
	}
	if b.PerWithdrawalLimit != "" {
		v, err := decimal.NewFromString(b.PerWithdrawalLimit)
		if err != nil {
			return domain.Limits{}, fmt.Errorf("config: bank.per_withdrawal_limit: %w", err)
		}
		if v.IsNegative() {
			return domain.Limits{}, errors.New("config: bank.per_withdrawal_limit must not be negative")
		}
		limits.PerWithdrawal = v
	}
	if b.DailyWithdrawals < 0 || b.DailyTransactions < 0 {
		return domain.Limits{}, errors.New("config: daily limits must not be negative")
	}
	return limits, nil
}
