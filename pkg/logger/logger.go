package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 定義 logger 設定
type Config struct {
	Level     string `yaml:"level"`      // debug / info / warn / error
	Encoding  string `yaml:"encoding"`   // json / console
	AuditPath string `yaml:"audit_path"` // 稽核紀錄檔，空字串時與主 logger 相同輸出
}

// New 依設定建立 zap logger
//
// 參數:
//
//	cfg: logger 設定，Level 空白時為 info，Encoding 空白時為 json
//
// 回傳值:
//
//	*zap.Logger: logger
//	error: 等級無法解析或輸出無法開啟
func New(cfg Config) (*zap.Logger, error) {
	return build(cfg, []string{"stdout"})
}

// NewAudit 建立稽核用 logger，寫入 AuditPath (未設定時寫 stdout)
func NewAudit(cfg Config) (*zap.Logger, error) {
	paths := []string{"stdout"}
	if cfg.AuditPath != "" {
		paths = []string{cfg.AuditPath}
	}
	l, err := build(cfg, paths)
	if err != nil {
		return nil, err
	}
	return l.Named("audit"), nil
}

func build(cfg Config, outputPaths []string) (*zap.Logger, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = atomicLevel
	zapCfg.OutputPaths = outputPaths
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Encoding != "" {
		zapCfg.Encoding = cfg.Encoding
	}
	if zapCfg.Encoding == "console" {
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	l, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
