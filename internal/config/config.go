package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/locvowork/hybridexport/pkg/hybridexcel"
)

type envConfig struct {
	APP_PORT      string
	LOG_FILE_PATH string

	DB_HOST              string
	DB_PORT              int
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	DB_SSL_MODE          string
	DB_MAX_OPEN_CONNS    int
	DB_MAX_IDLE_CONNS    int
	DB_CONN_MAX_LIFETIME time.Duration

	GCP_PROJECT_ID string
	ELASTIC_URL    string

	EXPORT_TREE_MAX_ROWS  int
	EXPORT_TREE_MAX_BYTES int64
	EXPORT_HARD_MAX_BYTES int64
	EXPORT_ROW_OVERFLOW   string
	EXPORT_TEMP_DIR       string
	EXPORT_TEMPLATE_DIR   string
}

var DefaultEnvConfig envConfig

// LoadEnvConfig reads .env (if present) and the process environment into
// DefaultEnvConfig.
func LoadEnvConfig(files ...string) error {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return fmt.Errorf("load env files: %w", err)
	}
	cfg, err := fromEnv()
	if err != nil {
		return err
	}
	DefaultEnvConfig = cfg
	return nil
}

func fromEnv() (envConfig, error) {
	var (
		cfg envConfig
		p   parser
	)
	cfg.APP_PORT = str("APP_PORT", "8080")
	cfg.LOG_FILE_PATH = os.Getenv("LOG_FILE_PATH")

	cfg.DB_HOST = os.Getenv("DB_HOST")
	cfg.DB_PORT = p.int("DB_PORT", 5432)
	cfg.DB_USER = str("DB_USER", "postgres")
	cfg.DB_PASSWORD = os.Getenv("DB_PASSWORD")
	cfg.DB_NAME = str("DB_NAME", "postgres")
	cfg.DB_SSL_MODE = str("DB_SSL_MODE", "disable")
	cfg.DB_MAX_OPEN_CONNS = p.int("DB_MAX_OPEN_CONNS", 25)
	cfg.DB_MAX_IDLE_CONNS = p.int("DB_MAX_IDLE_CONNS", 5)
	cfg.DB_CONN_MAX_LIFETIME = p.duration("DB_CONN_MAX_LIFETIME", time.Hour)

	cfg.GCP_PROJECT_ID = os.Getenv("GCP_PROJECT_ID")
	cfg.ELASTIC_URL = os.Getenv("ELASTIC_URL")

	cfg.EXPORT_TREE_MAX_ROWS = p.int("EXPORT_TREE_MAX_ROWS", hybridexcel.DefaultTreeMaxRows)
	cfg.EXPORT_TREE_MAX_BYTES = p.int64("EXPORT_TREE_MAX_BYTES", hybridexcel.DefaultTreeMaxPartBytes)
	cfg.EXPORT_HARD_MAX_BYTES = p.int64("EXPORT_HARD_MAX_BYTES", 0)
	cfg.EXPORT_ROW_OVERFLOW = str("EXPORT_ROW_OVERFLOW", string(hybridexcel.RowOverflowSkip))
	cfg.EXPORT_TEMP_DIR = os.Getenv("EXPORT_TEMP_DIR")
	cfg.EXPORT_TEMPLATE_DIR = str("EXPORT_TEMPLATE_DIR", "templates")

	switch hybridexcel.RowOverflowPolicy(cfg.EXPORT_ROW_OVERFLOW) {
	case hybridexcel.RowOverflowSkip, hybridexcel.RowOverflowStream:
	default:
		p.fail("EXPORT_ROW_OVERFLOW", cfg.EXPORT_ROW_OVERFLOW, fmt.Errorf("want skip or stream"))
	}
	return cfg, p.err
}

// ExportConfig builds the export engine configuration from the environment.
func (c envConfig) ExportConfig() hybridexcel.Config {
	cfg := hybridexcel.DefaultConfig()
	cfg.Thresholds.TreeMaxRows = c.EXPORT_TREE_MAX_ROWS
	cfg.Thresholds.TreeMaxPartBytes = c.EXPORT_TREE_MAX_BYTES
	cfg.Thresholds.HardMaxPartBytes = c.EXPORT_HARD_MAX_BYTES
	cfg.Thresholds.RowOverflow = hybridexcel.RowOverflowPolicy(c.EXPORT_ROW_OVERFLOW)
	cfg.TempDir = c.EXPORT_TEMP_DIR
	return cfg
}

func str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) fail(key, val string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, val, err)
	}
}

func (p *parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) int64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}
