package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	POS      POSConfig
}

type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type POSConfig struct {
	BackupDir string
	// MinCashIn is the smallest opening fund a cashier may clock in with.
	MinCashIn decimal.Decimal
	Location  *time.Location
}

// Load reads .env (when present) into the environment, then resolves every
// setting through viper so real environment variables always win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("BACKUP_DIR", "./backups")
	v.SetDefault("MIN_CASH_IN", "1000")
	v.SetDefault("TIMEZONE", "Asia/Manila")
	v.SetDefault("DB_MAX_CONNS", 8)

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		POS: POSConfig{
			BackupDir: v.GetString("BACKUP_DIR"),
		},
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	minCashIn, err := decimal.NewFromString(v.GetString("MIN_CASH_IN"))
	if err != nil || minCashIn.IsNegative() {
		return nil, fmt.Errorf("invalid MIN_CASH_IN %q", v.GetString("MIN_CASH_IN"))
	}
	cfg.POS.MinCashIn = minCashIn

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.POS.Location = loc

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
