// Package config assembles the service configuration from the
// environment, with a .env file as an optional local override.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/wattbase/wattledger/pkg/ledger"
	"github.com/wattbase/wattledger/pkg/models"
)

// Config holds everything the service binaries need to start.
type Config struct {
	// HTTPPort is the port the API server listens on.
	HTTPPort string

	// Admin registers devices and reassigns issuance.
	Admin models.Address
	// Backend is the verification pipeline identity.
	Backend models.Address
	// Treasury receives settlement fees.
	Treasury models.Address

	TokenDecimals       uint8
	EnergyPerTokenMilli uint64
	GridIntensityMicro  uint64

	// JournalTable is the DynamoDB table for the audit journal. Empty
	// selects the in-memory journal.
	JournalTable string
	// QueueURL is the SQS queue of verified readings. Empty disables the
	// ingest consumer.
	QueueURL string

	// OracleFeedURL points at an HTTP price feed. Empty selects the
	// static source configured below.
	OracleFeedURL        string
	OracleMaxAge         time.Duration
	OracleStaticPrice    int64
	OracleStaticDecimals uint8

	// AuditSchedule is the cron spec for the periodic invariant audit.
	AuditSchedule string
}

// Load reads a .env file into the environment when one is present, then
// builds the configuration from environment variables. The authority
// addresses are required; everything else has a default.
func Load() (*Config, error) {
	// A missing .env file is fine: deployed environments set variables
	// directly.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		JournalTable:         os.Getenv("DYNAMODB_JOURNAL_TABLE_NAME"),
		QueueURL:             os.Getenv("SQS_QUEUE_URL"),
		OracleFeedURL:        os.Getenv("ORACLE_FEED_URL"),
		AuditSchedule:        getEnv("AUDIT_SCHEDULE", "@every 5m"),
		OracleMaxAge:         5 * time.Minute,
		OracleStaticPrice:    0,
		OracleStaticDecimals: 8,
		TokenDecimals:        18,
		EnergyPerTokenMilli:  2500,
		GridIntensityMicro:   400000,
	}

	var err error
	if cfg.Admin, err = requireAddress("ADMIN_ADDRESS"); err != nil {
		return nil, err
	}
	if cfg.Backend, err = requireAddress("BACKEND_ADDRESS"); err != nil {
		return nil, err
	}
	if cfg.Treasury, err = requireAddress("TREASURY_ADDRESS"); err != nil {
		return nil, err
	}

	if v := os.Getenv("TOKEN_DECIMALS"); v != "" {
		d, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOKEN_DECIMALS: %w", err)
		}
		cfg.TokenDecimals = uint8(d)
	}
	if v := os.Getenv("ENERGY_PER_TOKEN_MILLI"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ENERGY_PER_TOKEN_MILLI: %w", err)
		}
		cfg.EnergyPerTokenMilli = n
	}
	if v := os.Getenv("GRID_INTENSITY_MICRO"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse GRID_INTENSITY_MICRO: %w", err)
		}
		cfg.GridIntensityMicro = n
	}
	if v := os.Getenv("ORACLE_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ORACLE_MAX_AGE: %w", err)
		}
		cfg.OracleMaxAge = d
	}
	if v := os.Getenv("ORACLE_STATIC_PRICE"); v != "" {
		p, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ORACLE_STATIC_PRICE: %w", err)
		}
		cfg.OracleStaticPrice = p
	}
	if v := os.Getenv("ORACLE_STATIC_DECIMALS"); v != "" {
		d, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ORACLE_STATIC_DECIMALS: %w", err)
		}
		cfg.OracleStaticDecimals = uint8(d)
	}

	if cfg.EnergyPerTokenMilli == 0 {
		return nil, fmt.Errorf("ENERGY_PER_TOKEN_MILLI must be positive")
	}

	return cfg, nil
}

// Engine maps the service configuration onto the ledger engine's.
func (c *Config) Engine() ledger.Config {
	return ledger.Config{
		Admin:               c.Admin,
		Backend:             c.Backend,
		Treasury:            c.Treasury,
		TokenDecimals:       c.TokenDecimals,
		EnergyPerTokenMilli: c.EnergyPerTokenMilli,
		GridIntensityMicro:  c.GridIntensityMicro,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireAddress(key string) (models.Address, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s environment variable not set", key)
	}
	addr, err := models.ParseAddress(v)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return addr, nil
}
