// Package config resolves runtime settings with the precedence
// defaults -> config file -> environment -> flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/solterm/solterm/internal/registry"
)

type GlobalFlags struct {
	ConfigPath  string
	JSON        bool
	RPCURL      string
	Aggregator  string
	KeypairPath string
	Timeout     string
	Retries     int
	LogLevel    string
	LogFile     string
}

type Settings struct {
	OutputMode     string
	RPCURL         string
	AggregatorURL  string
	KeypairPath    string
	LedgerPath     string
	LedgerLockPath string
	Timeout        time.Duration
	Retries        int
	SlippageBps    int
	LogLevel       string
	LogFile        string
}

type fileConfig struct {
	Output   string `yaml:"output"`
	RPCURL   string `yaml:"rpc_url"`
	Timeout  string `yaml:"timeout"`
	Retries  *int   `yaml:"retries"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	Wallet   struct {
		KeypairPath string `yaml:"keypair_path"`
	} `yaml:"wallet"`
	Swap struct {
		AggregatorURL string `yaml:"aggregator_url"`
		SlippageBps   *int   `yaml:"slippage_bps"`
	} `yaml:"swap"`
	Ledger struct {
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"ledger"`
}

func Load(flags GlobalFlags) (Settings, error) {
	// A local .env is optional; absence is not an error.
	_ = godotenv.Load()

	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "text"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 15 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.SlippageBps <= 0 {
		settings.SlippageBps = registry.DefaultSlippageBps
	}
	return settings, nil
}

func defaultSettings() (Settings, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Settings{}, fmt.Errorf("resolve home directory: %w", err)
	}
	base := filepath.Join(home, ".solterm")
	return Settings{
		OutputMode:     "text",
		RPCURL:         registry.DefaultRPCURL,
		AggregatorURL:  registry.DefaultAggregatorURL,
		KeypairPath:    filepath.Join(home, ".config", "solana", "id.json"),
		LedgerPath:     filepath.Join(base, "ledger.db"),
		LedgerLockPath: filepath.Join(base, "ledger.lock"),
		Timeout:        15 * time.Second,
		Retries:        2,
		SlippageBps:    registry.DefaultSlippageBps,
		LogLevel:       "info",
	}, nil
}

func resolveConfigPath(flagPath string) (string, error) {
	if strings.TrimSpace(flagPath) != "" {
		if _, err := os.Stat(flagPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", flagPath)
		}
		return flagPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	candidate := filepath.Join(home, ".solterm", "config.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", nil
}

func applyFileConfig(path string, settings *Settings) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = cfg.Output
	}
	if cfg.RPCURL != "" {
		settings.RPCURL = cfg.RPCURL
	}
	if cfg.Timeout != "" {
		d, err := parseDuration(cfg.Timeout)
		if err != nil {
			return err
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.LogLevel != "" {
		settings.LogLevel = cfg.LogLevel
	}
	if cfg.LogFile != "" {
		settings.LogFile = cfg.LogFile
	}
	if cfg.Wallet.KeypairPath != "" {
		settings.KeypairPath = cfg.Wallet.KeypairPath
	}
	if cfg.Swap.AggregatorURL != "" {
		settings.AggregatorURL = cfg.Swap.AggregatorURL
	}
	if cfg.Swap.SlippageBps != nil {
		settings.SlippageBps = *cfg.Swap.SlippageBps
	}
	if cfg.Ledger.Path != "" {
		settings.LedgerPath = cfg.Ledger.Path
	}
	if cfg.Ledger.LockPath != "" {
		settings.LedgerLockPath = cfg.Ledger.LockPath
	}
	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("SOLTERM_RPC_URL"); v != "" {
		settings.RPCURL = v
	}
	if v := os.Getenv("SOLTERM_AGGREGATOR_URL"); v != "" {
		settings.AggregatorURL = v
	}
	if v := os.Getenv("SOLTERM_KEYPAIR"); v != "" {
		settings.KeypairPath = v
	}
	if v := os.Getenv("SOLTERM_LEDGER_PATH"); v != "" {
		settings.LedgerPath = v
	}
	if v := os.Getenv("SOLTERM_LOG_LEVEL"); v != "" {
		settings.LogLevel = v
	}
	if v := os.Getenv("SOLTERM_LOG_FILE"); v != "" {
		settings.LogFile = v
	}
	if v := os.Getenv("SOLTERM_TIMEOUT"); v != "" {
		if d, err := parseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("SOLTERM_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("SOLTERM_SLIPPAGE_BPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.SlippageBps = n
		}
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.RPCURL != "" {
		settings.RPCURL = flags.RPCURL
	}
	if flags.Aggregator != "" {
		settings.AggregatorURL = flags.Aggregator
	}
	if flags.KeypairPath != "" {
		settings.KeypairPath = flags.KeypairPath
	}
	if flags.Timeout != "" {
		d, err := parseDuration(flags.Timeout)
		if err != nil {
			return err
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if flags.LogLevel != "" {
		settings.LogLevel = flags.LogLevel
	}
	if flags.LogFile != "" {
		settings.LogFile = flags.LogFile
	}
	return nil
}

func parseDuration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, errors.New("invalid duration, use forms like 10s or 1m")
	}
	if d <= 0 {
		return 0, errors.New("duration must be positive")
	}
	return d, nil
}
