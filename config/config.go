package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	defaultServerAddr     = ":8080"
	defaultDatabaseDSN    = ""
	defaultGatewayAddr    = ""
	defaultLogLevel       = "debug"
	defaultDescription    = "Account top-up"
	defaultTaxation       = "usn_income"
	defaultVAT            = "none"
	defaultPollDelay      = 3 * time.Second
	defaultMaxAttempts    = 100
	defaultSweepInterval  = 5 * time.Second
	defaultRequestTimeout = 2 * time.Second
)

type Config struct {
	ServerAddr  string
	DatabaseDSN string
	GatewayAddr string
	LogLevel    string

	// provider credentials and receipt tax parameters
	TerminalKey  string
	TerminalPass string
	Taxation     string
	VAT          string

	// default product description for new orders
	Description string

	// callback endpoint of the messaging front end, log-only when empty
	NotifyURL string

	// hex-encoded HMAC key for operator tokens, auth is off when empty
	AuthTokenKey string

	// polling budget: the maximum wall-clock wait for one payment link is
	// PollDelay * PollMaxAttempts
	PollDelay       time.Duration
	PollMaxAttempts int
	SweepInterval   time.Duration
	RequestTimeout  time.Duration
	AutoCancel      bool
}

var (
	once      sync.Once
	singleton *Config
	parseErr  error
)

// New returns new Config. It parses command line and environment variables only once.
func New() (*Config, error) {
	once.Do(func() {
		cfg := Config{
			Taxation:        defaultTaxation,
			VAT:             defaultVAT,
			Description:     defaultDescription,
			PollDelay:       defaultPollDelay,
			PollMaxAttempts: defaultMaxAttempts,
			SweepInterval:   defaultSweepInterval,
			RequestTimeout:  defaultRequestTimeout,
			AutoCancel:      true,
		}

		// initialize flags
		flag.StringVar(&cfg.ServerAddr, "a", defaultServerAddr, "paytrack server address")
		flag.StringVar(&cfg.DatabaseDSN, "d", defaultDatabaseDSN, "paytrack database DSN")
		flag.StringVar(&cfg.GatewayAddr, "g", defaultGatewayAddr, "payment gateway address")
		flag.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")

		flag.Parse()

		// if environment variable is set, then using it
		if runAddrEnv := os.Getenv("RUN_ADDRESS"); runAddrEnv != "" {
			cfg.ServerAddr = runAddrEnv
		}
		if dataBaseURIEnv := os.Getenv("DATABASE_URI"); dataBaseURIEnv != "" {
			cfg.DatabaseDSN = dataBaseURIEnv
		}
		if gatewayAddrEnv := os.Getenv("GATEWAY_ADDRESS"); gatewayAddrEnv != "" {
			cfg.GatewayAddr = gatewayAddrEnv
		}
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			cfg.LogLevel = logLevelEnv
		}

		cfg.TerminalKey = os.Getenv("TERMINAL_KEY")
		cfg.TerminalPass = os.Getenv("TERMINAL_PASSWORD")
		if taxationEnv := os.Getenv("TAXATION"); taxationEnv != "" {
			cfg.Taxation = taxationEnv
		}
		if vatEnv := os.Getenv("TAX_VAT"); vatEnv != "" {
			cfg.VAT = vatEnv
		}
		if descriptionEnv := os.Getenv("PRODUCT_DESCRIPTION"); descriptionEnv != "" {
			cfg.Description = descriptionEnv
		}
		cfg.NotifyURL = os.Getenv("NOTIFY_URL")
		cfg.AuthTokenKey = os.Getenv("AUTH_TOKEN_KEY")

		parseErr = errors.Join(
			durationEnv("POLL_DELAY", &cfg.PollDelay),
			intEnv("POLL_MAX_ATTEMPTS", &cfg.PollMaxAttempts),
			durationEnv("SWEEP_INTERVAL", &cfg.SweepInterval),
			durationEnv("REQUEST_TIMEOUT", &cfg.RequestTimeout),
			boolEnv("AUTO_CANCEL", &cfg.AutoCancel),
		)
		if parseErr == nil {
			parseErr = cfg.validate()
		}

		singleton = &cfg
	})

	return singleton, parseErr
}

// validate rejects a configuration the polling loop can not honor
func (cfg *Config) validate() error {
	if cfg.GatewayAddr == "" {
		return errors.New("config: gateway address is required")
	}
	if cfg.TerminalKey == "" || cfg.TerminalPass == "" {
		return errors.New("config: terminal key and password are required")
	}
	if cfg.PollMaxAttempts < 1 {
		return errors.New("config: poll max attempts must be at least 1")
	}
	if cfg.PollDelay <= 0 {
		return errors.New("config: poll delay must be positive")
	}
	// a hung provider call must fail within the current attempt
	if cfg.RequestTimeout >= cfg.PollDelay {
		return errors.New("config: request timeout must be shorter than poll delay")
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("config: sweep interval must be positive")
	}
	return nil
}

func durationEnv(name string, dst *time.Duration) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("config: invalid %s: %w", name, err)
	}
	*dst = d
	return nil
}

func intEnv(name string, dst *int) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("config: invalid %s: %w", name, err)
	}
	*dst = n
	return nil
}

func boolEnv(name string, dst *bool) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("config: invalid %s: %w", name, err)
	}
	*dst = b
	return nil
}
