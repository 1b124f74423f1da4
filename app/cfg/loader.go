package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"cereal_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"cereal_password" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"cereal" description:"Database name"`

	// Object store configuration
	StorageEndpoint  string `long:"storage-endpoint" env:"STORAGE_ENDPOINT" description:"S3-compatible object store endpoint (required)" required:"true"`
	StorageAccessKey string `long:"storage-access-key" env:"STORAGE_ACCESS_KEY" description:"Object store access key (required)" required:"true"`
	StorageSecretKey string `long:"storage-secret-key" env:"STORAGE_SECRET_KEY" description:"Object store secret key (required)" required:"true"`
	StorageBucket    string `long:"storage-bucket" env:"STORAGE_BUCKET" default:"cereal-chapters" description:"Bucket for chapter bodies and artifacts"`
	StorageUseSSL    bool   `long:"storage-use-ssl" env:"STORAGE_USE_SSL" description:"Use TLS when talking to the object store"`

	// Mail transport configuration
	MailgunDomain string `long:"mailgun-domain" env:"MAILGUN_DOMAIN" description:"Mailgun sending domain"`
	MailgunAPIKey string `long:"mailgun-api-key" env:"MAILGUN_API_KEY" description:"Mailgun API key"`
	FromAddress   string `long:"from-address" env:"FROM_ADDRESS" default:"delivery@cereal.works" description:"From address for outbound email"`

	// Push transport configuration
	PushoverToken string `long:"pushover-token" env:"PUSHOVER_TOKEN" description:"Pushover application token"`

	// Conversion configuration
	CalibreBin string `long:"calibre-bin" env:"CALIBRE_BIN" default:"ebook-convert" description:"Path to the calibre ebook-convert binary"`

	// Pipeline configuration
	BooksDir          string  `long:"books-dir" env:"BOOKS_DIR" default:"./books" description:"Directory containing book definition files"`
	WorkerCount       int     `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for pipeline tasks"`
	SchedulerInterval int     `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	PollInterval      int     `long:"poll-interval" env:"POLL_INTERVAL" default:"300" description:"Default per-book poll interval in seconds"`
	FetchTimeout      int     `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Timeout in seconds for outbound fetches"`
	DomainRate        float64 `long:"domain-rate" env:"DOMAIN_RATE" default:"1" description:"Sustained requests per second allowed per source domain"`
	DomainBurst       int     `long:"domain-burst" env:"DOMAIN_BURST" default:"5" description:"Burst capacity per source domain"`
	VerificationTTL   int     `long:"verification-ttl" env:"VERIFICATION_TTL" default:"300" description:"Validity window for delivery verification codes in seconds"`

	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for delivery method endpoints (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Cereal/1.0" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:            raw.DBHost,
		DBPort:            raw.DBPort,
		DBUser:            raw.DBUser,
		DBPassword:        raw.DBPassword,
		DBName:            raw.DBName,
		StorageEndpoint:   raw.StorageEndpoint,
		StorageAccessKey:  raw.StorageAccessKey,
		StorageSecretKey:  raw.StorageSecretKey,
		StorageBucket:     raw.StorageBucket,
		StorageUseSSL:     raw.StorageUseSSL,
		MailgunDomain:     raw.MailgunDomain,
		MailgunAPIKey:     raw.MailgunAPIKey,
		FromAddress:       raw.FromAddress,
		PushoverToken:     raw.PushoverToken,
		CalibreBin:        raw.CalibreBin,
		BooksDir:          raw.BooksDir,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		PollInterval:      raw.PollInterval,
		FetchTimeout:      raw.FetchTimeout,
		DomainRate:        raw.DomainRate,
		DomainBurst:       raw.DomainBurst,
		VerificationTTL:   raw.VerificationTTL,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		UserAgent:         raw.UserAgent,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	globalCfg = cfg
	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("cfg.Get called before cfg.Load")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.SchedulerInterval < 1 {
		return fmt.Errorf("scheduler interval must be at least 1 second, got %d", cfg.SchedulerInterval)
	}
	if cfg.PollInterval < 1 {
		return fmt.Errorf("poll interval must be at least 1 second, got %d", cfg.PollInterval)
	}
	if cfg.DomainRate <= 0 {
		return fmt.Errorf("domain rate must be positive, got %f", cfg.DomainRate)
	}
	if cfg.DomainBurst < 1 {
		return fmt.Errorf("domain burst must be at least 1, got %d", cfg.DomainBurst)
	}
	return nil
}

// SetForTesting replaces the global configuration. Tests only.
func SetForTesting(cfg *Cfg) {
	globalCfg = cfg
}
