package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Object store configuration
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool

	// Mail transport configuration
	MailgunDomain string
	MailgunAPIKey string
	FromAddress   string

	// Push transport configuration
	PushoverToken string

	// Conversion configuration
	CalibreBin string

	// Pipeline configuration
	BooksDir          string
	WorkerCount       int
	SchedulerInterval int
	PollInterval      int
	FetchTimeout      int
	DomainRate        float64
	DomainBurst       int
	VerificationTTL   int

	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
