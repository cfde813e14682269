package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Pipeline configuration
	SourcesFile      string
	WorkerCount      int
	SourceTimeout    int // seconds
	RunTimeout       int // seconds
	FetchTimeout     int // seconds
	MaxDocsPerSource int

	// Reasoning service configuration
	ReasonURL    string
	ReasonAPIKey string
	ReasonModel  string
	ReasonBudget int // max reasoning calls per run, 0 = unlimited

	// Notification configuration
	NotifyURL        string
	NotifyAPIKey     string
	NotifyFrom       string
	NotifyRecipients []string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
