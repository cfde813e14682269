package cfg

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./intelwatch.db" description:"SQLite database file path"`

	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Pipeline configuration
	SourcesFile      string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file with seed sources for the registry"`
	WorkerCount      int    `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of concurrent source workers per run"`
	SourceTimeout    int    `long:"source-timeout" env:"SOURCE_TIMEOUT" default:"120" description:"Per-source processing timeout in seconds"`
	RunTimeout       int    `long:"run-timeout" env:"RUN_TIMEOUT" default:"900" description:"Run-level deadline in seconds"`
	FetchTimeout     int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-request fetch timeout in seconds"`
	MaxDocsPerSource int    `long:"max-docs" env:"MAX_DOCS_PER_SOURCE" default:"4" description:"Maximum documents processed per source per run"`

	// Reasoning service configuration
	ReasonURL    string `long:"reason-url" env:"REASON_URL" description:"Base URL of the reasoning service (OpenAI-compatible)"`
	ReasonAPIKey string `long:"reason-api-key" env:"REASON_API_KEY" description:"API key for the reasoning service"`
	ReasonModel  string `long:"reason-model" env:"REASON_MODEL" default:"gpt-4o-mini" description:"Model identifier for the reasoning service"`
	ReasonBudget int    `long:"reason-budget" env:"REASON_BUDGET" default:"50" description:"Maximum reasoning calls per run (0 = unlimited)"`

	// Notification configuration
	NotifyURL        string `long:"notify-url" env:"NOTIFY_URL" description:"Base URL of the email delivery service"`
	NotifyAPIKey     string `long:"notify-api-key" env:"NOTIFY_API_KEY" description:"API key for the email delivery service"`
	NotifyFrom       string `long:"notify-from" env:"NOTIFY_FROM" default:"digest@intelwatch.local" description:"From address for digest emails"`
	NotifyRecipients string `long:"notify-recipients" env:"NOTIFY_RECIPIENTS" description:"Comma-separated digest recipients"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"IntelWatch/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
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
		DBPath:           raw.DBPath,
		Port:             raw.Port,
		APIAccessKey:     raw.APIAccessKey,
		SourcesFile:      raw.SourcesFile,
		WorkerCount:      raw.WorkerCount,
		SourceTimeout:    raw.SourceTimeout,
		RunTimeout:       raw.RunTimeout,
		FetchTimeout:     raw.FetchTimeout,
		MaxDocsPerSource: raw.MaxDocsPerSource,
		ReasonURL:        raw.ReasonURL,
		ReasonAPIKey:     raw.ReasonAPIKey,
		ReasonModel:      raw.ReasonModel,
		ReasonBudget:     raw.ReasonBudget,
		NotifyURL:        raw.NotifyURL,
		NotifyAPIKey:     raw.NotifyAPIKey,
		NotifyFrom:       raw.NotifyFrom,
		NotifyRecipients: splitRecipients(raw.NotifyRecipients),
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set installs a configuration directly, bypassing flag parsing. Used by tests.
func Set(c *Cfg) {
	globalCfg = c
}

func splitRecipients(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	recipients := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
