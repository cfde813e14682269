package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestSplitRecipients(t *testing.T) {
	recipients := splitRecipients("a@example.com, b@example.com ,,c@example.com")
	if len(recipients) != 3 {
		t.Fatalf("Expected 3 recipients, got %d", len(recipients))
	}
	if recipients[1] != "b@example.com" {
		t.Errorf("Expected trimmed recipient 'b@example.com', got '%s'", recipients[1])
	}

	if splitRecipients("") != nil {
		t.Error("Empty recipient string should yield nil")
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:           "./test.db",
		Port:             "8080",
		APIAccessKey:     "test-key",
		SourcesFile:      "./sources.yml",
		WorkerCount:      4,
		SourceTimeout:    120,
		RunTimeout:       900,
		FetchTimeout:     30,
		MaxDocsPerSource: 4,
		ReasonURL:        "https://reason.example.com",
		ReasonModel:      "test-model",
		ReasonBudget:     50,
		NotifyFrom:       "digest@example.com",
		NotifyRecipients: []string{"a@example.com"},
		UserAgent:        "Test Agent",
		Timezone:         "UTC",
		Debug:            true,
		Version:          "test-version",
	}

	if cfg.DBPath != "./test.db" {
		t.Errorf("Expected DB path './test.db', got '%s'", cfg.DBPath)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("Expected worker count 4, got %d", cfg.WorkerCount)
	}
	if cfg.ReasonBudget != 50 {
		t.Errorf("Expected reason budget 50, got %d", cfg.ReasonBudget)
	}
	if len(cfg.NotifyRecipients) != 1 {
		t.Errorf("Expected 1 recipient, got %d", len(cfg.NotifyRecipients))
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestSetAndGet(t *testing.T) {
	prev := globalCfg
	defer func() { globalCfg = prev }()

	c := &Cfg{Port: "9090"}
	Set(c)

	if Get().Port != "9090" {
		t.Errorf("Expected Get to return installed config, got port '%s'", Get().Port)
	}
}
