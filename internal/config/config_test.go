package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hackwatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvTwitterBearerToken, EnvTelegramBotToken, EnvTelegramChatID,
		EnvCheckInterval, EnvMaxPerQuery,
	} {
		t.Setenv(k, "")
	}
}

func TestParseMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	m := NewManager(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.CheckInterval != "15m" || cfg.MaxResultsPerQuery != 50 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("expected file storage default, got %+v", cfg.Storage)
	}
}

func TestParseYAMLConfig(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
check_interval: 5m
max_results_per_query: 25
twitter:
  bearer_token: file-bearer
telegram:
  bot_token: file-bot
  chat_id: "-1001234"
categories:
  - name: hackathons
    priority: 10
    phrases: ["hackathon"]
`)
	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.CheckInterval != "5m" || cfg.MaxResultsPerQuery != 25 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if cfg.Twitter.BearerToken != "file-bearer" {
		t.Fatalf("bearer token not read: %+v", cfg.Twitter)
	}
	if len(cfg.Categories) != 1 || cfg.Categories[0].Name != "hackathons" {
		t.Fatalf("categories not read: %+v", cfg.Categories)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	id, err := cfg.ChatID()
	if err != nil || id != -1001234 {
		t.Fatalf("ChatID: %d %v", id, err)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "interval_minutes: 15\n")
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("unknown field should be rejected")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
twitter:
  bearer_token: file-bearer
telegram:
  bot_token: file-bot
  chat_id: "111"
`)
	t.Setenv(EnvTwitterBearerToken, "env-bearer")
	t.Setenv(EnvTelegramChatID, "222")
	t.Setenv(EnvCheckInterval, "30")

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Twitter.BearerToken != "env-bearer" {
		t.Fatalf("env bearer should win, got %q", cfg.Twitter.BearerToken)
	}
	if cfg.Telegram.BotToken != "file-bot" {
		t.Fatalf("file bot token should survive, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "222" {
		t.Fatalf("env chat id should win, got %q", cfg.Telegram.ChatID)
	}
	if cfg.Interval() != 30*time.Minute {
		t.Fatalf("interval env should apply, got %s", cfg.Interval())
	}
}

func TestValidateListsAllMissingCredentials(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, k := range []string{EnvTwitterBearerToken, EnvTelegramBotToken, EnvTelegramChatID} {
		if !strings.Contains(err.Error(), k) {
			t.Fatalf("error should name %s: %v", k, err)
		}
	}
}

func TestValidateBadChatID(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.Twitter.BearerToken = "x"
	cfg.Telegram.BotToken = "y"
	cfg.Telegram.ChatID = "not-a-number"
	if err := cfg.Validate(); err == nil {
		t.Fatal("non-numeric chat id should fail validation")
	}
}

func TestValidateCategoryRequiresPhrases(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.Twitter.BearerToken = "x"
	cfg.Telegram.BotToken = "y"
	cfg.Telegram.ChatID = "1"
	cfg.Categories = []CategoryConfig{{Name: "empty"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("category without phrases should fail validation")
	}
}

func TestParseDurationField(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"  15m ", 15 * time.Minute, false},
		{"90s", 90 * time.Second, false},
		{"-1m", 0, true},
		{"15", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDurationField("check_interval", tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDurationField(%q) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDurationField(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}

	if d, err := ParseDurationOrDefault("check_interval", "", time.Minute); err != nil || d != time.Minute {
		t.Errorf("ParseDurationOrDefault default: %v %v", d, err)
	}
	if d, err := ParseDurationOrDefault("check_interval", "5m", time.Minute); err != nil || d != 5*time.Minute {
		t.Errorf("ParseDurationOrDefault explicit: %v %v", d, err)
	}
}

func TestPublishDropsOldestForSlowSubscriber(t *testing.T) {
	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	old := &Config{CheckInterval: "1m"}
	latest := &Config{CheckInterval: "2m"}
	m.publish(old)
	m.publish(latest)

	got := <-ch
	if got.CheckInterval != "2m" {
		t.Fatalf("slow subscriber should see the latest config, got %q", got.CheckInterval)
	}
}
