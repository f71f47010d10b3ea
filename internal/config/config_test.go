package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWTIssuer != "credvault-auth" {
		t.Errorf("JWTIssuer = %q, want credvault-auth", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "credvault-api" {
		t.Errorf("JWTAudience = %q, want credvault-api", cfg.JWTAudience)
	}
	if cfg.RevocationKafkaTopic != "credvault-revocations" {
		t.Errorf("RevocationKafkaTopic = %q", cfg.RevocationKafkaTopic)
	}
	if cfg.AuditKafkaTopic != "credvault-audit" {
		t.Errorf("AuditKafkaTopic = %q", cfg.AuditKafkaTopic)
	}
	if cfg.MailBaseURL == "" {
		t.Error("MailBaseURL default missing")
	}
}

func TestLoadMailFromRequiredWithAPIKey(t *testing.T) {
	t.Setenv("MAIL_API_KEY", "re_test")
	t.Setenv("MAIL_FROM", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load: want error when MAIL_API_KEY set without MAIL_FROM")
	}
	t.Setenv("MAIL_FROM", "vault@example.com")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MailFrom != "vault@example.com" {
		t.Errorf("MailFrom = %q", cfg.MailFrom)
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{AutoRevokeDelay: "garbage", ExpirySweepInterval: ""}
	if got := cfg.AutoRevokeDelayDuration(); got != 30*time.Second {
		t.Errorf("AutoRevokeDelayDuration = %v, want 30s", got)
	}
	if got := cfg.ExpirySweepIntervalDuration(); got != time.Minute {
		t.Errorf("ExpirySweepIntervalDuration = %v, want 1m", got)
	}
	cfg = &Config{AutoRevokeDelay: "5s", ExpirySweepInterval: "90s"}
	if got := cfg.AutoRevokeDelayDuration(); got != 5*time.Second {
		t.Errorf("AutoRevokeDelayDuration = %v, want 5s", got)
	}
	if got := cfg.ExpirySweepIntervalDuration(); got != 90*time.Second {
		t.Errorf("ExpirySweepIntervalDuration = %v, want 90s", got)
	}
}

func TestKafkaBrokersList(t *testing.T) {
	cfg := &Config{KafkaBrokers: " localhost:9092 , ,broker2:9092"}
	got := cfg.KafkaBrokersList()
	if len(got) != 2 || got[0] != "localhost:9092" || got[1] != "broker2:9092" {
		t.Errorf("KafkaBrokersList = %v", got)
	}
	cfg = &Config{}
	if got := cfg.KafkaBrokersList(); got != nil {
		t.Errorf("KafkaBrokersList on empty = %v, want nil", got)
	}
}
