package config

import (
	"strings"
	"testing"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "production") // skip .env loading
	t.Setenv("AUTH_SECRET", strings.Repeat("s", 32))
	t.Setenv("AUTH_USERS", "alice:wonderland:user|admin")
}

func TestValidateEnv(t *testing.T) {
	setValidEnv(t)

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("ValidateEnv: %v", err)
	}
	if cfg.Port != "8000" || cfg.MaxFileSize != 10485760 || cfg.DefaultMaxConcurrent != 5 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestValidateEnvShortSecret(t *testing.T) {
	setValidEnv(t)
	t.Setenv("AUTH_SECRET", "short")

	if _, err := ValidateEnv(); err == nil || !strings.Contains(err.Error(), "AUTH_SECRET") {
		t.Fatalf("expected AUTH_SECRET error, got %v", err)
	}
}

func TestValidateEnvNoCredentials(t *testing.T) {
	setValidEnv(t)
	t.Setenv("AUTH_USERS", "")

	if _, err := ValidateEnv(); err == nil {
		t.Fatal("expected error when neither AUTH_USERS nor API_KEYS is set")
	}
}

func TestValidateEnvMalformedUser(t *testing.T) {
	setValidEnv(t)
	t.Setenv("AUTH_USERS", "justausername")

	if _, err := ValidateEnv(); err == nil || !strings.Contains(err.Error(), "AUTH_USERS") {
		t.Fatalf("expected AUTH_USERS error, got %v", err)
	}
}

func TestValidateEnvIncompleteS3(t *testing.T) {
	setValidEnv(t)
	t.Setenv("S3_ENDPOINT", "minio:9000")

	if _, err := ValidateEnv(); err == nil || !strings.Contains(err.Error(), "S3_ACCESS_KEY") {
		t.Fatalf("expected S3 error, got %v", err)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a, b ,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("SplitList: got %v", got)
	}
	if SplitList("") != nil {
		t.Fatal("SplitList(\"\") should be nil")
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret(""); got != "<not set>" {
		t.Fatalf("empty: got %q", got)
	}
	if got := MaskSecret("abcd"); got != "***" {
		t.Fatalf("short: got %q", got)
	}
	if got := MaskSecret("abcdefghijkl"); got != "abcd...ijkl" {
		t.Fatalf("long: got %q", got)
	}
}
