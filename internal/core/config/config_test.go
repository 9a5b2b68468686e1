package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr == "" || cfg.WFSBaseC == "" || cfg.WFSBaseE == "" {
		t.Fatalf("missing defaults: %+v", cfg)
	}
	if cfg.PageSize != 1000 || cfg.PreviewPageSize != 500 {
		t.Fatalf("page sizes: %d/%d", cfg.PageSize, cfg.PreviewPageSize)
	}
	if cfg.StartIndexCeiling != 500_000 || cfg.MinPlausibleBytes != 10_000 {
		t.Fatalf("pagination guards: %d/%d", cfg.StartIndexCeiling, cfg.MinPlausibleBytes)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PAGE_SIZE", "250")
	t.Setenv("WFS_RETRY_BACKOFF", "2s")
	t.Setenv("INVALIDATION_ENABLED", "yes")
	cfg := FromEnv()
	if cfg.PageSize != 250 {
		t.Errorf("PageSize = %d, want 250", cfg.PageSize)
	}
	if cfg.RetryBackoff != 2*time.Second {
		t.Errorf("RetryBackoff = %v, want 2s", cfg.RetryBackoff)
	}
	if !cfg.Invalidation.Enabled {
		t.Error("Invalidation.Enabled should be true")
	}
}

func TestBaseURL(t *testing.T) {
	cfg := Config{WFSBaseC: "http://c", WFSBaseE: "http://e"}
	if got := cfg.BaseURL("C"); got != "http://c" {
		t.Errorf("BaseURL(C) = %q", got)
	}
	if got := cfg.BaseURL(" e "); got != "http://e" {
		t.Errorf("BaseURL(e) = %q", got)
	}
	if got := cfg.BaseURL("anything"); got != "http://c" {
		t.Errorf("BaseURL(anything) = %q", got)
	}
}

func TestCacheTTL(t *testing.T) {
	cfg := Config{
		CacheTTLDefault: 2 * time.Minute,
		CacheTTLOvr:     map[string]time.Duration{"bbox": time.Hour},
	}
	if got := cfg.CacheTTL("fetch"); got != 2*time.Minute {
		t.Errorf("CacheTTL(fetch) = %v", got)
	}
	if got := cfg.CacheTTL("bbox"); got != time.Hour {
		t.Errorf("CacheTTL(bbox) = %v", got)
	}
}

func TestParseDurationMap(t *testing.T) {
	m := parseDurationMap(" fetch=5m, bbox=30s ,broken, =1s ")
	if len(m) != 2 || m["fetch"] != 5*time.Minute || m["bbox"] != 30*time.Second {
		t.Fatalf("parseDurationMap: %v", m)
	}
}
