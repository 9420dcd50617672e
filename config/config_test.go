package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty base url", mutate: func(c *Config) { c.BaseURL = "" }, wantErr: "base URL"},
		{name: "base url without host", mutate: func(c *Config) { c.BaseURL = "/shop.php" }, wantErr: "host"},
		{name: "pages below one", mutate: func(c *Config) { c.Pages = 0 }, wantErr: "pages"},
		{name: "zero page size", mutate: func(c *Config) { c.PageSize = 0 }, wantErr: "page size"},
		{name: "zero parallelism", mutate: func(c *Config) { c.Parallelism = 0 }, wantErr: "parallelism"},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "timeout"},
		{name: "empty output file", mutate: func(c *Config) { c.OutputFile = "" }, wantErr: "output file"},
		{name: "bad output format", mutate: func(c *Config) { c.OutputFormat = "xml" }, wantErr: "output format"},
		{name: "empty user agent", mutate: func(c *Config) { c.UserAgent = "" }, wantErr: "user agent"},
		{name: "zero buffer size", mutate: func(c *Config) { c.PipelineBufferSize = 0 }, wantErr: "buffer"},
		{name: "zero batch size", mutate: func(c *Config) { c.BatchSize = 0 }, wantErr: "batch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestPageURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://atrezzovazquez.es/shop.php"
	cfg.PageSize = 48

	got := cfg.PageURL(3)
	want := "https://atrezzovazquez.es/shop.php?limit=48&page=3&search_terms=&search_type=-1"
	if got != want {
		t.Fatalf("PageURL(3) = %q, want %q", got, want)
	}
}

func TestPageURLUsesPageSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://example.test/shop.php"
	cfg.PageSize = 2

	got := cfg.PageURL(1)
	if !strings.Contains(got, "limit=2") {
		t.Fatalf("PageURL(1) = %q, want limit=2", got)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("ATREZZO_TEST_INT", "12")
	value, ok, err := EnvInt("ATREZZO_TEST_INT")
	if err != nil || !ok || value != 12 {
		t.Fatalf("EnvInt = (%d, %v, %v), want (12, true, nil)", value, ok, err)
	}

	t.Setenv("ATREZZO_TEST_INT", "not-a-number")
	if _, _, err := EnvInt("ATREZZO_TEST_INT"); err == nil {
		t.Fatalf("expected parse error")
	}

	if _, ok, err := EnvInt("ATREZZO_TEST_UNSET"); ok || err != nil {
		t.Fatalf("unset variable should report not set")
	}
}

func TestEnvString(t *testing.T) {
	t.Setenv("ATREZZO_TEST_STR", "output/run.csv")
	value, ok := EnvString("ATREZZO_TEST_STR")
	if !ok || value != "output/run.csv" {
		t.Fatalf("EnvString = (%q, %v)", value, ok)
	}

	if _, ok := EnvString("ATREZZO_TEST_STR_UNSET"); ok {
		t.Fatalf("unset variable should report not set")
	}
}

func TestTimeoutDefault(t *testing.T) {
	if got := DefaultConfig().Timeout; got != 10*time.Second {
		t.Fatalf("timeout=%v, want 10s", got)
	}
}
