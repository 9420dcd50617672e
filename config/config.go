// Package config holds scraper configuration and environment helpers.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL  string
	PageSize int

	// Pages is an exclusive upper bound: a run fetches catalog pages
	// 1..Pages-1, matching the site's 1-based pagination.
	Pages int

	Parallelism int
	Timeout     time.Duration
	UserAgent   string

	OutputFile   string
	OutputFormat string // csv, json, or dual
	MetricsAddr  string
	Verbose      bool

	PipelineBufferSize int
	BatchSize          int
}

// DefaultConfig returns conservative defaults for the fixed catalog target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "https://atrezzovazquez.es/shop.php",
		PageSize:           48,
		Pages:              10,
		Parallelism:        16,
		Timeout:            10 * time.Second,
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		OutputFile:         "output/atrezzo.csv",
		OutputFormat:       "csv",
		MetricsAddr:        "",
		PipelineBufferSize: 512,
		BatchSize:          64,
	}
}

// PageURL builds the concrete request URL for a 1-based page index. The
// query shape is fixed by the site: search_type=-1, empty search_terms, and
// limit equal to the page size.
func (c *Config) PageURL(page int) string {
	query := url.Values{}
	query.Set("search_type", "-1")
	query.Set("search_terms", "")
	query.Set("limit", strconv.Itoa(c.PageSize))
	query.Set("page", strconv.Itoa(page))
	return c.BaseURL + "?" + query.Encode()
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.Pages < 1 {
		return fmt.Errorf("pages must be at least 1")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	return nil
}

// EnvString reads a string environment variable, reporting whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, true, nil
}
