package nwb

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"nwbview/internal/blob"
	"nwbview/internal/imaging"
	nwbfile "nwbview/internal/nwb"
)

// Config makes the reader's defaults explicit.
type Config struct {
	// SeriesName is the /acquisition child to read.
	SeriesName string
	// FetchTimeout bounds each HTTP request. Negative disables the timeout.
	FetchTimeout time.Duration
	// ColorMode selects frame decoding; only grayscale is supported.
	ColorMode imaging.ColorMode
	// Concurrency is the number of frames fetched at once.
	Concurrency int
	// Retries is the number of extra attempts per frame.
	Retries int
	// Diagnostics receives the stack shape line after each read. Nil disables it.
	Diagnostics io.Writer

	// S3 configures the client used for s3:// references.
	S3 blob.S3Config
	// S3Store overrides the S3 client, mainly for tests.
	S3Store blob.Store
	// Memory serves memory:// references, mainly for tests.
	Memory blob.Store
}

// DefaultConfig returns the reader defaults.
func DefaultConfig() Config {
	return Config{
		SeriesName:   nwbfile.DefaultSeriesName,
		FetchTimeout: 30 * time.Second,
		ColorMode:    imaging.Grayscale,
		Concurrency:  1,
		Retries:      0,
		Diagnostics:  os.Stdout,
	}
}

// ConfigFromEnv overlays environment variables on DefaultConfig:
//
//	NWBVIEW_SERIES: acquisition child name (default image_series)
//	NWBVIEW_FETCH_TIMEOUT: Go duration, e.g. 10s (default 30s)
//	NWBVIEW_FETCH_CONCURRENCY: parallel frame fetches (default 1)
//	NWBVIEW_FETCH_RETRIES: extra attempts per frame (default 0)
//	NWBVIEW_S3_*: see the s3 blob store
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	cfg.S3 = blob.S3ConfigFromEnv()
	if v := os.Getenv("NWBVIEW_SERIES"); v != "" {
		cfg.SeriesName = v
	}
	if v := os.Getenv("NWBVIEW_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("NWBVIEW_FETCH_TIMEOUT: %w", err)
		}
		cfg.FetchTimeout = d
	}
	if v := os.Getenv("NWBVIEW_FETCH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("NWBVIEW_FETCH_CONCURRENCY: %w", err)
		}
		cfg.Concurrency = n
	}
	if v := os.Getenv("NWBVIEW_FETCH_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("NWBVIEW_FETCH_RETRIES: %w", err)
		}
		cfg.Retries = n
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.SeriesName == "" {
		return fmt.Errorf("series name required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if _, err := imaging.ParseColorMode(string(c.ColorMode)); err != nil {
		return err
	}
	return nil
}
