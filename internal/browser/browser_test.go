package browser

import (
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.Headless {
		t.Error("Expected headless to be true by default")
	}

	if opts.Timeout != 30*time.Second {
		t.Errorf("Expected timeout to be 30s, got %v", opts.Timeout)
	}

	if opts.ViewportWidth != 1920 || opts.ViewportHeight != 1080 {
		t.Errorf("Expected viewport to be 1920x1080, got %dx%d", opts.ViewportWidth, opts.ViewportHeight)
	}

	if opts.Locale != "ru-RU" {
		t.Errorf("Expected locale to be ru-RU, got %s", opts.Locale)
	}
}

func TestWithDefaults(t *testing.T) {
	opts := (&Options{Headless: false, Timeout: 5 * time.Second}).withDefaults()

	if opts.Headless {
		t.Error("Expected headless to stay false")
	}

	if opts.Timeout != 5*time.Second {
		t.Errorf("Expected timeout to stay 5s, got %v", opts.Timeout)
	}

	if opts.UserAgent == "" || opts.Locale == "" || opts.TimezoneID == "" {
		t.Error("Expected empty fields to be filled from defaults")
	}

	headers := opts.headers()
	if headers["Accept-Language"] != opts.AcceptLanguage {
		t.Errorf("Expected Accept-Language header %q, got %q", opts.AcceptLanguage, headers["Accept-Language"])
	}
}
