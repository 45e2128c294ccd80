// CLAUDE:SUMMARY Plain HTTP GET for gazette pages: browser UA, timeout, body cap (ErrTooLarge, never truncated), redirect limit, charset decoding to UTF-8.
// Package fetch retrieves gazette pages over HTTP.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultUserAgent is a desktop browser string. Some gazette hosts reject
// unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// ErrStatus is returned for non-2xx responses.
var ErrStatus = errors.New("unexpected http status")

// ErrTooLarge is returned when the body exceeds Config.MaxBytes. No partial
// body is returned.
var ErrTooLarge = errors.New("response body too large")

// Result contains the outcome of a fetch.
type Result struct {
	Body       string // decoded to UTF-8
	StatusCode int
	Hash       string // SHA-256 of the raw body
}

// Config configures the fetcher.
type Config struct {
	Timeout   time.Duration // Default: 15s.
	MaxBytes  int64         // Default: 10MB.
	UserAgent string
	// URLValidator is applied before every request and redirect.
	// Default: http(s) with a host.
	URLValidator func(string) error
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.URLValidator == nil {
		c.URLValidator = ValidateURL
	}
}

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// Fetcher performs HTTP GET requests.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Get retrieves rawURL and returns its body decoded to UTF-8 using the
// response charset (header or meta tag).
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Result, error) {
	if err := f.config.URLValidator(rawURL); err != nil {
		return nil, fmt.Errorf("url blocked: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Result{StatusCode: resp.StatusCode}, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > f.config.MaxBytes {
		return &Result{StatusCode: resp.StatusCode}, fmt.Errorf("%w: over %d bytes", ErrTooLarge, f.config.MaxBytes)
	}
	body, err := decode(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(raw)
	return &Result{
		Body:       body,
		StatusCode: resp.StatusCode,
		Hash:       hex.EncodeToString(h[:]),
	}, nil
}

func decode(raw []byte, contentType string) (string, error) {
	enc, _, _ := charset.DetermineEncoding(raw, contentType)
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(out), nil
}
