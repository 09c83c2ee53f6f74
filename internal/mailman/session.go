// Package mailman drives the Mailman 2.1 admin web interface over plain
// HTTP, reproducing the exact form submissions a browser would make.
package mailman

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/mailman-tools/mmunblock/internal/htmlform"
)

const userAgent = "mmunblock/1.2"

// Fetches are quick; form submissions rewrite member state server-side
// and can take noticeably longer on big lists.
const (
	fetchTimeout  = 20 * time.Second
	submitTimeout = 25 * time.Second
)

// TransportError is an HTTP-level failure: a network fault or a
// non-success status. Retry policy lives above this layer.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request to %s returned status %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Session is the single authenticated HTTP context for a run. Cookies
// set by any response apply to every later request. Requests are never
// issued concurrently, so no locking guards the jar.
type Session struct {
	client *http.Client
}

// NewSession creates a session with a fresh cookie jar and the tool's
// fixed User-Agent.
func NewSession() (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Session{client: &http.Client{Jar: jar}}, nil
}

// Get fetches a page and returns its body.
func (s *Session) Get(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &TransportError{URL: rawURL, Err: err}
	}
	return s.do(req)
}

// SubmitForm submits a payload with standard form encoding, using the
// form's own method. A GET form carries the payload in the query
// string, exactly as a browser would.
func (s *Session) SubmitForm(ctx context.Context, method, rawURL string, payload htmlform.Payload, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var req *http.Request
	var err error
	if strings.EqualFold(method, http.MethodGet) {
		target := rawURL
		if encoded := payload.Encode(); encoded != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + encoded
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(payload.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return "", &TransportError{URL: rawURL, Err: err}
	}
	return s.do(req)
}

// SubmitMultipart submits a payload as multipart/form-data, preserving
// pair order. The bounce processing page rejects urlencoded bodies.
func (s *Session) SubmitMultipart(ctx context.Context, rawURL string, payload htmlform.Payload, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body strings.Builder
	w := multipart.NewWriter(&body)
	for _, pair := range payload {
		if err := w.WriteField(pair.Name, pair.Value); err != nil {
			return "", &TransportError{URL: rawURL, Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return "", &TransportError{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(body.String()))
	if err != nil {
		return "", &TransportError{URL: rawURL, Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(req)
}

func (s *Session) do(req *http.Request) (string, error) {
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &TransportError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{URL: req.URL.String(), Err: err}
	}
	if resp.StatusCode >= 400 {
		return "", &TransportError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}
	return string(data), nil
}
