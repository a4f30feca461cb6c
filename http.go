package trafficlight

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type HTTPNotifierConfig struct {
	URL                string            `yaml:"url"`
	Method             string            `yaml:"method"`
	Headers            map[string]string `yaml:"headers"`
	Body               string            `yaml:"body"`
	ExpectCode         string            `yaml:"expect_code"`
	NoCheckCertificate bool              `yaml:"no_check_certificate"`
}

type HTTPNotifier struct {
	URL                string
	Method             string
	Headers            map[string]string
	Body               string
	ExpectCodeFunc     func(code int) bool
	Timeout            time.Duration
	NoCheckCertificate bool

	name string
}

func NewHTTPNotifier(cfg *NotifierConfig) (*HTTPNotifier, error) {
	n := &HTTPNotifier{
		name:               cfg.Name,
		Method:             cfg.HTTP.Method,
		Timeout:            cfg.Timeout,
		NoCheckCertificate: cfg.HTTP.NoCheckCertificate,
		Headers:            cfg.HTTP.Headers,
		Body:               cfg.HTTP.Body,
	}
	u, err := url.Parse(expandPhase(cfg.HTTP.URL, PhaseRed))
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", cfg.HTTP.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid url %s: scheme must be http or https", cfg.HTTP.URL)
	}
	n.URL = cfg.HTTP.URL

	if n.Method == "" {
		n.Method = http.MethodPost
	}
	if cfg.HTTP.ExpectCode == "" {
		n.ExpectCodeFunc = func(code int) bool {
			return code >= 200 && code < 400
		}
	} else {
		n.ExpectCodeFunc, err = newExpectCodeFunc(cfg.HTTP.ExpectCode)
		if err != nil {
			return nil, fmt.Errorf("invalid expect_code %s: %w", cfg.HTTP.ExpectCode, err)
		}
	}
	return n, nil
}

func (n *HTTPNotifier) Name() string {
	return n.name
}

func (n *HTTPNotifier) Notify(ctx context.Context, t Transition) error {
	logger := newLoggerFromContext(ctx).With("name", n.name, "module", "httpnotifier")

	ctx, cancel := context.WithTimeout(ctx, n.Timeout)
	defer cancel()

	u := expandPhase(n.URL, t.Phase)
	req, err := http.NewRequestWithContext(ctx, n.Method, u, strings.NewReader(expandPhase(n.Body, t.Phase)))
	if err != nil {
		return err
	}
	for name, value := range n.Headers {
		req.Header.Set(name, value)
	}
	req.Header.Set("Connection", "close")
	req.Header.Set("User-Agent", "trafficlight")
	req.Header.Set("X-Trafficlight-Phase", t.Phase.String())

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: n.NoCheckCertificate},
	}
	client := &http.Client{Transport: tr}

	logger.Debug(fmt.Sprintf("http request %s %s", req.Method, req.URL))
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if !n.ExpectCodeFunc(resp.StatusCode) {
		return fmt.Errorf("expect code not match: %d", resp.StatusCode)
	}
	return nil
}

type statusRange struct {
	lower, upper int
}

func (r statusRange) contains(code int) bool {
	return r.lower <= code && code <= r.upper
}

func parseStatusRange(s string) (statusRange, error) {
	lo, hi, isRange := strings.Cut(s, "-")
	lower, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return statusRange{}, fmt.Errorf("invalid code: %q", s)
	}
	if !isRange {
		return statusRange{lower, lower}, nil
	}
	upper, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return statusRange{}, fmt.Errorf("invalid range: %q", s)
	}
	if upper < lower {
		return statusRange{}, fmt.Errorf("invalid range: %q", s)
	}
	return statusRange{lower, upper}, nil
}

// newExpectCodeFunc builds a matcher from a list like "200,202-204,300-399".
func newExpectCodeFunc(codes string) (func(code int) bool, error) {
	var ranges []statusRange
	for _, part := range strings.Split(codes, ",") {
		r, err := parseStatusRange(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return func(code int) bool {
		for _, r := range ranges {
			if r.contains(code) {
				return true
			}
		}
		return false
	}, nil
}
