package trafficlight

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"regexp"
	"time"
)

var (
	DefaultTCPMaxBytes = 32 * 1024
)

type TCPNotifierConfig struct {
	Host               string `yaml:"host"`
	Port               string `yaml:"port"`
	Send               string `yaml:"send"`
	Quit               string `yaml:"quit"`
	MaxBytes           int    `yaml:"max_bytes"`
	ExpectPattern      string `yaml:"expect_pattern"`
	TLS                bool   `yaml:"tls"`
	NoCheckCertificate bool   `yaml:"no_check_certificate"`
}

// TCPNotifier writes the new phase to a TCP peer. Send defaults to
// "{{phase}}\n".
type TCPNotifier struct {
	Host               string
	Port               string
	Send               string
	Quit               string
	MaxBytes           int
	ExpectPattern      *regexp.Regexp
	Timeout            time.Duration
	TLS                bool
	NoCheckCertificate bool

	name string
}

func NewTCPNotifier(cfg *NotifierConfig) (*TCPNotifier, error) {
	n := &TCPNotifier{
		name:               cfg.Name,
		Timeout:            cfg.Timeout,
		MaxBytes:           cfg.TCP.MaxBytes,
		TLS:                cfg.TCP.TLS,
		NoCheckCertificate: cfg.TCP.NoCheckCertificate,
		Host:               cfg.TCP.Host,
		Port:               cfg.TCP.Port,
		Send:               cfg.TCP.Send,
		Quit:               cfg.TCP.Quit,
	}
	if n.Port == "" {
		return nil, fmt.Errorf("tcp port is required")
	}
	if cfg.TCP.ExpectPattern != "" {
		pt, err := regexp.Compile(cfg.TCP.ExpectPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid expect_pattern: %w", err)
		}
		n.ExpectPattern = pt
	}
	if n.Send == "" {
		n.Send = "{{phase}}\n"
	}
	if n.MaxBytes == 0 {
		n.MaxBytes = DefaultTCPMaxBytes
	}
	return n, nil
}

func (n *TCPNotifier) Name() string {
	return n.name
}

func (n *TCPNotifier) Notify(ctx context.Context, t Transition) error {
	logger := newLoggerFromContext(ctx).With("name", n.name, "module", "tcpnotifier")
	ctx, cancel := context.WithTimeout(ctx, n.Timeout)
	defer cancel()

	addr := net.JoinHostPort(n.Host, n.Port)
	conn, err := dialTCP(ctx, addr, n.TLS, n.NoCheckCertificate, n.Timeout)
	if err != nil {
		return fmt.Errorf("tcp connect failed: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(n.Timeout))

	logger.Debug("connected", "addr", addr)
	if _, err := io.WriteString(conn, expandPhase(n.Send, t.Phase)); err != nil {
		return fmt.Errorf("tcp send failed: %w", err)
	}
	if n.ExpectPattern != nil {
		buf := make([]byte, n.MaxBytes)
		r := bufio.NewReader(conn)
		size, err := r.Read(buf)
		if err != nil {
			return fmt.Errorf("tcp read failed: %w", err)
		}
		logger.Debug("read", "response", string(buf[:size]))
		if !n.ExpectPattern.Match(buf[:size]) {
			return fmt.Errorf("tcp unexpected response: %s", string(buf[:size]))
		}
	}
	if n.Quit != "" {
		io.WriteString(conn, n.Quit)
	}
	return nil
}

func dialTCP(ctx context.Context, address string, useTLS bool, noCheckCertificate bool, timeout time.Duration) (net.Conn, error) {
	d := &net.Dialer{Timeout: timeout}
	if useTLS {
		td := &tls.Dialer{
			NetDialer: d,
			Config: &tls.Config{
				InsecureSkipVerify: noCheckCertificate,
			},
		}
		return td.DialContext(ctx, "tcp", address)
	}
	return d.DialContext(ctx, "tcp", address)
}
