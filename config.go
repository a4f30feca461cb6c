package trafficlight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/goccy/go-yaml"
)

const (
	DefaultMinCycle      = 4000 * time.Millisecond
	DefaultMaxCycle      = 6000 * time.Millisecond
	DefaultPollInterval  = 1 * time.Millisecond
	DefaultNotifyTimeout = 5 * time.Second
	DefaultListenAddr    = ":8080"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Light     *LightConfig      `yaml:"light"`
	Responder *ResponderConfig  `yaml:"responder"`
	Notifiers []*NotifierConfig `yaml:"notifiers"`
}

type LightConfig struct {
	MinCycle     time.Duration `yaml:"min_cycle"`
	MaxCycle     time.Duration `yaml:"max_cycle"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Seed         int64         `yaml:"seed"`
}

type ResponderConfig struct {
	Addr string `yaml:"addr"`
}

type NotifierConfig struct {
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`

	Command *CommandNotifierConfig `yaml:"command"`
	TCP     *TCPNotifierConfig     `yaml:"tcp"`
	HTTP    *HTTPNotifierConfig    `yaml:"http"`
}

func DefaultLightConfig() *LightConfig {
	return &LightConfig{
		MinCycle:     DefaultMinCycle,
		MaxCycle:     DefaultMaxCycle,
		PollInterval: DefaultPollInterval,
	}
}

func (c *LightConfig) withDefaults() *LightConfig {
	d := DefaultLightConfig()
	if c == nil {
		return d
	}
	if c.MinCycle == 0 {
		c.MinCycle = d.MinCycle
	}
	if c.MaxCycle == 0 {
		c.MaxCycle = d.MaxCycle
	}
	if c.PollInterval == 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}

func (c *LightConfig) Validate() error {
	if c.MinCycle <= 0 {
		return fmt.Errorf("%w: min_cycle must be positive: %s", ErrInvalidConfig, c.MinCycle)
	}
	if c.MaxCycle < c.MinCycle {
		return fmt.Errorf("%w: max_cycle %s is less than min_cycle %s", ErrInvalidConfig, c.MaxCycle, c.MinCycle)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive: %s", ErrInvalidConfig, c.PollInterval)
	}
	return nil
}

func LoadConfig(ctx context.Context, src string) (*Config, error) {
	config := &Config{
		Light: DefaultLightConfig(),
		Responder: &ResponderConfig{
			Addr: DefaultListenAddr,
		},
	}
	b, err := loadURL(ctx, src)
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(b, config); err != nil {
		return nil, err
	}
	config.Light = config.Light.withDefaults()
	if config.Responder == nil || config.Responder.Addr == "" {
		config.Responder = &ResponderConfig{Addr: DefaultListenAddr}
	}
	if err := config.Light.Validate(); err != nil {
		return nil, err
	}
	for i, n := range config.Notifiers {
		if n.Timeout == 0 {
			n.Timeout = DefaultNotifyTimeout
		}
		if n.Name == "" {
			n.Name = fmt.Sprintf("notifier-%d", i)
		}
	}
	return config, nil
}

func loadURL(ctx context.Context, s string) ([]byte, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", s, err)
	}
	switch u.Scheme {
	case "http", "https":
		return loadHTTP(ctx, u)
	case "file", "": // empty scheme is treated as file
		return os.ReadFile(u.Path)
	case "s3":
		return loadS3(ctx, u)
	default:
		return nil, fmt.Errorf("invalid url %s: scheme must be http, https, file, or s3", s)
	}
}

func loadHTTP(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("http get failed: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http get failed: %s %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func loadS3(ctx context.Context, u *url.URL) ([]byte, error) {
	awscfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	svc := s3.NewFromConfig(awscfg)
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	out, err := svc.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object s3://%s/%s failed: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
