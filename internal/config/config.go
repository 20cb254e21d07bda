package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is shared by every binary. Each one reads only the sections it needs.
type Config struct {
	APIURL                string        `env:"API_URL, default=http://localhost:8080"`
	WSURL                 string        `env:"WS_URL, default=ws://localhost:8080/ws"`
	RetryDelay            time.Duration `env:"RETRY_DELAY, default=2s"`
	DiscardStaleResponses bool          `env:"DISCARD_STALE_RESPONSES, default=false"`

	RedisURL          string `env:"REDIS_URL, default=localhost:6379"`
	DatabaseURL       string `env:"DATABASE_URL"`
	CoinGeckoPollSecs int    `env:"COINGECKO_POLL_SECS, default=60"`

	Log    LogConfig    `env:", prefix=LOG_"`
	Server ServerConfig `env:", prefix=SERVER_"`
	SSH    SSHConfig    `env:", prefix=SSH_"`
}

type LogConfig struct {
	Level  string `env:"LEVEL, default=info"`
	Format string `env:"FORMAT, default=text"`
	Output string `env:"OUTPUT, default=stderr"`
}

type ServerConfig struct {
	Port   int    `env:"PORT, default=8080"`
	APIKey string `env:"API_KEY"`
}

type SSHConfig struct {
	Port                   int    `env:"PORT, default=2222"`
	HostKeyPath            string `env:"HOST_KEY_PATH, default=.ssh/tickerbar_ed25519"`
	AuthorizedFingerprints string `env:"AUTHORIZED_FINGERPRINTS"`
}

// Fingerprints returns the allowlisted SHA256 key fingerprints. An empty list
// means every key is accepted.
func (c SSHConfig) Fingerprints() []string {
	var out []string
	for _, fp := range strings.Split(c.AuthorizedFingerprints, ",") {
		if fp = strings.TrimSpace(fp); fp != "" {
			out = append(out, fp)
		}
	}
	return out
}

// Load decodes the process environment.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.RetryDelay <= 0 {
		return fmt.Errorf("RETRY_DELAY must be positive, got %s", c.RetryDelay)
	}
	if c.CoinGeckoPollSecs <= 0 {
		return fmt.Errorf("COINGECKO_POLL_SECS must be positive, got %d", c.CoinGeckoPollSecs)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q", c.Log.Format)
	}
	if c.APIURL == "" || c.WSURL == "" {
		return errors.New("API_URL and WS_URL must not be empty")
	}
	return nil
}
