package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/cryptox"
	"github.com/dmitrijs2005/stealthdetect/internal/flagx"
)

// Config holds runtime settings.
//
// Fields:
//   - DatabaseDSN: SQLite file path (or modernc DSN).
//   - EndpointAddrGRPC: bind address of the local daemon. Keep it on loopback.
//   - SecretKey: HMAC key for session tokens. Empty means a random key per
//     process, so tokens do not survive a restart.
//   - SessionTokenValidityDuration: session token lifetime.
//   - UserID: profile id used by the CLI.
//   - LogLevel: debug, info, warn or error.
//   - HashTime / HashMemoryKiB / HashThreads: argon2id cost for new credentials.
type Config struct {
	DatabaseDSN                  string
	EndpointAddrGRPC             string
	SecretKey                    string
	SessionTokenValidityDuration time.Duration
	UserID                       string
	LogLevel                     string
	HashTime                     uint32
	HashMemoryKiB                uint32
	HashThreads                  uint8
}

func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "stealthdetect.db"
	c.EndpointAddrGRPC = "127.0.0.1:50051"
	c.SecretKey = ""
	c.SessionTokenValidityDuration = 15 * time.Minute
	c.UserID = common.DefaultUserID
	c.LogLevel = "info"
	c.HashTime = cryptox.DefaultHashParams.Time
	c.HashMemoryKiB = cryptox.DefaultHashParams.MemoryKiB
	c.HashThreads = cryptox.DefaultHashParams.Threads
}

// HashParams returns the argon2id parameters for new credentials.
func (c *Config) HashParams() cryptox.HashParams {
	return cryptox.HashParams{
		Time:      c.HashTime,
		MemoryKiB: c.HashMemoryKiB,
		Threads:   c.HashThreads,
		KeyLen:    cryptox.DefaultHashParams.KeyLen,
	}
}

// LoadConfig applies defaults, the config file named in args, then the
// flags in args. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, flagx.ConfigFileFlag(args)); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if p := c.HashParams(); !p.Valid() {
		return fmt.Errorf("invalid hash parameters: time=%d memory=%dKiB threads=%d "+
			"(time and threads must be positive, memory at least 8KiB per thread)",
			p.Time, p.MemoryKiB, p.Threads)
	}
	return nil
}
