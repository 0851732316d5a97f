package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/stealthdetect/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape. Durations accept "15m" or integer
// nanoseconds.
type FileConfig struct {
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration" yaml:"session_token_validity_duration"`
	UserID                       string         `json:"user_id" yaml:"user_id"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
	HashTime                     uint32         `json:"hash_time" yaml:"hash_time"`
	HashMemoryKiB                uint32         `json:"hash_memory_kib" yaml:"hash_memory_kib"`
	HashThreads                  uint8          `json:"hash_threads" yaml:"hash_threads"`
}

func fileConfigFrom(c *Config) *FileConfig {
	return &FileConfig{
		DatabaseDSN:                  c.DatabaseDSN,
		EndpointAddrGRPC:             c.EndpointAddrGRPC,
		SecretKey:                    c.SecretKey,
		SessionTokenValidityDuration: timex.Duration{Duration: c.SessionTokenValidityDuration},
		UserID:                       c.UserID,
		LogLevel:                     c.LogLevel,
		HashTime:                     c.HashTime,
		HashMemoryKiB:                c.HashMemoryKiB,
		HashThreads:                  c.HashThreads,
	}
}

// parseFile overlays the file at path onto config. Keys missing from the
// file keep their current values. An empty path is a no-op. The format is
// chosen by extension: .yaml/.yml is YAML, anything else JSON.
func parseFile(config *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	fc := fileConfigFrom(config)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.DatabaseDSN = fc.DatabaseDSN
	config.EndpointAddrGRPC = fc.EndpointAddrGRPC
	config.SecretKey = fc.SecretKey
	config.SessionTokenValidityDuration = fc.SessionTokenValidityDuration.Duration
	config.UserID = fc.UserID
	config.LogLevel = fc.LogLevel
	config.HashTime = fc.HashTime
	config.HashMemoryKiB = fc.HashMemoryKiB
	config.HashThreads = fc.HashThreads
	return nil
}
