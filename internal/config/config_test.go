package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "stealthdetect.db", c.DatabaseDSN)
	assert.Equal(t, "127.0.0.1:50051", c.EndpointAddrGRPC)
	assert.Equal(t, "", c.SecretKey)
	assert.Equal(t, 15*time.Minute, c.SessionTokenValidityDuration)
	assert.Equal(t, "local", c.UserID)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, cryptox.DefaultHashParams, c.HashParams())
}

func TestLoadConfig_NoArgsGivesDefaults(t *testing.T) {
	c, err := LoadConfig(nil)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, &want, c)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_dsn: from-file.db
log_level: debug
session_token_validity_duration: 90s
`), 0o600))

	c, err := LoadConfig([]string{"-c", path, "-d", "from-flag.db"})
	require.NoError(t, err)

	assert.Equal(t, "from-flag.db", c.DatabaseDSN)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 90*time.Second, c.SessionTokenValidityDuration)
	assert.Equal(t, "127.0.0.1:50051", c.EndpointAddrGRPC)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig([]string{"-config", filepath.Join(t.TempDir(), "absent.json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_BadFlag(t *testing.T) {
	_, err := LoadConfig([]string{"-t", "soon"})
	require.Error(t, err)
}

func TestLoadConfig_RejectsInvalidHashParams(t *testing.T) {
	yamlPath := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("hash_threads: 0\n"), 0o600))
	jsonPath := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"hash_time": 0}`), 0o600))

	tests := []struct {
		name string
		args []string
	}{
		{"zero passes flag", []string{"-ht", "0"}},
		{"zero threads flag", []string{"-hp", "0"}},
		{"memory below 8KiB per thread", []string{"-hm", "16", "-hp", "4"}},
		{"zero threads in file", []string{"-c", yamlPath}},
		{"zero passes in file", []string{"-c", jsonPath}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid hash parameters")
		})
	}
}

func TestLoadConfig_FlagRepairsFileHashParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hash_threads: 0\n"), 0o600))

	c, err := LoadConfig([]string{"-c", path, "-hp", "2"})
	require.NoError(t, err)
	assert.Equal(t, uint8(2), c.HashThreads)
}
