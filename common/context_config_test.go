package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "winnow.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadContextConfig(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		config, err := LoadContextConfig(filepath.Join(t.TempDir(), "nope.yml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultContextConfig(), config)
	})

	t.Run("loads values from yaml", func(t *testing.T) {
		path := writeConfigFile(t, `
truncationFraction: 0.25
tokenBuffer: 500
reservedResponseTokens: 4096
imageTokens: 800
`)
		config, err := LoadContextConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 0.25, config.TruncationFraction)
		assert.Equal(t, 500, config.TokenBuffer)
		assert.Equal(t, 4096, config.ReservedResponseTokens)
		assert.Equal(t, 800, config.ImageTokens)
	})

	t.Run("unset fields fall back to defaults", func(t *testing.T) {
		path := writeConfigFile(t, "tokenBuffer: 2000\n")
		config, err := LoadContextConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 2000, config.TokenBuffer)
		assert.Equal(t, DefaultTruncationFraction, config.TruncationFraction)
		assert.Equal(t, DefaultReservedResponseTokens, config.ReservedResponseTokens)
		assert.Equal(t, DefaultImageTokens, config.ImageTokens)
	})

	t.Run("rejects out-of-range fraction", func(t *testing.T) {
		path := writeConfigFile(t, "truncationFraction: 1.5\n")
		_, err := LoadContextConfig(path)
		assert.Error(t, err)
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "tokenBuffer: [not an int\n")
		_, err := LoadContextConfig(path)
		assert.Error(t, err)
	})
}

func TestContextConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		config  ContextConfig
		wantErr bool
	}{
		{"defaults are valid", DefaultContextConfig(), false},
		{"negative buffer", ContextConfig{TokenBuffer: -1}, true},
		{"negative reserved", ContextConfig{ReservedResponseTokens: -1}, true},
		{"negative image tokens", ContextConfig{ImageTokens: -1}, true},
		{"negative fraction", ContextConfig{TruncationFraction: -0.1}, true},
		{"fraction of one is allowed", ContextConfig{TruncationFraction: 1.0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
