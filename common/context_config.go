package common

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultTruncationFraction     = 0.5
	DefaultTokenBuffer            = 1000
	DefaultReservedResponseTokens = 8192
	DefaultImageTokens            = 1500
)

// ContextConfig holds the tunables for context window preparation. All
// fields are optional in the config file; zero values are replaced with the
// defaults above.
type ContextConfig struct {
	// TruncationFraction is the fraction of evictable messages removed per
	// truncation pass.
	TruncationFraction float64 `koanf:"truncationFraction,omitempty"`
	// TokenBuffer is slack subtracted from the effective budget to absorb
	// tokenizer undercounting.
	TokenBuffer int `koanf:"tokenBuffer,omitempty"`
	// ReservedResponseTokens is the portion of the window held back for the
	// model's response.
	ReservedResponseTokens int `koanf:"reservedResponseTokens,omitempty"`
	// ImageTokens is the fixed token estimate charged per image block.
	ImageTokens int `koanf:"imageTokens,omitempty"`
}

// Validate ensures the ContextConfig is valid.
func (c ContextConfig) Validate() error {
	if c.TruncationFraction < 0 || c.TruncationFraction > 1 {
		return fmt.Errorf("truncationFraction must be within [0, 1], got %v", c.TruncationFraction)
	}
	if c.TokenBuffer < 0 {
		return fmt.Errorf("tokenBuffer must be non-negative, got %d", c.TokenBuffer)
	}
	if c.ReservedResponseTokens < 0 {
		return fmt.Errorf("reservedResponseTokens must be non-negative, got %d", c.ReservedResponseTokens)
	}
	if c.ImageTokens < 0 {
		return fmt.Errorf("imageTokens must be non-negative, got %d", c.ImageTokens)
	}
	return nil
}

// WithDefaults returns a copy with unset fields replaced by defaults.
func (c ContextConfig) WithDefaults() ContextConfig {
	if c.TruncationFraction == 0 {
		c.TruncationFraction = DefaultTruncationFraction
	}
	if c.TokenBuffer == 0 {
		c.TokenBuffer = DefaultTokenBuffer
	}
	if c.ReservedResponseTokens == 0 {
		c.ReservedResponseTokens = DefaultReservedResponseTokens
	}
	if c.ImageTokens == 0 {
		c.ImageTokens = DefaultImageTokens
	}
	return c
}

// DefaultContextConfig returns the built-in tunables.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{}.WithDefaults()
}

// LoadContextConfig loads the context tunables from the given file path.
// If the config file doesn't exist, returns the defaults. The config file
// is expected to be in YAML format.
func LoadContextConfig(configPath string) (ContextConfig, error) {
	k := koanf.New(".")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultContextConfig(), nil
	}

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return ContextConfig{}, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	var config ContextConfig
	if err := k.Unmarshal("", &config); err != nil {
		return ContextConfig{}, fmt.Errorf("failed to unmarshal config file %s: %w", configPath, err)
	}

	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return ContextConfig{}, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}
