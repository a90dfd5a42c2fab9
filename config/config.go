// Package config provides YAML application configuration for payment
// request verification and signing.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Common errors
var (
	ErrConfigurationError   = errors.New("configuration error")
	ErrMissingRequiredField = errors.New("missing required field")
)

// Revocation checking modes.
const (
	RevocationModeNone      = "none"
	RevocationModeBlacklist = "blacklist"
	RevocationModeOCSP      = "ocsp"
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message, Err: ErrConfigurationError}
}

// newMissingFieldError creates a ConfigError for a missing required field.
func newMissingFieldError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message, Err: ErrMissingRequiredField}
}

// VerificationConfig contains the settings a payment request verifier is
// built from.
type VerificationConfig struct {
	// TrustAnchors contains paths to trusted root certificate files.
	TrustAnchors []string `yaml:"trust-anchors" json:"trust_anchors,omitempty"`

	// AllowSelfSignedRoot accepts chains whose sole validation failure is
	// a self-signed certificate at depth zero. Default false.
	AllowSelfSignedRoot bool `yaml:"allow-self-signed-root" json:"allow_self_signed_root"`

	// Revocation contains revocation checking configuration.
	Revocation *RevocationConfig `yaml:"revocation" json:"revocation,omitempty"`
}

// Validate validates the verification configuration.
func (c *VerificationConfig) Validate() error {
	if len(c.TrustAnchors) == 0 && !c.AllowSelfSignedRoot {
		return newMissingFieldError("trust-anchors", "required unless allow-self-signed-root is set")
	}
	if c.Revocation != nil {
		return c.Revocation.Validate()
	}
	return nil
}

// RevocationConfig contains revocation checking configuration.
type RevocationConfig struct {
	// Mode is the revocation checking mode: "none", "blacklist" or "ocsp".
	Mode string `yaml:"mode" json:"mode,omitempty"`

	// BlacklistFile is a file of hex SHA-256 certificate fingerprints, one
	// per line (blacklist mode).
	BlacklistFile string `yaml:"blacklist-file" json:"blacklist_file,omitempty"`

	// HTTPTimeout bounds each OCSP responder request (ocsp mode).
	HTTPTimeout time.Duration `yaml:"http-timeout" json:"http_timeout,omitempty"`
}

// SetDefaults sets default values for revocation configuration.
func (c *RevocationConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = RevocationModeNone
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 10 * time.Second
	}
}

// Validate validates the revocation configuration.
func (c *RevocationConfig) Validate() error {
	switch c.Mode {
	case "", RevocationModeNone, RevocationModeOCSP:
	case RevocationModeBlacklist:
		if c.BlacklistFile == "" {
			return newMissingFieldError("blacklist-file", "required in blacklist mode")
		}
	default:
		return NewConfigError("mode", fmt.Sprintf("unknown revocation mode %q", c.Mode))
	}
	return nil
}

// SigningConfig contains the merchant-side settings for building signed
// payment requests.
type SigningConfig struct {
	// Type is the credential type ("pemder" or "pkcs12").
	Type string `yaml:"type" json:"type"`

	// CertFile is the signing certificate file (pemder type). Extra
	// certificates in the file become the embedded chain.
	CertFile string `yaml:"cert-file" json:"cert_file,omitempty"`

	// KeyFile is the private key file (pemder type).
	KeyFile string `yaml:"key-file" json:"key_file,omitempty"`

	// PFXFile is the PKCS#12 file (pkcs12 type).
	PFXFile string `yaml:"pfx-file" json:"pfx_file,omitempty"`

	// PFXPassphrase is the PKCS#12 passphrase.
	PFXPassphrase string `yaml:"pfx-passphrase" json:"pfx_passphrase,omitempty"`
}

// Validate validates the signing configuration.
func (c *SigningConfig) Validate() error {
	switch c.Type {
	case "pemder":
		if c.CertFile == "" {
			return newMissingFieldError("cert-file", "required field is missing")
		}
		if c.KeyFile == "" {
			return newMissingFieldError("key-file", "required field is missing")
		}
	case "pkcs12":
		if c.PFXFile == "" {
			return newMissingFieldError("pfx-file", "required field is missing")
		}
	default:
		return NewConfigError("type", fmt.Sprintf("unknown credential type %q", c.Type))
	}
	return nil
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level,omitempty"`

	// Format is the log format (text, json).
	Format string `yaml:"format" json:"format,omitempty"`

	// Output is the log output (stdout, stderr, or file path).
	Output string `yaml:"output" json:"output,omitempty"`
}

// SetDefaults sets default values for logging configuration.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// AppConfig contains the complete application configuration.
type AppConfig struct {
	// Verification contains verifier configuration.
	Verification *VerificationConfig `yaml:"verification" json:"verification,omitempty"`

	// Signing contains signing credential configuration.
	Signing *SigningConfig `yaml:"signing" json:"signing,omitempty"`

	// Logging contains logging configuration.
	Logging *LoggingConfig `yaml:"logging" json:"logging,omitempty"`
}

// LoadConfig loads the application configuration from a YAML file.
func LoadConfig(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML data and applies defaults.
func ParseConfig(data []byte) (*AppConfig, error) {
	var config AppConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Logging == nil {
		config.Logging = &LoggingConfig{}
	}
	config.Logging.SetDefaults()

	if config.Verification != nil && config.Verification.Revocation != nil {
		config.Verification.Revocation.SetDefaults()
	}

	return &config, nil
}
