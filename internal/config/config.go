package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. QRSHARE_TRANSPORT_KIND.
const EnvPrefix = "QRSHARE"

// Transport kinds.
const (
	TransportWebSocket = "websocket"
	TransportWebRTC    = "webrtc"
)

var (
	ErrInvalidTransportKind       = errors.New("transport kind must be websocket or webrtc")
	ErrInvalidRelayURL            = errors.New("relay URL must be set for the websocket transport")
	ErrInvalidPairingBase         = errors.New("pairing base URL must be set")
	ErrInvalidChunkSize           = errors.New("max chunk size must be greater than 0")
	ErrInvalidIdleTimeout         = errors.New("idle timeout must not be negative")
	ErrInvalidBufferConfig        = errors.New("buffered amount low threshold must be less than max buffered amount")
	ErrInvalidFirebaseConfig      = errors.New("Firebase credentials path must be set")
	ErrInvalidFirebaseProjectID   = errors.New("Firebase project ID must be set")
	ErrInvalidFirebaseDatabaseURL = errors.New("Firebase database URL must be set")
	ErrInvalidLogLevel            = errors.New("log level is not recognised")
	ErrInvalidLogFormat           = errors.New("log format must be text or json")
)

// Config holds all application configuration
type Config struct {
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
	Transfer  TransferConfig  `mapstructure:"transfer" yaml:"transfer"`
	WebRTC    WebRTCConfig    `mapstructure:"webrtc" yaml:"webrtc"`
	Firebase  FirebaseConfig  `mapstructure:"firebase" yaml:"firebase"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// TransportConfig selects and addresses the message channel.
type TransportConfig struct {
	Kind string `mapstructure:"kind" yaml:"kind"`
	// RelayURL is the websocket relay, e.g. ws://localhost:8080.
	RelayURL string `mapstructure:"relay_url" yaml:"relay_url"`
	// PairingBase prefixes the pairing URL shown as a QR code.
	PairingBase string `mapstructure:"pairing_base" yaml:"pairing_base"`
	// MaxMessageSize bounds a single websocket frame.
	MaxMessageSize int `mapstructure:"max_message_size" yaml:"max_message_size"`
}

// TransferConfig tunes the transfer protocol.
type TransferConfig struct {
	MaxChunkSize int64         `mapstructure:"max_chunk_size" yaml:"max_chunk_size"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// WebRTCConfig holds WebRTC-specific configuration
type WebRTCConfig struct {
	ICEURLs                    []string `mapstructure:"ice_urls" yaml:"ice_urls"`
	BufferedAmountLowThreshold uint64   `mapstructure:"buffered_amount_low_threshold" yaml:"buffered_amount_low_threshold"`
	MaxBufferedAmount          uint64   `mapstructure:"max_buffered_amount" yaml:"max_buffered_amount"`
}

// FirebaseConfig holds Firebase client configuration
type FirebaseConfig struct {
	ProjectID       string        `mapstructure:"project_id" yaml:"project_id"`
	DatabaseURL     string        `mapstructure:"database_url" yaml:"database_url"`
	CredentialsPath string        `mapstructure:"credentials_path" yaml:"credentials_path"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollAttempts    int           `mapstructure:"poll_attempts" yaml:"poll_attempts"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			Kind:           TransportWebSocket,
			RelayURL:       "ws://localhost:8080",
			PairingBase:    "http://localhost:8080",
			MaxMessageSize: 4 * 1024 * 1024,
		},
		Transfer: TransferConfig{
			MaxChunkSize: 3 * 1024 * 1024, // 3 MiB
			IdleTimeout:  2 * time.Minute,
		},
		WebRTC: WebRTCConfig{
			ICEURLs:                    []string{"stun:stun.l.google.com:19302"},
			BufferedAmountLowThreshold: 512 * 1024,  // 512 KB
			MaxBufferedAmount:          1024 * 1024, // 1 MB
		},
		Firebase: FirebaseConfig{
			PollInterval: 5 * time.Second,
			PollAttempts: 24,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every default with v so that env variables and
// config files can override individual keys.
func SetDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("transport.kind", d.Transport.Kind)
	v.SetDefault("transport.relay_url", d.Transport.RelayURL)
	v.SetDefault("transport.pairing_base", d.Transport.PairingBase)
	v.SetDefault("transport.max_message_size", d.Transport.MaxMessageSize)
	v.SetDefault("transfer.max_chunk_size", d.Transfer.MaxChunkSize)
	v.SetDefault("transfer.idle_timeout", d.Transfer.IdleTimeout)
	v.SetDefault("webrtc.ice_urls", d.WebRTC.ICEURLs)
	v.SetDefault("webrtc.buffered_amount_low_threshold", d.WebRTC.BufferedAmountLowThreshold)
	v.SetDefault("webrtc.max_buffered_amount", d.WebRTC.MaxBufferedAmount)
	v.SetDefault("firebase.project_id", d.Firebase.ProjectID)
	v.SetDefault("firebase.database_url", d.Firebase.DatabaseURL)
	v.SetDefault("firebase.credentials_path", d.Firebase.CredentialsPath)
	v.SetDefault("firebase.poll_interval", d.Firebase.PollInterval)
	v.SetDefault("firebase.poll_attempts", d.Firebase.PollAttempts)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// BindEnv makes QRSHARE_<SECTION>_<KEY> override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the effective configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every command needs. Transport specific
// settings are checked by ValidateTransport.
func (c *Config) Validate() error {
	if c.Transfer.MaxChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.Transfer.IdleTimeout < 0 {
		return ErrInvalidIdleTimeout
	}
	if c.Transport.PairingBase == "" {
		return ErrInvalidPairingBase
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ValidateTransport checks the settings of the selected transport.
func (c *Config) ValidateTransport() error {
	switch c.Transport.Kind {
	case TransportWebSocket:
		if c.Transport.RelayURL == "" {
			return ErrInvalidRelayURL
		}
	case TransportWebRTC:
		if c.WebRTC.BufferedAmountLowThreshold >= c.WebRTC.MaxBufferedAmount {
			return ErrInvalidBufferConfig
		}
		if c.Firebase.CredentialsPath == "" {
			return ErrInvalidFirebaseConfig
		}
		if c.Firebase.ProjectID == "" {
			return ErrInvalidFirebaseProjectID
		}
		if c.Firebase.DatabaseURL == "" {
			return ErrInvalidFirebaseDatabaseURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransportKind, c.Transport.Kind)
	}
	return nil
}
