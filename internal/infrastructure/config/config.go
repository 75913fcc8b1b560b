package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the anti-ban bridge service.
type Config struct {
	Server ServerConfig `mapstructure:"server"`

	// WhatsApp client configuration (includes whatsmeow's own device store path).
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`

	// AntiBan holds the §6.5 configuration surface recognized by the core.
	AntiBan AntiBanConfig `mapstructure:"antiban"`

	// Reconnect parameterizes the session supervisor's backoff schedule.
	Reconnect ReconnectConfig `mapstructure:"reconnect"`

	// Persistence locates the state directory (§6.4).
	Persistence PersistenceConfig `mapstructure:"persistence"`

	Log            LogConfig            `mapstructure:"log"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitbreaker"`
	CORS           CORSConfig           `mapstructure:"cors"`
	Webhook        WebhookConfig        `mapstructure:"webhook"`
	WebSocket      WebSocketConfig      `mapstructure:"websocket"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WhatsAppConfig holds the whatsmeow protocol adapter's own settings: the
// device store path and the connect-retry policy for a single Connect()
// call, distinct from the supervisor's reconnection backoff (ReconnectConfig).
type WhatsAppConfig struct {
	DBPath         string        `mapstructure:"db_path"`
	QRTimeout      time.Duration `mapstructure:"qr_timeout"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
}

// AntiBanConfig is the §6.5 configuration surface recognized by the core.
type AntiBanConfig struct {
	AccountAgeWeeks    int    `mapstructure:"account_age_weeks"`
	ActiveHoursStart   string `mapstructure:"active_hours_start"` // HH:MM local
	ActiveHoursEnd     string `mapstructure:"active_hours_end"`   // HH:MM local
	MessageDelayBaseMs int    `mapstructure:"message_delay_base_ms"`
	TypingDelayBaseMs  int    `mapstructure:"typing_delay_base_ms"`
	SendConcurrency    int    `mapstructure:"send_concurrency"`
}

// ParseClockOffset parses an "HH:MM" local time-of-day into an offset from
// midnight, the shape the presence cycler's ActiveWindow expects.
func ParseClockOffset(s string) (time.Duration, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// ReconnectConfig parameterizes the session supervisor's backoff schedule
// (§6.5 reconnect.initialMs/capMs/giveUpAfter).
type ReconnectConfig struct {
	InitialMs   int `mapstructure:"initial_ms"`
	CapMs       int `mapstructure:"cap_ms"`
	GiveUpAfter int `mapstructure:"give_up_after"`
}

// PersistenceConfig locates the state directory holding the five files
// described in §6.4.
type PersistenceConfig struct {
	Dir string `mapstructure:"dir"`
}

// WebhookConfig is the upstream onMessage collaborator (§6.2).
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// WebSocketConfig configures the dashboard push channel (§6.1 websocket).
type WebSocketConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	AuthTimeout  time.Duration `mapstructure:"auth_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// CircuitBreakerConfig holds circuit breaker configuration wrapping the
// protocol library's connect/send calls.
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	SuccessThreshold uint32        `mapstructure:"success_threshold"`
}

// CORSConfig holds CORS configuration for the HTTP surface.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"` // seconds
}

// ValidationError represents a single configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s - %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{Field: "server.port", Message: "must be between 1 and 65535"})
	}

	if c.WhatsApp.DBPath == "" {
		errs = append(errs, ValidationError{Field: "whatsapp.db_path", Message: "is required"})
	}
	if c.WhatsApp.QRTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "whatsapp.qr_timeout", Message: "must be positive"})
	}
	if c.WhatsApp.MaxReconnects < 0 {
		errs = append(errs, ValidationError{Field: "whatsapp.max_reconnects", Message: "must be non-negative"})
	}

	if c.AntiBan.AccountAgeWeeks < 1 {
		errs = append(errs, ValidationError{Field: "antiban.account_age_weeks", Message: "must be >= 1"})
	}
	if _, err := ParseClockOffset(c.AntiBan.ActiveHoursStart); err != nil {
		errs = append(errs, ValidationError{Field: "antiban.active_hours_start", Message: err.Error()})
	}
	if _, err := ParseClockOffset(c.AntiBan.ActiveHoursEnd); err != nil {
		errs = append(errs, ValidationError{Field: "antiban.active_hours_end", Message: err.Error()})
	}
	if c.AntiBan.MessageDelayBaseMs <= 0 {
		errs = append(errs, ValidationError{Field: "antiban.message_delay_base_ms", Message: "must be positive"})
	}
	if c.AntiBan.TypingDelayBaseMs <= 0 {
		errs = append(errs, ValidationError{Field: "antiban.typing_delay_base_ms", Message: "must be positive"})
	}
	if c.AntiBan.SendConcurrency < 1 {
		errs = append(errs, ValidationError{Field: "antiban.send_concurrency", Message: "must be >= 1"})
	}

	if c.Reconnect.InitialMs <= 0 {
		errs = append(errs, ValidationError{Field: "reconnect.initial_ms", Message: "must be positive"})
	}
	if c.Reconnect.CapMs < c.Reconnect.InitialMs {
		errs = append(errs, ValidationError{Field: "reconnect.cap_ms", Message: "must be >= initial_ms"})
	}
	if c.Reconnect.GiveUpAfter < 1 {
		errs = append(errs, ValidationError{Field: "reconnect.give_up_after", Message: "must be >= 1"})
	}

	if c.Persistence.Dir == "" {
		errs = append(errs, ValidationError{Field: "persistence.dir", Message: "is required"})
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{Field: "log.level", Message: "must be one of: debug, info, warn, error"})
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, ValidationError{Field: "log.format", Message: "must be one of: json, text"})
	}

	if c.Webhook.Enabled && c.Webhook.URL == "" {
		errs = append(errs, ValidationError{Field: "webhook.url", Message: "is required when webhooks are enabled"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Load loads configuration from environment variables with defaults.
func Load() (*Config, error) {
	return LoadWithConfigFile("")
}

// LoadWithConfigFile loads configuration from a file (if provided) and
// environment variables.
func LoadWithConfigFile(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/wabridge")
		v.AddConfigPath("$HOME/.wabridge")
		_ = v.ReadInConfig()
	}

	v.SetEnvPrefix("WABRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithViper loads configuration using a provided viper instance, used by
// tests that need to set values programmatically before unmarshaling.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("whatsapp.db_path", "./data/wabridge.db")
	v.SetDefault("whatsapp.qr_timeout", 2*time.Minute)
	v.SetDefault("whatsapp.reconnect_delay", 2*time.Second)
	v.SetDefault("whatsapp.max_reconnects", 5)

	v.SetDefault("antiban.account_age_weeks", 1)
	v.SetDefault("antiban.active_hours_start", "09:00")
	v.SetDefault("antiban.active_hours_end", "22:00")
	v.SetDefault("antiban.message_delay_base_ms", 100)
	v.SetDefault("antiban.typing_delay_base_ms", 1000)
	v.SetDefault("antiban.send_concurrency", 4)

	v.SetDefault("reconnect.initial_ms", 1000)
	v.SetDefault("reconnect.cap_ms", 300000)
	v.SetDefault("reconnect.give_up_after", 15)

	v.SetDefault("persistence.dir", "./data/state")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "wabridge")

	v.SetDefault("circuitbreaker.enabled", true)
	v.SetDefault("circuitbreaker.max_requests", 3)
	v.SetDefault("circuitbreaker.interval", 60*time.Second)
	v.SetDefault("circuitbreaker.timeout", 30*time.Second)
	v.SetDefault("circuitbreaker.failure_threshold", 5)
	v.SetDefault("circuitbreaker.success_threshold", 2)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"})
	v.SetDefault("cors.expose_headers", []string{"X-Request-ID"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 86400)

	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.secret", "")

	v.SetDefault("websocket.api_key", "")
	v.SetDefault("websocket.ping_interval", 30*time.Second)
	v.SetDefault("websocket.write_timeout", 10*time.Second)
	v.SetDefault("websocket.auth_timeout", 10*time.Second)
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("server.host", "WABRIDGE_SERVER_HOST")
	_ = v.BindEnv("server.port", "WABRIDGE_SERVER_PORT")

	_ = v.BindEnv("whatsapp.db_path", "WABRIDGE_WHATSAPP_DB_PATH")
	_ = v.BindEnv("whatsapp.qr_timeout", "WABRIDGE_WHATSAPP_QR_TIMEOUT")
	_ = v.BindEnv("whatsapp.reconnect_delay", "WABRIDGE_WHATSAPP_RECONNECT_DELAY")
	_ = v.BindEnv("whatsapp.max_reconnects", "WABRIDGE_WHATSAPP_MAX_RECONNECTS")

	_ = v.BindEnv("antiban.account_age_weeks", "WABRIDGE_ACCOUNT_AGE_WEEKS")
	_ = v.BindEnv("antiban.active_hours_start", "WABRIDGE_ACTIVE_HOURS_START")
	_ = v.BindEnv("antiban.active_hours_end", "WABRIDGE_ACTIVE_HOURS_END")
	_ = v.BindEnv("antiban.message_delay_base_ms", "WABRIDGE_MESSAGE_DELAY_BASE_MS")
	_ = v.BindEnv("antiban.typing_delay_base_ms", "WABRIDGE_TYPING_DELAY_BASE_MS")
	_ = v.BindEnv("antiban.send_concurrency", "WABRIDGE_SEND_CONCURRENCY")

	_ = v.BindEnv("reconnect.initial_ms", "WABRIDGE_RECONNECT_INITIAL_MS")
	_ = v.BindEnv("reconnect.cap_ms", "WABRIDGE_RECONNECT_CAP_MS")
	_ = v.BindEnv("reconnect.give_up_after", "WABRIDGE_RECONNECT_GIVE_UP_AFTER")

	_ = v.BindEnv("persistence.dir", "WABRIDGE_PERSISTENCE_DIR")

	_ = v.BindEnv("log.level", "WABRIDGE_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "WABRIDGE_LOG_FORMAT", "LOG_FORMAT")

	_ = v.BindEnv("metrics.enabled", "WABRIDGE_METRICS_ENABLED")
	_ = v.BindEnv("metrics.path", "WABRIDGE_METRICS_PATH")
	_ = v.BindEnv("metrics.namespace", "WABRIDGE_METRICS_NAMESPACE")

	_ = v.BindEnv("circuitbreaker.enabled", "WABRIDGE_CIRCUIT_BREAKER_ENABLED")
	_ = v.BindEnv("circuitbreaker.max_requests", "WABRIDGE_CIRCUIT_BREAKER_MAX_REQUESTS")
	_ = v.BindEnv("circuitbreaker.interval", "WABRIDGE_CIRCUIT_BREAKER_INTERVAL")
	_ = v.BindEnv("circuitbreaker.timeout", "WABRIDGE_CIRCUIT_BREAKER_TIMEOUT")
	_ = v.BindEnv("circuitbreaker.failure_threshold", "WABRIDGE_CIRCUIT_BREAKER_FAILURE_THRESHOLD")
	_ = v.BindEnv("circuitbreaker.success_threshold", "WABRIDGE_CIRCUIT_BREAKER_SUCCESS_THRESHOLD")

	_ = v.BindEnv("cors.allowed_origins", "WABRIDGE_CORS_ORIGINS")
	_ = v.BindEnv("cors.allowed_methods", "WABRIDGE_CORS_METHODS")
	_ = v.BindEnv("cors.allowed_headers", "WABRIDGE_CORS_HEADERS")
	_ = v.BindEnv("cors.allow_credentials", "WABRIDGE_CORS_ALLOW_CREDENTIALS")
	_ = v.BindEnv("cors.max_age", "WABRIDGE_CORS_MAX_AGE")

	_ = v.BindEnv("webhook.enabled", "WABRIDGE_WEBHOOK_ENABLED")
	_ = v.BindEnv("webhook.url", "WABRIDGE_WEBHOOK_URL")
	_ = v.BindEnv("webhook.secret", "WABRIDGE_WEBHOOK_SECRET")

	_ = v.BindEnv("websocket.api_key", "WABRIDGE_WEBSOCKET_API_KEY")
	_ = v.BindEnv("websocket.ping_interval", "WABRIDGE_WEBSOCKET_PING_INTERVAL")
}

// MustLoad loads configuration and panics on error (for use in main).
func MustLoad() *Config {
	return MustLoadWithConfigFile("")
}

// MustLoadWithConfigFile loads configuration from a file and panics on error.
func MustLoadWithConfigFile(configFile string) *Config {
	cfg, err := LoadWithConfigFile(configFile)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Reload reloads configuration from environment variables, allowing
// configuration changes without restarting the service.
func (c *Config) Reload() error {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("WABRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var newCfg Config
	if err := v.Unmarshal(&newCfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	*c = newCfg
	return nil
}
