package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Presentation modes for exposing zone state.
const (
	DisplayModeHeaterCooler = "heater_cooler"
	DisplayModeThermostat   = "thermostat"
)

// Snapshot store backends.
const (
	SnapshotBackendSQLite = "sqlite"
)

// envPrefix is the prefix for all environment variable overrides.
const envPrefix = "MELBRIDGE_"

// redacted replaces secrets in Redacted copies.
const redacted = "removed"

// Config is the root configuration structure for the MELCloud bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	MELCloud  MELCloudConfig  `yaml:"melcloud"`
	Accounts  []AccountConfig `yaml:"accounts"`
	Snapshots SnapshotConfig  `yaml:"snapshots"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BridgeConfig identifies this bridge instance.
type BridgeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// MELCloudConfig contains cloud API endpoint settings shared by all accounts.
type MELCloudConfig struct {
	BaseURL    string `yaml:"base_url"`
	AppVersion string `yaml:"app_version"`
}

// AccountConfig describes one MELCloud account and its device overrides.
type AccountConfig struct {
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Language int    `yaml:"language"`

	// DisplayMode is the default presentation mode for the account's devices.
	DisplayMode string `yaml:"display_mode"`

	// Timing, all in seconds except SettleDelay (milliseconds).
	RefreshInterval int `yaml:"refresh_interval"`
	RescanInterval  int `yaml:"rescan_interval"`
	ReconnectDelay  int `yaml:"reconnect_delay"`
	SettleDelay     int `yaml:"settle_delay"`
	LoginTimeout    int `yaml:"login_timeout"`
	SetTimeout      int `yaml:"set_timeout"`

	// UseFahrenheit, when set, is pushed to the account options after login
	// if the cloud-side preference differs.
	UseFahrenheit *bool `yaml:"use_fahrenheit"`

	Debug   bool           `yaml:"debug"`
	Devices []DeviceConfig `yaml:"devices"`
}

// DeviceConfig holds per-device presentation overrides and macros.
type DeviceConfig struct {
	ID          int            `yaml:"id"`
	DisplayMode string         `yaml:"display_mode"`
	Presets     []PresetConfig `yaml:"presets"`
	Buttons     []ButtonConfig `yaml:"buttons"`
}

// PresetConfig binds a server-side preset to a local indicator.
type PresetConfig struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	DisplayType int    `yaml:"display_type"`
	NamePrefix  bool   `yaml:"name_prefix"`
}

// ButtonConfig binds a fixed device mode to a local indicator.
type ButtonConfig struct {
	Name        string `yaml:"name"`
	Mode        int    `yaml:"mode"`
	DisplayType int    `yaml:"display_type"`
	NamePrefix  bool   `yaml:"name_prefix"`
}

// SnapshotConfig selects where raw cloud responses are persisted.
type SnapshotConfig struct {
	Backend string         `yaml:"backend"`
	S3      S3MirrorConfig `yaml:"s3"`
}

// S3MirrorConfig configures the optional object-store mirror of snapshots.
type S3MirrorConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	Region        string `yaml:"region"`
	AccessKeyFile string `yaml:"access_key_file"`
	SecretKeyFile string `yaml:"secret_key_file"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Prefix    string              `yaml:"prefix"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	Auth     APIAuthConfig    `yaml:"auth"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// APIAuthConfig configures bearer-token protection of mutating routes.
// An empty secret leaves the API open (LAN-only deployments).
type APIAuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  int    `yaml:"token_ttl"` // minutes
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MELBRIDGE_SECTION_KEY
// For example: MELBRIDGE_DATABASE_PATH, MELBRIDGE_MQTT_HOST.
// Account credentials use MELBRIDGE_ACCOUNT_<NAME>_USER and
// MELBRIDGE_ACCOUNT_<NAME>_PASSWORD, where NAME is the upper-cased
// account name with non-alphanumerics replaced by underscores.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyAccountDefaults()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:   "melbridge-01",
			Name: "MELCloud Bridge",
		},
		MELCloud: MELCloudConfig{
			BaseURL:    "https://app.melcloud.com/Mitsubishi.Wifi.Client",
			AppVersion: "1.25.0",
		},
		Snapshots: SnapshotConfig{
			Backend: SnapshotBackendSQLite,
			S3: S3MirrorConfig{
				Prefix: "melbridge/snapshots",
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/melbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS:    1,
			Prefix: "melcloud",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8095,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			Auth: APIAuthConfig{
				TokenTTL: 1440,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/melbridge.log",
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     30,
			},
		},
	}
}

// applyAccountDefaults fills unset per-account timings. YAML decoding of a
// list replaces elements wholesale, so defaults are applied after parsing.
func (c *Config) applyAccountDefaults() {
	for i := range c.Accounts {
		a := &c.Accounts[i]
		if a.DisplayMode == "" {
			a.DisplayMode = DisplayModeHeaterCooler
		}
		if a.RefreshInterval == 0 {
			a.RefreshInterval = 120
		}
		if a.RescanInterval == 0 {
			a.RescanInterval = 90
		}
		if a.ReconnectDelay == 0 {
			a.ReconnectDelay = 65
		}
		if a.SettleDelay == 0 {
			a.SettleDelay = 500
		}
		if a.LoginTimeout == 0 {
			a.LoginTimeout = 15
		}
		if a.SetTimeout == 0 {
			a.SetTimeout = 25
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MELBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MELCloud
	if v := os.Getenv(envPrefix + "MELCLOUD_BASE_URL"); v != "" {
		cfg.MELCloud.BaseURL = v
	}

	// Accounts
	for i := range cfg.Accounts {
		key := envPrefix + "ACCOUNT_" + envName(cfg.Accounts[i].Name)
		if v := os.Getenv(key + "_USER"); v != "" {
			cfg.Accounts[i].User = v
		}
		if v := os.Getenv(key + "_PASSWORD"); v != "" {
			cfg.Accounts[i].Password = v
		}
	}

	// Database
	if v := os.Getenv(envPrefix + "DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv(envPrefix + "MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv(envPrefix + "MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv(envPrefix + "MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv(envPrefix + "API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv(envPrefix + "API_JWT_SECRET"); v != "" {
		cfg.API.Auth.JWTSecret = v
	}

	// InfluxDB
	if v := os.Getenv(envPrefix + "INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// envName converts an account name into its environment variable form.
func envName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, name)
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}
	if c.MELCloud.BaseURL == "" {
		errs = append(errs, "melcloud.base_url is required")
	}

	// Accounts
	if len(c.Accounts) == 0 {
		errs = append(errs, "at least one account is required")
	}
	names := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		prefix := fmt.Sprintf("accounts[%d]", i)
		if a.Name == "" {
			errs = append(errs, prefix+".name is required")
		} else if names[a.Name] {
			errs = append(errs, prefix+".name "+a.Name+" is duplicated")
		}
		names[a.Name] = true
		if a.User == "" {
			errs = append(errs, prefix+".user is required")
		}
		if a.Password == "" {
			errs = append(errs, prefix+".password is required (set "+envPrefix+"ACCOUNT_"+envName(a.Name)+"_PASSWORD)")
		}
		if !validDisplayMode(a.DisplayMode) {
			errs = append(errs, prefix+".display_mode must be heater_cooler or thermostat")
		}
		if a.RefreshInterval < 0 || a.RescanInterval < 0 || a.ReconnectDelay < 0 {
			errs = append(errs, prefix+" intervals must not be negative")
		}
		for j, d := range a.Devices {
			if d.ID == 0 {
				errs = append(errs, fmt.Sprintf("%s.devices[%d].id is required", prefix, j))
			}
			if d.DisplayMode != "" && !validDisplayMode(d.DisplayMode) {
				errs = append(errs, fmt.Sprintf("%s.devices[%d].display_mode must be heater_cooler or thermostat", prefix, j))
			}
		}
	}

	// Snapshots
	if c.Snapshots.Backend != SnapshotBackendSQLite {
		errs = append(errs, "snapshots.backend must be sqlite")
	}
	if s3 := c.Snapshots.S3; s3.Enabled {
		if s3.Endpoint == "" || s3.Bucket == "" {
			errs = append(errs, "snapshots.s3.endpoint and snapshots.s3.bucket are required when the mirror is enabled")
		}
		if s3.AccessKeyFile == "" || s3.SecretKeyFile == "" {
			errs = append(errs, "snapshots.s3 access and secret key files are required when the mirror is enabled")
		}
	}

	// Database
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Prefix == "" {
		errs = append(errs, "mqtt.prefix is required when mqtt is enabled")
	}

	// API
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	const minJWTSecretLength = 32
	if s := c.API.Auth.JWTSecret; s != "" && len(s) < minJWTSecretLength {
		errs = append(errs, "api.auth.jwt_secret must be at least 32 characters")
	}

	// InfluxDB
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validDisplayMode(mode string) bool {
	return mode == DisplayModeHeaterCooler || mode == DisplayModeThermostat
}

// Redacted returns a deep-enough copy of the configuration with credentials
// replaced, suitable for debug logging.
func (c *Config) Redacted() Config {
	out := *c
	out.Accounts = make([]AccountConfig, len(c.Accounts))
	for i, a := range c.Accounts {
		a.User = redacted
		a.Password = redacted
		out.Accounts[i] = a
	}
	if out.MQTT.Auth.Password != "" {
		out.MQTT.Auth.Password = redacted
	}
	if out.API.Auth.JWTSecret != "" {
		out.API.Auth.JWTSecret = redacted
	}
	if out.InfluxDB.Token != "" {
		out.InfluxDB.Token = redacted
	}
	return out
}

// Device returns the override block for a device id, if configured.
func (a *AccountConfig) Device(id int) (DeviceConfig, bool) {
	for _, d := range a.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return DeviceConfig{}, false
}

// DisplayModeFor returns the presentation mode for a device, honouring any
// per-device override.
func (a *AccountConfig) DisplayModeFor(id int) string {
	if d, ok := a.Device(id); ok && d.DisplayMode != "" {
		return d.DisplayMode
	}
	return a.DisplayMode
}

// GetRefreshInterval returns the per-device poll interval.
func (a *AccountConfig) GetRefreshInterval() time.Duration {
	return time.Duration(a.RefreshInterval) * time.Second
}

// GetRescanInterval returns the device list rescan interval.
func (a *AccountConfig) GetRescanInterval() time.Duration {
	return time.Duration(a.RescanInterval) * time.Second
}

// GetReconnectDelay returns the delay between failed login attempts.
func (a *AccountConfig) GetReconnectDelay() time.Duration {
	return time.Duration(a.ReconnectDelay) * time.Second
}

// GetSettleDelay returns the pause between login and first enumeration.
func (a *AccountConfig) GetSettleDelay() time.Duration {
	return time.Duration(a.SettleDelay) * time.Millisecond
}

// GetLoginTimeout returns the login request timeout.
func (a *AccountConfig) GetLoginTimeout() time.Duration {
	return time.Duration(a.LoginTimeout) * time.Second
}

// GetSetTimeout returns the set-device request timeout.
func (a *AccountConfig) GetSetTimeout() time.Duration {
	return time.Duration(a.SetTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTokenTTL returns the lifetime of issued API tokens.
func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.API.Auth.TokenTTL) * time.Minute
}
