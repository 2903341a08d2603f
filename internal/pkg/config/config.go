package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted by tracking.provider.
const (
	ProviderNATS      = "nats"
	ProviderMQTT      = "mqtt"
	ProviderSimulated = "simulated"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Log        LogConfig        `mapstructure:"log"`
	Tracking   TrackingConfig   `mapstructure:"tracking"`
	Proximity  ProximityConfig  `mapstructure:"proximity"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"dbname"`
	SSLMode          string        `mapstructure:"sslmode"`
	MaxConns         int32         `mapstructure:"max_conns"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
	// DeviceSubject is subscribed by the nats provider; wildcards allowed.
	DeviceSubject string `mapstructure:"device_subject"`
	FixSubject    string `mapstructure:"fix_subject"`
	NearbySubject string `mapstructure:"nearby_subject"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
	QoS      byte   `mapstructure:"qos"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
	// NotificationTTL is in seconds.
	NotificationTTL int `mapstructure:"notification_ttl"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TrackingConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	Autostart         bool          `mapstructure:"autostart"`
	Provider          string        `mapstructure:"provider"`
	PermissionGranted bool          `mapstructure:"permission_granted"`
}

type ProximityConfig struct {
	Period          time.Duration `mapstructure:"period"`
	ThresholdMeters float64       `mapstructure:"threshold_meters"`
	DedupeKey       int           `mapstructure:"dedupe_key"`
}

type SimulationConfig struct {
	DeviceID string  `mapstructure:"device_id"`
	Lat      float64 `mapstructure:"lat"`
	Lon      float64 `mapstructure:"lon"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := newViper(service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	return unmarshal(v)
}

func newViper(service string) *viper.Viper {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "picplace")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "picplace")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.statement_timeout", "5s")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.device_subject", "picplace.device.*.location")
	v.SetDefault("nats.fix_subject", "picplace.events.fix")
	v.SetDefault("nats.nearby_subject", "picplace.events.nearby")
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", service)
	v.SetDefault("mqtt.topic", "picplace/device/+/location")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.notification_ttl", 3600)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tracking.interval", "1s")
	v.SetDefault("tracking.autostart", false)
	v.SetDefault("tracking.provider", ProviderNATS)
	v.SetDefault("tracking.permission_granted", true)
	v.SetDefault("proximity.period", "60s")
	v.SetDefault("proximity.threshold_meters", 10.0)
	v.SetDefault("proximity.dedupe_key", 2)
	v.SetDefault("simulation.device_id", "simulated")
	v.SetDefault("simulation.lat", 43.2630)
	v.SetDefault("simulation.lon", -2.9350)

	// Environment variables: PICPLACE_DATABASE_HOST → database.host
	v.SetEnvPrefix("PICPLACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Valkey.NotificationTTL <= 0 {
		errs = append(errs, "valkey.notification_ttl must be positive")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	switch c.Tracking.Provider {
	case ProviderNATS:
		if c.NATS.DeviceSubject == "" {
			errs = append(errs, "nats.device_subject is required for the nats provider")
		}
	case ProviderMQTT:
		if c.MQTT.Broker == "" {
			errs = append(errs, "mqtt.broker is required for the mqtt provider")
		}
		if c.MQTT.Topic == "" {
			errs = append(errs, "mqtt.topic is required for the mqtt provider")
		}
		if c.MQTT.QoS > 2 {
			errs = append(errs, fmt.Sprintf("mqtt.qos must be 0-2, got %d", c.MQTT.QoS))
		}
	case ProviderSimulated:
		if c.Simulation.Lat < -90 || c.Simulation.Lat > 90 {
			errs = append(errs, fmt.Sprintf("simulation.lat must be -90..90, got %f", c.Simulation.Lat))
		}
		if c.Simulation.Lon < -180 || c.Simulation.Lon > 180 {
			errs = append(errs, fmt.Sprintf("simulation.lon must be -180..180, got %f", c.Simulation.Lon))
		}
	default:
		errs = append(errs, fmt.Sprintf("tracking.provider must be nats, mqtt or simulated, got %q", c.Tracking.Provider))
	}
	if c.Tracking.Interval <= 0 {
		errs = append(errs, "tracking.interval must be positive")
	}
	if c.Proximity.Period <= 0 {
		errs = append(errs, "proximity.period must be positive")
	}
	if c.Proximity.ThresholdMeters <= 0 {
		errs = append(errs, "proximity.threshold_meters must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
