package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	GRPC        GRPCConfig        `yaml:"grpc"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Reservation ReservationConfig `yaml:"reservation"`
	PDF         PDFConfig         `yaml:"pdf"`
	Email       EmailConfig       `yaml:"email"`
	Log         LogConfig         `yaml:"log"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

type HTTPConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Name        string `yaml:"name"`
	SSLMode     string `yaml:"ssl_mode"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL is the same connection in URL form, as golang-migrate expects it.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// FlightsCacheTTL is how long the flight list stays cached. Zero disables the cache.
	FlightsCacheTTL time.Duration `yaml:"flights_cache_ttl"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	ReservationsTopic  string   `yaml:"reservations_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type ReservationConfig struct {
	CodeAttempts int `yaml:"code_attempts"`
}

// PDFConfig points at the TrueType font used for confirmations. The font is not part of
// the repository; see config.yaml.
type PDFConfig struct {
	FontPath string `yaml:"font_path"`
	Required bool   `yaml:"required"`
}

// EmailConfig configures passenger notifications. With an empty SMTPHost messages are
// only logged.
type EmailConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type TracingConfig struct {
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// LoadConfig reads the YAML file at path. A .env file in the working directory, when
// present, is loaded into the environment first so that ${VAR} references expand.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns CONFIG_PATH or config.yaml.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		GRPC: GRPCConfig{Address: ":9090"},
		Database: DatabaseConfig{
			Driver:  DriverPostgres,
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Redis: RedisConfig{FlightsCacheTTL: 30 * time.Second},
		Kafka: KafkaConfig{
			ReservationsTopic:  "reservations",
			NotificationsTopic: "reservation-notifications",
			GroupID:            "reservation-notifier",
		},
		Reservation: ReservationConfig{CodeAttempts: 10},
		PDF:         PDFConfig{FontPath: "./fonts/DejaVuSans.ttf"},
		Email:       EmailConfig{SMTPPort: 587, From: "reservations@flightreservation.local"},
		Log:         LogConfig{Level: "info"},
		Tracing:     TracingConfig{ServiceName: "flight-reservation"},
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Reservation.CodeAttempts < 1 {
		return fmt.Errorf("reservation.code_attempts must be positive, got %d", c.Reservation.CodeAttempts)
	}
	return nil
}
