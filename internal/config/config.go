package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`

	// Store selects the persistence driver for chat state and users
	Store StoreConfig `yaml:"store"`

	// MySQL Configuration
	Database DatabaseConfig `yaml:"database"`

	// MongoDB Configuration
	MongoDB MongoDBConfig `yaml:"mongodb"`

	Auth AuthConfig `yaml:"auth"`

	// Attachment upload limits
	Upload UploadConfig `yaml:"upload"`

	Media MediaConfig `yaml:"media"`

	// Chat policy and live channel tuning
	Chat ChatConfig `yaml:"chat"`

	// Logging Configuration
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port         string `yaml:"port"`
	Host         string `yaml:"host"`
	GRPCPort     string `yaml:"grpc_port"` // health + reflection
	MediaPort    string `yaml:"media_port"`
	MediaBaseURL string `yaml:"media_base_url"`
	ReadTimeout  int    `yaml:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout"`
	Environment  string `yaml:"environment"` // development, staging, production
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // mongo, mysql, memory
}

// DatabaseConfig contains MySQL connection configuration
type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	DatabaseName string `yaml:"database_name"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type MongoDBConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`

	// BcryptCost is the password hashing work factor. Stored hashes made at
	// another cost are upgraded on the next successful login.
	BcryptCost int `yaml:"bcrypt_cost"`
}

type UploadConfig struct {
	MaxBytes     int64    `yaml:"max_bytes"`
	AllowedTypes []string `yaml:"allowed_types"`
}

type MediaConfig struct {
	Driver string `yaml:"driver"` // gridfs, memory
}

// ChatConfig holds the authorization policy switches and live channel limits
type ChatConfig struct {
	RequireMembershipToReact bool    `yaml:"require_membership_to_react"`
	ProtectGroupAdmin        bool    `yaml:"protect_group_admin"`
	RequireMembershipToJoin  bool    `yaml:"require_membership_to_join"`
	SearchLimit              int     `yaml:"search_limit"`
	SessionBuffer            int     `yaml:"session_buffer"`
	SendRatePerSecond        float64 `yaml:"send_rate_per_second"`
	SendBurst                int     `yaml:"send_burst"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Format     string `yaml:"format"`      // json, text
	OutputPath string `yaml:"output_path"` // stdout, stderr, or file path
}

var defaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Default returns the configuration used when neither a file nor the environment says otherwise.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "5000",
			Host:         "0.0.0.0",
			GRPCPort:     "7003",
			MediaPort:    "8080",
			ReadTimeout:  15,
			WriteTimeout: 15,
			Environment:  "development",
		},
		Store: StoreConfig{Driver: "mongo"},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         "3306",
			Username:     "gochat",
			Password:     "gochat123",
			DatabaseName: "gochat",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		MongoDB: MongoDBConfig{
			Host:     "localhost",
			Port:     "27017",
			Database: "gochat",
		},
		Auth: AuthConfig{
			JWTSecret:     "",
			TokenTTLHours: 24,
			BcryptCost:    bcrypt.DefaultCost,
		},
		Upload: UploadConfig{
			MaxBytes:     5 * 1024 * 1024,
			AllowedTypes: append([]string(nil), defaultAllowedTypes...),
		},
		Media: MediaConfig{Driver: "gridfs"},
		Chat: ChatConfig{
			RequireMembershipToJoin: true,
			SearchLimit:             50,
			SessionBuffer:           64,
			SendRatePerSecond:       5,
			SendBurst:               10,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}

// LoadConfig reads .env (if present), then the YAML file named by CONFIG_FILE (if set),
// then applies environment overrides.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			log.Printf("Ignoring config file %s: %v", path, err)
		}
	}
	cfg.applyEnv()

	if cfg.Server.MediaBaseURL == "" {
		cfg.Server.MediaBaseURL = "/media"
	}
	return cfg
}

func (cfg *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (cfg *Config) applyEnv() {
	cfg.Server.Port = getEnvOrDefault("PORT", cfg.Server.Port)
	cfg.Server.Host = getEnvOrDefault("HOST", cfg.Server.Host)
	cfg.Server.GRPCPort = getEnvOrDefault("GRPC_PORT", cfg.Server.GRPCPort)
	cfg.Server.MediaPort = getEnvOrDefault("MEDIA_PORT", cfg.Server.MediaPort)
	cfg.Server.MediaBaseURL = getEnvOrDefault("MEDIA_BASE_URL", cfg.Server.MediaBaseURL)
	cfg.Server.ReadTimeout = getEnvInt("READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvInt("WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.Environment = getEnvOrDefault("ENVIRONMENT", cfg.Server.Environment)

	cfg.Store.Driver = strings.ToLower(getEnvOrDefault("STORE_DRIVER", cfg.Store.Driver))

	cfg.Database.Host = getEnvOrDefault("MYSQL_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvOrDefault("MYSQL_PORT", cfg.Database.Port)
	cfg.Database.Username = getEnvOrDefault("MYSQL_USERNAME", cfg.Database.Username)
	cfg.Database.Password = getEnvOrDefault("MYSQL_PASSWORD", cfg.Database.Password)
	cfg.Database.DatabaseName = getEnvOrDefault("MYSQL_DATABASE", cfg.Database.DatabaseName)

	cfg.MongoDB.Host = getEnvOrDefault("MONGO_HOST", cfg.MongoDB.Host)
	cfg.MongoDB.Port = getEnvOrDefault("MONGO_PORT", cfg.MongoDB.Port)
	cfg.MongoDB.Username = getEnvOrDefault("MONGO_USERNAME", cfg.MongoDB.Username)
	cfg.MongoDB.Password = getEnvOrDefault("MONGO_PASSWORD", cfg.MongoDB.Password)
	cfg.MongoDB.Database = getEnvOrDefault("MONGO_DATABASE", cfg.MongoDB.Database)

	cfg.Auth.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTLHours = getEnvInt("JWT_TTL_HOURS", cfg.Auth.TokenTTLHours)
	cfg.Auth.BcryptCost = getEnvInt("BCRYPT_COST", cfg.Auth.BcryptCost)

	cfg.Upload.MaxBytes = int64(getEnvInt("UPLOAD_MAX_BYTES", int(cfg.Upload.MaxBytes)))
	if types := os.Getenv("UPLOAD_ALLOWED_TYPES"); types != "" {
		cfg.Upload.AllowedTypes = splitList(types)
	}

	cfg.Media.Driver = strings.ToLower(getEnvOrDefault("MEDIA_DRIVER", cfg.Media.Driver))

	cfg.Chat.RequireMembershipToReact = getEnvBool("CHAT_REACT_REQUIRES_MEMBERSHIP", cfg.Chat.RequireMembershipToReact)
	cfg.Chat.ProtectGroupAdmin = getEnvBool("CHAT_PROTECT_GROUP_ADMIN", cfg.Chat.ProtectGroupAdmin)
	cfg.Chat.RequireMembershipToJoin = getEnvBool("CHAT_JOIN_REQUIRES_MEMBERSHIP", cfg.Chat.RequireMembershipToJoin)
	cfg.Chat.SearchLimit = getEnvInt("CHAT_SEARCH_LIMIT", cfg.Chat.SearchLimit)
	cfg.Chat.SessionBuffer = getEnvInt("CHAT_SESSION_BUFFER", cfg.Chat.SessionBuffer)
	cfg.Chat.SendRatePerSecond = getEnvFloat("CHAT_SEND_RATE", cfg.Chat.SendRatePerSecond)
	cfg.Chat.SendBurst = getEnvInt("CHAT_SEND_BURST", cfg.Chat.SendBurst)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvOrDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.OutputPath = getEnvOrDefault("LOG_OUTPUT", cfg.Logging.OutputPath)
}

// Validate rejects configurations the service cannot start with.
func (cfg *Config) Validate() error {
	switch cfg.Store.Driver {
	case "mongo", "mysql", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	switch cfg.Media.Driver {
	case "gridfs", "memory":
	default:
		return fmt.Errorf("unknown media driver %q", cfg.Media.Driver)
	}
	if cfg.Auth.JWTSecret == "" && cfg.Server.Environment != "development" {
		return fmt.Errorf("JWT_SECRET is required in %s", cfg.Server.Environment)
	}
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d outside [%d, %d]", cfg.Auth.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive")
	}
	return nil
}

func (cfg *Config) DSN() string {
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "3306"
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DatabaseName,
	)
}

func (cfg *Config) GetMongoURI() string {
	if cfg.MongoDB.Username == "" {
		return fmt.Sprintf("mongodb://%s:%s/%s", cfg.MongoDB.Host, cfg.MongoDB.Port, cfg.MongoDB.Database)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin",
		cfg.MongoDB.Username,
		cfg.MongoDB.Password,
		cfg.MongoDB.Host,
		cfg.MongoDB.Port,
		cfg.MongoDB.Database,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
