package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Slot     SlotConfig     `yaml:"slot"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr             string        `yaml:"addr"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	MaxUploadMB      int           `yaml:"max_upload_mb"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	VisionEnabled          bool   `yaml:"vision_enabled"`
	VisionCredentialsFile  string `yaml:"vision_credentials_file"`
	TesseractEnabled       bool   `yaml:"tesseract_enabled"`
	TessdataDir            string `yaml:"tessdata_dir"`
	Rasterizer             string `yaml:"rasterizer"` // fitz | pdftoppm
	Pdftoppm               string `yaml:"pdftoppm"`
	MaxPages               int    `yaml:"max_pages"`
	ArbiterMinPrimaryChars int    `yaml:"arbiter_min_primary_chars"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider       string        `yaml:"provider"` // openai | vertex
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"-"`
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	VertexProject  string        `yaml:"vertex_project"`
	VertexLocation string        `yaml:"vertex_location"`
	VertexModel    string        `yaml:"vertex_model"`
}

// SlotConfig selects where the latest analysis is kept.
type SlotConfig struct {
	Backend       string `yaml:"backend"` // memory | redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

// DatabaseConfig holds the analysis audit log connection.
type DatabaseConfig struct {
	Driver      string        `yaml:"driver"` // sqlite | postgres | none
	DSN         string        `yaml:"dsn"`
	MaxConns    int32         `yaml:"max_conns"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             ":8080",
			RequestTimeout:   2 * time.Minute,
			MaxUploadMB:      50,
			GracefulShutdown: 15 * time.Second,
		},
		OCR: OCRConfig{
			VisionEnabled:    true,
			TesseractEnabled: true,
			Rasterizer:       "fitz",
			Pdftoppm:         "pdftoppm",
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			BaseURL:        "https://api.openai.com/v1",
			Timeout:        90 * time.Second,
			VertexLocation: "europe-west1",
			VertexModel:    "gemini-1.5-pro",
		},
		Slot: SlotConfig{
			Backend:  "memory",
			RedisKey: "lexiscan:latest-analysis",
		},
		Database: DatabaseConfig{
			Driver:      "sqlite",
			DSN:         "file:lexiscan.db?_pragma=busy_timeout(5000)",
			MaxConns:    10,
			DialTimeout: 3 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from an optional .env file, an optional YAML file
// named by LEXISCAN_CONFIG, and environment variables (highest precedence).
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path := os.Getenv("LEXISCAN_CONFIG"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return NewAppError(CodeConfig, "read config file", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return NewAppError(CodeConfig, fmt.Sprintf("parse config file %s", path), err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Server.Addr = getEnv("HTTP_ADDR", c.Server.Addr)
	c.Server.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.MaxUploadMB = getEnvAsInt("MAX_UPLOAD_MB", c.Server.MaxUploadMB)
	c.Server.GracefulShutdown = getEnvAsDuration("GRACEFUL_SHUTDOWN", c.Server.GracefulShutdown)

	c.OCR.VisionEnabled = getEnvAsBool("VISION_ENABLED", c.OCR.VisionEnabled)
	c.OCR.VisionCredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.OCR.VisionCredentialsFile)
	c.OCR.TesseractEnabled = getEnvAsBool("TESSERACT_ENABLED", c.OCR.TesseractEnabled)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.Rasterizer = getEnv("RASTERIZER", c.OCR.Rasterizer)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM", c.OCR.Pdftoppm)
	c.OCR.MaxPages = getEnvAsInt("MAX_PAGES", c.OCR.MaxPages)
	c.OCR.ArbiterMinPrimaryChars = getEnvAsInt("ARBITER_MIN_PRIMARY_CHARS", c.OCR.ArbiterMinPrimaryChars)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)
	c.LLM.VertexProject = getEnv("VERTEX_PROJECT", c.LLM.VertexProject)
	c.LLM.VertexLocation = getEnv("VERTEX_LOCATION", c.LLM.VertexLocation)
	c.LLM.VertexModel = getEnv("VERTEX_MODEL", c.LLM.VertexModel)

	c.Slot.Backend = getEnv("SLOT_BACKEND", c.Slot.Backend)
	c.Slot.RedisAddr = getEnv("REDIS_ADDR", c.Slot.RedisAddr)
	c.Slot.RedisPassword = getEnv("REDIS_PASSWORD", c.Slot.RedisPassword)
	c.Slot.RedisDB = getEnvAsInt("REDIS_DB", c.Slot.RedisDB)
	c.Slot.RedisKey = getEnv("REDIS_KEY", c.Slot.RedisKey)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		if c.LLM.APIKey == "" {
			return NewAppError(CodeConfig, "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	case "vertex":
		if c.LLM.VertexProject == "" || c.LLM.VertexLocation == "" {
			return NewAppError(CodeConfig, "VERTEX_PROJECT and VERTEX_LOCATION are required", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown LLM_PROVIDER %q", c.LLM.Provider), ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Server.MaxUploadMB <= 0 {
		return NewAppError(CodeConfig, "MAX_UPLOAD_MB must be positive", ErrInvalidInput)
	}
	switch c.OCR.Rasterizer {
	case "fitz", "pdftoppm":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown RASTERIZER %q", c.OCR.Rasterizer), ErrInvalidInput)
	}
	if c.Slot.Backend == "redis" && c.Slot.RedisAddr == "" {
		return NewAppError(CodeConfig, "REDIS_ADDR is required when SLOT_BACKEND=redis", ErrInvalidInput)
	}
	return nil
}

// MaxUploadBytes is the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
