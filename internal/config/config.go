package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Upload      UploadConfig      `yaml:"upload"`
	Database    DatabaseConfig    `yaml:"database"`
	Sightengine SightengineConfig `yaml:"sightengine"`
	Vision      VisionConfig      `yaml:"vision"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Report      ReportConfig      `yaml:"report"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Custody     CustodyConfig     `yaml:"custody"`
	Events      EventsConfig      `yaml:"events"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	SecretKey       string        `yaml:"secret_key"`
	SessionMaxAge   time.Duration `yaml:"session_max_age"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	SecureCookies   bool          `yaml:"secure_cookies"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type UploadConfig struct {
	StagingDir        string   `yaml:"staging_dir"`
	PublicDir         string   `yaml:"public_dir"`
	MaxSize           int64    `yaml:"max_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type SightengineConfig struct {
	APIUser   string `yaml:"api_user"`
	APISecret string `yaml:"api_secret"`
	Endpoint  string `yaml:"endpoint"`
	Models    string `yaml:"models"`
}

type VisionConfig struct {
	APIKey             string `yaml:"api_key"`
	ServiceAccountJSON string `yaml:"service_account_json"`
	CredentialsFile    string `yaml:"credentials_file"`
}

type GeminiConfig struct {
	ProjectID       string `yaml:"project_id"`
	Region          string `yaml:"region"`
	Model           string `yaml:"model"`
	CredentialsFile string `yaml:"credentials_file"`
}

type ReportConfig struct {
	OutputDir   string `yaml:"output_dir"`
	FontPath    string `yaml:"font_path"`
	Platform    string `yaml:"platform"`
	ReleaseDate string `yaml:"release_date"`
}

type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

type CustodyConfig struct {
	Backend    string `yaml:"backend"`
	ProjectID  string `yaml:"project_id"`
	Collection string `yaml:"collection"`
}

type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			SecretKey:       "dev-secret-key",
			SessionMaxAge:   24 * time.Hour,
			SweepInterval:   15 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Upload: UploadConfig{
			StagingDir:        "./tmp",
			PublicDir:         "./uploads",
			MaxSize:           5 * 1024 * 1024,
			AllowedExtensions: []string{"txt", "png", "jpg", "jpeg"},
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: "./ansimtalk.db",
			Host: "localhost",
			Port: 5432,
			User: "ansimtalk",
			Name: "ansimtalk",
		},
		Sightengine: SightengineConfig{
			Endpoint: "https://api.sightengine.com/1.0/check.json",
			Models:   "deepfake,offensive,nudity,wad",
		},
		Gemini: GeminiConfig{
			Region: "asia-northeast3",
			Model:  "gemini-1.5-flash",
		},
		Report: ReportConfig{
			OutputDir:   "./tmp/reports",
			Platform:    "안심톡 AI 포렌식 분석 시스템 v1.0",
			ReleaseDate: "2025-07-18",
		},
		Archive: ArchiveConfig{
			Prefix: "evidence",
		},
		Custody: CustodyConfig{
			Backend:    "sql",
			Collection: "custody_events",
		},
		Events: EventsConfig{
			Topic: "ansimtalk.analysis",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load layers defaults, the optional YAML file at path and environment
// overrides, in that order. A .env file in the working directory is read
// into the environment first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.SecretKey, "SECRET_KEY")
	setString(&c.Upload.StagingDir, "UPLOAD_DIR")
	setString(&c.Upload.PublicDir, "PUBLIC_UPLOAD_DIR")
	if err := setInt64(&c.Upload.MaxSize, "MAX_UPLOAD_SIZE"); err != nil {
		return err
	}
	if err := setBool(&c.Server.SecureCookies, "SECURE_COOKIES"); err != nil {
		return err
	}

	setString(&c.Database.Type, "DB_TYPE")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	if v, ok := os.LookupEnv("DB_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT: %w", err)
		}
		c.Database.Port = port
	}

	setString(&c.Sightengine.APIUser, "SIGHTENGINE_API_USER")
	setString(&c.Sightengine.APISecret, "SIGHTENGINE_API_SECRET")

	setString(&c.Vision.APIKey, "GOOGLE_VISION_API_KEY")
	setString(&c.Vision.ServiceAccountJSON, "GOOGLE_SERVICE_ACCOUNT_JSON")
	setString(&c.Vision.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")

	setString(&c.Gemini.ProjectID, "GCP_PROJECT_ID")
	setString(&c.Gemini.Region, "VERTEX_AI_REGION")
	setString(&c.Gemini.Model, "GEMINI_MODEL")
	setString(&c.Gemini.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")

	setString(&c.Report.OutputDir, "REPORT_DIR")
	setString(&c.Report.FontPath, "REPORT_FONT_PATH")

	setString(&c.Archive.Bucket, "EVIDENCE_BUCKET")

	setString(&c.Custody.Backend, "CUSTODY_BACKEND")
	setString(&c.Custody.Collection, "FIRESTORE_COLLECTION")
	setString(&c.Custody.ProjectID, "GCP_PROJECT_ID")

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok && v != "" {
		c.Events.Brokers = splitList(v)
	}
	setString(&c.Events.Topic, "KAFKA_TOPIC")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	return nil
}

func (c *Config) Validate() error {
	if c.Upload.MaxSize <= 0 {
		return fmt.Errorf("upload max size must be positive, got %d", c.Upload.MaxSize)
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return errors.New("at least one allowed upload extension is required")
	}
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	switch c.Custody.Backend {
	case "sql", "firestore":
	default:
		return fmt.Errorf("unsupported custody backend: %s", c.Custody.Backend)
	}
	if c.Custody.Backend == "firestore" && c.Custody.ProjectID == "" {
		return errors.New("firestore custody backend requires a project id")
	}
	if c.Server.SecretKey == "" {
		return errors.New("secret key must not be empty")
	}
	return nil
}

// SightengineEnabled reports whether deepfake detection credentials are present.
func (c *Config) SightengineEnabled() bool {
	return c.Sightengine.APIUser != "" && c.Sightengine.APISecret != ""
}

func (c *Config) VisionEnabled() bool {
	return c.Vision.APIKey != "" || c.Vision.ServiceAccountJSON != "" || c.Vision.CredentialsFile != ""
}

func (c *Config) GeminiEnabled() bool {
	return c.Gemini.ProjectID != "" && c.Gemini.Region != ""
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
