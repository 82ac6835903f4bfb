package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

const (
	DefaultModel     = "VGG-Face"
	DefaultDetector  = "opencv"
	DefaultThreshold = 0.40

	EnrollmentBackendFile     = "file"
	EnrollmentBackendPostgres = "postgres"
)

type Config struct {
	Database    DatabaseConfig
	Embedding   EmbeddingConfig
	Recognition RecognitionConfig
	Enrollment  EnrollmentConfig
	School      SchoolConfig
	Web         WebConfig
	Models      ModelsConfig
}

type DatabaseConfig struct {
	URL          string // postgres://... or sqlite://path/to/file.db
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// Driver returns the database/sql driver name implied by the URL scheme.
func (c *DatabaseConfig) Driver() string {
	if strings.HasPrefix(c.URL, "sqlite:") {
		return "sqlite"
	}
	return "postgres"
}

// SQLitePath returns the file path part of a sqlite:// URL.
func (c *DatabaseConfig) SQLitePath() string {
	path := strings.TrimPrefix(c.URL, "sqlite:")
	return strings.TrimPrefix(path, "//")
}

type EmbeddingConfig struct {
	URL            string // defaults to http://localhost:8000
	Model          string // face model name sent to the embedding server
	Detector       string // detector backend (opencv, retinaface, mtcnn, ...)
	EnforceFaces   bool   // strict mode: frames without a face are an error
	RequestTimeout time.Duration
}

type RecognitionConfig struct {
	Threshold float64 // minimum cosine similarity for a match
}

type EnrollmentConfig struct {
	Backend string // file or postgres
	Dir     string // directory with per-student embedding blobs (file backend)
}

type SchoolConfig struct {
	Location *time.Location // "today" for attendance sessions is computed here
}

type WebConfig struct {
	Port           int
	Host           string
	SessionSecret  string
	AllowedOrigins []string // CORS origins besides localhost
}

type ModelsConfig struct {
	Models map[string]ModelPreset `yaml:"models"`
}

type ModelPreset struct {
	Dim       int     `yaml:"dim"`
	Threshold float64 `yaml:"threshold"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float64.
// Returns the default value if the env var is unset or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	var items []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func envLocation(key string) *time.Location {
	name := os.Getenv(key)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL:            os.Getenv("EMBEDDING_URL"),
			Model:          envString("FACE_MODEL", DefaultModel),
			Detector:       envString("FACE_DETECTOR", DefaultDetector),
			EnforceFaces:   envBool("FACE_ENFORCE_DETECTION", false),
			RequestTimeout: time.Duration(envInt("EMBEDDING_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Enrollment: EnrollmentConfig{
			Backend: envString("ENROLLMENT_BACKEND", EnrollmentBackendFile),
			Dir:     envString("ENROLLMENT_DIR", "encodings"),
		},
		School: SchoolConfig{
			Location: envLocation("SCHOOL_TIMEZONE"),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8080),
			Host:           envString("WEB_HOST", "0.0.0.0"),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Models: models,
	}

	// The preset threshold applies unless MATCH_THRESHOLD overrides it.
	cfg.Recognition.Threshold = envFloat("MATCH_THRESHOLD", cfg.ModelPreset(cfg.Embedding.Model).Threshold)

	return cfg
}

// ModelPreset returns the preset for a face model, falling back to VGG-Face defaults.
func (c *Config) ModelPreset(name string) ModelPreset {
	if preset, ok := c.Models.Models[name]; ok {
		return preset
	}
	return ModelPreset{Dim: 2622, Threshold: DefaultThreshold}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Recognition.Threshold < -1 || c.Recognition.Threshold > 1 {
		return fmt.Errorf("match threshold must be between -1 and 1, got %v", c.Recognition.Threshold)
	}
	switch c.Enrollment.Backend {
	case EnrollmentBackendFile:
		if c.Enrollment.Dir == "" {
			return errors.New("ENROLLMENT_DIR is required for the file enrollment backend")
		}
	case EnrollmentBackendPostgres:
		if c.Database.Driver() != "postgres" {
			return errors.New("postgres enrollment backend requires a postgres DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown enrollment backend %q", c.Enrollment.Backend)
	}
	return nil
}
