package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Gallery   GalleryConfig
	Match     MatchConfig
	Enroll    EnrollConfig
	Analyzer  AnalyzerConfig
	Recognize RecognizeConfig
	Web       WebConfig
	Models    ModelsConfig
}

type GalleryConfig struct {
	CatalogPath string // defaults to people_list.json
	ImageDir    string // defaults to people_database
}

type MatchConfig struct {
	Threshold float64 // max cosine distance for a match, defaults to 0.4
}

type EnrollConfig struct {
	MaxNameAttempts int // filename collision bound, defaults to 10000
}

type AnalyzerConfig struct {
	URL       string        // DeepFace API, defaults to http://localhost:5005
	Model     string        // defaults to VGG-Face
	Detector  string        // detector backend, defaults to opencv
	Timeout   time.Duration // per request, defaults to 60s
	RateLimit float64       // requests per second, 0 means unlimited
	Dimension int           // expected embedding length, 0 means take it from models.yaml
}

type RecognizeConfig struct {
	Concurrency int // faces embedded in parallel per frame, defaults to 4
}

type WebConfig struct {
	Host           string
	Port           int // defaults to 5001
	APIToken       string
	AllowedOrigins []string
}

type ModelsConfig struct {
	Models map[string]ModelInfo `yaml:"models"`
}

type ModelInfo struct {
	Dimension int     `yaml:"dimension"`
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

// envFloat reads an environment variable as a non-negative float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a time.Duration ("90s", "2m").
// A bare number is taken as seconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	return &Config{
		Gallery: GalleryConfig{
			CatalogPath: envString("GALLERY_CATALOG_PATH", "people_list.json"),
			ImageDir:    envString("GALLERY_IMAGE_DIR", "people_database"),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", 0.4),
		},
		Enroll: EnrollConfig{
			MaxNameAttempts: envInt("ENROLL_MAX_NAME_ATTEMPTS", 10000),
		},
		Analyzer: AnalyzerConfig{
			URL:       envString("ANALYZER_URL", "http://localhost:5005"),
			Model:     envString("ANALYZER_MODEL", "VGG-Face"),
			Detector:  envString("ANALYZER_DETECTOR", "opencv"),
			Timeout:   envDuration("ANALYZER_TIMEOUT", 60*time.Second),
			RateLimit: envFloat("ANALYZER_RATE_LIMIT", 0),
			Dimension: envInt("ANALYZER_EXPECTED_DIM", 0),
		},
		Recognize: RecognizeConfig{
			Concurrency: envInt("RECOGNIZE_CONCURRENCY", 4),
		},
		Web: WebConfig{
			Host:           os.Getenv("WEB_HOST"),
			Port:           envInt("WEB_PORT", 5001),
			APIToken:       os.Getenv("WEB_API_TOKEN"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Models: models,
	}
}

// Validate checks values that would make the service misbehave rather
// than fall back to a default.
func (c *Config) Validate() error {
	if c.Match.Threshold <= 0 || c.Match.Threshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be in (0, 1], got %v", c.Match.Threshold)
	}
	if c.Gallery.CatalogPath == "" {
		return fmt.Errorf("GALLERY_CATALOG_PATH must not be empty")
	}
	if c.Gallery.ImageDir == "" {
		return fmt.Errorf("GALLERY_IMAGE_DIR must not be empty")
	}
	if c.Analyzer.URL == "" {
		return fmt.Errorf("ANALYZER_URL must not be empty")
	}
	return nil
}

// GetModelInfo returns the known dimension and threshold for a model.
// The second return value is false for models missing from the table.
func (c *Config) GetModelInfo(modelName string) (ModelInfo, bool) {
	info, ok := c.Models.Models[modelName]
	return info, ok
}

// ExpectedDimension returns the embedding length of the configured model,
// or 0 when it is unknown and should not be checked. ANALYZER_EXPECTED_DIM
// overrides the table for older DeepFace releases (VGG-Face used to be 2622).
func (c *Config) ExpectedDimension() int {
	if c.Analyzer.Dimension > 0 {
		return c.Analyzer.Dimension
	}
	info, _ := c.GetModelInfo(c.Analyzer.Model)
	return info.Dimension
}
