package common

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "NEWSDIGEST_CONFIG"

// Config holds all application configuration
type Config struct {
	Discover DiscoverConfig `yaml:"discover"`
	Render   RenderConfig   `yaml:"render"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
}

// DiscoverConfig holds archive discovery configuration
type DiscoverConfig struct {
	ArchiveURL   string        `yaml:"archiveUrl"`
	FeedURL      string        `yaml:"feedUrl"`
	LinkSelector string        `yaml:"linkSelector"`
	MoreSelector string        `yaml:"moreSelector"`
	ClickPause   time.Duration `yaml:"clickPause"`
}

// RenderConfig holds page-to-PDF rendering configuration
type RenderConfig struct {
	RequestPause time.Duration `yaml:"requestPause"`
	NavTimeout   time.Duration `yaml:"navTimeout"`
}

// OCRConfig holds text-extraction configuration
type OCRConfig struct {
	Pdftoppm            string  `yaml:"pdftoppm"`
	Tesseract           string  `yaml:"tesseract"`
	TesseractLang       string  `yaml:"tesseractLang"`
	UpscaleFactor       float64 `yaml:"upscaleFactor"`
	DirectTextThreshold int     `yaml:"directTextThreshold"`
}

// LLMConfig holds summarization API configuration
type LLMConfig struct {
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"maxTokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LoadConfig reads the optional YAML config file pointed at by
// NEWSDIGEST_CONFIG, then applies environment overrides on top of defaults.
func LoadConfig() *Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			// Unmarshal over the defaults; absent keys keep default values.
			_ = yaml.Unmarshal(raw, cfg)
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Discover: DiscoverConfig{
			ArchiveURL:   "https://www.morningbrew.com/daily/issues",
			LinkSelector: "a[href*='/daily/issues/']",
			MoreSelector: "button",
			ClickPause:   2 * time.Second,
		},
		Render: RenderConfig{
			RequestPause: 2 * time.Second,
			NavTimeout:   45 * time.Second,
		},
		OCR: OCRConfig{
			Pdftoppm:            "pdftoppm",
			Tesseract:           "tesseract",
			TesseractLang:       "eng",
			UpscaleFactor:       2.0,
			DirectTextThreshold: 100,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   1200,
			Timeout:     60 * time.Second,
		},
	}
}

func (c *Config) applyEnvOverrides() {
	c.Discover.ArchiveURL = getEnv("ARCHIVE_URL", c.Discover.ArchiveURL)
	c.Discover.FeedURL = getEnv("ARCHIVE_FEED_URL", c.Discover.FeedURL)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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
