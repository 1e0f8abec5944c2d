package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	OCR         OCR         `mapstructure:"ocr"`
	Fetcher     Fetcher     `mapstructure:"fetcher"`
	Index       Index       `mapstructure:"index"`
	Storage     Storage     `mapstructure:"storage"`
	ViewerCache ViewerCache `mapstructure:"viewer_cache"`
	Office      Office      `mapstructure:"office"`
	Search      Search      `mapstructure:"search"`
	HTTP        HTTP        `mapstructure:"http"`
	MCP         MCP         `mapstructure:"mcp"`
	AutoDetect  AutoDetect  `mapstructure:"autodetect"`
	Log         Log         `mapstructure:"log"`
}

// OCR holds the OCR backend configuration.
type OCR struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
	IncludeImages     bool          `mapstructure:"include_images"`
}

// Fetcher holds resource download configuration.
type Fetcher struct {
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// CookieFile is a Netscape cookies.txt used for credentialed requests.
	CookieFile string `mapstructure:"cookie_file"`
	// Headers are sent on credentialed requests only.
	Headers  map[string]string `mapstructure:"headers"`
	MaxBytes int64             `mapstructure:"max_bytes"`
}

// Index holds the content-addressed index location.
type Index struct {
	Path string `mapstructure:"path"`
}

// Storage holds artifact storage configuration.
type Storage struct {
	Driver          string `mapstructure:"driver"` // "fs" or "s3"
	Root            string `mapstructure:"root"`
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// ViewerCache bounds the per-page cache of observed document responses.
type ViewerCache struct {
	MaxEntries int64         `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// Office holds office-suite export configuration.
type Office struct {
	BrowserFallback bool          `mapstructure:"browser_fallback"`
	ExportTimeout   time.Duration `mapstructure:"export_timeout"`
	// BrowserProfile is a Chrome user data dir holding the signed-in session.
	BrowserProfile string `mapstructure:"browser_profile"`
}

// Search holds the optional transcript search index configuration.
type Search struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// HTTP holds the command API listener configuration.
type HTTP struct {
	Addr string `mapstructure:"addr"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// AutoDetect holds navigation detection configuration.
type AutoDetect struct {
	QueueSize int `mapstructure:"queue_size"`
}

// Log holds logging configuration.
type Log struct {
	Format string `mapstructure:"format"` // "text" or "json"
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		OCR: OCR{
			BaseURL:           "https://api.mistral.ai/v1",
			Model:             "mistral-ocr-latest",
			RequestsPerSecond: 1,
			Timeout:           5 * time.Minute,
			IncludeImages:     true,
		},
		Fetcher: Fetcher{
			UserAgent: "pageocr/1.0",
			Timeout:   60 * time.Second,
			MaxBytes:  200 << 20,
		},
		Index: Index{
			Path: "./data/index",
		},
		Storage: Storage{
			Driver: "fs",
			Root:   "Mistral-OCR",
			Bucket: "pageocr",
		},
		ViewerCache: ViewerCache{
			MaxEntries: 256,
			TTL:        30 * time.Minute,
		},
		Office: Office{
			BrowserFallback: false, // requires a local Chrome
			ExportTimeout:   15 * time.Second,
		},
		Search: Search{
			Enabled:   false,
			Addresses: []string{"http://localhost:9200"},
			Index:     "pageocr-transcripts",
		},
		HTTP: HTTP{
			Addr: "127.0.0.1:8765",
		},
		MCP: MCP{
			Name:    "pageocr",
			Version: "1.0.0",
		},
		AutoDetect: AutoDetect{
			QueueSize: 64,
		},
		Log: Log{
			Format: "text",
		},
	}
}

// LoadDotEnv loads a .env file from the working directory or the nearest parent
// that has one. Variables already set in the environment win.
func LoadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
