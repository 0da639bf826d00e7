// Package config provides XML-based configuration management for the log viewer backend.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"LogView"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Log entries engine settings
	Logs LogsConfig `xml:"Logs"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig selects and tunes the document store
type StorageConfig struct {
	// Backend is "duckdb" or "memory".
	Backend            string `xml:"Backend"`
	DataDirectory      string `xml:"DataDirectory"`
	DatabaseFile       string `xml:"DatabaseFile"`
	DuckDBThreads      int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit  string `xml:"DuckDBMemoryLimit"`
	MaxConcurrentReads int    `xml:"MaxConcurrentReads"`
}

// LogsConfig contains log entries engine settings
type LogsConfig struct {
	PageSize                int    `xml:"PageSize"`
	SummaryTopEntryKeys     int    `xml:"SummaryTopEntryKeys"`
	MaxConcurrentHighlights int    `xml:"MaxConcurrentHighlights"`
	MaxSummaryBuckets       int    `xml:"MaxSummaryBuckets"`
	SourcesFile             string `xml:"SourcesFile"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	LogFormat            string `xml:"LogFormat"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "512M",
		},
		Storage: StorageConfig{
			Backend:            "duckdb",
			DataDirectory:      "./data",
			DatabaseFile:       "logs.duckdb",
			DuckDBThreads:      4,
			DuckDBMemoryLimit:  "1GB",
			MaxConcurrentReads: 3,
		},
		Logs: LogsConfig{
			PageSize:                200,
			SummaryTopEntryKeys:     1,
			MaxConcurrentHighlights: 8,
			MaxSummaryBuckets:       10000,
			SourcesFile:             "",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogFormat:            "console",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- LogView Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
	if sources := os.Getenv("SOURCES_FILE"); sources != "" {
		c.Logs.SourcesFile = sources
	}
	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if c.Logs.SourcesFile != "" && !filepath.IsAbs(c.Logs.SourcesFile) {
		c.Logs.SourcesFile = filepath.Join(configDir, c.Logs.SourcesFile)
	}
}

// GetDatabasePath returns the DuckDB file path
func (c *AppConfig) GetDatabasePath() string {
	if filepath.IsAbs(c.Storage.DatabaseFile) {
		return c.Storage.DatabaseFile
	}
	return filepath.Join(c.Storage.DataDirectory, c.Storage.DatabaseFile)
}

// GetUploadDir returns the directory holding uploaded log files
func (c *AppConfig) GetUploadDir() string {
	return filepath.Join(c.Storage.DataDirectory, "uploads")
}

// GetImportDir returns the directory server-side ingest paths are confined to
func (c *AppConfig) GetImportDir() string {
	return filepath.Join(c.Storage.DataDirectory, "import")
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// Validate checks values the server cannot start without
func (c *AppConfig) Validate() error {
	switch c.Storage.Backend {
	case "duckdb", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Logs.PageSize < 0 {
		return fmt.Errorf("page size must not be negative")
	}
	if c.Logs.MaxConcurrentHighlights < 0 {
		return fmt.Errorf("max concurrent highlights must not be negative")
	}
	if c.Logs.MaxSummaryBuckets < 0 {
		return fmt.Errorf("max summary buckets must not be negative")
	}
	return nil
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.DataDirectory, c.GetUploadDir(), c.GetImportDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
