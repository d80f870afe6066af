// Package config loads terminal configuration from a YAML file with
// environment overrides. Precedence: explicit env var > YAML file >
// default.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written in
// time.ParseDuration syntax ("30m", "72h").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// EntityNames maps this core's logical entities to the remote store's
// table names. Defaults match the production backend.
type EntityNames struct {
	Products     string `yaml:"products"`
	Tables       string `yaml:"tables"`
	Invoices     string `yaml:"invoices"`
	InvoiceLines string `yaml:"invoice_lines"`
}

// RemoteConfig is the remote entity store endpoint.
type RemoteConfig struct {
	BaseURL    string            `yaml:"base_url"`
	APIKey     string            `yaml:"api_key"`
	Timeout    Duration          `yaml:"timeout"`
	Entities   EntityNames       `yaml:"entities"`
	Properties map[string]string `yaml:"properties"`
}

// Config is the full terminal configuration.
type Config struct {
	DatabasePath   string        `yaml:"database_path"`
	ShopName       string        `yaml:"shop_name"`
	TakeawayTable  string        `yaml:"takeaway_table"`
	CacheTTL       Duration     `yaml:"cache_ttl"`
	QueueRetention Duration     `yaml:"queue_retention"`
	Remote         RemoteConfig `yaml:"remote"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DatabasePath:   "poscore.db",
		TakeawayTable:  "Khách mua về",
		CacheTTL:       Duration(time.Hour),
		QueueRetention: Duration(7 * 24 * time.Hour),
		Remote: RemoteConfig{
			Timeout: Duration(30 * time.Second),
			Entities: EntityNames{
				Products:     "SANPHAM",
				Tables:       "DSBAN",
				Invoices:     "HOADON",
				InvoiceLines: "HOADONDETAIL",
			},
			Properties: map[string]string{
				"Locale":   "vi-VN",
				"Timezone": "Asia/Ho_Chi_Minh",
			},
		},
	}
}

// Load reads configuration from a YAML file, then applies environment
// overrides. An empty path skips the file and uses defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.DatabasePath = getEnv("POSCORE_DB", cfg.DatabasePath)
	cfg.Remote.BaseURL = getEnv("POSCORE_REMOTE_URL", cfg.Remote.BaseURL)
	cfg.Remote.APIKey = getEnv("POSCORE_API_KEY", cfg.Remote.APIKey)
	cfg.TakeawayTable = getEnv("POSCORE_TAKEAWAY_TABLE", cfg.TakeawayTable)

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = Duration(time.Hour)
	}
	if cfg.QueueRetention <= 0 {
		cfg.QueueRetention = Duration(7 * 24 * time.Hour)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
