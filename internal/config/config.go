// Package config charge la configuration de démarrage: valeurs par défaut,
// puis fichier YAML optionnel, puis variables d'environnement AVS_*.
// Les réglages modifiables à chaud vivent en base (domain.Settings).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	CDN      CDNConfig      `yaml:"cdn"`
	Probe    ProbeConfig    `yaml:"probe"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type CatalogConfig struct {
	// Backend: "json" (fichier output.json) ou "sqlite" (table catalog_shows).
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	MirrorDir string `yaml:"mirror_dir"`
}

type CDNConfig struct {
	BaseURL    string `yaml:"base_url"`
	WrapperURL string `yaml:"wrapper_url"`
}

type ProbeConfig struct {
	// Target: "cdn" ou "wrapper".
	Target          string `yaml:"target"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	UserAgent       string `yaml:"user_agent"`
	HealthThreshold int    `yaml:"health_threshold"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func defaults() Config {
	return Config{
		Server:   ServerConfig{Addr: "127.0.0.1:8080"},
		Database: DatabaseConfig{Path: "avs.db"},
		Catalog:  CatalogConfig{Backend: BackendJSON, Path: "output.json"},
		CDN: CDNConfig{
			BaseURL:    "https://cdn-s01.mywallpaper-4k-image.net/stream",
			WrapperURL: "https://api.anivideo.net/videohls.php",
		},
		Probe: ProbeConfig{
			Target:          "cdn",
			TimeoutSeconds:  8,
			UserAgent:       "avs-sync",
			HealthThreshold: 5,
		},
		Log: LogConfig{Level: "info", MaxSizeMB: 20, MaxBackups: 3, MaxAgeDays: 28},
	}
}

// Default renvoie la configuration par défaut surchargée par l'environnement.
func Default() Config {
	c := defaults()
	c.applyEnv()
	return c
}

// Load lit le fichier YAML path (ou AVS_CONFIG si path est vide), puis
// applique l'environnement. Sans fichier, seuls défauts et env comptent.
func Load(path string) (Config, error) {
	c := defaults()
	if path == "" {
		path = os.Getenv("AVS_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = envOr("AVS_ADDR", c.Server.Addr)
	c.Database.Path = envOr("AVS_DB_PATH", c.Database.Path)
	c.Catalog.Backend = envOr("AVS_CATALOG_BACKEND", c.Catalog.Backend)
	c.Catalog.Path = envOr("AVS_CATALOG", c.Catalog.Path)
	c.Catalog.MirrorDir = envOr("AVS_CATALOG_MIRROR_DIR", c.Catalog.MirrorDir)
	c.CDN.BaseURL = envOr("AVS_CDN_BASE_URL", c.CDN.BaseURL)
	c.CDN.WrapperURL = envOr("AVS_CDN_WRAPPER_URL", c.CDN.WrapperURL)
	c.Probe.Target = envOr("AVS_PROBE_TARGET", c.Probe.Target)
	c.Probe.TimeoutSeconds = envInt("AVS_PROBE_TIMEOUT_SECONDS", c.Probe.TimeoutSeconds)
	c.Probe.UserAgent = envOr("AVS_PROBE_USER_AGENT", c.Probe.UserAgent)
	c.Log.Level = envOr("AVS_LOG_LEVEL", c.Log.Level)
	c.Log.File = envOr("AVS_LOG_FILE", c.Log.File)
}

func (c Config) Validate() error {
	var errs []error
	switch c.Catalog.Backend {
	case BackendJSON:
		if c.Catalog.Path == "" {
			errs = append(errs, errors.New("catalog.path is required for the json backend"))
		}
	case BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("catalog.backend: unknown backend %q", c.Catalog.Backend))
	}
	switch c.Probe.Target {
	case "cdn", "wrapper":
	default:
		errs = append(errs, fmt.Errorf("probe.target: want cdn or wrapper, got %q", c.Probe.Target))
	}
	if c.CDN.BaseURL == "" {
		errs = append(errs, errors.New("cdn.base_url is required"))
	}
	if c.Probe.Target == "wrapper" && c.CDN.WrapperURL == "" {
		errs = append(errs, errors.New("cdn.wrapper_url is required when probe.target is wrapper"))
	}
	if c.Probe.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("probe.timeout_seconds must be > 0"))
	}
	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
