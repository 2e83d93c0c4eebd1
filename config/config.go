// Package config loads volblog settings from an ini file with environment
// variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-ini/ini"
	"github.com/spf13/viper"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "data/conf.ini"

const EnvPrefix = "VOLBLOG"

const (
	KeyServerPort      = "System.Port"
	KeyServerDebug     = "System.Debug"
	KeyTemplateDir     = "System.TemplateDir"
	KeyDBURL           = "Database.URL"
	KeyDBMaxConns      = "Database.MaxConns"
	KeyRedisAddr       = "Redis.Addr"
	KeyRedisPassword   = "Redis.Password"
	KeyRedisDB         = "Redis.DB"
	KeyMailHost        = "Mail.Host"
	KeyMailPort        = "Mail.Port"
	KeyMailUsername    = "Mail.Username"
	KeyMailPassword    = "Mail.Password"
	KeyMailFrom        = "Mail.From"
	KeyMailForceSSL    = "Mail.ForceSSL"
	KeySiteBaseURL     = "Site.BaseURL"
	KeySiteTitle       = "Site.Title"
	KeySiteDescription = "Site.Description"
	KeySiteTimeZone    = "Site.TimeZone"
	KeySessionLifetime = "Session.Lifetime"
	KeyRateLimitPerMin = "RateLimit.PerMinute"
	KeyRateLimitBurst  = "RateLimit.Burst"
)

var allKeys = []string{
	KeyServerPort, KeyServerDebug, KeyTemplateDir,
	KeyDBURL, KeyDBMaxConns,
	KeyRedisAddr, KeyRedisPassword, KeyRedisDB,
	KeyMailHost, KeyMailPort, KeyMailUsername, KeyMailPassword, KeyMailFrom, KeyMailForceSSL,
	KeySiteBaseURL, KeySiteTitle, KeySiteDescription, KeySiteTimeZone,
	KeySessionLifetime,
	KeyRateLimitPerMin, KeyRateLimitBurst,
}

var defaults = map[string]any{
	KeyServerPort:      8080,
	KeyServerDebug:     false,
	KeyDBMaxConns:      10,
	KeyRedisDB:         0,
	KeyMailPort:        587,
	KeyMailFrom:        "webmaster@localhost",
	KeySiteTitle:       "My Blog",
	KeySiteDescription: "This is my blog.",
	KeySiteTimeZone:    "UTC",
	KeySessionLifetime: "336h",
	KeyRateLimitPerMin: 10,
	KeyRateLimitBurst:  5,
}

const defaultConfig = `[System]
Port = 8080
Debug = false
; directory to load templates from instead of the embedded copy (debug only)
TemplateDir =

; leave URL empty to run on the in-memory store
[Database]
URL =
MaxConns = 10

; leave Addr empty to cache the feed in memory
[Redis]
Addr =
Password =
DB = 0

; leave Host empty to log outgoing mail instead of sending it
[Mail]
Host =
Port = 587
Username =
Password =
From = webmaster@localhost
ForceSSL = false

[Site]
BaseURL =
Title = My Blog
Description = This is my blog.
TimeZone = UTC

[Session]
Lifetime = 336h

[RateLimit]
PerMinute = 10
Burst = 5
`

type Config struct {
	vp *viper.Viper
}

// NewConfig reads filePath, creating it with defaults when it does not
// exist, then applies VOLBLOG_<SECTION>_<KEY> environment overrides.
func NewConfig(filePath string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if filePath == "" {
		filePath = DefaultPath
	}
	vp := viper.New()
	for k, v := range defaults {
		vp.SetDefault(k, v)
	}

	iniCfg, err := ini.Load(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("parse config file %q: %w", filePath, err)
		}
		logger.Info("config file not found, creating default", slog.String("path", filePath))
		if err := createDefaultConfigFile(filePath); err != nil {
			logger.Warn("could not create default config, using environment and built-in defaults",
				slog.Any("error", err))
		} else if iniCfg, err = ini.Load(filePath); err != nil {
			logger.Warn("reload default config", slog.Any("error", err))
		}
	}

	if iniCfg != nil {
		for _, section := range iniCfg.Sections() {
			for _, key := range section.Keys() {
				viperKey := section.Name() + "." + key.Name()
				if section.Name() == ini.DefaultSection {
					viperKey = key.Name()
				}
				vp.Set(viperKey, key.Value())
			}
		}
		logger.Debug("config file loaded", slog.String("path", filePath))
	}

	envReplacer := strings.NewReplacer(".", "_")
	for _, key := range allKeys {
		envVarName := EnvPrefix + "_" + envReplacer.Replace(strings.ToUpper(key))
		if value, found := os.LookupEnv(envVarName); found {
			vp.Set(key, value)
			logger.Debug("config overridden from environment",
				slog.String("env", envVarName), slog.String("key", key))
		}
	}

	return &Config{vp: vp}, nil
}

func (c *Config) GetString(key string) string {
	return strings.TrimSpace(c.vp.GetString(key))
}

func (c *Config) GetInt(key string) int {
	return c.vp.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	return c.vp.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	return c.vp.GetDuration(key)
}

// Location resolves Site.TimeZone, the zone post dates are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	name := c.GetString(KeySiteTimeZone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", KeySiteTimeZone, name, err)
	}
	return loc, nil
}

func createDefaultConfigFile(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
