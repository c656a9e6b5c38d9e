package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"mcptoolbox/internal/log"
	"mcptoolbox/internal/util"
)

const (
	MCP_NAME              = "MCP_NAME"
	MCP_VERSION           = "MCP_VERSION"
	TRANSPORT             = "TRANSPORT"
	HOST                  = "HOST"
	PORT                  = "PORT"
	METRICS_PORT          = "METRICS_PORT"
	IS_DEV                = "IS_DEV"
	LOG_LEVEL             = "LOG_LEVEL"
	TOOLSETS              = "TOOLSETS"
	AUTH_MODE             = "AUTH_MODE"
	MCP_API_KEYS          = "MCP_API_KEYS"
	SUPABASE_JWT_SECRET   = "SUPABASE_JWT_SECRET"
	SUPABASE_JWT_AUDIENCE = "SUPABASE_JWT_AUDIENCE"
	REDIS_URL             = "REDIS_URL"
	STORE_KEY_PREFIX      = "STORE_KEY_PREFIX"
	RATE_LIMIT_RPS        = "RATE_LIMIT_RPS"
	RATE_LIMIT_BURST      = "RATE_LIMIT_BURST"
	TRUSTED_PROXIES       = "TRUSTED_PROXIES"
	PDF_MAX_BYTES         = "PDF_MAX_BYTES"
	AUDIT_CACHE_TTL       = "AUDIT_CACHE_TTL"
	HTTP_FETCH_TIMEOUT    = "HTTP_FETCH_TIMEOUT"
	AUDIT_ALLOW_PRIVATE   = "AUDIT_ALLOW_PRIVATE"
)

const (
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"
	TransportStdio          = "stdio"

	AuthNone     = "none"
	AuthAPIKey   = "api_key"
	AuthSupabase = "supabase"

	ToolsetSEO     = "seo"
	ToolsetPDF     = "pdf"
	ToolsetTables  = "tables"
	ToolsetBugs    = "bugs"
	ToolsetExample = "example"
)

var allToolsets = []string{ToolsetSEO, ToolsetPDF, ToolsetTables, ToolsetBugs, ToolsetExample}

type Config struct {
	MCPName             string        `mapstructure:"MCP_NAME"`
	MCPVersion          string        `mapstructure:"MCP_VERSION"`
	Transport           string        `mapstructure:"TRANSPORT"`
	Host                string        `mapstructure:"HOST"`
	Port                int           `mapstructure:"PORT"`
	MetricsPort         int           `mapstructure:"METRICS_PORT"`
	IsDev               bool          `mapstructure:"IS_DEV"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	Toolsets            string        `mapstructure:"TOOLSETS"`
	AuthMode            string        `mapstructure:"AUTH_MODE"`
	APIKeys             string        `mapstructure:"MCP_API_KEYS"`
	SupabaseJWTSecret   string        `mapstructure:"SUPABASE_JWT_SECRET"`
	SupabaseJWTAudience string        `mapstructure:"SUPABASE_JWT_AUDIENCE"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	StoreKeyPrefix      string        `mapstructure:"STORE_KEY_PREFIX"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	TrustedProxies      string        `mapstructure:"TRUSTED_PROXIES"`
	PDFMaxBytes         int           `mapstructure:"PDF_MAX_BYTES"`
	AuditCacheTTL       time.Duration `mapstructure:"AUDIT_CACHE_TTL"`
	HTTPFetchTimeout    time.Duration `mapstructure:"HTTP_FETCH_TIMEOUT"`
	AuditAllowPrivate   bool          `mapstructure:"AUDIT_ALLOW_PRIVATE"`
}

var AppConfig *Config

// v is kept so WatchLogLevel can observe the env file that was loaded.
var (
	v          *viper.Viper
	fileLoaded bool
)

// LoadEnv loads .env and the environment into AppConfig and exits on invalid config.
func LoadEnv() {
	cfg, err := Load(".env")
	if err != nil {
		log.Logger.Fatal("Failed to load config", zap.Error(err))
	}
	AppConfig = cfg
}

// Load reads the optional env file at path, then the process environment.
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	nv := viper.New()

	nv.SetConfigFile(path)
	nv.SetConfigType("env")

	loaded := true
	if err := nv.ReadInConfig(); err != nil {
		loaded = false
		log.Logger.Debug("env file not loaded", zap.String("path", path), zap.Error(err))
	}

	nv.AutomaticEnv()

	nv.SetDefault(MCP_NAME, "mcptoolbox")
	nv.SetDefault(MCP_VERSION, "1.0.0")
	nv.SetDefault(TRANSPORT, TransportStreamableHTTP)
	nv.SetDefault(HOST, "0.0.0.0")
	nv.SetDefault(PORT, 8000)
	nv.SetDefault(METRICS_PORT, 8081)
	nv.SetDefault(IS_DEV, false)
	nv.SetDefault(LOG_LEVEL, "INFO")
	nv.SetDefault(TOOLSETS, strings.Join(allToolsets, ","))
	nv.SetDefault(AUTH_MODE, AuthNone)
	nv.SetDefault(MCP_API_KEYS, "")
	nv.SetDefault(SUPABASE_JWT_SECRET, "")
	nv.SetDefault(SUPABASE_JWT_AUDIENCE, "authenticated")
	nv.SetDefault(REDIS_URL, "")
	nv.SetDefault(STORE_KEY_PREFIX, "mcptoolbox:")
	nv.SetDefault(RATE_LIMIT_RPS, 5)
	nv.SetDefault(RATE_LIMIT_BURST, 10)
	nv.SetDefault(TRUSTED_PROXIES, "")
	nv.SetDefault(PDF_MAX_BYTES, 20*1024*1024)
	nv.SetDefault(AUDIT_CACHE_TTL, time.Hour)
	nv.SetDefault(HTTP_FETCH_TIMEOUT, 30*time.Second)
	nv.SetDefault(AUDIT_ALLOW_PRIVATE, false)

	var cfg Config
	if err := nv.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	v, fileLoaded = nv, loaded
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportStreamableHTTP, TransportSSE, TransportStdio:
	default:
		return fmt.Errorf("unknown TRANSPORT %q", c.Transport)
	}

	switch c.AuthMode {
	case AuthNone:
	case AuthAPIKey:
		if len(c.APIKeyList()) == 0 {
			return errors.New("MCP_API_KEYS must be set when AUTH_MODE=api_key")
		}
	case AuthSupabase:
		if c.SupabaseJWTSecret == "" {
			return errors.New("SUPABASE_JWT_SECRET must be set when AUTH_MODE=supabase")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}

	if _, err := c.ToolsetList(); err != nil {
		return err
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid METRICS_PORT %d", c.MetricsPort)
	}
	if c.MetricsPort != 0 && c.MetricsPort == c.Port {
		return fmt.Errorf("METRICS_PORT must differ from PORT (%d)", c.Port)
	}
	if _, err := util.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	if c.PDFMaxBytes <= 0 {
		return fmt.Errorf("invalid PDF_MAX_BYTES %d", c.PDFMaxBytes)
	}
	return nil
}

// APIKeyList splits MCP_API_KEYS on commas, trimming and dropping empty entries.
func (c *Config) APIKeyList() []string {
	var keys []string
	for _, k := range strings.Split(c.APIKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// ToolsetList returns the enabled toolsets in declaration order.
func (c *Config) ToolsetList() ([]string, error) {
	enabled := make(map[string]bool)
	for _, name := range strings.Split(c.Toolsets, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		known := false
		for _, t := range allToolsets {
			if t == name {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown toolset %q", name)
		}
		enabled[name] = true
	}
	if len(enabled) == 0 {
		return nil, errors.New("TOOLSETS must enable at least one toolset")
	}

	var out []string
	for _, t := range allToolsets {
		if enabled[t] {
			out = append(out, t)
		}
	}
	return out, nil
}

// TrustedProxyList returns the parsed TRUSTED_PROXIES. Invalid entries were
// rejected by Load, so an error here yields an empty list.
func (c *Config) TrustedProxyList() util.TrustedProxies {
	proxies, err := util.ParseTrustedProxies(c.TrustedProxies)
	if err != nil {
		return nil
	}
	return proxies
}

// MetricsEnabled reports whether the Prometheus listener should start.
func (c *Config) MetricsEnabled() bool {
	return c.MetricsPort > 0
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WatchLogLevel calls onChange with the new LOG_LEVEL whenever the loaded
// env file changes. It does nothing when no env file was read.
func WatchLogLevel(onChange func(level string)) {
	if v == nil || !fileLoaded {
		return
	}
	nv := v
	nv.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := nv.GetString(LOG_LEVEL)
		log.Logger.Info("config file changed", zap.String("file", e.Name), zap.String("log_level", level))
		onChange(level)
	})
	nv.WatchConfig()
}
