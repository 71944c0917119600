package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/coffeeshop/drinks/internal/logger"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	EnvProd = "production"
	EnvDev  = "development"
	EnvTest = "test"
)

// Store backends
const (
	StoreSQL   = "sql"
	StoreRedis = "redis"
)

// Config holds application configuration loaded from environment variables or config file.
type Config struct {
	AppEnv string `mapstructure:"app_env" default:"development" validate:"required,oneof=production development test"`
	Port   string `mapstructure:"port" default:"5000" validate:"required,numeric"`

	// Storage
	Store       string `mapstructure:"store" default:"sql" validate:"oneof=sql redis"`
	DatabaseURL string `secret:"true" mapstructure:"database_url" default:"drinks.db"`

	// Token verification
	Auth0Domain   string        `mapstructure:"auth0_domain" default:"dev-i20z2y54qtc46c2h.us.auth0.com" validate:"required_without=JWKSURL"`
	APIAudience   string        `mapstructure:"api_audience" default:"coffeeshop" validate:"required"`
	Algorithms    []string      `mapstructure:"algorithms" default:"[\"RS256\"]" validate:"min=1,dive,oneof=RS256 RS384 RS512 PS256 PS384 PS512"`
	JWKSURL       string        `mapstructure:"jwks_url" validate:"omitempty,url"`
	JWKSDiscovery bool          `mapstructure:"jwks_discovery"`
	JWKSTimeout   time.Duration `mapstructure:"jwks_timeout" default:"5s" validate:"gt=0"`
	JWKSCacheTTL  time.Duration `mapstructure:"jwks_cache_ttl" validate:"gte=0"`

	CORSAllowedOrigin string `mapstructure:"cors_allowed_origin" default:"*"`

	// Client credentials for `drinks util token`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `secret:"true" mapstructure:"client_secret"`

	// Logging
	LogLevel string `mapstructure:"log_level" default:"INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
}

// Load loads configuration from config file and environment variables using viper.
func Load() *Config {
	cfg := Config{}

	v := viper.New()
	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))

	if err := defaults.Set(&cfg); err != nil {
		panic("failed to set struct defaults: " + err.Error())
	}

	// Bind env vars for each field
	typeOfCfg := reflect.TypeOf(cfg)
	for i := 0; i < typeOfCfg.NumField(); i++ {
		field := typeOfCfg.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			key = toSnakeCase(field.Name)
		}
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logger.Error("Error reading config file", "error", err)
		}
		logger.Warn("No config file found, using environment variables")
	}

	if err := v.Unmarshal(&cfg); err != nil {
		logger.Warn("Could not unmarshal config", "error", err)
	}

	logger.Debug("Loaded config", "config", cfg.String())

	return &cfg
}

func Validate(cfg *Config) error {
	validate := validator.New()
	return validate.Struct(cfg)
}

// Issuer returns the expected token issuer, always with a trailing slash.
// A domain that already carries a scheme is used as is.
func (c *Config) Issuer() string {
	domain := strings.TrimSuffix(c.Auth0Domain, "/")
	if strings.HasPrefix(domain, "https://") || strings.HasPrefix(domain, "http://") {
		return domain + "/"
	}
	return "https://" + domain + "/"
}

// KeySetURL returns the configured JWKS URL or the well-known location under the issuer.
func (c *Config) KeySetURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return c.Issuer() + ".well-known/jwks.json"
}

// String returns a string representation of the config with secret fields redacted.
func (c *Config) String() string {
	v := reflect.ValueOf(*c)
	t := reflect.TypeOf(*c)
	var sb strings.Builder
	sb.WriteString("Config{")
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i).Interface()
		if field.Tag.Get("secret") == "true" {
			value = "***REDACTED***"
		}
		sb.WriteString(field.Name + ": " + toString(value))
		if i < t.NumField()-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return "[" + strings.Join(val, " ") + "]"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// toSnakeCase converts CamelCase to snake_case
func toSnakeCase(str string) string {
	runes := []rune(str)
	var out []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				out = append(out, '_')
			}
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}
