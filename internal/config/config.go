package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath es la ubicación del config.yaml cuando CONFIG_PATH no está seteado.
const DefaultPath = "configs/config.yaml"

type Config struct {
	// Bloque app (opcional en YAML).
	App struct {
		// dev | staging | prod
		Env         string `yaml:"app_env"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr               string        `yaml:"addr"`
		CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
		ReadTimeout        time.Duration `yaml:"read_timeout"`
		WriteTimeout       time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	// Upstream es el identity provider al que se le hace proxy.
	Upstream struct {
		BaseURL      string        `yaml:"base_url"`
		Timeout      time.Duration `yaml:"timeout"`
		HealthPath   string        `yaml:"health_path"`
		MaxBodyBytes int64         `yaml:"max_body_bytes"`
	} `yaml:"upstream"`

	Bridge struct {
		// Rutas que emiten credenciales, formato "METHOD /path".
		IssuingRoutes []string `yaml:"issuing_routes"`
	} `yaml:"bridge"`

	Health struct {
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"health"`

	Metrics struct {
		Enabled *bool  `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Load lee el YAML en path (si existe), aplica defaults, pisa con variables
// de entorno y valida. Un archivo inexistente no es error: todo puede venir
// del entorno.
func Load(path string) (*Config, error) {
	var c Config

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// sin archivo: defaults + env
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// PathFromEnv devuelve CONFIG_PATH o DefaultPath.
func PathFromEnv() string {
	if v, ok := getEnvStr("CONFIG_PATH"); ok {
		return v
	}
	return DefaultPath
}

// MetricsEnabled resuelve el flag con su default (true).
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.ServiceName == "" {
		c.App.ServiceName = "tokenbridge"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 15 * time.Second
	}
	if c.Upstream.HealthPath == "" {
		c.Upstream.HealthPath = "/"
	}
	if c.Upstream.MaxBodyBytes == 0 {
		c.Upstream.MaxBodyBytes = 1 << 20
	}
	if c.Bridge.IssuingRoutes == nil {
		c.Bridge.IssuingRoutes = []string{"POST /api/v1/auth/sign_in"}
	}
	if c.Health.CacheTTL == 0 {
		c.Health.CacheTTL = 5 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt64(key string) (int64, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVICE_NAME"); ok {
		c.App.ServiceName = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvDur("SERVER_READ_TIMEOUT"); ok {
		c.Server.ReadTimeout = v
	}
	if v, ok := getEnvDur("SERVER_WRITE_TIMEOUT"); ok {
		c.Server.WriteTimeout = v
	}

	// UPSTREAM
	if v, ok := getEnvStr("UPSTREAM_BASE_URL"); ok {
		c.Upstream.BaseURL = v
	}
	if v, ok := getEnvDur("UPSTREAM_TIMEOUT"); ok {
		c.Upstream.Timeout = v
	}
	if v, ok := getEnvStr("UPSTREAM_HEALTH_PATH"); ok {
		c.Upstream.HealthPath = v
	}
	if v, ok := getEnvInt64("UPSTREAM_MAX_BODY_BYTES"); ok {
		c.Upstream.MaxBodyBytes = v
	}

	// BRIDGE
	if v, ok := getEnvCSV("BRIDGE_ISSUING_ROUTES"); ok {
		c.Bridge.IssuingRoutes = v
	}

	// HEALTH / METRICS
	if v, ok := getEnvDur("HEALTH_CACHE_TTL"); ok {
		c.Health.CacheTTL = v
	}
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = &v
	}
	if v, ok := getEnvStr("METRICS_PATH"); ok {
		c.Metrics.Path = v
	}
}

// Validate verifica los valores críticos. Los errores se acumulan para que
// el operador vea todos los problemas de una vez.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		errs = append(errs, errors.New("upstream.base_url is required (UPSTREAM_BASE_URL)"))
	} else if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("upstream.base_url %q must be an absolute http(s) URL", c.Upstream.BaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Errorf("upstream.base_url scheme %q not supported", u.Scheme))
	}

	if c.Upstream.Timeout < 0 {
		errs = append(errs, errors.New("upstream.timeout must be >= 0"))
	}
	if c.Upstream.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("upstream.max_body_bytes must be > 0"))
	}
	if !strings.HasPrefix(c.Upstream.HealthPath, "/") {
		errs = append(errs, fmt.Errorf("upstream.health_path %q must start with /", c.Upstream.HealthPath))
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path))
	}

	for _, r := range c.Bridge.IssuingRoutes {
		f := strings.Fields(r)
		if len(f) != 2 || !strings.HasPrefix(f[1], "/") {
			errs = append(errs, fmt.Errorf("bridge.issuing_routes: %q must look like \"POST /path\"", r))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
