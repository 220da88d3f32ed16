// Package server conecta config, upstream, health y router en un único
// http.Handler.
package server

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/tokenbridge/internal/config"
	healthctrl "github.com/dropDatabas3/tokenbridge/internal/http/v2/controllers/health"
	"github.com/dropDatabas3/tokenbridge/internal/http/v2/router"
	healthsvc "github.com/dropDatabas3/tokenbridge/internal/http/v2/services/health"
	"github.com/dropDatabas3/tokenbridge/internal/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/upstream"
)

// Options permite a los tests inyectar un transport hacia el provider.
type Options struct {
	Transport http.RoundTripper
	Version   string
}

// BuildHandler arma el handler del gateway a partir de la config.
func BuildHandler(cfg *config.Config, opts Options) (http.Handler, error) {
	base, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("server: upstream base url: %w", err)
	}

	issuing, err := upstream.ParseIssuingRoutes(cfg.Bridge.IssuingRoutes)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	var m *metrics.Bridge
	if cfg.MetricsEnabled() {
		if m, err = metrics.NewBridge(nil); err != nil {
			return nil, fmt.Errorf("server: metrics: %w", err)
		}
	}

	proxy, err := upstream.New(upstream.Options{
		BaseURL:      base,
		Timeout:      cfg.Upstream.Timeout,
		MaxBodyBytes: cfg.Upstream.MaxBodyBytes,
		Issuing:      issuing,
		Metrics:      m,
		Transport:    opts.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	prober := upstream.NewProber(base, cfg.Upstream.HealthPath, cfg.Upstream.Timeout, opts.Transport)
	health := healthctrl.NewHealthController(healthsvc.NewHealthService(healthsvc.Deps{
		Upstream:     prober,
		CacheTTL:     cfg.Health.CacheTTL,
		ProbeTimeout: cfg.Upstream.Timeout,
		Version:      opts.Version,
	}))

	log := logger.Named("wiring")
	for _, r := range issuing.List() {
		log.Info("credential-issuing route", logger.Route(r.String()))
	}
	log.Info("upstream configured",
		logger.Upstream(base.Redacted()),
		logger.String("readiness_probe", prober.Target()),
	)

	return router.New(router.Deps{
		Health:             health,
		Proxy:              proxy,
		Metrics:            m,
		MetricsPath:        cfg.Metrics.Path,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}), nil
}
