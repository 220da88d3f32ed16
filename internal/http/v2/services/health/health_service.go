// Package health contiene el service para health checks.
package health

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	dto "github.com/dropDatabas3/tokenbridge/internal/http/v2/dto/health"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Live() dto.LivenessResponse
	Check(ctx context.Context) dto.HealthResponse
}

// UpstreamProber abstrae el probe al identity provider.
type UpstreamProber interface {
	Probe(ctx context.Context) error
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	Upstream UpstreamProber
	// CacheTTL: cuánto se reutiliza el último resultado del probe.
	CacheTTL time.Duration
	// ProbeTimeout acota cada probe, independiente del request que lo disparó.
	ProbeTimeout time.Duration
	Version      string
}

const (
	componentUpstream = "upstream"
	probeCacheKey     = "probe:upstream"
)

type healthService struct {
	deps  Deps
	cache *gocache.Cache
	sf    singleflight.Group
	now   func() time.Time
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.ProbeTimeout <= 0 {
		deps.ProbeTimeout = 3 * time.Second
	}
	return &healthService{
		deps:  deps,
		cache: gocache.New(deps.CacheTTL, time.Minute),
		now:   time.Now,
	}
}

func (s *healthService) Live() dto.LivenessResponse {
	return dto.LivenessResponse{Status: "ok"}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	response := dto.HealthResponse{
		Status:     dto.StatusReady,
		Components: make(map[string]dto.HealthStatus, 1),
		Version:    s.deps.Version,
		Timestamp:  s.now().UTC(),
	}

	up := s.upstreamStatus(ctx)
	response.Components[componentUpstream] = up
	if up.Status != "ok" {
		response.Status = dto.StatusUnavailable
	}
	return response
}

// upstreamStatus devuelve el resultado cacheado o dispara un probe. Probes
// concurrentes se colapsan en uno solo.
func (s *healthService) upstreamStatus(ctx context.Context) dto.HealthStatus {
	if s.deps.Upstream == nil {
		return dto.HealthStatus{Status: "error", Message: "upstream not configured", CheckedAt: s.now().UTC()}
	}
	if v, ok := s.cache.Get(probeCacheKey); ok {
		st := v.(dto.HealthStatus)
		st.Cached = true
		return st
	}

	v, _, _ := s.sf.Do(probeCacheKey, func() (any, error) {
		if v, ok := s.cache.Get(probeCacheKey); ok {
			return v, nil
		}
		// El probe no depende del request que lo disparó: si ese cliente
		// cancela, los demás que esperan en singleflight siguen recibiendo resultado.
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deps.ProbeTimeout)
		defer cancel()

		st := dto.HealthStatus{Status: "ok", CheckedAt: s.now().UTC()}
		if err := s.deps.Upstream.Probe(pctx); err != nil {
			st.Status = "error"
			st.Message = err.Error()
			logger.From(ctx).Warn("upstream probe failed",
				logger.Layer("service"),
				logger.Component("health"),
				logger.Err(err),
			)
		}
		s.cache.Set(probeCacheKey, st, gocache.DefaultExpiration)
		return st, nil
	})
	return v.(dto.HealthStatus)
}
