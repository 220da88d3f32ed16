// Package metrics agrupa los collectors Prometheus del gateway en un registry
// propio por instancia.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tokenbridge"

// Outcomes del decoder de entrada.
const (
	DecodeAbsent    = "absent"
	DecodeDecoded   = "decoded"
	DecodeMalformed = "malformed"
)

// Outcomes del encoder de salida.
const (
	EncodePassthrough = "passthrough"
	EncodeEncoded     = "encoded"
	EncodeMalformed   = "malformed"
)

// Bridge contiene los collectors del gateway. Todos los métodos aceptan un
// receiver nil (métricas deshabilitadas).
type Bridge struct {
	reg *prometheus.Registry

	decodes        *prometheus.CounterVec
	encodes        *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        prometheus.Gauge
}

// NewBridge crea los collectors y los registra en reg. Con reg nil se usa un
// registry nuevo con los collectors de runtime de Go y del proceso.
func NewBridge(reg *prometheus.Registry) (*Bridge, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
		if err := registerCollector(reg, collectors.NewGoCollector()); err != nil {
			return nil, err
		}
		if err := registerCollector(reg, collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, err
		}
	}

	b := &Bridge{
		reg: reg,
		decodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bearer_decodes_total",
			Help:      "Resultados del decoder de bearer por outcome y etapa de falla",
		}, []string{"outcome", "stage"}),
		encodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_encodes_total",
			Help:      "Resultados del encoder de credenciales en rutas emisoras",
		}, []string{"outcome"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Errores al hablar con el identity provider por tipo",
		}, []string{"kind"}), // kind: unavailable|timeout|canceled|invalid_response
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo",
		}),
	}

	for _, c := range []prometheus.Collector{
		b.decodes, b.encodes, b.upstreamErrors,
		b.httpRequestsTotal, b.httpRequestDuration, b.httpInflight,
	} {
		if err := registerCollector(reg, c); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Handler expone el registry en formato Prometheus.
func (b *Bridge) Handler() http.Handler {
	if b == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{Registry: b.reg})
}

// Registry devuelve el registry subyacente (para tests y collectors extra).
func (b *Bridge) Registry() *prometheus.Registry {
	if b == nil {
		return nil
	}
	return b.reg
}

func (b *Bridge) ObserveDecode(outcome, stage string) {
	if b == nil {
		return
	}
	b.decodes.WithLabelValues(outcome, stage).Inc()
}

func (b *Bridge) ObserveEncode(outcome string) {
	if b == nil {
		return
	}
	b.encodes.WithLabelValues(outcome).Inc()
}

func (b *Bridge) ObserveUpstreamError(kind string) {
	if b == nil {
		return
	}
	b.upstreamErrors.WithLabelValues(kind).Inc()
}

// RequestStarted incrementa el gauge de inflight y devuelve la función que
// registra el fin del request.
func (b *Bridge) RequestStarted() func(method, route string, status int) {
	if b == nil {
		return func(string, string, int) {}
	}
	b.httpInflight.Inc()
	start := time.Now()
	return func(method, route string, status int) {
		b.httpInflight.Dec()
		if status == 0 {
			status = http.StatusOK
		}
		b.httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		b.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
}

// registerCollector registra el collector en el registry indicado, ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}
