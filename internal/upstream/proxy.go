// Package upstream contiene el reverse proxy hacia el identity provider y
// el probe de disponibilidad que usa /readyz.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/tokenbridge/internal/bridge"
	httperrors "github.com/dropDatabas3/tokenbridge/internal/http/v2/errors"
	"github.com/dropDatabas3/tokenbridge/internal/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
)

// Tipos de error de upstream, usados como label de métricas.
const (
	ErrKindUnavailable     = "unavailable"
	ErrKindTimeout         = "timeout"
	ErrKindCanceled        = "canceled"
	ErrKindInvalidResponse = "invalid_response"
)

// Options configura el proxy.
type Options struct {
	BaseURL      *url.URL
	Timeout      time.Duration // 0 = sin límite
	MaxBodyBytes int64         // tope del body leído en rutas emisoras
	Issuing      IssuingRoutes
	Metrics      *metrics.Bridge
	// Transport opcional; por defecto http.DefaultTransport.
	Transport http.RoundTripper
}

// Proxy reenvía todo request al provider. En rutas emisoras reescribe la
// respuesta con bridge.EncodeResponse.
type Proxy struct {
	rp      *httputil.ReverseProxy
	base    *url.URL
	timeout time.Duration
	maxBody int64
	issuing IssuingRoutes
	m       *metrics.Bridge
}

type issuingKey struct{}

func markIssuing(ctx context.Context) context.Context {
	return context.WithValue(ctx, issuingKey{}, true)
}

func isIssuing(ctx context.Context) bool {
	v, _ := ctx.Value(issuingKey{}).(bool)
	return v
}

// New valida las opciones y arma el reverse proxy.
func New(opts Options) (*Proxy, error) {
	if opts.BaseURL == nil || opts.BaseURL.Scheme == "" || opts.BaseURL.Host == "" {
		return nil, errors.New("upstream: base URL must be absolute")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	p := &Proxy{
		base:    opts.BaseURL,
		timeout: opts.Timeout,
		maxBody: opts.MaxBodyBytes,
		issuing: opts.Issuing,
		m:       opts.Metrics,
	}
	p.rp = &httputil.ReverseProxy{
		Rewrite:        p.rewrite,
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.handleError,
		Transport:      opts.Transport,
		ErrorLog:       zap.NewStdLog(logger.Named("upstream")),
	}
	return p, nil
}

// ServeHTTP implementa http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if p.issuing.Match(r.Method, r.URL.Path) {
		ctx = markIssuing(ctx)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	p.rp.ServeHTTP(w, r.WithContext(ctx))
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(p.base)
	pr.SetXForwarded()
	if isIssuing(pr.In.Context()) {
		// El body emisor tiene que llegar como JSON plano para reescribirlo.
		pr.Out.Header.Del("Accept-Encoding")
	}
}

func (p *Proxy) modifyResponse(resp *http.Response) error {
	if resp.Request == nil || !isIssuing(resp.Request.Context()) {
		return nil
	}
	if !bridge.CarriesCredentials(resp.Header) {
		p.m.ObserveEncode(metrics.EncodePassthrough)
		return nil
	}

	body, err := p.readBody(resp)
	if err != nil {
		return err
	}

	out, _, err := bridge.EncodeResponse(bridge.Response{Header: resp.Header, Body: body})
	if err != nil {
		return err
	}

	out.Header.Set("Cache-Control", "no-store")
	out.Header.Set("Content-Length", strconv.Itoa(len(out.Body)))
	resp.Header = out.Header
	resp.Body = io.NopCloser(bytes.NewReader(out.Body))
	resp.ContentLength = int64(len(out.Body))
	p.m.ObserveEncode(metrics.EncodeEncoded)
	return nil
}

// readBody lee el body completo respetando maxBody. Un body comprimido o más
// grande que el límite no se puede reescribir y cuenta como respuesta inválida.
func (p *Proxy) readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	if ce := resp.Header.Get("Content-Encoding"); ce != "" && ce != "identity" {
		return nil, fmt.Errorf("%w: unexpected content-encoding %q", bridge.ErrMalformedProviderResponse, ce)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("upstream: read provider body: %w", err)
	}
	if int64(len(body)) > p.maxBody {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", bridge.ErrMalformedProviderResponse, p.maxBody)
	}
	return body, nil
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.From(r.Context()).With(logger.Upstream(p.base.Redacted()))
	kind, appErr := classify(r.Context(), err)
	p.m.ObserveUpstreamError(kind)

	if kind == ErrKindCanceled {
		// El cliente se fue; no hay a quién responder.
		log.Debug("client canceled request", logger.Err(err))
		return
	}

	if kind == ErrKindInvalidResponse {
		p.m.ObserveEncode(metrics.EncodeMalformed)
		log.Error("provider response violates credential contract", logger.Err(err))
	} else {
		log.Warn("upstream request failed", logger.Outcome(kind), logger.Err(err))
	}
	httperrors.WriteError(w, appErr.WithCause(err))
}

// classify traduce el error del proxy a un tipo y a un AppError.
func classify(ctx context.Context, err error) (string, *httperrors.AppError) {
	switch {
	case errors.Is(err, bridge.ErrMalformedProviderResponse):
		return ErrKindInvalidResponse, httperrors.ErrProviderResponseInvalid
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return ErrKindTimeout, httperrors.ErrGatewayTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		return ErrKindCanceled, httperrors.ErrUpstreamUnavailable
	default:
		return ErrKindUnavailable, httperrors.ErrUpstreamUnavailable
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
