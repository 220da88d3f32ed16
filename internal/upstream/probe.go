package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Prober verifica que el provider responda. Cualquier status < 500 cuenta
// como alcanzable: un 401 o 404 en el health path sigue siendo un provider vivo.
type Prober struct {
	client *http.Client
	target string
}

// NewProber arma un prober contra base + healthPath. Con timeout 0 usa 3s.
func NewProber(base *url.URL, healthPath string, timeout time.Duration, transport http.RoundTripper) *Prober {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	target := strings.TrimRight(base.String(), "/") + "/" + strings.TrimLeft(healthPath, "/")
	return &Prober{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			// Un redirect ya prueba que el provider responde.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		target: target,
	}
}

// Target devuelve la URL que se consulta.
func (p *Prober) Target() string { return p.target }

// Probe hace un GET al health path.
func (p *Prober) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target, nil)
	if err != nil {
		return fmt.Errorf("upstream: build probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: probe: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("upstream: probe status %d", resp.StatusCode)
	}
	return nil
}
