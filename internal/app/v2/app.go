// Package appv2 maneja el ciclo de vida del servidor HTTP del gateway.
package appv2

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/tokenbridge/internal/config"
	"github.com/dropDatabas3/tokenbridge/internal/http/v2/server"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
)

// shutdownTimeout es el tiempo que se espera a que terminen los requests en vuelo.
const shutdownTimeout = 15 * time.Second

// App es el gateway cableado y listo para escuchar.
type App struct {
	Handler http.Handler
	srv     *http.Server
}

// New arma el handler y el http.Server a partir de la config.
func New(cfg *config.Config, version string) (*App, error) {
	h, err := server.BuildHandler(cfg, server.Options{Version: version})
	if err != nil {
		return nil, err
	}
	return &App{
		Handler: h,
		srv: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           h,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			ErrorLog:          zap.NewStdLog(logger.Named("http")),
		},
	}, nil
}

// Run escucha hasta que ctx se cancela y luego hace un shutdown ordenado.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.srv.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.srv.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve es como Run pero sobre un listener ya abierto.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	log := logger.Named("app")
	errCh := make(chan error, 1)
	go func() {
		log.Info("tokenbridge listening", logger.String("addr", ln.Addr().String()))
		errCh <- a.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
