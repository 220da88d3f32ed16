package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	require.Equal(t, zapcore.WarnLevel, parseLevel(" warning "))
	require.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	require.Equal(t, zapcore.InfoLevel, parseLevel(""))
	require.Equal(t, zapcore.InfoLevel, parseLevel("nope"))
}

func TestZapConfig_ProdIsJSON(t *testing.T) {
	require.Equal(t, "json", zapConfig(Config{Env: "prod"}).Encoding)
	require.Equal(t, "json", zapConfig(Config{Env: "production"}).Encoding)
	require.Equal(t, "console", zapConfig(Config{Env: "dev"}).Encoding)
}

func TestFrom_FallsBackToSingleton(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := Replace(zap.New(core))
	defer restore()

	From(context.Background()).Info("hello")
	require.Equal(t, 1, logs.Len())
}

func TestFrom_UsesContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ToContext(context.Background(), zap.New(core).With(RequestID("r-1")))

	From(ctx).Info("scoped", Outcome("decoded"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "r-1", fields["request_id"])
	require.Equal(t, "decoded", fields["outcome"])
}
