package health

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dto "github.com/dropDatabas3/tokenbridge/internal/http/v2/dto/health"
)

type fakeProber struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (f *fakeProber) Probe(ctx context.Context) error {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.err
}

func TestCheck_Ready(t *testing.T) {
	p := &fakeProber{}
	s := NewHealthService(Deps{Upstream: p, CacheTTL: time.Minute, Version: "1.2.3"})

	resp := s.Check(context.Background())
	require.Equal(t, dto.StatusReady, resp.Status)
	require.Equal(t, "ok", resp.Components["upstream"].Status)
	require.Equal(t, "1.2.3", resp.Version)
}

func TestCheck_Unavailable(t *testing.T) {
	p := &fakeProber{err: errors.New("connection refused")}
	s := NewHealthService(Deps{Upstream: p, CacheTTL: time.Minute})

	resp := s.Check(context.Background())
	require.Equal(t, dto.StatusUnavailable, resp.Status)
	require.Equal(t, "error", resp.Components["upstream"].Status)
	require.Contains(t, resp.Components["upstream"].Message, "connection refused")
}

func TestCheck_CachesProbeResult(t *testing.T) {
	p := &fakeProber{}
	s := NewHealthService(Deps{Upstream: p, CacheTTL: time.Minute})

	first := s.Check(context.Background())
	second := s.Check(context.Background())

	require.Equal(t, int32(1), p.calls.Load())
	require.False(t, first.Components["upstream"].Cached)
	require.True(t, second.Components["upstream"].Cached)
}

func TestCheck_CoalescesConcurrentProbes(t *testing.T) {
	p := &fakeProber{delay: 50 * time.Millisecond}
	s := NewHealthService(Deps{Upstream: p, CacheTTL: time.Minute})

	statuses := make(chan string, 10)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses <- s.Check(context.Background()).Status
		}()
	}
	wg.Wait()
	close(statuses)

	for st := range statuses {
		require.Equal(t, dto.StatusReady, st)
	}

	require.Equal(t, int32(1), p.calls.Load())
}

func TestCheck_NoUpstream(t *testing.T) {
	s := NewHealthService(Deps{})
	require.Equal(t, dto.StatusUnavailable, s.Check(context.Background()).Status)
}

func TestLive(t *testing.T) {
	require.Equal(t, "ok", NewHealthService(Deps{}).Live().Status)
}
