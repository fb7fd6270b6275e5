package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fardannozami/nanomid-pair-gateway/internal/domain/pairing"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/audit"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/automation"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/browser/browsertest"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairerFunc func(ctx context.Context, req pairing.Request) pairing.Result

func (f pairerFunc) Pair(ctx context.Context, req pairing.Request) pairing.Result {
	return f(ctx, req)
}

type memRecorder struct {
	mu       sync.Mutex
	attempts []audit.Attempt
	err      error
}

func (r *memRecorder) Record(_ context.Context, a audit.Attempt) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.attempts = append(r.attempts, a)
	return "attempt-1", nil
}

func okPairer(calls *atomic.Int32) Pairer {
	return pairerFunc(func(context.Context, pairing.Request) pairing.Result {
		calls.Add(1)
		return pairing.Succeeded()
	})
}

func TestExecuteValidatesBeforePairing(t *testing.T) {
	var calls atomic.Int32
	uc := NewPairDeviceUsecase(okPairer(&calls), PairDeviceConfig{MaxConcurrent: 1}, nil, nil, nil)

	_, err := uc.Execute(context.Background(), PairDeviceInput{OTP: "  ", Label: "Kitchen TV"})
	assert.ErrorIs(t, err, pairing.ErrValidation)
	assert.Zero(t, calls.Load())
}

func TestExecutePassesTrimmedRequest(t *testing.T) {
	var got pairing.Request
	p := pairerFunc(func(_ context.Context, req pairing.Request) pairing.Result {
		got = req
		return pairing.Succeeded()
	})
	rec := &memRecorder{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	uc := NewPairDeviceUsecase(p, PairDeviceConfig{MaxConcurrent: 1, PairTimeout: time.Minute}, rec, m, nil)
	out, err := uc.Execute(context.Background(), PairDeviceInput{OTP: " 123456 ", Label: " Kitchen TV "})
	require.NoError(t, err)

	assert.True(t, out.Result.OK)
	assert.Equal(t, "attempt-1", out.AttemptID)
	assert.Equal(t, pairing.Request{OTP: "123456", Label: "Kitchen TV"}, got)

	require.Len(t, rec.attempts, 1)
	assert.Equal(t, "Kitchen TV", rec.attempts[0].Label)
	assert.True(t, rec.attempts[0].OK)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Attempts.WithLabelValues("ok")))
	assert.Zero(t, testutil.ToFloat64(m.SessionsRunning))
}

func TestExecuteAppliesPairTimeout(t *testing.T) {
	p := pairerFunc(func(ctx context.Context, _ pairing.Request) pairing.Result {
		deadline, ok := ctx.Deadline()
		if !ok || time.Until(deadline) > 10*time.Second {
			return pairing.Failed(errors.New("no deadline"))
		}
		return pairing.Succeeded()
	})

	uc := NewPairDeviceUsecase(p, PairDeviceConfig{MaxConcurrent: 1, PairTimeout: 5 * time.Second}, nil, nil, nil)
	out, err := uc.Execute(context.Background(), PairDeviceInput{OTP: "1", Label: "a"})
	require.NoError(t, err)
	assert.True(t, out.Result.OK, out.Result.Error)
}

func TestExecuteReportsFailureAsResult(t *testing.T) {
	p := pairerFunc(func(context.Context, pairing.Request) pairing.Result {
		return pairing.Failed(pairing.NewError(pairing.KindNotConfirmed, "pairing not confirmed in the UI", nil))
	})
	rec := &memRecorder{err: errors.New("disk full")}

	uc := NewPairDeviceUsecase(p, PairDeviceConfig{MaxConcurrent: 1}, rec, nil, nil)
	out, err := uc.Execute(context.Background(), PairDeviceInput{OTP: "1", Label: "a"})
	require.NoError(t, err)

	assert.False(t, out.Result.OK)
	assert.Equal(t, pairing.KindNotConfirmed, out.Result.Kind)
	assert.Empty(t, out.AttemptID)
}

func TestExecuteRejectsWhenAllSessionsBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	p := pairerFunc(func(context.Context, pairing.Request) pairing.Result {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return pairing.Succeeded()
	})

	uc := NewPairDeviceUsecase(p, PairDeviceConfig{MaxConcurrent: 1}, nil, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := uc.Execute(context.Background(), PairDeviceInput{OTP: "1", Label: "a"})
		done <- err
	}()
	<-started

	_, err := uc.Execute(context.Background(), PairDeviceInput{OTP: "2", Label: "b"})
	assert.ErrorIs(t, err, pairing.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load())

	_, err = uc.Execute(context.Background(), PairDeviceInput{OTP: "3", Label: "c"})
	assert.NoError(t, err)
}

func TestExecuteQueuesUpToQueueTimeout(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	p := pairerFunc(func(context.Context, pairing.Request) pairing.Result {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return pairing.Succeeded()
	})

	uc := NewPairDeviceUsecase(p, PairDeviceConfig{MaxConcurrent: 1, QueueTimeout: 5 * time.Second}, nil, nil, nil)

	go func() {
		_, _ = uc.Execute(context.Background(), PairDeviceInput{OTP: "1", Label: "a"})
	}()
	<-started

	time.AfterFunc(20*time.Millisecond, func() { close(release) })
	out, err := uc.Execute(context.Background(), PairDeviceInput{OTP: "2", Label: "b"})
	require.NoError(t, err)
	assert.True(t, out.Result.OK)
}

func TestExecuteOpensBreakerOnRepeatedSiteFailures(t *testing.T) {
	var calls atomic.Int32
	p := pairerFunc(func(context.Context, pairing.Request) pairing.Result {
		calls.Add(1)
		return pairing.Failed(pairing.NewError(pairing.KindNavigation, "dashboard not reached after login", nil))
	})

	uc := NewPairDeviceUsecase(p, PairDeviceConfig{
		MaxConcurrent:      1,
		BreakerMaxFailures: 3,
		BreakerTimeout:     time.Minute,
	}, nil, nil, nil)

	for i := 0; i < 3; i++ {
		out, err := uc.Execute(context.Background(), PairDeviceInput{OTP: "1", Label: "a"})
		require.NoError(t, err)
		assert.Equal(t, pairing.KindNavigation, out.Result.Kind)
	}

	_, err := uc.Execute(context.Background(), PairDeviceInput{OTP: "1", Label: "a"})
	assert.ErrorIs(t, err, pairing.ErrUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecuteInputFailuresDoNotTripBreaker(t *testing.T) {
	p := pairerFunc(func(context.Context, pairing.Request) pairing.Result {
		return pairing.Failed(pairing.NewError(pairing.KindNotConfirmed, "pairing not confirmed in the UI", nil))
	})

	uc := NewPairDeviceUsecase(p, PairDeviceConfig{MaxConcurrent: 1, BreakerMaxFailures: 2}, nil, nil, nil)
	for i := 0; i < 5; i++ {
		_, err := uc.Execute(context.Background(), PairDeviceInput{OTP: "1", Label: "a"})
		require.NoError(t, err)
	}
}

type memLister struct{ gotLimit int }

func (l *memLister) Recent(_ context.Context, limit int) ([]audit.Attempt, error) {
	l.gotLimit = limit
	return []audit.Attempt{{ID: "x"}}, nil
}

func TestListAttemptsClampsLimit(t *testing.T) {
	l := &memLister{}
	uc := NewListAttemptsUsecase(l)

	for _, tc := range []struct{ in, want int }{{0, 20}, {-3, 20}, {7, 7}, {500, 100}} {
		_, err := uc.Execute(context.Background(), tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, l.gotLimit)
	}
}

func TestExecuteCallerCancellationDoesNotTripBreaker(t *testing.T) {
	site := browsertest.NewNanomidSite(browsertest.NanomidScript{
		Email:     "owner@example.com",
		Password:  "hunter2",
		AcceptOTP: "123456",
	})
	pairer := automation.NewPairer(site,
		automation.Credentials{Email: "owner@example.com", Password: "hunter2"},
		automation.Options{
			LoginURL:         "https://nanomid.test/en/login",
			DevicesURL:       "https://nanomid.test/en/dashboard/player/devices",
			DashboardTimeout: time.Second,
			SettleDelay:      200 * time.Millisecond,
		}, nil)

	m := metrics.New(prometheus.NewRegistry())
	uc := NewPairDeviceUsecase(pairer, PairDeviceConfig{
		MaxConcurrent:      1,
		BreakerMaxFailures: 5,
		BreakerTimeout:     time.Minute,
	}, nil, m, nil)

	in := PairDeviceInput{OTP: "123456", Label: "Kitchen TV"}
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		timer := time.AfterFunc(20*time.Millisecond, cancel)

		out, err := uc.Execute(ctx, in)
		timer.Stop()
		cancel()

		require.NoError(t, err)
		assert.Equal(t, pairing.KindCanceled, out.Result.Kind)
	}

	out, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, out.Result.OK, out.Result.Error)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Attempts.WithLabelValues(string(pairing.KindCanceled))))
}
