package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/fardannozami/nanomid-pair-gateway/internal/domain/pairing"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/audit"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

type Pairer interface {
	Pair(ctx context.Context, req pairing.Request) pairing.Result
}

type AttemptRecorder interface {
	Record(ctx context.Context, a audit.Attempt) (string, error)
}

type PairDeviceInput struct {
	OTP   string
	Label string
}

type PairDeviceOutput struct {
	AttemptID string
	Result    pairing.Result
}

type PairDeviceConfig struct {
	MaxConcurrent int64
	// QueueTimeout is how long a request may wait for a free browser slot.
	// Zero rejects immediately when all slots are taken.
	QueueTimeout       time.Duration
	PairTimeout        time.Duration
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

type PairDeviceUsecase struct {
	pairer   Pairer
	cfg      PairDeviceConfig
	sem      *semaphore.Weighted
	breaker  *gobreaker.CircuitBreaker
	recorder AttemptRecorder
	metrics  *metrics.Metrics
	log      *zap.Logger
}

var errTargetDown = errors.New("target site failure")

// NewPairDeviceUsecase wires the pairer behind a session cap and a circuit
// breaker. recorder and m may be nil.
func NewPairDeviceUsecase(pairer Pairer, cfg PairDeviceConfig, recorder AttemptRecorder, m *metrics.Metrics, log *zap.Logger) *PairDeviceUsecase {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if log == nil {
		log = zap.NewNop()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nanomid",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &PairDeviceUsecase{
		pairer:   pairer,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrent),
		breaker:  breaker,
		recorder: recorder,
		metrics:  m,
		log:      log,
	}
}

// Execute validates the input and runs one pairing. A reported pairing
// failure is not an error: it comes back in Output.Result. Errors are
// validation, capacity and breaker rejections.
func (u *PairDeviceUsecase) Execute(ctx context.Context, in PairDeviceInput) (*PairDeviceOutput, error) {
	req, err := pairing.NewRequest(in.OTP, in.Label)
	if err != nil {
		return nil, err
	}

	if err := u.acquire(ctx); err != nil {
		u.count(string(pairing.KindBusy))
		return nil, err
	}
	defer u.sem.Release(1)

	if u.cfg.PairTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.PairTimeout)
		defer cancel()
	}

	started := time.Now()
	v, err := u.breaker.Execute(func() (interface{}, error) {
		if u.metrics != nil {
			u.metrics.SessionsRunning.Inc()
			defer u.metrics.SessionsRunning.Dec()
		}
		res := u.pairer.Pair(ctx, req)
		if tripsBreaker(res) && !errors.Is(ctx.Err(), context.Canceled) {
			return res, errTargetDown
		}
		return res, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		u.count(string(pairing.KindUnavailable))
		return nil, pairing.NewError(pairing.KindUnavailable, "target site unavailable", err)
	}

	res, _ := v.(pairing.Result)
	elapsed := time.Since(started)
	if u.metrics != nil {
		u.metrics.Duration.Observe(elapsed.Seconds())
	}
	if res.OK {
		u.count("ok")
	} else {
		u.count(string(res.Kind))
	}

	out := &PairDeviceOutput{Result: res}
	out.AttemptID = u.record(ctx, req, res, started, elapsed)
	return out, nil
}

func (u *PairDeviceUsecase) acquire(ctx context.Context) error {
	if u.cfg.QueueTimeout <= 0 {
		if !u.sem.TryAcquire(1) {
			return pairing.NewError(pairing.KindBusy, "all browser sessions in use", nil)
		}
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, u.cfg.QueueTimeout)
	defer cancel()
	if err := u.sem.Acquire(waitCtx, 1); err != nil {
		return pairing.NewError(pairing.KindBusy, "no browser session freed up in time", err)
	}
	return nil
}

func (u *PairDeviceUsecase) record(ctx context.Context, req pairing.Request, res pairing.Result, started time.Time, elapsed time.Duration) string {
	if u.recorder == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	id, err := u.recorder.Record(ctx, audit.Attempt{
		Label:     req.Label,
		OK:        res.OK,
		Error:     res.Error,
		StartedAt: started,
		Duration:  elapsed,
	})
	if err != nil {
		u.log.Warn("record pairing attempt", zap.Error(err))
		return ""
	}
	return id
}

func (u *PairDeviceUsecase) count(outcome string) {
	if u.metrics == nil || outcome == "" {
		return
	}
	u.metrics.Attempts.WithLabelValues(outcome).Inc()
}

// tripsBreaker reports whether res points at the target site rather than at
// the caller's input or the caller going away.
func tripsBreaker(res pairing.Result) bool {
	if res.OK {
		return false
	}
	return res.Kind == pairing.KindNavigation || res.Kind == pairing.KindUnexpected
}
