// Package roast is the roast telemetry engine. A Sampler goroutine turns raw
// sensor readings into smoothed, timestamped Records and appends them to a
// shared Buffer; an Uploader goroutine ships fixed-size batches from the head
// of that Buffer to a Sender. The Engine wires the two together and runs the
// running/finished shutdown handshake between them.
package roast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Config holds the engine tunables. Zero fields are not defaulted; start from
// DefaultConfig.
type Config struct {
	Window       int           // raw readings averaged per smoothed value
	BatchSize    int           // records per upload
	TickPeriod   time.Duration // sampling cadence
	PollPeriod   time.Duration // uploader recheck interval
	UploadRate   float64       // delivery attempts per second, <= 0 for unlimited
	FlushTimeout time.Duration // bound on the final flush at shutdown
}

// DefaultConfig returns the stock tunables: 10 samples, 10 records per
// batch, 1s ticks and 0.5s polls.
func DefaultConfig() Config {
	return Config{
		Window:       DefaultWindow,
		BatchSize:    DefaultBatchSize,
		TickPeriod:   DefaultTickPeriod,
		PollPeriod:   DefaultPollPeriod,
		UploadRate:   DefaultUploadRate,
		FlushTimeout: DefaultFlushTimeout,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Window < 1 {
		errs = append(errs, fmt.Errorf("window must be >= 1, got %d", c.Window))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be >= 1, got %d", c.BatchSize))
	}
	if c.TickPeriod <= 0 {
		errs = append(errs, fmt.Errorf("tick period must be > 0, got %s", c.TickPeriod))
	}
	if c.PollPeriod <= 0 {
		errs = append(errs, fmt.Errorf("poll period must be > 0, got %s", c.PollPeriod))
	}
	if c.FlushTimeout <= 0 {
		errs = append(errs, fmt.Errorf("flush timeout must be > 0, got %s", c.FlushTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Deps are the external collaborators. Sensor and Sender are required.
type Deps struct {
	Sensor    Sensor
	Display   Display
	Sender    Sender
	Indicator Indicator
}

// Stats is a point-in-time view of the engine counters.
type Stats struct {
	Ticks              uint64
	Pending            int
	BatchesSent        uint64
	FailedAttempts     uint64
	Dropped            uint64
	MarkersOverwritten uint64
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.session = id
		}
	}
}

// Engine runs one roast session. It cannot be restarted; build a new Engine
// for the next roast.
type Engine struct {
	cfg     Config
	clock   Clock
	log     zerolog.Logger
	session string

	agg      *Aggregator
	mailbox  *Mailbox
	buf      *Buffer
	shutdown *Shutdown
	sampler  *Sampler
	uploader *Uploader

	mu         sync.Mutex
	started    bool
	start      time.Time
	uploadDone chan struct{}
}

// New validates cfg and deps and assembles an engine.
func New(cfg Config, deps Deps, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Sensor == nil {
		return nil, fmt.Errorf("%w: sensor is required", ErrInvalidConfig)
	}
	if deps.Sender == nil {
		return nil, fmt.Errorf("%w: sender is required", ErrInvalidConfig)
	}
	if deps.Display == nil {
		deps.Display = nopDisplay{}
	}
	if deps.Indicator == nil {
		deps.Indicator = nopIndicator{}
	}

	e := &Engine{
		cfg:      cfg,
		clock:    RealClock{},
		log:      zerolog.Nop(),
		session:  uuid.NewString(),
		mailbox:  NewMailbox(),
		buf:      NewBuffer(),
		shutdown: NewShutdown(),
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With().Str("session", e.session).Logger()
	e.agg = NewAggregator(cfg.Window, e.clock)

	limit := rate.Inf
	if cfg.UploadRate > 0 && !math.IsInf(cfg.UploadRate, 1) {
		limit = rate.Limit(cfg.UploadRate)
	}

	samplerLog := e.log.With().Str("component", "sampler").Logger()
	e.sampler = &Sampler{
		sensor:   deps.Sensor,
		display:  deps.Display,
		agg:      e.agg,
		mailbox:  e.mailbox,
		buf:      e.buf,
		shutdown: e.shutdown,
		period:   cfg.TickPeriod,
		log:      samplerLog,
		errLog:   samplerLog.Sample(&zerolog.BurstSampler{Burst: 5, Period: 10 * time.Second}),
	}
	e.uploader = &Uploader{
		buf:          e.buf,
		sender:       deps.Sender,
		indicator:    deps.Indicator,
		batchSize:    cfg.BatchSize,
		poll:         cfg.PollPeriod,
		flushTimeout: cfg.FlushTimeout,
		limiter:      rate.NewLimiter(limit, 1),
		log:          e.log.With().Str("component", "uploader").Logger(),
	}
	return e, nil
}

// Start captures the session start time and launches the sampler and the
// uploader. Cancelling ctx has the same effect as Stop without waiting.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true
	e.start = e.clock.Now()
	e.sampler.start = e.start
	e.uploadDone = make(chan struct{})

	// The uploader outlives the sampler: its context ends only after the
	// sampler has finished, so the final flush sees the last record.
	uploadCtx, cancelUpload := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		<-e.shutdown.Done()
		cancelUpload()
	}()

	go e.sampler.Run(ctx)
	go func() {
		defer close(e.uploadDone)
		e.uploader.Run(uploadCtx)
	}()

	e.log.Info().
		Int("window", e.cfg.Window).
		Int("batch_size", e.cfg.BatchSize).
		Dur("tick", e.cfg.TickPeriod).
		Msg("roast session started")
	return nil
}

// Mark records a stage marker for the next tick. Safe from any goroutine.
func (e *Engine) Mark(s Stage) {
	e.mailbox.Write(s)
}

// Stop asks the sampler to stop, waits for it to finish its current tick,
// then waits for the uploader's final flush. ctx bounds both waits.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	started, uploadDone := e.started, e.uploadDone
	e.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	e.log.Info().Msg("stopping sampler")
	e.shutdown.Stop()
	if err := e.shutdown.Wait(ctx); err != nil {
		return fmt.Errorf("wait for sampler: %w", err)
	}
	e.log.Info().Msg("sampler finished")

	select {
	case <-uploadDone:
	case <-ctx.Done():
		return fmt.Errorf("wait for uploader: %w", ctx.Err())
	}

	st := e.Stats()
	e.log.Info().
		Uint64("ticks", st.Ticks).
		Uint64("batches", st.BatchesSent).
		Uint64("failed_attempts", st.FailedAttempts).
		Uint64("dropped", st.Dropped).
		Msg("roast session stopped")
	return nil
}

// Done is closed once the sampler has finished.
func (e *Engine) Done() <-chan struct{} { return e.shutdown.Done() }

// SessionID identifies this roast in every delivered batch.
func (e *Engine) SessionID() string { return e.session }

// StartTime returns when Start was called, or the zero time.
func (e *Engine) StartTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.start
}

func (e *Engine) Stats() Stats {
	return Stats{
		Ticks:              e.sampler.ticks.Load(),
		Pending:            e.buf.Len(),
		BatchesSent:        e.uploader.sent.Load(),
		FailedAttempts:     e.uploader.failed.Load(),
		Dropped:            e.uploader.dropped.Load(),
		MarkersOverwritten: e.mailbox.Overwritten(),
	}
}

// FormatElapsed renders latest-start as MM:SS, or "00:00" when either time
// is unset. Minutes keep counting past 59.
func FormatElapsed(start, latest time.Time) string {
	if start.IsZero() || latest.IsZero() {
		return "00:00"
	}
	secs := int(latest.Sub(start) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
