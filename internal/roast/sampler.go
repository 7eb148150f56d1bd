package roast

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTickPeriod is the sampling cadence.
const DefaultTickPeriod = time.Second

// Sampler is the producer: once per tick it reads the sensor, feeds the
// aggregator, drains the mailbox, appends a Record and refreshes the display.
type Sampler struct {
	sensor   Sensor
	display  Display
	agg      *Aggregator
	mailbox  *Mailbox
	buf      *Buffer
	shutdown *Shutdown
	period   time.Duration
	start    time.Time

	log    zerolog.Logger
	errLog zerolog.Logger

	ticks atomic.Uint64
}

// Run samples until the shutdown coordinator is stopped or ctx ends, then
// marks the coordinator finished. The running flag is checked once per tick;
// a tick in progress always completes.
func (s *Sampler) Run(ctx context.Context) {
	defer s.shutdown.finish()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.log.Debug().Dur("period", s.period).Msg("sampler started")
	for s.shutdown.Running() {
		s.tick(ctx)

		select {
		case <-ticker.C:
		case <-s.shutdown.Stopping():
		case <-ctx.Done():
			s.shutdown.Stop()
		}
	}
	s.log.Debug().Uint64("ticks", s.ticks.Load()).Msg("sampler finished")
}

func (s *Sampler) tick(ctx context.Context) Record {
	raw, err := s.sensor.Read(ctx)
	if err != nil {
		s.errLog.Warn().Err(err).Float64("raw", raw).Msg("sensor read failed")
	}

	temp := s.agg.RecordSample(raw)
	ror := s.agg.RateOfRise()
	note, _ := s.mailbox.Take()
	latest := s.agg.Latest()

	rec := Record{Temp: temp, Time: latest.Unix(), RoR: ror, Note: note}
	s.buf.Append(rec)
	pending := s.buf.Len()
	s.ticks.Add(1)

	if note != StageNone {
		s.log.Info().Str("stage", string(note)).Float64("temp", temp).Msg("stage marked")
	}
	s.log.Debug().
		Float64("raw", raw).
		Float64("temp", temp).
		Float64("ror", ror).
		Int("pending", pending).
		Msg("tick")

	s.display.Refresh(Status{
		Elapsed: FormatElapsed(s.start, latest),
		Temp:    temp,
		RoR:     ror,
		Peak:    s.agg.Peak(),
		Note:    note,
		Pending: pending,
		Time:    latest,
	})
	return rec
}
