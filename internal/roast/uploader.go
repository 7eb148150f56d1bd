package roast

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBatchSize    = 10
	DefaultPollPeriod   = 500 * time.Millisecond
	DefaultUploadRate   = 2.0
	DefaultFlushTimeout = 10 * time.Second
)

// Uploader is the consumer: it waits for a full batch, hands the oldest
// batchSize records to the Sender and removes them only after the Sender
// accepted them. Failed batches stay at the head of the buffer and are
// retried on the next iteration together with anything appended since.
type Uploader struct {
	buf          *Buffer
	sender       Sender
	indicator    Indicator
	batchSize    int
	poll         time.Duration
	flushTimeout time.Duration
	limiter      *rate.Limiter
	log          zerolog.Logger

	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// Run uploads batches until ctx ends, then makes one final flush of
// whatever is left. Deliveries already in flight are not cut short by ctx;
// the Sender's own timeouts bound them.
func (u *Uploader) Run(ctx context.Context) {
	sendCtx := context.WithoutCancel(ctx)

	timer := time.NewTimer(u.poll)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			u.flush()
			return
		}

		if u.buf.Len() < u.batchSize {
			timer.Reset(u.poll)
			select {
			case <-ctx.Done():
			case <-u.buf.Notify():
			case <-timer.C:
			}
			continue
		}

		if err := u.limiter.Wait(ctx); err != nil {
			continue
		}
		if err := u.attempt(sendCtx, u.buf.Peek(u.batchSize)); err != nil {
			// Back off for a poll period before retrying, even when the
			// limiter is unbounded.
			timer.Reset(u.poll)
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		}
	}
}

// attempt delivers batch once. On success exactly len(batch) records are
// removed from the head of the buffer.
func (u *Uploader) attempt(ctx context.Context, batch []Record) error {
	if len(batch) == 0 {
		return nil
	}

	u.indicator.SetActive(true)
	defer u.indicator.SetActive(false)

	start := time.Now()
	if err := u.sender.Send(ctx, batch); err != nil {
		u.failed.Add(1)
		u.log.Warn().
			Err(err).
			Int("records", len(batch)).
			Int64("first", batch[0].Time).
			Msg("batch upload failed")
		return err
	}

	remaining := u.buf.DropPrefix(len(batch))
	u.sent.Add(1)
	u.log.Debug().
		Int("records", len(batch)).
		Int("remaining", remaining).
		Dur("took", time.Since(start)).
		Msg("batch uploaded")
	return nil
}

// flush sends every remaining full batch and then the partial tail, one
// attempt each, within flushTimeout. It stops at the first failure.
func (u *Uploader) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), u.flushTimeout)
	defer cancel()

	for {
		n := min(u.batchSize, u.buf.Len())
		if n == 0 {
			break
		}
		if err := u.attempt(ctx, u.buf.Peek(n)); err != nil {
			break
		}
	}

	if left := u.buf.Len(); left > 0 {
		u.dropped.Add(uint64(left))
		u.log.Error().Int("records", left).Msg("records undelivered at shutdown")
		return
	}
	u.log.Debug().Msg("buffer flushed")
}
