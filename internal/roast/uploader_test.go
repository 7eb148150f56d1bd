package roast

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestUploader(buf *Buffer, sender Sender, ind Indicator, batchSize int) *Uploader {
	return &Uploader{
		buf:          buf,
		sender:       sender,
		indicator:    ind,
		batchSize:    batchSize,
		poll:         5 * time.Millisecond,
		flushTimeout: time.Second,
		limiter:      rate.NewLimiter(rate.Inf, 1),
		log:          zerolog.Nop(),
	}
}

func runUploader(u *Uploader) (context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		u.Run(ctx)
	}()
	return cancel, done
}

func TestUploader_ShipsFullBatchesInOrder(t *testing.T) {
	buf := NewBuffer()
	sender := &recordingSender{}
	ind := &recordingIndicator{}
	u := newTestUploader(buf, sender, ind, 10)

	for i := int64(0); i < 25; i++ {
		buf.Append(Record{Time: i})
	}

	cancel, done := runUploader(u)
	require.Eventually(t, func() bool { return buf.Len() == 5 }, time.Second, time.Millisecond)
	require.Equal(t, 2, sender.batchCount())

	cancel()
	<-done

	got := sender.delivered()
	require.Len(t, got, 25)
	for i, r := range got {
		require.Equal(t, int64(i), r.Time)
	}
	require.Equal(t, 3, sender.batchCount())
	require.Zero(t, buf.Len())
	require.Equal(t, []bool{true, false, true, false, true, false}, ind.toggles())
}

func TestUploader_FailedBatchIsRetried(t *testing.T) {
	buf := NewBuffer()
	sender := &recordingSender{failN: 2}
	ind := &recordingIndicator{}
	u := newTestUploader(buf, sender, ind, 3)

	for _, r := range recordsAt(1, 2, 3, 4) {
		buf.Append(r)
	}

	cancel, done := runUploader(u)
	require.Eventually(t, func() bool { return buf.Len() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done

	require.Equal(t, uint64(2), u.failed.Load())
	require.Equal(t, uint64(2), u.sent.Load())
	require.Equal(t, recordsAt(1, 2, 3), sender.batches[0])
	require.Equal(t, recordsAt(4), sender.batches[1])

	toggles := ind.toggles()
	require.Len(t, toggles, 8)
	for i, on := range toggles {
		require.Equal(t, i%2 == 0, on)
	}
}

func TestUploader_AttemptLeavesBufferOnFailure(t *testing.T) {
	buf := NewBuffer()
	sender := &recordingSender{failN: 1}
	u := newTestUploader(buf, sender, nopIndicator{}, 2)
	for _, r := range recordsAt(1, 2, 3) {
		buf.Append(r)
	}

	snap := buf.Peek(2)
	require.ErrorIs(t, u.attempt(context.Background(), snap), errCollectorDown)
	require.Equal(t, 3, buf.Len())

	buf.Append(Record{Time: 4})
	require.NoError(t, u.attempt(context.Background(), snap))
	require.Equal(t, 2, buf.Len())
	require.Equal(t, int64(3), buf.Snapshot()[0].Time)
}

func TestUploader_FlushStopsAtFirstFailure(t *testing.T) {
	buf := NewBuffer()
	sender := &recordingSender{failN: 100}
	u := newTestUploader(buf, sender, nopIndicator{}, 10)
	for i := int64(0); i < 15; i++ {
		buf.Append(Record{Time: i})
	}

	u.flush()

	require.Equal(t, 1, sender.calls)
	require.Equal(t, uint64(15), u.dropped.Load())
}

func TestUploader_WakesOnAppend(t *testing.T) {
	buf := NewBuffer()
	sender := &recordingSender{}
	u := newTestUploader(buf, sender, nopIndicator{}, 2)
	u.poll = time.Hour

	cancel, done := runUploader(u)
	defer func() {
		cancel()
		<-done
	}()

	buf.Append(Record{Time: 1})
	buf.Append(Record{Time: 2})
	require.Eventually(t, func() bool { return sender.batchCount() == 1 }, time.Second, time.Millisecond)
}

func TestUploader_BacksOffAfterFailure(t *testing.T) {
	buf := NewBuffer()
	for i := int64(0); i < 10; i++ {
		buf.Append(Record{Time: i})
	}

	var calls atomic.Int64
	sender := SenderFunc(func(context.Context, []Record) error {
		calls.Add(1)
		return errCollectorDown
	})
	u := newTestUploader(buf, sender, nopIndicator{}, 10)
	u.poll = 50 * time.Millisecond
	u.flushTimeout = 10 * time.Millisecond

	start := time.Now()
	cancel, done := runUploader(u)
	time.Sleep(200 * time.Millisecond)
	cancel()
	<-done
	elapsed := time.Since(start)

	// One attempt per poll period plus the final flush.
	limit := int64(elapsed/u.poll) + 2
	require.LessOrEqual(t, calls.Load(), limit)
	require.GreaterOrEqual(t, calls.Load(), int64(2))
	require.Equal(t, 10, buf.Len())
	require.Equal(t, uint64(10), u.dropped.Load())
}
