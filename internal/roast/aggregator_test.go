package roast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregator_MeanOverWindow(t *testing.T) {
	clock := newMockClock()
	agg := NewAggregator(DefaultWindow, clock)

	readings := make([]float64, 25)
	for i := range readings {
		readings[i] = float64(150 + 3*i + i%4)
	}

	for i, raw := range readings {
		clock.Advance(time.Second)
		got := agg.RecordSample(raw)

		start := max(0, i+1-DefaultWindow)
		sum := 0.0
		for _, v := range readings[start : i+1] {
			sum += v
		}
		want := sum / float64(i+1-start)

		require.InDelta(t, want, got, 1e-9, "reading %d", i)
		require.Equal(t, got, agg.Smoothed())
		require.LessOrEqual(t, agg.Len(), DefaultWindow)
		require.Equal(t, agg.Len(), len(agg.History()))
		if i+1 >= DefaultWindow {
			require.Equal(t, DefaultWindow, agg.Len())
		}
	}
}

func TestAggregator_RateOfRiseNeedsTwoPoints(t *testing.T) {
	agg := NewAggregator(DefaultWindow, newMockClock())
	require.Zero(t, agg.RateOfRise())

	agg.RecordSample(120)
	require.Zero(t, agg.RateOfRise())
}

func TestAggregator_RateOfRiseZeroElapsed(t *testing.T) {
	agg := NewAggregator(DefaultWindow, newMockClock())
	agg.RecordSample(90)
	agg.RecordSample(200)
	require.Zero(t, agg.RateOfRise())
}

func TestAggregator_RateOfRiseDegreesPerMinute(t *testing.T) {
	clock := newMockClock()
	agg := NewAggregator(DefaultWindow, clock)

	require.Equal(t, 90.0, agg.RecordSample(90))
	clock.Advance(30 * time.Second)
	require.Equal(t, 92.0, agg.RecordSample(94))

	require.InDelta(t, 4.0, agg.RateOfRise(), 1e-9)
}

func TestAggregator_RateOfRiseUsesNewestPairOnly(t *testing.T) {
	clock := newMockClock()
	agg := NewAggregator(3, clock)

	agg.RecordSample(100) // 100
	clock.Advance(10 * time.Second)
	agg.RecordSample(200) // 150
	clock.Advance(time.Second)
	agg.RecordSample(201) // 167

	require.InDelta(t, 1020.0, agg.RateOfRise(), 1e-9)
}

func TestAggregator_ThreeTickScenario(t *testing.T) {
	clock := newMockClock()
	agg := NewAggregator(DefaultWindow, clock)

	var smoothed, rors []float64
	for _, raw := range []float64{80, 85, 90} {
		smoothed = append(smoothed, agg.RecordSample(raw))
		rors = append(rors, agg.RateOfRise())
		clock.Advance(time.Second)
	}

	require.Equal(t, []float64{80.0, 82.5, 85.0}, smoothed)
	require.Zero(t, rors[0])
	require.NotZero(t, rors[1])
	require.NotZero(t, rors[2])
}

func TestAggregator_PeakAndLatest(t *testing.T) {
	clock := newMockClock()
	agg := NewAggregator(2, clock)
	require.Zero(t, agg.Peak())
	require.True(t, agg.Latest().IsZero())

	agg.RecordSample(100)
	clock.Advance(time.Second)
	agg.RecordSample(140)
	clock.Advance(time.Second)
	agg.RecordSample(60)

	require.Equal(t, 120.0, agg.Peak())
	require.Equal(t, clock.Now(), agg.Latest())
	require.Equal(t, 2, agg.Window())
}

func TestAggregator_DefaultsForBadArguments(t *testing.T) {
	agg := NewAggregator(0, nil)
	require.Equal(t, DefaultWindow, agg.Window())
	agg.RecordSample(1)
	require.False(t, agg.Latest().IsZero())
}
