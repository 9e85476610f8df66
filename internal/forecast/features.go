package forecast

import (
	"math"
	"time"

	"github.com/maishanyun/pantry/internal/store"
)

// FeaturePreparer turns ordered daily usage history into the fixed-width
// feature window the SequenceForecaster consumes. It is an explicit
// interface so the engineered signals can be swapped without touching the
// model or the orchestrator.
type FeaturePreparer interface {
	// InputSize is the width of every feature vector.
	InputSize() int

	// Window returns size feature vectors for the days ending at history
	// index end (inclusive). When the history is shorter than the window,
	// the earliest day is repeated to fill the deficit.
	Window(history []store.DailyUsage, end, size int) [][]float64
}

// CalendarUsageFeatures engineers a width-10 vector per day from usage and
// calendar signals: scaled usage, day-of-week and month encodings, rolling
// statistics, a one-week lag and a weekend flag.
type CalendarUsageFeatures struct{}

// NewCalendarUsageFeatures returns the default feature preparer.
func NewCalendarUsageFeatures() *CalendarUsageFeatures {
	return &CalendarUsageFeatures{}
}

// InputSize implements FeaturePreparer.
func (f *CalendarUsageFeatures) InputSize() int { return 10 }

// Window implements FeaturePreparer.
func (f *CalendarUsageFeatures) Window(history []store.DailyUsage, end, size int) [][]float64 {
	if len(history) == 0 || size < 1 {
		return nil
	}
	if end >= len(history) {
		end = len(history) - 1
	}

	scale := usageScale(history)
	out := make([][]float64, 0, size)
	for idx := end - size + 1; idx <= end; idx++ {
		i := idx
		if i < 0 {
			i = 0
		}
		out = append(out, f.vector(history, i, scale))
	}
	return out
}

func (f *CalendarUsageFeatures) vector(history []store.DailyUsage, idx int, scale float64) []float64 {
	day := history[idx]

	dow := float64(day.Date.Weekday())
	month := float64(day.Date.Month() - 1)

	mean7, std7 := rollingStats(history, idx, 7)
	mean14, _ := rollingStats(history, idx, 14)

	lag7 := day.Quantity
	if idx >= 7 {
		lag7 = history[idx-7].Quantity
	}

	weekend := 0.0
	if wd := day.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		weekend = 1
	}

	return []float64{
		day.Quantity / scale,
		math.Sin(2 * math.Pi * dow / 7),
		math.Cos(2 * math.Pi * dow / 7),
		math.Sin(2 * math.Pi * month / 12),
		math.Cos(2 * math.Pi * month / 12),
		mean7 / scale,
		std7 / scale,
		mean14 / scale,
		lag7 / scale,
		weekend,
	}
}

// rollingStats returns mean and population standard deviation of the
// last n days ending at idx, clamped at the start of history.
func rollingStats(history []store.DailyUsage, idx, n int) (mean, std float64) {
	start := idx - n + 1
	if start < 0 {
		start = 0
	}
	count := float64(idx - start + 1)

	for i := start; i <= idx; i++ {
		mean += history[i].Quantity
	}
	mean /= count

	for i := start; i <= idx; i++ {
		d := history[i].Quantity - mean
		std += d * d
	}
	return mean, math.Sqrt(std / count)
}

// usageScale normalizes usage magnitudes so features stay near unit range.
func usageScale(history []store.DailyUsage) float64 {
	var sum float64
	for _, d := range history {
		sum += math.Abs(d.Quantity)
	}
	scale := sum / float64(len(history))
	if scale < 1 {
		return 1
	}
	return scale
}
