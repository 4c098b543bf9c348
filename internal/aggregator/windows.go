package aggregator

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ringCapacity bounds every sliding-window buffer: at a typical 16-second
// live cadence this holds a bit over three hours of samples, and at the
// 5-minute history cadence several days.
const ringCapacity = 720

// WindSample is one wind observation in the sliding window.
type WindSample struct {
	Ts    time.Time `msgpack:"ts"`
	Speed float64   `msgpack:"s"`
	Gust  float64   `msgpack:"g"`
}

// WindVector is one wind observation decomposed for vector averaging.
type WindVector struct {
	Ts      time.Time `msgpack:"ts"`
	X       float64   `msgpack:"x"`
	Y       float64   `msgpack:"y"`
	Bearing int       `msgpack:"b"`
}

// scalarSample is one (timestamp, value) pair for rain counters and trends.
type scalarSample struct {
	Ts  time.Time `msgpack:"ts"`
	Val float64   `msgpack:"v"`
}

// ring is a fixed-capacity buffer that overwrites oldest-first.  Entries
// older than a window are ignored by the queries rather than evicted.
type ring[T any] struct {
	buf   []T
	next  int
	count int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// each visits every held sample, oldest first.
func (r *ring[T]) each(fn func(v T)) {
	start := r.next - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		fn(r.buf[(start+i)%len(r.buf)])
	}
}

// items returns every held sample, oldest first.
func (r *ring[T]) items() []T {
	out := make([]T, 0, r.count)
	r.each(func(v T) { out = append(out, v) })
	return out
}

// Windows maintains the fixed-duration sliding windows over recent samples:
// 10-minute wind speed/bearing averages, peak gust, 3-hour pressure and
// temperature trends, and 1-hour/24-hour rain accumulations.
type Windows struct {
	wind    *ring[WindSample]
	vectors *ring[WindVector]
	rain    *ring[scalarSample]
	press   *ring[scalarSample]
	temp    *ring[scalarSample]
}

// NewWindows creates empty sliding windows.
func NewWindows() *Windows {
	return &Windows{
		wind:    newRing[WindSample](ringCapacity),
		vectors: newRing[WindVector](ringCapacity),
		rain:    newRing[scalarSample](ringCapacity),
		press:   newRing[scalarSample](ringCapacity),
		temp:    newRing[scalarSample](ringCapacity),
	}
}

// AddWind records one wind observation.
func (w *Windows) AddWind(ts time.Time, speed, gust float64, bearing int) {
	w.wind.push(WindSample{Ts: ts, Speed: speed, Gust: gust})
	rad := float64(bearing) * math.Pi / 180.0
	w.vectors.push(WindVector{Ts: ts, X: math.Sin(rad), Y: math.Cos(rad), Bearing: bearing})
}

// AddRainCounter records the running rain counter total at ts.
func (w *Windows) AddRainCounter(ts time.Time, counter float64) {
	w.rain.push(scalarSample{Ts: ts, Val: counter})
}

// AddPressure records a pressure sample for trend computation.
func (w *Windows) AddPressure(ts time.Time, hpa float64) {
	w.press.push(scalarSample{Ts: ts, Val: hpa})
}

// AddTemperature records a temperature sample for trend computation.
func (w *Windows) AddTemperature(ts time.Time, c float64) {
	w.temp.push(scalarSample{Ts: ts, Val: c})
}

// AverageSpeed returns the mean wind speed over the window ending at now.
// Returns 0 when no samples fall inside the window.
func (w *Windows) AverageSpeed(now time.Time, window time.Duration) float64 {
	cutoff := now.Add(-window)
	var speeds []float64
	w.wind.each(func(s WindSample) {
		if !s.Ts.Before(cutoff) && !s.Ts.After(now) {
			speeds = append(speeds, s.Speed)
		}
	})
	if len(speeds) == 0 {
		return 0
	}
	return stat.Mean(speeds, nil)
}

// PeakGust returns the highest gust in the window ending at now, with the
// time it occurred.  ok is false when the window holds no samples.
func (w *Windows) PeakGust(now time.Time, window time.Duration) (gust float64, ts time.Time, ok bool) {
	cutoff := now.Add(-window)
	w.wind.each(func(s WindSample) {
		if s.Ts.Before(cutoff) || s.Ts.After(now) {
			return
		}
		if !ok || s.Gust > gust {
			gust, ts, ok = s.Gust, s.Ts, true
		}
	})
	return gust, ts, ok
}

// AverageBearing returns the vector-averaged wind bearing in degrees over
// the window ending at now.  Returns the last pushed bearing when the
// vector sum degenerates (calm or perfectly opposing winds).
func (w *Windows) AverageBearing(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	var sumX, sumY float64
	last := 0
	n := 0
	w.vectors.each(func(v WindVector) {
		last = v.Bearing
		if v.Ts.Before(cutoff) || v.Ts.After(now) {
			return
		}
		sumX += v.X
		sumY += v.Y
		n++
	})
	if n == 0 || (math.Abs(sumX) < 1e-9 && math.Abs(sumY) < 1e-9) {
		return last
	}
	deg := math.Atan2(sumX, sumY) * 180.0 / math.Pi
	bearing := int(math.Round(deg))
	if bearing <= 0 {
		bearing += 360
	}
	return bearing
}

// RainSince returns the rain accumulated over the window ending at now,
// computed as the difference between the newest counter sample and the
// oldest one inside the window.  A counter reset inside the window clamps
// to zero.
func (w *Windows) RainSince(now time.Time, window time.Duration) float64 {
	cutoff := now.Add(-window)
	var oldest, newest *scalarSample
	w.rain.each(func(s scalarSample) {
		if s.Ts.Before(cutoff) || s.Ts.After(now) {
			return
		}
		cur := s
		if oldest == nil {
			oldest = &cur
		}
		newest = &cur
	})
	if oldest == nil || newest == nil {
		return 0
	}
	diff := newest.Val - oldest.Val
	if diff < 0 {
		return 0
	}
	return diff
}

// PressureTrend returns the pressure change in hPa over the window ending
// at now, from a least-squares fit over the samples inside the window.
func (w *Windows) PressureTrend(now time.Time, window time.Duration) float64 {
	return trend(w.press, now, window)
}

// TemperatureTrend returns the temperature change in C over the window
// ending at now.
func (w *Windows) TemperatureTrend(now time.Time, window time.Duration) float64 {
	return trend(w.temp, now, window)
}

func trend(r *ring[scalarSample], now time.Time, window time.Duration) float64 {
	cutoff := now.Add(-window)
	var xs, ys []float64
	r.each(func(s scalarSample) {
		if s.Ts.Before(cutoff) || s.Ts.After(now) {
			return
		}
		xs = append(xs, s.Ts.Sub(cutoff).Seconds())
		ys = append(ys, s.Val)
	})
	if len(xs) < 2 {
		return 0
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope * window.Seconds()
}

// WindowState is the serializable form of the sliding windows, used by the
// state checkpoint so windows survive a restart.
type WindowState struct {
	Wind    []WindSample   `msgpack:"wind"`
	Vectors []WindVector   `msgpack:"vectors"`
	Rain    []scalarSample `msgpack:"rain"`
	Press   []scalarSample `msgpack:"press"`
	Temp    []scalarSample `msgpack:"temp"`
}

// Dump captures the current window contents.
func (w *Windows) Dump() WindowState {
	return WindowState{
		Wind:    w.wind.items(),
		Vectors: w.vectors.items(),
		Rain:    w.rain.items(),
		Press:   w.press.items(),
		Temp:    w.temp.items(),
	}
}

// Restore reloads window contents from a checkpoint.
func (w *Windows) Restore(s WindowState) {
	for _, v := range s.Wind {
		w.wind.push(v)
	}
	for _, v := range s.Vectors {
		w.vectors.push(v)
	}
	for _, v := range s.Rain {
		w.rain.push(v)
	}
	for _, v := range s.Press {
		w.press.push(v)
	}
	for _, v := range s.Temp {
		w.temp.push(v)
	}
}
