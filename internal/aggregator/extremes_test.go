package aggregator

import (
	"testing"
	"time"
)

func TestTrackerHighLow(t *testing.T) {
	ts := time.Date(2026, 7, 15, 14, 30, 0, 0, time.UTC)

	high := newHigh("Temp", "High", rawEpsilon)
	if !high.Update(20, ts, ts) {
		t.Fatal("first value did not establish high record")
	}
	if high.Update(19, ts.Add(time.Minute), ts) {
		t.Error("lower value broke high record")
	}
	if !high.Update(20.5, ts.Add(2*time.Minute), ts) {
		t.Error("higher value did not break record")
	}
	if high.Rec.Val != 20.5 {
		t.Errorf("record value = %v, want 20.5", high.Rec.Val)
	}

	low := newLow("Temp", "Low", rawEpsilon)
	if !low.Update(5, ts, ts) {
		t.Fatal("first value did not establish low record")
	}
	if low.Update(6, ts.Add(time.Minute), ts) {
		t.Error("higher value broke low record")
	}
	if !low.Update(3, ts.Add(2*time.Minute), ts) {
		t.Error("lower value did not break record")
	}
}

func TestTrackerEpsilon(t *testing.T) {
	ts := time.Now()

	raw := newHigh("Temp", "High", rawEpsilon)
	raw.Update(20, ts, ts)
	if raw.Update(20.0005, ts.Add(time.Minute), ts) {
		t.Error("sub-epsilon difference broke raw record")
	}
	if !raw.Update(20.002, ts.Add(2*time.Minute), ts) {
		t.Error("above-epsilon difference did not break raw record")
	}

	derived := newHigh("DewPoint", "High", derivedEpsilon)
	derived.Update(15, ts, ts)
	if derived.Update(15.05, ts.Add(time.Minute), ts) {
		t.Error("invisible 0.05 difference broke derived record")
	}
	// 15.1-15.0 is slightly under 0.1 in binary; the comparison must not
	// let representation error swallow an exactly-one-epsilon break
	if !derived.Update(15.1, ts.Add(2*time.Minute), ts) {
		t.Error("0.1 difference did not break derived record")
	}

	low := newLow("DewPoint", "Low", derivedEpsilon)
	low.Update(15.1, ts, ts)
	if !low.Update(15, ts.Add(time.Minute), ts) {
		t.Error("0.1 drop did not break derived low record")
	}
}

func TestTrackerAggregateStamps(t *testing.T) {
	// A reading at 03:00 on July 1 under a 9am rollover counts toward the
	// June 30 meteorological day and the June monthly aggregate
	ts := time.Date(2026, 7, 1, 3, 0, 0, 0, time.UTC)
	day := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	daily := newHigh("DailyRain", "High", rawEpsilon)
	daily.Stamp = StampDay
	daily.Update(12.4, ts, day)
	if !daily.Rec.Ts.Equal(day) {
		t.Errorf("daily aggregate stamp = %v, want %v", daily.Rec.Ts, day)
	}

	monthly := newHigh("MonthlyRain", "High", rawEpsilon)
	monthly.Stamp = StampMonth
	monthly.Update(88.2, ts, day)
	wantMonth := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if !monthly.Rec.Ts.Equal(wantMonth) {
		t.Errorf("monthly aggregate stamp = %v, want %v", monthly.Rec.Ts, wantMonth)
	}

	instant := newHigh("Temp", "High", rawEpsilon)
	instant.Update(30, ts, day)
	if !instant.Rec.Ts.Equal(ts) {
		t.Errorf("instant stamp = %v, want %v", instant.Rec.Ts, ts)
	}
}

func TestTrackerSentinel(t *testing.T) {
	high := newHigh("Temp", "High", rawEpsilon)
	if !high.AtSentinel() {
		t.Error("fresh high tracker not at sentinel")
	}
	now := time.Now()
	high.Update(10, now, now)
	if high.AtSentinel() {
		t.Error("updated tracker still reports sentinel")
	}
	high.ResetSentinel()
	if !high.AtSentinel() {
		t.Error("reset tracker not at sentinel")
	}

	low := newLow("Temp", "Low", rawEpsilon)
	if !low.AtSentinel() {
		t.Error("fresh low tracker not at sentinel")
	}
}

func TestScopeRecordsCopyFrom(t *testing.T) {
	ts := time.Now()
	src := NewScopeRecords(ScopeToday)
	src.HighTemp.Update(25, ts, ts)
	src.LowTemp.Update(12, ts, ts)
	src.HighGust.Update(18.5, ts, ts)

	dst := NewScopeRecords(ScopeYesterday)
	dst.CopyFrom(src)

	if dst.HighTemp.Rec.Val != 25 || dst.LowTemp.Rec.Val != 12 || dst.HighGust.Rec.Val != 18.5 {
		t.Errorf("copy mismatch: high %v low %v gust %v",
			dst.HighTemp.Rec.Val, dst.LowTemp.Rec.Val, dst.HighGust.Rec.Val)
	}
	// Untouched trackers copy across as sentinels
	if !dst.HighRainRate.AtSentinel() {
		t.Error("untouched tracker not at sentinel after copy")
	}
}

func TestScopeRecordsStampKinds(t *testing.T) {
	// Daily/monthly rain totals are period aggregates only beyond the day
	// they belong to
	if NewScopeRecords(ScopeToday).HighDailyRain.Stamp != StampInstant {
		t.Error("Today daily-rain tracker should stamp the instant")
	}
	if NewScopeRecords(ScopeThisYear).HighDailyRain.Stamp != StampDay {
		t.Error("Year daily-rain tracker should stamp the meteorological day")
	}
	if NewScopeRecords(ScopeAllTime).HighMonthRain.Stamp != StampMonth {
		t.Error("AllTime monthly-rain tracker should stamp the month start")
	}
}
