package cloudapi

import (
	"encoding/json"
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
	"go.uber.org/zap"
)

// The platform publishes a fresh current-data set roughly once a minute.
// Polls are scheduled just past the next expected publication so each
// cycle is fetched once, with bounds for clock skew and suppressed data.
const (
	publishCadence = 60 * time.Second
	publishMargin  = 5 * time.Second
	minPollDelay   = 10 * time.Second
	maxPollDelay   = publishCadence + 2*publishMargin
)

// currentValue is one sensor reading in a real-time response.
type currentValue struct {
	Time  flexNumber  `json:"time"`
	Unit  string      `json:"unit"`
	Value *flexNumber `json:"value"`
}

// CurrentDecoder turns a real-time data payload into a single record.
type CurrentDecoder struct {
	PiezoPrimary bool
	Logger       *zap.SugaredLogger
}

// CurrentResult is the outcome of decoding one real-time response.  Record
// is nil when the platform has not published a newer data set than the one
// already ingested.
type CurrentResult struct {
	Record   *types.InstantRecord
	DataTime time.Time
	NextPoll time.Duration
}

// Decode builds a record from a real-time payload.  The data-set timestamp
// is taken from the relative pressure reading, falling back to the outdoor
// temperature reading; a set no newer than lastDataTime is suppressed.
func (d *CurrentDecoder) Decode(data json.RawMessage, lastDataTime, now time.Time) (*CurrentResult, error) {
	var groups map[string]json.RawMessage
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, err
	}

	rec := &types.InstantRecord{}
	var dataTime time.Time
	for name, raw := range groups {
		entries := groupEntries(name, d.PiezoPrimary)
		if entries == nil {
			continue
		}

		var group map[string]currentValue
		if err := json.Unmarshal(raw, &group); err != nil {
			d.Logger.Warnf("current group %s unparsable, skipping: %v", name, err)
			continue
		}

		for seriesName, cv := range group {
			e, ok := entries[seriesName]
			if !ok || cv.Value == nil {
				continue
			}
			v, err := cv.Value.Float64()
			if err != nil {
				continue
			}
			if e.temperature && v == temperatureSentinel {
				continue
			}
			e.apply(rec, v)

			if name == "pressure" && seriesName == "relative" {
				dataTime = stampTime(cv.Time)
			} else if dataTime.IsZero() && name == "outdoor" && seriesName == "temperature" {
				dataTime = stampTime(cv.Time)
			}
		}
	}

	if dataTime.IsZero() {
		dataTime = now
	}
	res := &CurrentResult{
		DataTime: dataTime,
		NextPoll: clampDelay(dataTime.Add(publishCadence + publishMargin).Sub(now)),
	}
	if dataTime.After(lastDataTime) {
		rec.Timestamp = dataTime
		res.Record = rec
	}
	return res, nil
}

func stampTime(n flexNumber) time.Time {
	sec, err := n.Int64()
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

func clampDelay(d time.Duration) time.Duration {
	if d < minPollDelay {
		return minPollDelay
	}
	if d > maxPollDelay {
		return maxPollDelay
	}
	return d
}
