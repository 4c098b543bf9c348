package cloudapi

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
	"go.uber.org/zap"
)

// historySeries is one named series inside a history group: a unit label
// and a map of epoch-second strings to sample values.
type historySeries struct {
	Unit string                 `json:"unit"`
	List map[string]*flexNumber `json:"list"`
}

// HistoryDecoder merges a history response's per-group time series into
// one chronological record stream.
type HistoryDecoder struct {
	// PiezoPrimary selects which of the two rain groups is honored.
	PiezoPrimary bool

	// Fudge shifts every sample timestamp forward, compensating for
	// devices whose clock runs behind the platform's cycle boundaries.
	Fudge time.Duration

	Logger *zap.SugaredLogger
}

// Decode unmarshals a history data payload into records sorted ascending
// by timestamp.  Samples at or before lastUpdate are dropped, as are
// temperature samples at the platform's sentinel value.  A malformed group
// is logged and skipped without poisoning its siblings.  The context is
// checked between groups so a large backfill can be abandoned mid-decode.
func (d *HistoryDecoder) Decode(ctx context.Context, data json.RawMessage, lastUpdate time.Time) ([]*types.InstantRecord, error) {
	var groups map[string]json.RawMessage
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, err
	}

	recs := make(map[int64]*types.InstantRecord)
	for name, raw := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries := groupEntries(name, d.PiezoPrimary)
		if entries == nil {
			continue
		}

		var group map[string]historySeries
		if err := json.Unmarshal(raw, &group); err != nil {
			d.Logger.Warnf("history group %s unparsable, skipping: %v", name, err)
			continue
		}

		// Each group assembles its own per-timestamp fragments, merged
		// into the shared stream only once the whole group decoded.
		fragments := make(map[int64]*types.InstantRecord)
		for seriesName, series := range group {
			e, ok := entries[seriesName]
			if !ok {
				continue
			}
			for stamp, num := range series.List {
				if num == nil {
					continue
				}
				sec, err := strconv.ParseInt(stamp, 10, 64)
				if err != nil {
					d.Logger.Warnf("history %s.%s has non-numeric timestamp %q", name, seriesName, stamp)
					continue
				}
				v, err := num.Float64()
				if err != nil {
					continue
				}
				if e.temperature && v == temperatureSentinel {
					continue
				}

				ts := time.Unix(sec, 0).Add(d.Fudge)
				if !ts.After(lastUpdate) {
					continue
				}

				frag, ok := fragments[ts.Unix()]
				if !ok {
					frag = &types.InstantRecord{Timestamp: ts}
					fragments[ts.Unix()] = frag
				}
				e.apply(frag, v)
			}
		}

		for sec, frag := range fragments {
			if rec, ok := recs[sec]; ok {
				rec.Merge(frag)
			} else {
				recs[sec] = frag
			}
		}
	}

	out := make([]*types.InstantRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
