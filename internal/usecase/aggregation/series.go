package aggregation

import (
	"encoding/json"
	"iter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/networth-backend/internal/domain"
)

// Type filters accepted by SelectSeries besides a concrete account type
const (
	TypeFilterAll   = "all"
	TypeFilterTotal = "total"
)

// SeriesRow is one x-coordinate of the chart dataset.
// Values holds every requested account id, defaulting to zero.
type SeriesRow struct {
	Date      domain.Timestamp
	Timestamp int64
	Total     decimal.Decimal
	Values    map[string]decimal.Decimal
}

// MarshalJSON flattens the row into {date, timestamp, total, <accountId>: value...}
func (r SeriesRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Values)+3)
	for id, v := range r.Values {
		out[id] = v
	}
	out["date"] = r.Date
	out["timestamp"] = r.Timestamp
	out["total"] = r.Total
	return json.Marshal(out)
}

// SeriesSelection is the set of series keys to chart
type SeriesSelection struct {
	// AccountIDs are the per-account series, in display order
	AccountIDs []string
	// TotalOnly collapses the chart into the precomputed total of each entry
	TotalOnly bool
}

// SelectSeries resolves a type filter into series keys.
// "all" (or empty) keeps every account, "total" selects the total-only mode,
// any other value keeps the accounts of that type.
func SelectSeries(accounts []domain.Account, typeFilter string) SeriesSelection {
	switch typeFilter {
	case TypeFilterTotal:
		return SeriesSelection{TotalOnly: true, AccountIDs: []string{}}
	case TypeFilterAll, "":
		ids := make([]string, 0, len(accounts))
		for _, acc := range accounts {
			ids = append(ids, acc.ID)
		}
		return SeriesSelection{AccountIDs: ids}
	default:
		ids := []string{}
		for _, acc := range accounts {
			if acc.Type == typeFilter {
				ids = append(ids, acc.ID)
			}
		}
		return SeriesSelection{AccountIDs: ids}
	}
}

// FilterSeries builds the chart rows for the entries inside the timeframe.
//
// Entries dated at or after the cutoff are kept (all of them for ALL), in ascending
// date order, and projected onto accountIDs: an id missing from an entry yields 0 so
// that every row carries every key. The returned sequence is recomputed on each
// iteration; nothing is cached.
func FilterSeries(history []domain.HistoryEntry, timeframe domain.Timeframe, accountIDs []string, now time.Time) iter.Seq[SeriesRow] {
	return func(yield func(SeriesRow) bool) {
		cutoff, hasCutoff := timeframe.Cutoff(now)
		for _, entry := range OrderedHistory(history) {
			if hasCutoff && entry.Date.Before(cutoff) {
				continue
			}
			row := SeriesRow{
				Date:      entry.Date,
				Timestamp: entry.Date.UnixMilli(),
				Total:     entry.Total,
				Values:    make(map[string]decimal.Decimal, len(accountIDs)),
			}
			for _, id := range accountIDs {
				v, ok := entry.Accounts[id]
				if !ok {
					v = decimal.Zero
				}
				row.Values[id] = v
			}
			if !yield(row) {
				return
			}
		}
	}
}
