package aggregation

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sparseHistory() []domain.HistoryEntry {
	return []domain.HistoryEntry{
		entry("2024-06-01", "300", map[string]string{"a": "100", "b": "150", "c": "50"}),
		entry("2024-01-01", "60", map[string]string{"a": "60"}),
		entry("2024-05-20", "250", map[string]string{"a": "100", "b": "150", "gone": "1"}),
	}
}

func TestFilterSeries_AllTimeframeFillsMissingKeys(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	rows := slices.Collect(FilterSeries(sparseHistory(), domain.TimeframeAll, []string{"a", "b", "c"}, now))

	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Len(t, row.Values, 3, "row %d", i)
		for _, id := range []string{"a", "b", "c"} {
			_, ok := row.Values[id]
			assert.True(t, ok, "row %d misses %s", i, id)
		}
		if i > 0 {
			assert.False(t, row.Date.Before(rows[i-1].Date.Time), "rows must ascend")
		}
	}

	assert.True(t, d("60").Equal(rows[0].Values["a"]))
	assert.True(t, rows[0].Values["b"].IsZero())
	assert.True(t, rows[1].Values["c"].IsZero())
	assert.True(t, d("300").Equal(rows[2].Total))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), rows[0].Timestamp)
}

func TestFilterSeries_CutoffIsInclusive(t *testing.T) {
	now := time.Date(2024, 6, 19, 0, 0, 0, 0, time.UTC)
	// 1M = 30 days back: 2024-05-20 exactly
	rows := slices.Collect(FilterSeries(sparseHistory(), domain.TimeframeOneMonth, []string{"a"}, now))

	require.Len(t, rows, 2)
	assert.True(t, d("250").Equal(rows[0].Total))
	assert.True(t, d("300").Equal(rows[1].Total))
}

func TestFilterSeries_EmptyResults(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := slices.Collect(FilterSeries(sparseHistory(), domain.TimeframeThreeMonths, []string{"a"}, now))
	assert.Empty(t, rows)

	rows = slices.Collect(FilterSeries(nil, domain.TimeframeAll, []string{"a"}, now))
	assert.Empty(t, rows)
}

func TestFilterSeries_IsRestartableAndDoesNotMutate(t *testing.T) {
	history := sparseHistory()
	original := slices.Clone(history)
	seq := FilterSeries(history, domain.TimeframeAll, []string{"zzz"}, time.Now())

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Equal(t, original, history)
	_, leaked := history[1].Accounts["zzz"]
	assert.False(t, leaked)

	// Early stop is honoured
	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestFilterSeries_TotalOnly(t *testing.T) {
	sel := SelectSeries(scenarioAccounts(), TypeFilterTotal)
	assert.True(t, sel.TotalOnly)

	rows := slices.Collect(FilterSeries(sparseHistory(), domain.TimeframeAll, sel.AccountIDs, time.Now()))
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Empty(t, row.Values)
	}
}

func TestSelectSeries(t *testing.T) {
	accounts := append(scenarioAccounts(), domain.Account{ID: "c", Name: "Index", Type: domain.AccountTypeETF})

	all := SelectSeries(accounts, TypeFilterAll)
	assert.False(t, all.TotalOnly)
	assert.Equal(t, []string{"a", "b", "c"}, all.AccountIDs)

	assert.Equal(t, all, SelectSeries(accounts, ""))

	etf := SelectSeries(accounts, domain.AccountTypeETF)
	assert.Equal(t, []string{"b", "c"}, etf.AccountIDs)

	none := SelectSeries(accounts, "Crypto")
	assert.Empty(t, none.AccountIDs)
	assert.NotNil(t, none.AccountIDs)
}

func TestSeriesRow_MarshalJSON(t *testing.T) {
	row := SeriesRow{
		Date:      domain.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Timestamp: 1704067200000,
		Total:     decimal.NewFromInt(100),
		Values:    map[string]decimal.Decimal{"a": decimal.NewFromInt(60)},
	}

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-01-01T00:00:00.000Z","timestamp":1704067200000,"total":100,"a":60}`, string(data))
}
