package forecast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/floodapi"
	"github.com/bbernstein/floodwatch/backend-go/pkg/http/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	getRecentReadingsFunc func(ctx context.Context, maxReadingID *int64) client.Result[floodapi.RecentReadingsResponse]
	getForecastFunc       func(ctx context.Context, gaugeIDs []string, ifNewerThan time.Time) client.Result[floodapi.ForecastResponse]
	calls                 []string
}

var _ API = (*mockAPI)(nil)
var _ API = (*floodapi.Client)(nil)

func (m *mockAPI) GetRecentReadings(ctx context.Context, maxReadingID *int64) client.Result[floodapi.RecentReadingsResponse] {
	m.calls = append(m.calls, "recent")
	if m.getRecentReadingsFunc != nil {
		return m.getRecentReadingsFunc(ctx, maxReadingID)
	}
	return client.Result[floodapi.RecentReadingsResponse]{Kind: client.KindOK}
}

func (m *mockAPI) GetForecast(ctx context.Context, gaugeIDs []string, ifNewerThan time.Time) client.Result[floodapi.ForecastResponse] {
	m.calls = append(m.calls, "forecast")
	if m.getForecastFunc != nil {
		return m.getForecastFunc(ctx, gaugeIDs, ifNewerThan)
	}
	return client.Result[floodapi.ForecastResponse]{Kind: client.KindOK}
}

func recentResult(t *testing.T, body string) client.Result[floodapi.RecentReadingsResponse] {
	t.Helper()
	var resp floodapi.RecentReadingsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return client.Result[floodapi.RecentReadingsResponse]{Kind: client.KindOK, Data: resp}
}

func forecastResult(t *testing.T, body string) client.Result[floodapi.ForecastResponse] {
	t.Helper()
	var resp floodapi.ForecastResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return client.Result[floodapi.ForecastResponse]{Kind: client.KindOK, Data: resp}
}

func newTestStore(api API) *Store {
	return NewStore(api, WithClock(func() time.Time { return anchor }), WithGaugeIDs("G1", "G2"))
}

func TestFetchRecentReadingsPushesAndTracksWatermark(t *testing.T) {
	bodies := []string{
		`{"gauges":{"G1":{"timestamps":["2024-04-01T10:00:00Z","2024-04-01T10:15:00Z"],"waterHeights":[2,2.1],"discharges":[100,110]}},"maxReadingId":20}`,
		`{"gauges":{"G1":{"timestamps":["2024-04-01T10:30:00Z"],"waterHeights":[2.2],"discharges":[120],"dischargeTrendRate":8}}}`,
	}
	var watermarks []*int64
	api := &mockAPI{
		getRecentReadingsFunc: func(ctx context.Context, maxReadingID *int64) client.Result[floodapi.RecentReadingsResponse] {
			watermarks = append(watermarks, maxReadingID)
			return recentResult(t, bodies[len(watermarks)-1])
		},
	}
	store := newTestStore(api)

	require.NoError(t, store.FetchRecentReadings(context.Background()))
	require.NoError(t, store.FetchRecentReadings(context.Background()))

	require.Len(t, watermarks, 2)
	assert.Nil(t, watermarks[0], "first call omits the watermark")
	assert.Equal(t, int64(20), *watermarks[1])
	assert.Equal(t, int64(20), *store.MaxReadingID(), "kept when the response has none")

	f := store.Get("G1")
	require.NotNil(t, f)
	readings := f.RecentReadings()
	assert.Equal(t, 3, readings.Len(), "readings are pushed, never replaced")
	assert.Len(t, readings.Discharges, 3)
	assert.Equal(t, 8.0, *readings.DischargeTrendRate)
}

func TestFetchForecast(t *testing.T) {
	var gotIDs []string
	var gotCutoff time.Time
	api := &mockAPI{
		getForecastFunc: func(ctx context.Context, gaugeIDs []string, ifNewerThan time.Time) client.Result[floodapi.ForecastResponse] {
			gotIDs, gotCutoff = gaugeIDs, ifNewerThan
			return forecastResult(t, `{"forecasts":{
				"G1":{"forecastId":"F1","timestamps":["2024-04-02T00:00:00Z"],"discharges":[900],"peaks":[{"ts":"2024-04-02T00:00:00Z","cfs":900,"ft":15}]},
				"G2":{"timestamps":["2024-04-02T00:00:00Z"]}
			}}`)
		},
	}
	store := newTestStore(api)

	require.NoError(t, store.FetchForecast(context.Background()))

	assert.Equal(t, []string{"G1", "G2"}, gotIDs)
	assert.Equal(t, anchor.Add(-DefaultForecastLookback), gotCutoff)

	require.NotNil(t, store.Get("G1"))
	assert.Equal(t, "F1", store.Get("G1").Predictions().ForecastID)
	assert.Len(t, store.Get("G1").Peaks(), 1)
	assert.Nil(t, store.Get("G2"), "payload without forecast id is ignored")
}

func TestMalformedGaugePayloadKeepsTheRest(t *testing.T) {
	api := &mockAPI{
		getRecentReadingsFunc: func(ctx context.Context, maxReadingID *int64) client.Result[floodapi.RecentReadingsResponse] {
			return recentResult(t, `{"gauges":{
				"G1":{"timestamps":["2024-04-01T10:00:00Z"],"waterHeights":[2],"discharges":[100]},
				"G2":42
			},"maxReadingId":7}`)
		},
		getForecastFunc: func(ctx context.Context, gaugeIDs []string, ifNewerThan time.Time) client.Result[floodapi.ForecastResponse] {
			return forecastResult(t, `{"forecasts":{
				"G1":{"forecastId":"F1","timestamps":["2024-04-02T00:00:00Z"],"discharges":[900]},
				"G2":{"forecastId":"F2","timestamps":7}
			}}`)
		},
	}
	store := newTestStore(api)

	require.NoError(t, store.FetchData(context.Background()))

	require.NotNil(t, store.Get("G1"))
	recent := store.Get("G1").RecentReadings()
	assert.Equal(t, 1, recent.Len())
	assert.Equal(t, "F1", store.Get("G1").Predictions().ForecastID)
	assert.Nil(t, store.Get("G2"))
	assert.Equal(t, int64(7), *store.MaxReadingID())
}

func TestFetchDataIsSequentialAndResets(t *testing.T) {
	recentCalls := 0
	api := &mockAPI{
		getRecentReadingsFunc: func(ctx context.Context, maxReadingID *int64) client.Result[floodapi.RecentReadingsResponse] {
			recentCalls++
			if recentCalls == 2 {
				assert.Nil(t, maxReadingID, "watermark is reset before the baseline")
			}
			return recentResult(t, `{"gauges":{"G1":{"timestamps":["2024-04-01T10:00:00Z"],"discharges":[100]}},"maxReadingId":5}`)
		},
	}
	store := newTestStore(api)

	require.NoError(t, store.FetchRecentReadings(context.Background()))
	api.calls = nil

	require.NoError(t, store.FetchData(context.Background()))

	assert.Equal(t, []string{"recent", "forecast"}, api.calls)
	f := store.Get("G1")
	require.NotNil(t, f)
	recent := f.RecentReadings()
	assert.Equal(t, 1, recent.Len(), "history was cleared before refetch")
}

func TestPartialFailureKeepsReadings(t *testing.T) {
	api := &mockAPI{
		getRecentReadingsFunc: func(ctx context.Context, maxReadingID *int64) client.Result[floodapi.RecentReadingsResponse] {
			return recentResult(t, `{"gauges":{"G1":{"timestamps":["2024-04-01T10:00:00Z"],"discharges":[100]}},"maxReadingId":5}`)
		},
		getForecastFunc: func(ctx context.Context, gaugeIDs []string, ifNewerThan time.Time) client.Result[floodapi.ForecastResponse] {
			return client.Result[floodapi.ForecastResponse]{Kind: client.KindCannotConnect}
		},
	}
	store := newTestStore(api)

	err := store.FetchData(context.Background())

	require.Error(t, err)
	assert.True(t, store.LastError().IsError)
	assert.Contains(t, store.LastError().Message, "fetch forecast")
	require.NotNil(t, store.Get("G1"))
	recent := store.Get("G1").RecentReadings()
	assert.Equal(t, 1, recent.Len())
	assert.Equal(t, int64(5), *store.MaxReadingID())
}

func TestReadingsFailureStillFetchesForecast(t *testing.T) {
	api := &mockAPI{
		getRecentReadingsFunc: func(ctx context.Context, maxReadingID *int64) client.Result[floodapi.RecentReadingsResponse] {
			return client.Result[floodapi.RecentReadingsResponse]{Kind: client.KindServer}
		},
		getForecastFunc: func(ctx context.Context, gaugeIDs []string, ifNewerThan time.Time) client.Result[floodapi.ForecastResponse] {
			return forecastResult(t, `{"forecasts":{"G1":{"forecastId":"F1","timestamps":[],"peaks":[]}}}`)
		},
	}
	store := newTestStore(api)

	err := store.FetchData(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"recent", "forecast"}, api.calls)
	assert.True(t, store.LastError().IsError)
	assert.Contains(t, store.LastError().Message, "recent readings")
	assert.NotNil(t, store.Get("G1"))
}

func TestSnapshotRestoreClearsWatermark(t *testing.T) {
	api := &mockAPI{
		getRecentReadingsFunc: func(ctx context.Context, maxReadingID *int64) client.Result[floodapi.RecentReadingsResponse] {
			return recentResult(t, `{"gauges":{"G1":{"timestamps":["2024-04-01T10:00:00Z"],"discharges":[100]}},"maxReadingId":99}`)
		},
	}
	store := newTestStore(api)
	require.NoError(t, store.FetchRecentReadings(context.Background()))

	snap := store.Snapshot()
	assert.Equal(t, int64Ptr(99), snap.MaxReadingID)

	encoded, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded Snapshot
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	restored := newTestStore(&mockAPI{})
	restored.Restore(decoded)

	assert.Nil(t, restored.MaxReadingID())
	require.Len(t, restored.All(), 1)
	recent := restored.Get("G1").RecentReadings()
	assert.Equal(t, 1, recent.Len())
}
