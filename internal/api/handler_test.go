package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/chart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess(t *testing.T) {
	tests := []struct {
		name     string
		response interface{}
		wantType string
	}{
		{
			name:     "chart response",
			response: NewChartResponse("USGS-38", nil, chart.Options{}),
			wantType: "chart",
		},
		{
			name:     "error body",
			response: NewErrorResponse("test error"),
			wantType: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Success(tt.response)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, got.StatusCode)

			var resp APIResponse
			require.NoError(t, json.Unmarshal([]byte(got.Body), &resp))
			assert.Equal(t, tt.wantType, resp.ResponseType)

			assert.Equal(t, "application/json", got.Headers["Content-Type"])
			assert.Equal(t, "*", got.Headers["Access-Control-Allow-Origin"])
		})
	}
}

func TestSuccessUnencodable(t *testing.T) {
	got, err := Success(math.NaN())
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
}

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		statusCode int
	}{
		{
			name:       "not found",
			message:    "Gauge not found",
			statusCode: http.StatusNotFound,
		},
		{
			name:       "bad gateway",
			message:    "Upstream unavailable",
			statusCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Error(tt.message, tt.statusCode)
			require.NoError(t, err)
			assert.Equal(t, tt.statusCode, got.StatusCode)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(got.Body), &resp))
			assert.Equal(t, "error", resp.ResponseType)
			assert.Equal(t, tt.message, resp.Error)
		})
	}
}

func TestParseChartRequest(t *testing.T) {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		params    map[string]string
		want      chart.Request
		wantParam string
	}{
		{
			name:   "defaults",
			params: map[string]string{},
			want:   chart.Request{Mode: chart.ModeDashboard},
		},
		{
			name: "details with RFC 3339 range",
			params: map[string]string{
				"mode":     "details",
				"dataType": "discharge",
				"start":    "2024-04-01T00:00:00Z",
				"end":      "2024-04-02T00:00:00Z",
			},
			want: chart.Request{
				Mode:     chart.ModeDetails,
				DataType: chart.DataTypeDischarge,
				Start:    start,
				End:      start.Add(24 * time.Hour),
			},
		},
		{
			name: "unix milliseconds",
			params: map[string]string{
				"start": "1711929600000",
			},
			want: chart.Request{Mode: chart.ModeDashboard, Start: start},
		},
		{
			name:      "bad mode",
			params:    map[string]string{"mode": "fullscreen"},
			wantParam: "mode",
		},
		{
			name:      "bad data type",
			params:    map[string]string{"dataType": "velocity"},
			wantParam: "dataType",
		},
		{
			name:      "bad start",
			params:    map[string]string{"start": "yesterday"},
			wantParam: "start",
		},
		{
			name: "end before start",
			params: map[string]string{
				"start": "2024-04-02T00:00:00Z",
				"end":   "2024-04-01T00:00:00Z",
			},
			wantParam: "end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChartRequest(tt.params)

			if tt.wantParam != "" {
				var invalid InvalidParameterError
				require.True(t, errors.As(err, &invalid))
				assert.Equal(t, tt.wantParam, invalid.Param)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want.Mode, got.Mode)
			assert.Equal(t, tt.want.DataType, got.DataType)
			assert.True(t, tt.want.Start.Equal(got.Start))
			assert.True(t, tt.want.End.Equal(got.End))
		})
	}
}
