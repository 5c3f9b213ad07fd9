package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/bbernstein/floodwatch/backend-go/internal/chart"
	"github.com/bbernstein/floodwatch/backend-go/internal/models"
)

type APIResponse struct {
	ResponseType string `json:"responseType"`
}

// ChartResponse carries chart options for one gauge or forecast.
type ChartResponse struct {
	APIResponse
	GaugeID string              `json:"gaugeId"`
	Status  *models.GaugeStatus `json:"status,omitempty"`
	Options chart.Options       `json:"options"`
}

type ErrorResponse struct {
	APIResponse
	Error string `json:"error"`
}

func NewChartResponse(gaugeID string, status *models.GaugeStatus, opts chart.Options) *ChartResponse {
	return &ChartResponse{
		APIResponse: APIResponse{ResponseType: "chart"},
		GaugeID:     gaugeID,
		Status:      status,
		Options:     opts,
	}
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		APIResponse: APIResponse{ResponseType: "error"},
		Error:       message,
	}
}

func headers() map[string]string {
	return map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
	}
}

// Response helpers
func Success(body interface{}) (events.APIGatewayProxyResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Error("Internal Server Error", http.StatusInternalServerError)
	}
	return SuccessJSON(jsonBody)
}

// SuccessJSON wraps an already encoded body.
func SuccessJSON(body []byte) (events.APIGatewayProxyResponse, error) {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    headers(),
		Body:       string(body),
	}, nil
}

func Error(message string, statusCode int) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(NewErrorResponse(message))

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers(),
		Body:       string(body),
	}, nil
}

// Parameter parsing helpers

type InvalidParameterError struct {
	Param string
	Value string
}

func (e InvalidParameterError) Error() string {
	return fmt.Sprintf("Invalid %s: %q", e.Param, e.Value)
}

// ParseChartRequest reads mode, dataType, start and end from query
// parameters. Times are RFC 3339 or Unix milliseconds. Missing values are
// left zero so the builder applies its defaults.
func ParseChartRequest(params map[string]string) (chart.Request, error) {
	var req chart.Request

	req.Mode = chart.ModeDashboard
	if v, ok := params["mode"]; ok && v != "" {
		req.Mode = chart.Mode(v)
		if !req.Mode.Valid() {
			return chart.Request{}, InvalidParameterError{Param: "mode", Value: v}
		}
	}

	if v, ok := params["dataType"]; ok && v != "" {
		switch dt := chart.DataType(v); dt {
		case chart.DataTypeLevel, chart.DataTypeDischarge:
			req.DataType = dt
		default:
			return chart.Request{}, InvalidParameterError{Param: "dataType", Value: v}
		}
	}

	var err error
	if req.Start, err = parseTime(params, "start"); err != nil {
		return chart.Request{}, err
	}
	if req.End, err = parseTime(params, "end"); err != nil {
		return chart.Request{}, err
	}
	if !req.Start.IsZero() && !req.End.IsZero() && !req.End.After(req.Start) {
		return chart.Request{}, InvalidParameterError{Param: "end", Value: params["end"]}
	}

	return req, nil
}

func parseTime(params map[string]string, key string) (time.Time, error) {
	v, ok := params[key]
	if !ok || v == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, InvalidParameterError{Param: key, Value: v}
	}
	return t, nil
}
