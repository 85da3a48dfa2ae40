package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

func testApp(t *testing.T) *App {
	t.Helper()
	return &App{
		cfg:      loadConfig(),
		registry: &Registry{Channels: []Channel{{Key: "smileclinic", Name: "Smile Clinic"}}},
		log:      zap.NewNop(),
	}
}

func TestHandleChannels(t *testing.T) {
	a := testApp(t)
	rec := httptest.NewRecorder()
	a.handleChannels(rec, httptest.NewRequest(http.MethodGet, "/api/channels", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var chs []Channel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chs))
	require.Len(t, chs, 1)
	assert.Equal(t, "smileclinic", chs[0].Key)
}

func TestHandleReportUnknownChannel(t *testing.T) {
	a := testApp(t)
	req := httptest.NewRequest(http.MethodGet, "/api/channels/nobody/report", nil)
	req.SetPathValue("key", "nobody")

	rec := httptest.NewRecorder()
	a.handleReport(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleReportBadDays(t *testing.T) {
	a := testApp(t)
	req := httptest.NewRequest(http.MethodGet, "/api/channels/smileclinic/report?days=0", nil)
	req.SetPathValue("key", "smileclinic")

	rec := httptest.NewRecorder()
	a.handleReport(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/channels/smileclinic/report?days=999", nil)
	req.SetPathValue("key", "smileclinic")
	rec = httptest.NewRecorder()
	a.handleReport(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteAPIErrorMapping(t *testing.T) {
	a := testApp(t)

	rec := httptest.NewRecorder()
	a.writeAPIError(rec, "smileclinic", &googleapi.Error{
		Code:   http.StatusForbidden,
		Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}},
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	a.writeAPIError(rec, "smileclinic", &googleapi.Error{Code: http.StatusBadGateway})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = httptest.NewRecorder()
	a.writeAPIError(rec, "smileclinic", assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?days=14&top=junk", nil)
	assert.Equal(t, 14, queryInt(req, "days", 28))
	assert.Equal(t, 10, queryInt(req, "top", 10))
	assert.Equal(t, 28, queryInt(req, "missing", 28))
}
