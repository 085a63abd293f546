package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/maxpoletaev/gms/api/handler/mock"
	"github.com/maxpoletaev/gms/gossip"
)

func TestCreateRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	gossip.NewMetrics(reg)

	ctrl := gomock.NewController(t)
	router := CreateRouter(mock.NewMockCluster(ctrl), mock.NewMockGroup(ctrl), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	req := httptest.NewRequest("GET", "/metrics", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "gms_gossip_rounds_total")
}

func TestCreateRouter_NoMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := CreateRouter(mock.NewMockCluster(ctrl), mock.NewMockGroup(ctrl), nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
