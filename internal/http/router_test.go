package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/gasguard/internal/engine"
	"github.com/example/gasguard/internal/testfixtures"
)

type apiHarness struct {
	engine  *engine.Engine
	clock   *testfixtures.Clock
	handler http.Handler
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(engine.Config{
		Now:         clock.NowFunc(),
		IDGenerator: testfixtures.NewIDGenerator("id").NextFunc(),
		Documents:   &testfixtures.DocumentRecorder{},
		Logger:      logger,
	})
	t.Cleanup(eng.Stop)

	handler := NewRouter(RouterConfig{
		Equipment:   NewEquipmentHandler(eng, clock.NowFunc(), logger),
		Maintenance: NewMaintenanceHandler(eng, eng.Location(), logger),
		Stock:       NewStockHandler(eng, eng.Location(), logger),
		Field:       NewFieldHandler(eng, logger),
		Operations:  NewOperationsHandler(eng, logger),
		Middleware:  []func(http.Handler) http.Handler{Recoverer(logger), RequestLogger(logger)},
	})
	return &apiHarness{engine: eng, clock: clock, handler: handler}
}

func (h *apiHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (h *apiHarness) createEquipment(t *testing.T, serial string) equipmentDTO {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/equipment", map[string]any{
		"brand": "Dräger", "model": "X-am 2500", "serial": serial,
		"gas_types": []string{"CO", "H2S"}, "status": "in_use", "site": "Lyon",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[equipmentResponse](t, rec).Equipment
}

func TestHealth(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	h.engine.Stop()
	rec = h.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthReportsDependencyChecks(t *testing.T) {
	h := newAPIHarness(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	redisDown := errors.New("dial tcp 127.0.0.1:6379: connection refused")

	healthy := NewRouter(RouterConfig{Operations: NewOperationsHandler(h.engine, logger,
		HealthCheck{Name: "snapshots", Check: func(context.Context) error { return nil }},
	)})
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"snapshots": "ok"}, body.Checks)

	degraded := NewRouter(RouterConfig{Operations: NewOperationsHandler(h.engine, logger,
		HealthCheck{Name: "snapshots", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "redis", Check: func(context.Context) error { return redisDown }},
	)})
	rec = httptest.NewRecorder()
	degraded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body = decode[healthResponse](t, rec)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Checks["snapshots"])
	assert.Equal(t, redisDown.Error(), body.Checks["redis"])
}

func TestEquipmentLifecycle(t *testing.T) {
	h := newAPIHarness(t)
	created := h.createEquipment(t, "ARXX-0001")
	assert.Equal(t, "in_use", created.Status)
	assert.Equal(t, []string{"CO", "H2S"}, created.GasTypes)

	rec := h.do(t, http.MethodGet, "/equipment/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ARXX-0001", decode[equipmentResponse](t, rec).Equipment.Serial)

	rec = h.do(t, http.MethodGet, "/equipment?site=lyon&gas=co", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listEquipmentResponse](t, rec).Equipment, 1)

	rec = h.do(t, http.MethodGet, "/equipment?status=stock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[listEquipmentResponse](t, rec).Equipment)

	rec = h.do(t, http.MethodPatch, "/equipment/"+created.ID, map[string]any{"site": "Paris"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Paris", decode[equipmentResponse](t, rec).Equipment.Site)

	rec = h.do(t, http.MethodDelete, "/equipment/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodGet, "/equipment/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorResponse](t, rec).ErrorCode)
}

func TestEquipmentErrors(t *testing.T) {
	h := newAPIHarness(t)
	h.createEquipment(t, "ARXX-0001")

	rec := h.do(t, http.MethodPost, "/equipment", map[string]any{
		"brand": "MSA", "model": "Altair", "serial": "arxx-0001", "gas_types": []string{"CO"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decode[errorResponse](t, rec).ErrorCode)

	rec = h.do(t, http.MethodPost, "/equipment", map[string]any{"serial": "X-1"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "VALIDATION_FAILED", body.ErrorCode)
	assert.Contains(t, body.Errors, "brand")
	assert.Contains(t, body.Errors, "gas_types")

	req := httptest.NewRequest(http.MethodPost, "/equipment", bytes.NewBufferString("{"))
	raw := httptest.NewRecorder()
	h.handler.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestReadingsAndGasAlert(t *testing.T) {
	h := newAPIHarness(t)
	eq := h.createEquipment(t, "ARXX-0001")

	rec := h.do(t, http.MethodPost, "/equipment/"+eq.ID+"/readings", map[string]any{"gas_level": 51})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/equipment/"+eq.ID+"/readings", map[string]any{"gas_level": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.do(t, http.MethodPost, "/equipment/ghost/readings", map[string]any{"gas_level": 10})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UNKNOWN_EQUIPMENT", decode[errorResponse](t, rec).ErrorCode)

	rec = h.do(t, http.MethodGet, "/equipment/"+eq.ID+"/readings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	readings := decode[listReadingsResponse](t, rec).Readings
	require.Len(t, readings, 1)
	assert.Equal(t, 51.0, readings[0].GasLevel)

	rec = h.do(t, http.MethodGet, "/equipment/"+eq.ID+"/readings?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notifications := decode[listNotificationsResponse](t, rec).Notifications
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Message, "51 ppm")

	rec = h.do(t, http.MethodDelete, "/notifications/"+notifications[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodDelete, "/notifications/"+notifications[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMaintenanceEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	eq := h.createEquipment(t, "ARXX-0001")
	today := h.clock.Today().Format("2006-01-02")

	rec := h.do(t, http.MethodPost, "/maintenance", map[string]any{
		"equipment_id": eq.ID, "type": "calibration", "date": today,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	event := decode[maintenanceResponse](t, rec).Event
	assert.Equal(t, today, event.Date)
	assert.Equal(t, "planned", event.Status)

	rec = h.do(t, http.MethodPost, "/maintenance", map[string]any{
		"equipment_id": eq.ID, "type": "calibration", "date": "10/03/2024",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.do(t, http.MethodGet, "/equipment/"+eq.ID, nil)
	assert.Equal(t, "maintenance", decode[equipmentResponse](t, rec).Equipment.Status)

	rec = h.do(t, http.MethodGet, "/maintenance?equipment_id="+eq.ID+"&from="+today+"&to="+today, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listMaintenanceResponse](t, rec).Events, 1)

	rec = h.do(t, http.MethodPost, "/maintenance/"+event.ID+"/complete", map[string]any{
		"outcome": map[string]string{"result": "pass"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	completed := decode[maintenanceResponse](t, rec).Event
	assert.Equal(t, "done", completed.Status)
	assert.Equal(t, "pass", completed.Outcome["result"])
	assert.NotEmpty(t, completed.CompletedAt)

	rec = h.do(t, http.MethodPost, "/maintenance/"+event.ID+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[errorResponse](t, rec).ErrorCode)

	rec = h.do(t, http.MethodGet, "/equipment/"+eq.ID, nil)
	assert.Equal(t, "in_use", decode[equipmentResponse](t, rec).Equipment.Status)
}

func TestStockEndpoints(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/stock", map[string]any{
		"name": "Filtre H2S", "quantity": 6, "min_threshold": 5, "expiration_date": "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode[stockResponse](t, rec).Item
	assert.False(t, item.Low)

	rec = h.do(t, http.MethodPost, "/stock/"+item.ID+"/consume", map[string]any{"count": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[stockResponse](t, rec).Item.Low)

	rec = h.do(t, http.MethodPost, "/stock/"+item.ID+"/consume", map[string]any{"count": 99})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.do(t, http.MethodPut, "/stock/"+item.ID+"/quantity", map[string]any{"quantity": 20})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, decode[stockResponse](t, rec).Item.Quantity)

	rec = h.do(t, http.MethodGet, "/stock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listStockResponse](t, rec).Items, 1)

	rec = h.do(t, http.MethodDelete, "/stock/"+item.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodGet, "/stock/"+item.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFieldEndpoints(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/technicians", map[string]any{"name": "Alice", "lat": 48.85, "lng": 2.35})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	technician := decode[technicianResponse](t, rec).Technician

	rec = h.do(t, http.MethodPost, "/technicians", map[string]any{"name": "Nowhere", "lat": 91, "lng": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.do(t, http.MethodPost, "/interventions", map[string]any{"label": "Maintenance capteur A"})
	require.Equal(t, http.StatusCreated, rec.Code)
	intervention := decode[interventionResponse](t, rec).Intervention

	rec = h.do(t, http.MethodPut, "/interventions/"+intervention.ID+"/assignee", map[string]any{"technician_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UNKNOWN_TECHNICIAN", decode[errorResponse](t, rec).ErrorCode)

	rec = h.do(t, http.MethodPut, "/interventions/"+intervention.ID+"/assignee", map[string]any{"technician_id": technician.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assigned := decode[interventionResponse](t, rec).Intervention
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, technician.ID, *assigned.AssignedTo)

	rec = h.do(t, http.MethodGet, "/interventions?assigned=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[listInterventionsResponse](t, rec).Interventions)

	rec = h.do(t, http.MethodGet, "/interventions?assigned=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodDelete, "/interventions/"+intervention.ID+"/assignee", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[interventionResponse](t, rec).Intervention.AssignedTo)

	rec = h.do(t, http.MethodGet, "/technicians", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listTechniciansResponse](t, rec).Technicians, 1)
}

func TestSweepTrigger(t *testing.T) {
	h := newAPIHarness(t)
	eq := h.createEquipment(t, "ARXX-0001")
	_, err := h.engine.ScheduleMaintenance(context.Background(), maintenanceInput(t, eq.ID, h.clock.Today()))
	require.NoError(t, err)
	h.clock.AdvanceDays(1)

	rec := h.do(t, http.MethodPost, "/sweeps/maintenance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[sweepResponse](t, rec).Affected)

	rec = h.do(t, http.MethodPost, "/sweeps/everything", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UNKNOWN_SWEEP", decode[errorResponse](t, rec).ErrorCode)
}

func TestStoppedEngineReturnsServiceUnavailable(t *testing.T) {
	h := newAPIHarness(t)
	h.engine.Stop()

	rec := h.do(t, http.MethodPost, "/interventions", map[string]any{"label": "late"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "ENGINE_STOPPED", decode[errorResponse](t, rec).ErrorCode)

	rec = h.do(t, http.MethodGet, "/equipment", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "queries stay available after stop")
}
