package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/commands"
	"example.com/hospital/services/emr/config"
	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/eventstore"
	"example.com/hospital/services/emr/queries"
	"example.com/hospital/services/emr/repository"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	store := eventstore.NewMemoryEventStore(nil)
	commandDispatcher := commands.NewDispatcher(nil, 2, 8, time.Second)
	require.NoError(t, commands.NewPatientHandler(store, 3).Register(commandDispatcher))

	queryDispatcher := queries.NewDispatcher(nil, nil)
	require.NoError(t, queries.NewPatientQueryHandler(repository.NewMemoryPatientRepository(), nil).Register(queryDispatcher))

	return NewServer(config.Config{}, commandDispatcher, queryDispatcher, nil, nil, nil)
}

func TestPingRoute(t *testing.T) {
	server := testServer(t)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/ping", nil)
	server.router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "pong", recorder.Body.String())
}

func TestDispatchCommandRoute(t *testing.T) {
	server := testServer(t)

	body := `{
		"command_type": "patient_register",
		"data": {
			"first_name": "John",
			"last_name": "Doe",
			"date_of_birth": "1985-03-14"
		}
	}`
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/v1/commands", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	server.router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), string(domain.StatusCompleted))
	require.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestDispatchInvalidCommandRoute(t *testing.T) {
	server := testServer(t)

	body := `{
		"command_type": "patient_register",
		"data": {"first_name": "John"}
	}`
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/v1/commands", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	server.router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDispatchCommandRouteRequiresBody(t *testing.T) {
	server := testServer(t)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/v1/commands", strings.NewReader(`{}`))
	request.Header.Set("Content-Type", "application/json")
	server.router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDispatchQueryRoute(t *testing.T) {
	server := testServer(t)

	body := `{
		"query_type": "get_patient",
		"params": {"patient_id": "nobody"}
	}`
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/v1/queries", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	server.router.ServeHTTP(recorder, request)

	// Unknown patient is an empty result, not an error
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"data":null`)
}
