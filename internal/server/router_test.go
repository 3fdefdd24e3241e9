package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pairhive/relay/internal/relay"
)

type stubStatusProvider struct {
	status relay.RoomStatus
}

func (p stubStatusProvider) Status(string) relay.RoomStatus {
	return p.status
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub, err := NewHub(HubConfig{IDProvider: NewUUIDProvider()})
	if err != nil {
		t.Fatalf("failed to construct hub: %v", err)
	}
	return hub
}

func TestNewHTTPHandlerRequiresDependencies(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{Hub: newTestHub(t)}); err == nil {
		t.Fatal("expected construction without status provider to fail")
	}
	if _, err := NewHTTPHandler(Dependencies{StatusProvider: stubStatusProvider{}}); err == nil {
		t.Fatal("expected construction without hub to fail")
	}
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, err := NewHTTPHandler(Dependencies{
		StatusProvider: stubStatusProvider{},
		Hub:            newTestHub(t),
	})
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
}

func TestRoomStatusEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, err := NewHTTPHandler(Dependencies{
		StatusProvider: stubStatusProvider{status: relay.RoomStatus{
			Exists:           true,
			ParticipantCount: 2,
			AllRoomIDs:       []string{"r1"},
		}},
		Hub: newTestHub(t),
	})
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/rooms/r1", http.NoBody))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	var payload relay.RoomStatus
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode status payload: %v", err)
	}
	if !payload.Exists || payload.ParticipantCount != 2 || len(payload.AllRoomIDs) != 1 {
		t.Fatalf("unexpected status payload: %+v", payload)
	}
}

func TestWebsocketEndpointUnavailableBeforeBind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, err := NewHTTPHandler(Dependencies{
		StatusProvider: stubStatusProvider{},
		Hub:            newTestHub(t),
	})
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ws", http.NoBody))

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503 before the relay is bound, got %d", recorder.Code)
	}
}
