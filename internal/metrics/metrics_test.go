package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCountsConnections(t *testing.T) {
	collector := NewCollector()

	collector.ConnectionOpened()
	collector.ConnectionOpened()
	collector.ConnectionClosed()

	if got := testutil.ToFloat64(collector.connectionsOpened); got != 2 {
		t.Fatalf("expected 2 opened connections, got %v", got)
	}
	if got := testutil.ToFloat64(collector.connectionsClosed); got != 1 {
		t.Fatalf("expected 1 closed connection, got %v", got)
	}
}

func TestCollectorTracksRoomGauges(t *testing.T) {
	collector := NewCollector()

	collector.RoomsChanged(3, 7)

	if got := testutil.ToFloat64(collector.activeRooms); got != 3 {
		t.Fatalf("expected 3 active rooms, got %v", got)
	}
	if got := testutil.ToFloat64(collector.activeMembers); got != 7 {
		t.Fatalf("expected 7 active members, got %v", got)
	}
}

func TestCollectorCountsRelayedEvents(t *testing.T) {
	collector := NewCollector()

	collector.EventRelayed("code-changed")
	collector.EventRelayed("code-changed")
	collector.EventRelayed("user-left")

	if got := testutil.ToFloat64(collector.eventsRelayed.WithLabelValues("code-changed")); got != 2 {
		t.Fatalf("expected 2 code-changed relays, got %v", got)
	}
}
