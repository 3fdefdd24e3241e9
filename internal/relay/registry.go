package relay

// Registry is the reverse index from a live connection to the single room it
// currently occupies. It is the authority for "which room is this connection
// in" during cleanup; fan-out routing reads the room from the inbound payload
// instead (see Service).
//
// All operations are total: they never fail, they only report what changed.
// Callers are expected to serialize access (Service holds the lock).
type Registry struct {
	rooms map[string]string
}

// NewRegistry constructs an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]string)}
}

// RecordJoin associates the connection with the room, overwriting any prior
// association. It returns the previous room so callers can drive the
// membership cleanup cascade.
func (r *Registry) RecordJoin(connectionID, roomID string) (previousRoom string, hadPrevious bool) {
	previousRoom, hadPrevious = r.rooms[connectionID]
	r.rooms[connectionID] = roomID
	return previousRoom, hadPrevious
}

// CurrentRoom reports the room the connection has joined, if any.
func (r *Registry) CurrentRoom(connectionID string) (string, bool) {
	roomID, ok := r.rooms[connectionID]
	return roomID, ok
}

// JoinedCount returns the number of connections currently joined to a room.
func (r *Registry) JoinedCount() int {
	return len(r.rooms)
}

// Clear removes the connection's association and returns the room that was
// cleared, if any.
func (r *Registry) Clear(connectionID string) (string, bool) {
	roomID, ok := r.rooms[connectionID]
	if ok {
		delete(r.rooms, connectionID)
	}
	return roomID, ok
}
