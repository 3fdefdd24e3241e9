package relay

// MembershipTable maps each room identifier to its set of member connections.
// A room exists if and only if its member set is non-empty: the entry is
// created by the first join and deleted when the last member leaves, never
// tracked by a separate flag.
type MembershipTable struct {
	members map[string]map[string]struct{}
}

// NewMembershipTable constructs an empty membership table.
func NewMembershipTable() *MembershipTable {
	return &MembershipTable{members: make(map[string]map[string]struct{})}
}

// Join adds the connection to the room's member set, creating the room entry
// if absent. Adding an already-present member is a no-op.
func (t *MembershipTable) Join(roomID, connectionID string) {
	set, ok := t.members[roomID]
	if !ok {
		set = make(map[string]struct{})
		t.members[roomID] = set
	}
	set[connectionID] = struct{}{}
}

// Leave removes the connection from the room's member set. When the set
// becomes empty the room entry is deleted entirely. Leaving a pair that is
// not present is a no-op. It reports whether the room still exists.
func (t *MembershipTable) Leave(roomID, connectionID string) (roomRemains bool) {
	set, ok := t.members[roomID]
	if !ok {
		return false
	}
	delete(set, connectionID)
	if len(set) == 0 {
		delete(t.members, roomID)
		return false
	}
	return true
}

// Members returns the connections currently in the room. Excluding the
// sender at broadcast time is the caller's responsibility.
func (t *MembershipTable) Members(roomID string) []string {
	set := t.members[roomID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for connectionID := range set {
		out = append(out, connectionID)
	}
	return out
}

// Exists reports whether the room has at least one member.
func (t *MembershipTable) Exists(roomID string) bool {
	return len(t.members[roomID]) > 0
}

// MemberCount returns the number of connections in the room.
func (t *MembershipTable) MemberCount(roomID string) int {
	return len(t.members[roomID])
}

// RoomCount returns the number of currently existing rooms.
func (t *MembershipTable) RoomCount() int {
	return len(t.members)
}

// RoomIDs enumerates the identifiers of all currently existing rooms.
func (t *MembershipTable) RoomIDs() []string {
	out := make([]string, 0, len(t.members))
	for roomID := range t.members {
		out = append(out, roomID)
	}
	return out
}
