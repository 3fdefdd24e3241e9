package relay

import "time"

// Position is a caret location in the shared editor buffer.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"ch"`
}

// Selection is the highlighted range between an anchor and a head caret.
type Selection struct {
	Anchor Position `json:"anchor"`
	Head   Position `json:"head"`
}

// UserInfo is the opaque display descriptor clients attach to cursor events.
type UserInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CursorRecord is the ephemeral editing-presence state for one participant
// in one room. Partial records are valid: a record may carry only a
// position, or only visibility.
type CursorRecord struct {
	Position  *Position
	Selection *Selection
	Visible   bool
	UserInfo  UserInfo
	UpdatedAt time.Time
}

// CursorStore keeps per-room, per-connection cursor records. A record may
// exist only while its connection is a member of its room; every departure
// path deletes it through DropConnection or DropRoom.
type CursorStore struct {
	records map[string]map[string]*CursorRecord
	clock   func() time.Time
}

// NewCursorStore constructs an empty cursor store. A nil clock defaults to
// time.Now.
func NewCursorStore(clock func() time.Time) *CursorStore {
	if clock == nil {
		clock = time.Now
	}
	return &CursorStore{
		records: make(map[string]map[string]*CursorRecord),
		clock:   clock,
	}
}

// UpsertPosition creates or replaces the record's position, user info and
// timestamp. An existing selection is left untouched.
func (s *CursorStore) UpsertPosition(roomID, connectionID string, position Position, info UserInfo) {
	record := s.ensure(roomID, connectionID)
	positionCopy := position
	record.Position = &positionCopy
	record.UserInfo = info
	record.UpdatedAt = s.clock()
}

// UpsertSelection mutates the selection and timestamp of an existing record.
// A selection arriving before any position or visibility update has created
// the record is silently dropped: clients always report a position or
// visibility change first, and the store preserves that ordering assumption.
func (s *CursorStore) UpsertSelection(roomID, connectionID string, selection Selection) {
	record, ok := s.records[roomID][connectionID]
	if !ok {
		return
	}
	selectionCopy := selection
	record.Selection = &selectionCopy
	record.UpdatedAt = s.clock()
}

// SetVisible creates or updates the record, marking the cursor visible.
func (s *CursorStore) SetVisible(roomID, connectionID string, info UserInfo) {
	record := s.ensure(roomID, connectionID)
	record.Visible = true
	record.UserInfo = info
	record.UpdatedAt = s.clock()
}

// SetInvisible deletes the record entirely: an invisible cursor has no
// stored state, which distinguishes "not typing" from "not yet reported".
func (s *CursorStore) SetInvisible(roomID, connectionID string) {
	s.DropConnection(roomID, connectionID)
}

// DropConnection deletes the record for the pair if present. Called on
// leave, disconnect and room switch.
func (s *CursorStore) DropConnection(roomID, connectionID string) {
	room, ok := s.records[roomID]
	if !ok {
		return
	}
	delete(room, connectionID)
	if len(room) == 0 {
		delete(s.records, roomID)
	}
}

// DropRoom deletes every record for the room. Called when the room's last
// member departs.
func (s *CursorStore) DropRoom(roomID string) {
	delete(s.records, roomID)
}

// Record returns the stored record for the pair, if any.
func (s *CursorStore) Record(roomID, connectionID string) (CursorRecord, bool) {
	record, ok := s.records[roomID][connectionID]
	if !ok {
		return CursorRecord{}, false
	}
	return *record, true
}

func (s *CursorStore) ensure(roomID, connectionID string) *CursorRecord {
	room, ok := s.records[roomID]
	if !ok {
		room = make(map[string]*CursorRecord)
		s.records[roomID] = room
	}
	record, ok := room[connectionID]
	if !ok {
		record = &CursorRecord{}
		room[connectionID] = record
	}
	return record
}
