package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingEmitter = errors.New("emitter dependency is required")
	serviceNopLogger  = zap.NewNop()
)

const roomNotAvailableMessage = "Room does not exist"

// Emitter delivers one named event to one connection. Delivery is
// fire-and-forget: the relay never learns whether the peer received it, and
// a connection that vanished mid-broadcast simply misses the event.
type Emitter interface {
	Send(connectionID, event string, payload any)
}

// EventBus carries fan-out events between relay instances so members
// attached elsewhere still receive them. Implementations must filter their
// own published messages out of the subscription stream.
type EventBus interface {
	Publish(ctx context.Context, envelope Envelope) error
}

// Envelope is the cross-instance form of one fan-out event.
type Envelope struct {
	RoomID  string          `json:"roomId"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Observer receives relay activity signals for metrics reporting.
type Observer interface {
	EventRelayed(event string)
	RoomsChanged(roomCount, participantCount int)
}

type noopObserver struct{}

func (noopObserver) EventRelayed(string) {}

func (noopObserver) RoomsChanged(int, int) {}

// ServiceConfig describes the dependencies of the relay service.
type ServiceConfig struct {
	Emitter  Emitter
	Bus      EventBus
	Observer Observer
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service owns the room state of one relay instance: the connection
// registry, the membership table and the cursor store, plus the dispatch
// table that maps inbound event names to handlers.
//
// One mutex serializes every handler, so each inbound event (and each
// disconnect) runs its full cascade to completion before the next begins.
type Service struct {
	mu         sync.RWMutex
	registry   *Registry
	membership *MembershipTable
	cursors    *CursorStore

	emitter  Emitter
	bus      EventBus
	observer Observer
	logger   *zap.Logger

	handlers map[string]func(senderID string, data json.RawMessage)
}

// NewService constructs the relay service with empty stores.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Emitter == nil {
		return nil, errMissingEmitter
	}
	logger := cfg.Logger
	if logger == nil {
		logger = serviceNopLogger
	}
	observer := cfg.Observer
	if observer == nil {
		observer = noopObserver{}
	}

	service := &Service{
		registry:   NewRegistry(),
		membership: NewMembershipTable(),
		cursors:    NewCursorStore(cfg.Clock),
		emitter:    cfg.Emitter,
		bus:        cfg.Bus,
		observer:   observer,
		logger:     logger,
	}
	service.handlers = map[string]func(string, json.RawMessage){
		EventJoinRoom:         service.handleJoinRoom,
		EventCheckRoom:        service.handleCheckRoom,
		EventCodeChanged:      service.handleCodeChanged,
		EventInputChanged:     service.handleInputChanged,
		EventChangeLanguage:   service.handleChangeLanguage,
		EventRunCode:          service.handleRunCode,
		EventExecutionStatus:  service.handleExecutionStatus,
		EventCursorMove:       service.handleCursorMove,
		EventCursorSelection:  service.handleCursorSelection,
		EventCursorVisibility: service.handleCursorVisibility,
		EventCallOffer:        service.signalingHandler(EventCallOffer),
		EventCallAnswer:       service.signalingHandler(EventCallAnswer),
		EventIceCandidate:     service.signalingHandler(EventIceCandidate),
		EventCallRequest:      service.signalingHandler(EventCallRequest),
		EventCallAccept:       service.signalingHandler(EventCallAccept),
		EventCallReject:       service.signalingHandler(EventCallReject),
		EventCallEnd:          service.signalingHandler(EventCallEnd),
		EventUserReadyForCall: service.signalingHandler(EventUserReadyForCall),
	}
	return service, nil
}

// Dispatch routes one inbound event from a connection through its handler.
// Unknown event names and payloads that do not decode are dropped without
// surfacing an error to the sender.
func (s *Service) Dispatch(senderID, event string, data json.RawMessage) {
	handler, ok := s.handlers[event]
	if !ok {
		s.logger.Debug("dropping unknown event", zap.String("event", event), zap.String("socket_id", senderID))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handler(senderID, data)
}

// Disconnect runs the full detach cascade for a connection that closed:
// membership leave, cursor drop, room teardown when it emptied, user-left
// to the remaining members, registry clear. It is the only cancellation
// signal the relay recognizes.
func (s *Service) Disconnect(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.registry.Clear(connectionID)
	if !ok {
		return
	}
	s.detach(connectionID, roomID)
	s.observer.RoomsChanged(s.membership.RoomCount(), s.registry.JoinedCount())
}

// RoomStatus is the read-only projection consumed by the HTTP collaborator.
type RoomStatus struct {
	Exists           bool     `json:"exists"`
	ParticipantCount int      `json:"participantCount"`
	AllRoomIDs       []string `json:"allRoomIds"`
}

// Status reports whether the room exists, its member count and the
// identifiers of every currently tracked room.
func (s *Service) Status(roomID string) RoomStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RoomStatus{
		Exists:           s.membership.Exists(roomID),
		ParticipantCount: s.membership.MemberCount(roomID),
		AllRoomIDs:       s.membership.RoomIDs(),
	}
}

// DeliverFromBus hands a fan-out event received from another relay instance
// to every local member of the room. The originating connection lives on
// the remote instance, so no sender exclusion applies here.
func (s *Service) DeliverFromBus(envelope Envelope) {
	if envelope.RoomID == "" || envelope.Event == "" {
		return
	}
	var payload any
	if len(envelope.Payload) > 0 {
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return
		}
	}
	s.mu.RLock()
	members := s.membership.Members(envelope.RoomID)
	s.mu.RUnlock()
	for _, memberID := range members {
		s.emitter.Send(memberID, envelope.Event, payload)
	}
}

// detach removes the connection from the room and tears the room down when
// it emptied. Callers hold the lock and have already cleared or rewritten
// the registry entry.
func (s *Service) detach(connectionID, roomID string) {
	remains := s.membership.Leave(roomID, connectionID)
	s.cursors.DropConnection(roomID, connectionID)
	if !remains {
		s.cursors.DropRoom(roomID)
	}
	s.broadcast(connectionID, roomID, EventUserLeft, userLeftPayload{SocketID: connectionID})
}

// broadcast fans one event out to every member of the room except the
// sender, and mirrors it onto the bus for members on other instances.
func (s *Service) broadcast(senderID, roomID, event string, payload any) {
	for _, memberID := range s.membership.Members(roomID) {
		if memberID == senderID {
			continue
		}
		s.emitter.Send(memberID, event, payload)
	}
	s.publish(roomID, event, payload)
	s.observer.EventRelayed(event)
}

func (s *Service) publish(roomID, event string, payload any) {
	if s.bus == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to encode bus payload", zap.String("event", event), zap.Error(err))
		return
	}
	envelope := Envelope{RoomID: roomID, Event: event, Payload: raw}
	if err := s.bus.Publish(context.Background(), envelope); err != nil {
		s.logger.Warn("failed to publish to event bus", zap.String("event", event), zap.Error(err))
	}
}
