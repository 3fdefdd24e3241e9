package relay

import (
	"encoding/json"

	"go.uber.org/zap"
)

// handleJoinRoom is the join/switch transition of the per-connection state
// machine. A connection may occupy at most one room, so joining while
// already joined runs the full detach cascade against the previous room
// before attaching to the new one.
func (s *Service) handleJoinRoom(senderID string, data json.RawMessage) {
	var payload joinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		return
	}

	if !s.membership.Exists(payload.RoomID) && !payload.IsCreating {
		s.emitter.Send(senderID, EventRoomNotAvailable, roomNotAvailablePayload{Message: roomNotAvailableMessage})
		return
	}

	previousRoom, hadPrevious := s.registry.RecordJoin(senderID, payload.RoomID)
	if hadPrevious {
		s.detach(senderID, previousRoom)
	}
	s.membership.Join(payload.RoomID, senderID)

	s.emitter.Send(senderID, EventRoomJoined, roomJoinedPayload{RoomID: payload.RoomID})
	s.broadcast(senderID, payload.RoomID, EventUserJoined, userJoinedPayload{
		UserID:   payload.UserID,
		SocketID: senderID,
	})

	s.observer.RoomsChanged(s.membership.RoomCount(), s.registry.JoinedCount())
	s.logger.Info("connection joined room",
		zap.String("socket_id", senderID),
		zap.String("room_id", payload.RoomID),
		zap.Int("members", s.membership.MemberCount(payload.RoomID)))
}

func (s *Service) handleCheckRoom(senderID string, data json.RawMessage) {
	var payload checkRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		return
	}
	result := EventRoomNotExists
	if s.membership.Exists(payload.RoomID) {
		result = EventRoomExists
	}
	s.emitter.Send(senderID, result, roomCheckResultPayload{RoomID: payload.RoomID})
}

func (s *Service) handleCodeChanged(senderID string, data json.RawMessage) {
	var payload codeChangedPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		return
	}
	s.broadcast(senderID, payload.RoomID, EventCodeChanged, codeChangedOut{Code: payload.Code})
}

func (s *Service) handleInputChanged(senderID string, data json.RawMessage) {
	var payload inputChangedPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		return
	}
	s.broadcast(senderID, payload.RoomID, EventInputChanged, inputChangedOut{Input: payload.Input})
}

// handleChangeLanguage relays the bare language value under the renamed
// language-changed event.
func (s *Service) handleChangeLanguage(senderID string, data json.RawMessage) {
	var payload changeLanguagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		return
	}
	s.broadcast(senderID, payload.RoomID, EventLanguageChanged, payload.Language)
}

// handleRunCode relays execution results under the renamed code-run event.
func (s *Service) handleRunCode(senderID string, data json.RawMessage) {
	var payload runCodePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		return
	}
	s.broadcast(senderID, payload.RoomID, EventCodeRun, codeRunOut{
		Output:   payload.Output,
		Language: payload.Language,
		Input:    payload.Input,
		Code:     payload.Code,
	})
}

func (s *Service) handleExecutionStatus(senderID string, data json.RawMessage) {
	var payload executionStatusPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		return
	}
	s.broadcast(senderID, payload.RoomID, EventExecutionStatus, executionStatusOut{IsRunning: payload.IsRunning})
}

func (s *Service) handleCursorMove(senderID string, data json.RawMessage) {
	var payload cursorMovePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		return
	}
	s.cursors.UpsertPosition(payload.RoomID, senderID, payload.Position, payload.UserInfo)
	s.broadcast(senderID, payload.RoomID, EventCursorMove, cursorMoveOut{
		SocketID: senderID,
		Position: payload.Position,
		UserID:   payload.UserID,
		UserInfo: payload.UserInfo,
	})
}

func (s *Service) handleCursorSelection(senderID string, data json.RawMessage) {
	var payload cursorSelectionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		return
	}
	s.cursors.UpsertSelection(payload.RoomID, senderID, payload.Selection)
	s.broadcast(senderID, payload.RoomID, EventCursorSelection, cursorSelectionOut{
		SocketID:  senderID,
		Selection: payload.Selection,
		UserID:    payload.UserID,
		UserInfo:  payload.UserInfo,
	})
}

func (s *Service) handleCursorVisibility(senderID string, data json.RawMessage) {
	var payload cursorVisibilityPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		return
	}
	if payload.IsVisible {
		s.cursors.SetVisible(payload.RoomID, senderID, payload.UserInfo)
	} else {
		s.cursors.SetInvisible(payload.RoomID, senderID)
	}
	s.broadcast(senderID, payload.RoomID, EventCursorVisibility, cursorVisibilityOut{
		SocketID:  senderID,
		IsVisible: payload.IsVisible,
		UserID:    payload.UserID,
		UserInfo:  payload.UserInfo,
	})
}

// signalingHandler builds the relay for one WebRTC signaling event. The
// payload is opaque to the relay: it is forwarded with its original fields
// plus the sender's socket id as fromSocketId.
func (s *Service) signalingHandler(event string) func(string, json.RawMessage) {
	return func(senderID string, data json.RawMessage) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return
		}
		var roomID string
		if raw, ok := fields["roomId"]; ok {
			if err := json.Unmarshal(raw, &roomID); err != nil {
				return
			}
		}
		if roomID == "" {
			return
		}
		out := make(map[string]any, len(fields)+1)
		for key, raw := range fields {
			out[key] = raw
		}
		out["fromSocketId"] = senderID
		s.broadcast(senderID, roomID, event, out)
	}
}
