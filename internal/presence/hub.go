package presence

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"outdoortracker/internal/entity"
	"outdoortracker/internal/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrRejected is returned when a connection attempt fails admission:
// missing or invalid token, or no matching user in the directory.
var ErrRejected = errors.New("connection rejected")

// RoomAllUsers is the global fan-out room every admitted session joins.
const RoomAllUsers = "all_users"

// UserRoom names the per-user room an admitted session joins alongside
// RoomAllUsers.
func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// Identity is what the token verifier extracts from a bearer credential.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// UserDirectory is the slice of the user store the hub needs: lookup at
// admission and presence-flag persistence. Satisfied by
// repository.UserRepository.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// LocationUpdate is the broadcast envelope delivered to room subscribers.
// Timestamp is caller-supplied and passed through untyped: the socket path
// forwards whatever the client sent, the REST path stamps RFC3339.
type LocationUpdate struct {
	UserID    string   `json:"userId"`
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Accuracy  *float64 `json:"accuracy"`
	Timestamp any      `json:"timestamp"`
}

// UpdateLocationPayload is what a connected client sends with an
// update_location event.
type UpdateLocationPayload struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Accuracy  *float64 `json:"accuracy"`
	Timestamp any      `json:"timestamp"`
}

// Hub is the presence and broadcast core: it admits token-authenticated
// connections, tracks room membership in memory, toggles the user's active
// flag through the directory, and fans location updates out to rooms.
// Collaborators are constructor-supplied, never ambient.
type Hub struct {
	verifier TokenVerifier
	users    UserDirectory
	log      *logrus.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Session]bool
}

func NewHub(verifier TokenVerifier, users UserDirectory, log *logrus.Logger) *Hub {
	return &Hub{
		verifier: verifier,
		users:    users,
		log:      log,
		rooms:    make(map[string]map[*Session]bool),
	}
}

// Admit runs the Pending→Admitted transition. It is all-or-nothing: the
// directory write happens before any room join, and a failure at any step
// leaves no membership and no flag mutation behind.
func (h *Hub) Admit(ctx context.Context, token string) (*Session, error) {
	if strings.TrimSpace(token) == "" {
		metrics.AdmissionResult("rejected")
		return nil, ErrRejected
	}

	identity, err := h.verifier.Verify(token)
	if err != nil {
		metrics.AdmissionResult("rejected")
		return nil, ErrRejected
	}

	user, err := h.users.FindByID(ctx, identity.UserID)
	if err != nil {
		metrics.AdmissionResult("error")
		return nil, err
	}
	if user == nil {
		metrics.AdmissionResult("rejected")
		return nil, ErrRejected
	}

	if err := h.users.SetActive(ctx, user.ID, true); err != nil {
		metrics.AdmissionResult("error")
		return nil, err
	}

	session := newSession(h, user.ID, identity.Role, token)

	h.mu.Lock()
	h.joinLocked(UserRoom(user.ID), session)
	h.joinLocked(RoomAllUsers, session)
	h.mu.Unlock()

	metrics.AdmissionResult("accepted")
	metrics.SessionOpened()
	h.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"rooms":   h.RoomSize(RoomAllUsers),
	}).Info("presence session admitted")

	return session, nil
}

// HandleLocationUpdate processes an update_location event from an admitted
// session. The credential is re-verified on every event; a session whose
// token expired mid-connection is forcibly closed and nothing is broadcast.
func (h *Hub) HandleLocationUpdate(ctx context.Context, s *Session, payload UpdateLocationPayload) error {
	if _, err := h.verifier.Verify(s.token); err != nil {
		h.log.WithField("user_id", s.UserID).Warn("credential no longer valid, closing presence session")
		h.ForceClose(ctx, s)
		return ErrRejected
	}

	update := LocationUpdate{
		UserID:    s.UserID.String(),
		Lat:       payload.Lat,
		Lng:       payload.Lng,
		Accuracy:  payload.Accuracy,
		Timestamp: payload.Timestamp,
	}
	h.BroadcastLocation(update, s)
	metrics.BroadcastSent("socket")
	return nil
}

// BroadcastLocation publishes a location_update envelope to every member
// of all_users except exclude. This is the single fan-out primitive shared
// by the socket path (exclude = sender, no echo-back) and the REST gateway
// (exclude = nil). Delivery is at-most-once: a session whose send buffer
// is full loses the message.
func (h *Hub) BroadcastLocation(update LocationUpdate, exclude *Session) {
	data, err := json.Marshal(update)
	if err != nil {
		h.log.WithError(err).Error("marshal location update")
		return
	}
	msg := Message{Event: EventLocationUpdate, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for session := range h.rooms[RoomAllUsers] {
		if session == exclude {
			continue
		}
		select {
		case session.send <- msg:
		default:
			h.log.WithField("user_id", session.UserID).Warn("send buffer full, dropping location update")
		}
	}
}

// Disconnect runs the Admitted→Closed transition. It is idempotent and
// never surfaces an error: the transport-level disconnect has already
// happened and cannot be undone. Room membership is always removed; the
// active-flag write is skipped when the admission token no longer
// verifies.
func (h *Hub) Disconnect(ctx context.Context, s *Session) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	h.remove(s)

	if _, err := h.verifier.Verify(s.token); err != nil {
		return
	}
	if err := h.users.SetActive(ctx, s.UserID, false); err != nil {
		h.log.WithError(err).WithField("user_id", s.UserID).Warn("presence cleanup: active flag not persisted")
	}
}

// ForceClose tears a session down by its admitted identity, without
// re-deriving it from the (possibly expired) token. Used when an event
// arrives on a session whose credential is no longer valid.
func (h *Hub) ForceClose(ctx context.Context, s *Session) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	h.remove(s)

	if err := h.users.SetActive(ctx, s.UserID, false); err != nil {
		h.log.WithError(err).WithField("user_id", s.UserID).Warn("forced close: active flag not persisted")
	}
	s.closeConn()
}

// RoomSize reports current membership of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) joinLocked(room string, s *Session) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Session]bool)
		h.rooms[room] = members
	}
	members[s] = true
}

// remove drops the session from both of its rooms and closes its send
// channel. Closing under the write lock keeps broadcasters (which hold the
// read lock) from racing a send against the close.
func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range []string{UserRoom(s.UserID), RoomAllUsers} {
		if members, ok := h.rooms[room]; ok {
			delete(members, s)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(s.send)
	metrics.SessionClosed()
}
