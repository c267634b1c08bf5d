package session

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pelusa-v/geochat/internal/chat"
	"github.com/pelusa-v/geochat/internal/geo"
)

// Session is the client core: it owns the three concurrent room
// channels (district/city/world), the active scale, and the typing
// debounce. All room state is mutated on one loop goroutine; public
// methods marshal onto it, so callers never need locks and async
// completions interleave exactly like events on a single-threaded
// event loop.
type Session struct {
	identity  Identity
	store     Store
	transport Transport
	resolver  *geo.Resolver

	active geo.Scale
	rooms  map[geo.Scale]*roomChannel

	typingActive bool
	typingTimer  *time.Timer

	calls chan func()
	done  chan struct{}

	onSchemaMismatch func(error)
	now              func() int64
}

// Config wires the session's collaborators. Everything is injected;
// the session holds no ambient globals.
type Config struct {
	Identity  Identity
	Store     Store
	Transport Transport
	Resolver  *geo.Resolver
	// Zoom picks the initial active scale.
	Zoom float64
	// OnSchemaMismatch is invoked for persistence failures that need a
	// backend schema migration; all other write failures are only logged.
	OnSchemaMismatch func(error)
}

// New builds a session and starts its loop; rooms are subscribed by
// Start.
func New(cfg Config) *Session {
	s := &Session{
		identity:         cfg.Identity,
		store:            cfg.Store,
		transport:        cfg.Transport,
		resolver:         cfg.Resolver,
		active:           geo.ScaleForZoom(cfg.Zoom),
		rooms:            map[geo.Scale]*roomChannel{},
		calls:            make(chan func(), 64),
		done:             make(chan struct{}),
		onSchemaMismatch: cfg.OnSchemaMismatch,
		now:              func() int64 { return time.Now().UnixMilli() },
	}
	for _, scale := range geo.Scales {
		s.rooms[scale] = newRoomChannel(s, scale)
	}
	go s.run()
	return s
}

func (s *Session) run() {
	for {
		select {
		case f := <-s.calls:
			f()
		case <-s.done:
			return
		}
	}
}

// post schedules work onto the loop without waiting. Used by transport
// callbacks and async fetch completions.
func (s *Session) post(f func()) {
	select {
	case s.calls <- f:
	case <-s.done:
	}
}

// do runs work on the loop and waits for it. Must not be called from
// the loop itself.
func (s *Session) do(f func()) {
	ran := make(chan struct{})
	s.post(func() {
		f()
		close(ran)
	})
	select {
	case <-ran:
	case <-s.done:
	}
}

// Start subscribes all three scale rooms for the resolver's current
// membership.
func (s *Session) Start() {
	s.do(func() {
		m := s.resolver.Resolve()
		for _, scale := range geo.Scales {
			s.rooms[scale].switchTo(m.Room(scale))
		}
	})
}

// Close tears down every subscription and stops the loop.
func (s *Session) Close() {
	s.do(func() {
		if s.typingTimer != nil {
			s.typingTimer.Stop()
		}
		for _, rc := range s.rooms {
			rc.teardown()
		}
	})
	close(s.done)
}

// ActiveScale returns the scale the user is currently viewing.
func (s *Session) ActiveScale() geo.Scale {
	var out geo.Scale
	s.do(func() { out = s.active })
	return out
}

// SetZoom re-derives the active scale from the map zoom. Activating a
// scale clears its unread/mention counters and resets its cumulative
// read map (rebuilt by the next presence sync).
func (s *Session) SetZoom(zoom float64) {
	s.do(func() {
		next := geo.ScaleForZoom(zoom)
		if next == s.active {
			return
		}
		s.active = next
		rc := s.rooms[next]
		rc.state.clearUnread()
		rc.state.readMarks = map[string]int64{}
	})
}

// Send creates an optimistic message in the active room and returns
// it. Persist/broadcast semantics live in roomChannel.send.
func (s *Session) Send(content string, typ chat.MessageType, reply *chat.ReplyRef, voiceDuration float64) chat.Message {
	m := chat.Message{
		ID:            uuid.NewString(),
		UserID:        s.identity.UserID,
		UserName:      s.identity.UserName,
		AvatarSeed:    s.identity.AvatarSeed,
		Content:       content,
		Type:          typ,
		CountryCode:   s.identity.CountryCode,
		IsGM:          s.identity.IsGM,
		ReplyTo:       reply,
		VoiceDuration: voiceDuration,
	}
	s.do(func() {
		m.Timestamp = s.now()
		s.rooms[s.active].send(m)
	})
	return m
}

// RemoveLocal drops an optimistic message from the active room's
// cache, e.g. after a failed blob upload.
func (s *Session) RemoveLocal(id string) {
	s.do(func() { s.rooms[s.active].state.drop(id) })
}

// Recall soft-deletes one of the user's own messages in the active room.
func (s *Session) Recall(id string) {
	s.do(func() { s.rooms[s.active].recall(id) })
}

// Delete hard-removes a message. GM only.
func (s *Session) Delete(id string) error {
	if !s.identity.IsGM {
		return fmt.Errorf("delete is restricted to the GM")
	}
	s.do(func() { s.rooms[s.active].deleteMessage(id) })
	return nil
}

// LoadOlder backfills the active room by one page.
func (s *Session) LoadOlder() {
	s.do(func() { s.rooms[s.active].loadOlder() })
}

// EnterClimbing switches the active room to chronological-forward
// reading from its oldest message.
func (s *Session) EnterClimbing() {
	s.do(func() { s.rooms[s.active].enterClimbing() })
}

// LoadNewer advances the climbing cursor by one page.
func (s *Session) LoadNewer() {
	s.do(func() { s.rooms[s.active].loadNewer() })
}

// ExitClimbing leaves climbing mode via a full reload of the room.
func (s *Session) ExitClimbing() {
	s.do(func() { s.rooms[s.active].exitClimbing() })
}

// Relocate anchors the session on a new GPS fix (re-fuzzed) and
// resubscribes every room whose id changed. In-flight fetches for the
// old rooms are not cancelled; their results fail the generation check
// and are dropped.
func (s *Session) Relocate(raw geo.Coord) {
	s.do(func() {
		m := s.resolver.Relocate(raw)
		for _, scale := range geo.Scales {
			rc := s.rooms[scale]
			if rc.state.RoomID != m.Room(scale) {
				rc.switchTo(m.Room(scale))
			}
		}
	})
}

// JoinRoom switches one scale to a manually clicked hex room. The
// admission radius check applies to non-GM users.
func (s *Session) JoinRoom(roomID string) error {
	scale, cell, err := geo.ParseRoomID(roomID)
	if err != nil {
		return err
	}
	if scale == geo.ScaleWorld {
		return nil // world 常驻，无可切换
	}
	var joinErr error
	s.do(func() {
		m, err := s.resolver.JoinCell(cell, scale, s.identity.IsGM)
		if err != nil {
			joinErr = err
			return
		}
		s.rooms[scale].switchTo(m.Room(scale))
	})
	return joinErr
}

// Resume forces a full resubscribe-and-refetch of every room, used
// when the app returns from background and the channels may have
// silently dropped. Not a delta sync.
func (s *Session) Resume() {
	s.do(func() {
		for _, rc := range s.rooms {
			if rc.state.RoomID != "" {
				rc.switchTo(rc.state.RoomID)
			}
		}
	})
}

// MarkRead reports the active room's scroll offset; within the
// near-bottom threshold the user's read position advances to now and
// is re-tracked.
func (s *Session) MarkRead(scrollOffset float64) {
	if math.Abs(scrollOffset) >= NearBottomPx {
		return
	}
	s.do(func() {
		rc := s.rooms[s.active]
		rc.lastRead = s.now()
		rc.state.clearUnread()
		rc.track()
	})
}

// Snapshot returns a copy of one scale's room state for rendering.
func (s *Session) Snapshot(scale geo.Scale) RoomState {
	var out RoomState
	s.do(func() {
		rs := s.rooms[scale].state
		out = *rs
		out.Messages = append([]chat.Message(nil), rs.Messages...)
		out.Online = append([]chat.Presence(nil), rs.Online...)
		marks := make(map[string]int64, len(rs.readMarks))
		for k, v := range rs.readMarks {
			marks[k] = v
		}
		out.readMarks = marks
	})
	return out
}

// ReadCount reports how many other users have read the given own
// message in the active room.
func (s *Session) ReadCount(m chat.Message) int {
	var n int
	s.do(func() { n = s.rooms[s.active].state.ReadCount(m, s.identity.UserID) })
	return n
}
