package session

import (
	"sort"
	"strings"

	"github.com/pelusa-v/geochat/internal/chat"
)

// State is the per-room sync phase.
type State int

const (
	StateInitializing State = iota
	StateLive
	StateLoadingOlder
)

// RoomState is one room's client-side view: the bounded message
// window, pagination cursors, counters and presence. Not goroutine
// safe; the owning session loop is the only mutator.
type RoomState struct {
	RoomID   string
	State    State
	Climbing bool

	Messages []chat.Message // always ascending by timestamp, ids unique
	HasOlder bool
	HasNewer bool // climbing mode only

	UnreadCount  int
	MentionCount int

	Online []chat.Presence
	// 每个用户的已读水位（只进不退），切换活跃尺度时清空
	readMarks map[string]int64
}

func newRoomState(roomID string) *RoomState {
	rs := &RoomState{}
	rs.resetForRoom(roomID)
	return rs
}

// resetForRoom wipes everything for a fresh room: new cache, cursors
// rewound, counters cleared. Presence is rebuilt by the next sync.
func (rs *RoomState) resetForRoom(roomID string) {
	rs.RoomID = roomID
	rs.State = StateInitializing
	rs.Climbing = false
	rs.Messages = nil
	rs.HasOlder = true
	rs.HasNewer = false
	rs.UnreadCount = 0
	rs.MentionCount = 0
	rs.Online = nil
	rs.readMarks = map[string]int64{}
}

// ingest merges one live message: dedup by id, append, re-sort, trim
// to the window. Reports whether the message was new.
func (rs *RoomState) ingest(m chat.Message) bool {
	if rs.has(m.ID) {
		return false
	}
	rs.Messages = append(rs.Messages, m)
	rs.sortAsc()
	rs.trim()
	return true
}

// noteUnread bumps the room's counters for a message that arrived
// while the room was not the active scale. Mention matching is a
// literal "@name" substring check; names that contain other names can
// false-positive, which matches the shipped behavior and stays until a
// product decision says otherwise.
func (rs *RoomState) noteUnread(m chat.Message, selfName string) {
	rs.UnreadCount++
	if selfName != "" && strings.Contains(m.Content, "@"+selfName) {
		rs.MentionCount++
	}
}

func (rs *RoomState) clearUnread() {
	rs.UnreadCount = 0
	rs.MentionCount = 0
}

// prependOlder merges one backfill page (newest first, as queried)
// below the current window. Returns how many rows were new.
func (rs *RoomState) prependOlder(page []chat.Message) int {
	added := 0
	for _, m := range page {
		if rs.has(m.ID) {
			continue
		}
		rs.Messages = append(rs.Messages, m)
		added++
	}
	if added > 0 {
		rs.sortAsc()
	}
	// 回填时不 trim：用户正在向上翻页，砍掉旧页就自相矛盾了
	return added
}

// appendNewer merges one climbing page (oldest first).
func (rs *RoomState) appendNewer(page []chat.Message) int {
	added := 0
	for _, m := range page {
		if rs.has(m.ID) {
			continue
		}
		rs.Messages = append(rs.Messages, m)
		added++
	}
	if added > 0 {
		rs.sortAsc()
	}
	return added
}

// applyRecall flags a message recalled. Content is kept internally;
// rendering it is the UI's problem to avoid.
func (rs *RoomState) applyRecall(id string) {
	for i := range rs.Messages {
		if rs.Messages[i].ID == id {
			rs.Messages[i].IsRecalled = true
			return
		}
	}
}

func (rs *RoomState) drop(id string) {
	for i := range rs.Messages {
		if rs.Messages[i].ID == id {
			rs.Messages = append(rs.Messages[:i], rs.Messages[i+1:]...)
			return
		}
	}
}

// applyPresence replaces the online set with the full snapshot and
// folds each user's reported read position into the cumulative
// high-water marks. Marks never regress, even when a rejoining client
// reports an older position.
func (rs *RoomState) applyPresence(snapshot []chat.Presence) {
	rs.Online = snapshot
	for _, p := range snapshot {
		if p.LastReadTimestamp > rs.readMarks[p.UserID] {
			rs.readMarks[p.UserID] = p.LastReadTimestamp
		}
	}
}

// ReadCount reports how many other users have read a message the
// local user sent: users whose high-water mark reached the message
// timestamp, excluding the sender and the author.
func (rs *RoomState) ReadCount(m chat.Message, selfID string) int {
	n := 0
	for userID, mark := range rs.readMarks {
		if userID == selfID || userID == m.UserID {
			continue
		}
		if mark >= m.Timestamp {
			n++
		}
	}
	return n
}

func (rs *RoomState) oldestTimestamp() int64 {
	if len(rs.Messages) == 0 {
		return 0
	}
	return rs.Messages[0].Timestamp
}

func (rs *RoomState) newestTimestamp() int64 {
	if len(rs.Messages) == 0 {
		return 0
	}
	return rs.Messages[len(rs.Messages)-1].Timestamp
}

func (rs *RoomState) has(id string) bool {
	for i := range rs.Messages {
		if rs.Messages[i].ID == id {
			return true
		}
	}
	return false
}

func (rs *RoomState) sortAsc() {
	sort.SliceStable(rs.Messages, func(i, j int) bool {
		if rs.Messages[i].Timestamp != rs.Messages[j].Timestamp {
			return rs.Messages[i].Timestamp < rs.Messages[j].Timestamp
		}
		return rs.Messages[i].ID < rs.Messages[j].ID
	})
}

func (rs *RoomState) trim() {
	if n := len(rs.Messages); n > MaxMessages {
		rs.Messages = rs.Messages[n-MaxMessages:]
	}
}
