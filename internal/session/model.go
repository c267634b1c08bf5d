package session

import (
	"context"

	"github.com/pelusa-v/geochat/internal/chat"
)

// 同步核心的几个固定参数
const (
	// PageSize is one history page.
	PageSize = 30
	// MaxMessages bounds the in-memory window per room; oldest drop first.
	MaxMessages = 200
	// NearBottomPx: within this scroll distance of the live edge the view
	// counts as "read up to now".
	NearBottomPx = 200
)

// Store is the persisted half of the Room Store collaborator: an
// append-only message log per room with timestamp-cursor paging.
type Store interface {
	// PageBefore returns up to limit messages strictly older than the
	// cursor (epoch ms), newest first. before <= 0 means from the live edge.
	PageBefore(ctx context.Context, room string, before int64, limit int) ([]chat.Message, error)
	// PageAfter returns up to limit messages strictly newer than the
	// cursor, oldest first. after <= 0 starts at the room's oldest message.
	PageAfter(ctx context.Context, room string, after int64, limit int) ([]chat.Message, error)
	Insert(ctx context.Context, room string, m chat.Message) error
	MarkRecalled(ctx context.Context, room, id string) error
	Delete(ctx context.Context, room, id string) error
}

// Channel is one live subscription to a room's broadcast/presence
// channel.
type Channel interface {
	// Track publishes (replaces) the local user's presence record.
	Track(p chat.Presence) error
	// Send broadcasts an event to every room subscriber.
	Send(ev chat.Envelope) error
	Close() error
}

// Transport opens room channels. Events arrive on onEvent from the
// transport's own goroutine; the session serializes them onto its loop.
type Transport interface {
	Subscribe(room string, onEvent func(chat.Envelope)) (Channel, error)
}

// Identity is the local anonymous user.
type Identity struct {
	UserID      string
	UserName    string
	AvatarSeed  string
	CountryCode string
	IsGM        bool
}
