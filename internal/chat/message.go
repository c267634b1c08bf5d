package chat

// MessageType discriminates the content payload.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image" // content: comma-joined URL list
	TypeVoice MessageType = "voice" // content: single URL
)

// ReplyRef is an inline quote of the message being replied to.
type ReplyRef struct {
	UserName string `json:"user_name"`
	Content  string `json:"content"`
}

// Message is one chat message row. IDs are client-generated random
// tokens; collision probability is accepted as negligible.
type Message struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	UserName   string      `json:"user_name"`
	AvatarSeed string      `json:"avatar_seed"`
	Content    string      `json:"content"`
	Timestamp  int64       `json:"ts"` // epoch ms
	Type       MessageType `json:"type"`

	CountryCode   string    `json:"country_code,omitempty"`
	IsRecalled    bool      `json:"is_recalled"`
	IsGM          bool      `json:"is_gm"`
	ReplyTo       *ReplyRef `json:"reply_to,omitempty"`
	VoiceDuration float64   `json:"voice_duration,omitempty"` // seconds
}

// Presence is one user's ephemeral record inside a room channel.
// Lat/Lng are micro-fuzzed marker coordinates, never room-grade.
type Presence struct {
	UserID     string  `json:"user_id"`
	UserName   string  `json:"user_name"`
	AvatarSeed string  `json:"avatar_seed"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	OnlineAt   int64   `json:"online_at"`
	IsGM       bool    `json:"is_gm"`
	IsTyping   bool    `json:"is_typing"`
	// 已读水位（epoch ms），0 表示未上报
	LastReadTimestamp int64 `json:"last_read_ts,omitempty"`
}

// EventKind names the finite set of channel events.
type EventKind string

const (
	EventNewMessage   EventKind = "new_message"
	EventRecall       EventKind = "recall"
	EventPresenceSync EventKind = "presence_sync" // server -> client, full snapshot
	EventTrack        EventKind = "track"         // client -> server presence update
)

// RecallPayload identifies a soft-deleted message.
type RecallPayload struct {
	MessageID string `json:"message_id"`
}

// Envelope is the single wire shape for all channel traffic; exactly
// one payload field is set, selected by Kind.
type Envelope struct {
	Kind     EventKind      `json:"kind"`
	Message  *Message       `json:"message,omitempty"`
	Recall   *RecallPayload `json:"recall,omitempty"`
	Presence []Presence     `json:"presence,omitempty"`
	Track    *Presence      `json:"track,omitempty"`
}
