package chat

// LocalSub is an in-process subscription to a Hub room, used by the
// bundled client core and by tests. It behaves exactly like a
// websocket member: it receives the same marshaled envelopes on Recv
// and injects events through the same hub loop.
type LocalSub struct {
	hub *Hub
	c   *Client
}

// SubscribeLocal registers an in-process member of a room.
func (h *Hub) SubscribeLocal(room string, p Presence) *LocalSub {
	c := &Client{
		Id:       p.UserID,
		Room:     room,
		Presence: p,
		Send:     make(chan []byte, 16),
		hub:      h,
	}
	h.RegisterChan <- c
	return &LocalSub{hub: h, c: c}
}

// Recv yields marshaled envelopes; closed when the member is dropped.
func (ls *LocalSub) Recv() <-chan []byte {
	return ls.c.Send
}

// SendEvent injects a new_message or recall event as this member.
func (ls *LocalSub) SendEvent(ev Envelope) {
	// 与 ReadPump 相同：身份以连接为准
	if ev.Kind == EventNewMessage {
		if ev.Message == nil {
			return
		}
		ev.Message.UserID = ls.c.Presence.UserID
		ev.Message.UserName = ls.c.Presence.UserName
	}
	ls.hub.EventChan <- &inboundEvent{client: ls.c, ev: &ev}
}

// Track replaces this member's presence record.
func (ls *LocalSub) Track(p Presence) {
	p.UserID = ls.c.Presence.UserID
	ls.hub.EventChan <- &inboundEvent{client: ls.c, ev: &Envelope{Kind: EventTrack, Track: &p}}
}

// Close drops the member from the room.
func (ls *LocalSub) Close() {
	ls.hub.UnregisterChan <- ls.c
}
