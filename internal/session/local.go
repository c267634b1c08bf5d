package session

import (
	"encoding/json"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/pelusa-v/geochat/internal/chat"
)

// HubTransport runs the session against an in-process chat.Hub. Each
// Subscribe becomes one hub member; envelopes are decoded off the
// member's receive channel and handed to the session.
type HubTransport struct {
	hub  *chat.Hub
	self chat.Presence
}

func NewHubTransport(hub *chat.Hub, self chat.Presence) *HubTransport {
	return &HubTransport{hub: hub, self: self}
}

func (t *HubTransport) Subscribe(room string, onEvent func(chat.Envelope)) (Channel, error) {
	sub := t.hub.SubscribeLocal(room, t.self)
	go func() {
		for data := range sub.Recv() {
			var ev chat.Envelope
			if err := json.Unmarshal(data, &ev); err != nil {
				jww.WARN.Printf("decode envelope from %s: %v", room, err)
				continue
			}
			onEvent(ev)
		}
	}()
	return &hubChannel{sub: sub}, nil
}

type hubChannel struct {
	sub *chat.LocalSub
}

func (c *hubChannel) Track(p chat.Presence) error {
	c.sub.Track(p)
	return nil
}

func (c *hubChannel) Send(ev chat.Envelope) error {
	c.sub.SendEvent(ev)
	return nil
}

func (c *hubChannel) Close() error {
	c.sub.Close()
	return nil
}
