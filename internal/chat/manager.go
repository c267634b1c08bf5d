package chat

import (
	"encoding/json"
	"sync"

	jww "github.com/spf13/jwalterweatherman"
)

type inboundEvent struct {
	client *Client
	ev     *Envelope
}

// Hub routes channel events between the subscribers of spatial rooms.
// One Hub serves every room; rooms come and go with their members.
// Construct with NewHub and run Start in its own goroutine.
type Hub struct {
	mu sync.RWMutex

	rooms map[string]map[string]*Client // room -> client id -> client

	RegisterChan   chan *Client
	UnregisterChan chan *Client
	EventChan      chan *inboundEvent

	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:          map[string]map[string]*Client{},
		RegisterChan:   make(chan *Client),
		UnregisterChan: make(chan *Client),
		EventChan:      make(chan *inboundEvent, 16),
		done:           make(chan struct{}),
	}
}

func (h *Hub) Start() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.RegisterChan:
			h.mu.Lock()
			if h.rooms[client.Room] == nil {
				h.rooms[client.Room] = map[string]*Client{}
			}
			// 同一用户重连：挤掉旧连接
			if old, ok := h.rooms[client.Room][client.Id]; ok && old != client {
				close(old.Send)
			}
			h.rooms[client.Room][client.Id] = client
			h.mu.Unlock()
			h.broadcastPresence(client.Room)

		case client := <-h.UnregisterChan:
			h.mu.Lock()
			if cur, ok := h.rooms[client.Room][client.Id]; ok && cur == client {
				delete(h.rooms[client.Room], client.Id)
				close(client.Send)
				if len(h.rooms[client.Room]) == 0 {
					delete(h.rooms, client.Room)
				}
			}
			h.mu.Unlock()
			h.broadcastPresence(client.Room)

		case in := <-h.EventChan:
			switch in.ev.Kind {
			case EventNewMessage, EventRecall:
				// 广播不经过存储；持久化由 REST 端点负责，
				// 存储故障不得阻塞在线投递
				h.broadcastRoom(in.client.Room, in.ev)
			case EventTrack:
				h.mu.Lock()
				if cur, ok := h.rooms[in.client.Room][in.client.Id]; ok {
					p := *in.ev.Track
					// 已读水位只进不退
					if p.LastReadTimestamp < cur.Presence.LastReadTimestamp {
						p.LastReadTimestamp = cur.Presence.LastReadTimestamp
					}
					cur.Presence = p
				}
				h.mu.Unlock()
				h.broadcastPresence(in.client.Room)
			}
		}
	}
}

// Stop terminates the run loop; subscribers are dropped by their pumps.
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) broadcastRoom(room string, ev *Envelope) {
	h.mu.RLock()
	members := h.rooms[room]
	snapshot := make([]*Client, 0, len(members))
	for _, c := range members {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(ev)
	if err != nil {
		jww.ERROR.Printf("marshal %s event for room %s: %v", ev.Kind, room, err)
		return
	}
	for _, c := range snapshot {
		select {
		case c.Send <- data:
		default:
		}
	}
}

// broadcastPresence pushes the room's full presence snapshot to every
// member. Always a complete set, never a diff.
func (h *Hub) broadcastPresence(room string) {
	h.broadcastRoom(room, &Envelope{
		Kind:     EventPresenceSync,
		Presence: h.OnlineUsers(room),
	})
}

// OnlineUsers returns the current presence snapshot of a room.
func (h *Hub) OnlineUsers(room string) []Presence {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := h.rooms[room]
	out := make([]Presence, 0, len(members))
	for _, c := range members {
		out = append(out, c.Presence)
	}
	return out
}
