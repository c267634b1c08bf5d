package chat

import (
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
)

// Client is one websocket subscriber of one room channel.
type Client struct {
	Id       string
	Room     string
	Presence Presence
	Conn     ConnLike
	Send     chan []byte

	hub *Hub
}

type ConnLike interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

// NewClient binds a connection to a room on the given hub.
func NewClient(hub *Hub, room string, p Presence, conn ConnLike) *Client {
	return &Client{
		Id:       p.UserID,
		Room:     room,
		Presence: p,
		Conn:     conn,
		Send:     make(chan []byte, 16),
		hub:      hub,
	}
}

func (c *Client) ReadPump() {
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			c.hub.UnregisterChan <- c
			return
		}
		var ev Envelope
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		// 身份由连接决定，不信任载荷里的 user 字段
		switch ev.Kind {
		case EventNewMessage:
			if ev.Message == nil {
				continue
			}
			ev.Message.UserID = c.Presence.UserID
			ev.Message.UserName = c.Presence.UserName
		case EventRecall:
			if ev.Recall == nil {
				continue
			}
		case EventTrack:
			if ev.Track == nil {
				continue
			}
			ev.Track.UserID = c.Presence.UserID
		default:
			continue
		}
		c.hub.EventChan <- &inboundEvent{client: c, ev: &ev}
	}
}

func (c *Client) WritePump() {
	for data := range c.Send {
		_ = c.Conn.WriteMessage(websocket.TextMessage, data)
	}
}
