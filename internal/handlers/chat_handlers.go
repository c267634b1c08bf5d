package handlers

import (
	"crypto/subtle"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pelusa-v/geochat/internal/blob"
	"github.com/pelusa-v/geochat/internal/chat"
	"github.com/pelusa-v/geochat/internal/geo"
	"github.com/pelusa-v/geochat/internal/store"
)

// API holds the handlers' collaborators; everything injected, no
// package globals.
type API struct {
	Hub        *chat.Hub
	Store      *store.SQLite
	Blobs      *blob.Store
	GMPassword string
}

// RoomWSHandler GET /api/ws/room/:room?uid=&name=&avatar=&gm=&lat=&lng=
func (a *API) RoomWSHandler(c *websocket.Conn) {
	room, err := chat.NormalizeRoom(c.Params("room"))
	if err != nil {
		_ = c.Close()
		return
	}
	uid := c.Query("uid")
	if uid == "" {
		uid = uuid.NewString()
	}
	lat, _ := strconv.ParseFloat(c.Query("lat"), 64)
	lng, _ := strconv.ParseFloat(c.Query("lng"), 64)
	p := chat.Presence{
		UserID:     uid,
		UserName:   c.Query("name"),
		AvatarSeed: c.Query("avatar"),
		IsGM:       c.Query("gm") == "1",
		Lat:        lat,
		Lng:        lng,
		OnlineAt:   time.Now().UnixMilli(),
	}
	client := chat.NewClient(a.Hub, room, p, c)
	a.Hub.RegisterChan <- client
	go client.WritePump()
	client.ReadPump()
}

// HistoryHandler GET /api/rooms/:room/messages?before=&after=&limit=
func (a *API) HistoryHandler(c *fiber.Ctx) error {
	room, err := chat.NormalizeRoom(c.Params("room"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	limit := c.QueryInt("limit")
	// after 游标是爬楼的正序翻页；默认走 before 的倒序取最新页
	if after := c.Query("after"); after != "" {
		cursor, _ := strconv.ParseInt(after, 10, 64)
		page, err := a.Store.PageAfter(c.Context(), room, cursor, limit)
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(page)
	}
	cursor, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	page, err := a.Store.PageBefore(c.Context(), room, cursor, limit)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.JSON(page)
}

// SendMessageHandler POST /api/rooms/:room/messages
func (a *API) SendMessageHandler(c *fiber.Ctx) error {
	room, err := chat.NormalizeRoom(c.Params("room"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	var m chat.Message
	if err := c.BodyParser(&m); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if m.ID == "" || m.UserID == "" || strings.TrimSpace(m.Content) == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if m.Timestamp == 0 {
		m.Timestamp = time.Now().UnixMilli()
	}
	if err := a.Store.Insert(c.Context(), room, m); err != nil {
		if store.IsSchemaMismatch(err) {
			// 这一类必须让前端弹出升级提示，不能静默
			return c.Status(fiber.StatusInternalServerError).
				JSON(fiber.Map{"error": "schema_mismatch"})
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.SendStatus(fiber.StatusCreated)
}

// RecallHandler POST /api/rooms/:room/recall?id=
func (a *API) RecallHandler(c *fiber.Ctx) error {
	room, err := chat.NormalizeRoom(c.Params("room"))
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	id := c.Query("id")
	if id == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if err := a.Store.MarkRecalled(c.Context(), room, id); err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteMessageHandler POST /api/rooms/:room/delete?id=&password=
func (a *API) DeleteMessageHandler(c *fiber.Ctx) error {
	room, err := chat.NormalizeRoom(c.Params("room"))
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	id := c.Query("id")
	if id == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if a.GMPassword == "" ||
		subtle.ConstantTimeCompare([]byte(c.Query("password")), []byte(a.GMPassword)) != 1 {
		// 密码不对只提示，不锁定
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "wrong GM password"})
	}
	if err := a.Store.Delete(c.Context(), room, id); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	// 不广播：其他客户端在下次翻页时看到消息消失
	return c.SendStatus(fiber.StatusNoContent)
}

// OnlineHandler GET /api/rooms/:room/online
func (a *API) OnlineHandler(c *fiber.Ctx) error {
	room, err := chat.NormalizeRoom(c.Params("room"))
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	return c.JSON(a.Hub.OnlineUsers(room))
}

// ActiveRoomsHandler GET /api/rooms?scale=
func (a *API) ActiveRoomsHandler(c *fiber.Ctx) error {
	scale := geo.Scale(c.Query("scale", string(geo.ScaleDistrict)))
	return c.JSON(a.Hub.ListActiveRooms(scale))
}

// ResolveHandler GET /api/resolve?lat=&lng=&zoom=
// 服务端复算房间归属，便于客户端校验/调试
func (a *API) ResolveHandler(c *fiber.Ctx) error {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	zoom, _ := strconv.ParseFloat(c.Query("zoom", "14"), 64)
	coord := geo.Coord{Lat: lat, Lng: lng}
	return c.JSON(fiber.Map{
		"scale":    geo.ScaleForZoom(zoom),
		"world":    geo.WorldRoomID,
		"city":     geo.RoomID(coord, geo.ScaleCity),
		"district": geo.RoomID(coord, geo.ScaleDistrict),
	})
}

// FallbackLocationHandler GET /api/location/fallback?tz=
func (a *API) FallbackLocationHandler(c *fiber.Ctx) error {
	return c.JSON(geo.FallbackCoord(c.Query("tz")))
}

// UploadHandler POST /api/upload (multipart: file, kind=image|voice)
func (a *API) UploadHandler(c *fiber.Ctx) error {
	kind := blob.Kind(c.FormValue("kind", string(blob.KindImage)))
	if kind != blob.KindImage && kind != blob.KindVoice {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	f, err := fh.Open()
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	defer f.Close()
	url, err := a.Blobs.Save(f, kind, fh.Size)
	if err != nil {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}
