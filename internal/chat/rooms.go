package chat

import (
	"sort"
	"strings"

	"github.com/pelusa-v/geochat/internal/geo"
)

// 规范化房间名：去首尾空格；合法形态只有 world_global / city_<hex> / district_<hex>
func NormalizeRoom(room string) (string, error) {
	r := strings.TrimSpace(room)
	if _, _, err := geo.ParseRoomID(r); err != nil {
		return "", err
	}
	return r, nil
}

// RoomInfo is one active room as shown on the map hotspot layer.
type RoomInfo struct {
	Room   string    `json:"room"`
	Scale  geo.Scale `json:"scale"`
	Online int       `json:"online"`
	Center geo.Coord `json:"center,omitempty"`
}

// ListActiveRooms returns rooms with at least one subscriber at the
// given scale, ordered by population. Hex rooms carry their cell
// center for hotspot rendering.
func (h *Hub) ListActiveRooms(scale geo.Scale) []RoomInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	res := make([]RoomInfo, 0, len(h.rooms))
	for room, members := range h.rooms {
		s, cell, err := geo.ParseRoomID(room)
		if err != nil || s != scale || len(members) == 0 {
			continue
		}
		info := RoomInfo{Room: room, Scale: s, Online: len(members)}
		if s != geo.ScaleWorld {
			info.Center = geo.CellCenter(cell)
		}
		res = append(res, info)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Online != res[j].Online {
			return res[i].Online > res[j].Online
		}
		return res[i].Room < res[j].Room
	})
	return res
}
