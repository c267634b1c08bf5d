package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/pelusa-v/geochat/internal/blob"
	"github.com/pelusa-v/geochat/internal/chat"
	"github.com/pelusa-v/geochat/internal/geo"
	"github.com/pelusa-v/geochat/internal/store"
)

func newTestApp(t *testing.T) (*fiber.App, *API) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := blob.New(t.TempDir(), "http://test")
	require.NoError(t, err)

	hub := chat.NewHub()
	go hub.Start()
	t.Cleanup(hub.Stop)

	api := &API{Hub: hub, Store: db, Blobs: blobs, GMPassword: "sesame"}
	app := fiber.New()
	app.Get("/api/rooms", api.ActiveRoomsHandler)
	app.Get("/api/rooms/:room/messages", api.HistoryHandler)
	app.Post("/api/rooms/:room/messages", api.SendMessageHandler)
	app.Post("/api/rooms/:room/recall", api.RecallHandler)
	app.Post("/api/rooms/:room/delete", api.DeleteMessageHandler)
	app.Get("/api/rooms/:room/online", api.OnlineHandler)
	app.Get("/api/resolve", api.ResolveHandler)
	app.Get("/api/location/fallback", api.FallbackLocationHandler)
	app.Post("/api/upload", api.UploadHandler)
	return app, api
}

func postMessage(t *testing.T, app *fiber.App, room, id string, ts int64) {
	t.Helper()
	m := chat.Message{ID: id, UserID: "u1", UserName: "alice",
		Content: "msg " + id, Timestamp: ts, Type: chat.TypeText}
	body, _ := json.Marshal(m)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/"+room+"/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHistoryEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	for i := 1; i <= 35; i++ {
		postMessage(t, app, "world_global", fmt.Sprintf("m%02d", i), int64(i*100))
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/rooms/world_global/messages", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page []chat.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Len(t, page, 30)
	require.Equal(t, "m35", page[0].ID)

	// before 游标翻旧页
	url := fmt.Sprintf("/api/rooms/world_global/messages?before=%d", page[29].Timestamp)
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, url, nil))
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Len(t, page, 5)

	// after 游标正序（爬楼）
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/rooms/world_global/messages?after=0", nil))
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Equal(t, "m01", page[0].ID)

	// 非法房间名
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/rooms/lobby/messages", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendMessageValidation(t *testing.T) {
	app, _ := newTestApp(t)

	m := chat.Message{ID: "", Content: "no id"}
	body, _ := json.Marshal(m)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/world_global/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecallEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	postMessage(t, app, "world_global", "r1", 100)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/rooms/world_global/recall?id=r1", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/rooms/world_global/messages", nil))
	require.NoError(t, err)
	var page []chat.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.True(t, page[0].IsRecalled)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/rooms/world_global/recall?id=ghost", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteRequiresGMPassword(t *testing.T) {
	app, _ := newTestApp(t)
	postMessage(t, app, "world_global", "x", 100)

	// 密码错：拒绝但不锁定
	resp, err := app.Test(httptest.NewRequest(http.MethodPost,
		"/api/rooms/world_global/delete?id=x&password=wrong", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost,
		"/api/rooms/world_global/delete?id=x&password=sesame", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// 删除后翻页不可见
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/rooms/world_global/messages", nil))
	require.NoError(t, err)
	var page []chat.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Empty(t, page)
}

func TestResolveEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		"/api/resolve?lat=39.9&lng=116.4&zoom=14", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Scale    geo.Scale `json:"scale"`
		World    string    `json:"world"`
		City     string    `json:"city"`
		District string    `json:"district"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, geo.ScaleDistrict, out.Scale)
	require.Equal(t, "world_global", out.World)
	require.Equal(t, geo.RoomID(geo.Coord{Lat: 39.9, Lng: 116.4}, geo.ScaleCity), out.City)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/resolve?lat=x", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFallbackLocationEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		"/api/location/fallback?tz=Asia/Shanghai", nil))
	require.NoError(t, err)
	var c geo.Coord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))
	require.InDelta(t, 31.23, c.Lat, 0.01)
}

func TestUploadEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("kind", "image"))
	fw, err := w.CreateFormFile("file", "pic.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		URL string `json:"url"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &out))
	require.Contains(t, out.URL, "http://test/uploads/")
	require.Contains(t, out.URL, ".png")
}
