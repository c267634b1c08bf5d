package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/pelusa-v/geochat/internal/blob"
	"github.com/pelusa-v/geochat/internal/chat"
	"github.com/pelusa-v/geochat/internal/config"
	"github.com/pelusa-v/geochat/internal/handlers"
	"github.com/pelusa-v/geochat/internal/store"
)

func main() {
	jww.SetStdoutThreshold(jww.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		jww.FATAL.Fatalf("load config: %v", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		jww.FATAL.Fatalf("open store: %v", err)
	}
	defer db.Close()

	blobs, err := blob.New(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		jww.FATAL.Fatalf("open blob store: %v", err)
	}

	hub := chat.NewHub()
	go hub.Start()
	defer hub.Stop()

	api := &handlers.API{Hub: hub, Store: db, Blobs: blobs, GMPassword: cfg.GMPassword}

	app := fiber.New(fiber.Config{BodyLimit: blob.MaxImageBytes + 1<<20})

	// 上传文件直接静态服务
	app.Static("/uploads", blobs.Dir())

	// WS & APIs
	app.Get("/api/ws/room/:room", websocket.New(api.RoomWSHandler))
	app.Get("/api/rooms", api.ActiveRoomsHandler)                       // ?scale=
	app.Get("/api/rooms/:room/messages", api.HistoryHandler)            // ?before=&after=&limit=
	app.Post("/api/rooms/:room/messages", api.SendMessageHandler)       // body: message
	app.Post("/api/rooms/:room/recall", api.RecallHandler)              // ?id=
	app.Post("/api/rooms/:room/delete", api.DeleteMessageHandler)       // ?id=&password=
	app.Get("/api/rooms/:room/online", api.OnlineHandler)
	app.Get("/api/resolve", api.ResolveHandler)                         // ?lat=&lng=&zoom=
	app.Get("/api/location/fallback", api.FallbackLocationHandler)      // ?tz=
	app.Post("/api/upload", api.UploadHandler)                          // multipart: file, kind

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		_ = app.Shutdown()
	}()

	if err := app.Listen(cfg.Listen); err != nil {
		jww.FATAL.Fatalf("listen on %s: %v", cfg.Listen, err)
	}
}
