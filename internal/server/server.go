// Package server is the companion process that backs the file-sync channels
// with JSON files on disk.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/ppiankov/creditlens/internal/filesync"
	"github.com/ppiankov/creditlens/internal/logger"
)

const serverModule = "SyncServer"

type Server struct {
	app      *fiber.App
	channels map[filesync.Resource]*filesync.DiskChannel
	log      logger.Logger
}

// New creates the server, storing files under dataDir
func New(dataDir string, log logger.Logger) (*Server, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             64 * 1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	s := &Server{
		app: app,
		channels: map[filesync.Resource]*filesync.DiskChannel{
			filesync.ResourceSessions: filesync.NewDiskChannel(dataDir, filesync.ResourceSessions),
			filesync.ResourceSettings: filesync.NewDiskChannel(dataDir, filesync.ResourceSettings),
		},
		log: log,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

// Run serves on addr until Shutdown
func (s *Server) Run(addr string) error {
	s.log.Info(serverModule, "listening", map[string]interface{}{"addr": addr})
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	api := s.app.Group("/api")
	for resource, channel := range s.channels {
		api.Get("/"+string(resource), s.read(resource, channel))
		api.Post("/"+string(resource), s.write(resource, channel))
	}
}

func (s *Server) read(resource filesync.Resource, channel *filesync.DiskChannel) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := channel.Read(c.UserContext())
		if err != nil {
			s.log.Error(serverModule, "read failed", map[string]interface{}{"resource": string(resource), "error": err})
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}
		if data == nil {
			data = resource.Sentinel()
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	}
}

// write accepts a JSON array for sessions and a JSON object for settings.
// Anything else is rejected before the file is touched.
func (s *Server) write(resource filesync.Resource, channel *filesync.DiskChannel) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := bytes.TrimSpace(c.Body())
		if err := validate(resource, body); err != nil {
			s.log.Warn(serverModule, "rejected write", map[string]interface{}{"resource": string(resource), "error": err})
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}

		if err := channel.Write(c.UserContext(), body); err != nil {
			s.log.Error(serverModule, "write failed", map[string]interface{}{"resource": string(resource), "error": err})
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}
		s.log.Debug(serverModule, "stored", map[string]interface{}{"resource": string(resource), "bytes": len(body)})
		return c.JSON(fiber.Map{"ok": true})
	}
}

func validate(resource filesync.Resource, body []byte) error {
	if !json.Valid(body) {
		return fmt.Errorf("body is not valid JSON")
	}
	want := byte('{')
	kind := "object"
	if resource == filesync.ResourceSessions {
		want, kind = '[', "array"
	}
	if len(body) == 0 || body[0] != want {
		return fmt.Errorf("body must be a JSON %s", kind)
	}
	return nil
}
