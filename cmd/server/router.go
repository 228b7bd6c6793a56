package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/thereayou/gm-table/internal/handlers"
	"github.com/thereayou/gm-table/internal/middleware"
	"github.com/thereayou/gm-table/pkg/auth"
)

type routes struct {
	auth       *handlers.AuthHandler
	users      *handlers.UserHandler
	characters *handlers.CharacterHandler
	rooms      *handlers.RoomHandler
	messages   *handlers.HTTPMessageHandler
	ws         *handlers.WebSocketHandler
}

func newRouter(h routes, jwtMgr *auth.JWTManager, blacklist middleware.Blacklist, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(origins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := middleware.AuthMiddleware(jwtMgr, blacklist)

	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.auth.Register)
		authGroup.POST("/login", h.auth.Login)
		authGroup.POST("/logout", authed, h.auth.Logout)
	}

	// API endpoints
	api := r.Group("/api/v1", authed)
	{
		api.GET("/users/me", h.users.GetMe)

		api.POST("/characters", h.characters.CreateCharacter)
		api.GET("/characters", h.characters.ListCharacters)

		api.POST("/rooms", h.rooms.CreateRoom)
		api.GET("/rooms", h.rooms.ListRooms)
		api.GET("/rooms/:id", h.rooms.GetRoom)
		api.DELETE("/rooms/:id", h.rooms.Remove)
		api.POST("/rooms/:id/join", h.rooms.Join)
		api.POST("/rooms/:id/leave", h.rooms.Leave)
		api.POST("/rooms/:id/select-character", h.rooms.SelectCharacter)
		api.POST("/rooms/:id/start", h.rooms.Start)
		api.POST("/rooms/:id/end", h.rooms.Remove)
		api.GET("/rooms/:id/messages", h.messages.GetRoomMessages)
		api.POST("/rooms/:id/messages", h.messages.PostRoomMessage)
	}

	r.GET("/ws", middleware.WSAuthMiddleware(jwtMgr, blacklist), h.ws.HandleWebSocket)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}
