package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/thereayou/gm-table/internal/middleware"
	ws "github.com/thereayou/gm-table/internal/websocket"
)

// RateConfig throttles send_message and roll_dice per connection.
type RateConfig struct {
	PerSecond float64
	Burst     int
}

type WebSocketHandler struct {
	hub            *ws.Hub
	messageHandler *MessageHandler
	upgrader       websocket.Upgrader
	limits         RateConfig
	log            zerolog.Logger
}

func NewWebSocketHandler(hub *ws.Hub, messageHandler *MessageHandler, allowedOrigins []string, limits RateConfig, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		messageHandler: messageHandler,
		limits:         limits,
		log:            log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	hosts := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		hosts[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return hosts[u.Scheme+"://"+u.Host]
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, username := middleware.Identity(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	var limiter *rate.Limiter
	if h.limits.PerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.limits.PerSecond), h.limits.Burst)
	}
	client := ws.NewClient(h.hub, conn, userID, username, limiter)

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.messageHandler)
}
