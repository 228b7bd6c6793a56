package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/gm-table/internal/database"
	"github.com/thereayou/gm-table/internal/dice"
	"github.com/thereayou/gm-table/internal/history"
	"github.com/thereayou/gm-table/internal/middleware"
	"github.com/thereayou/gm-table/internal/models"
	"github.com/thereayou/gm-table/internal/narration"
	"github.com/thereayou/gm-table/internal/narrator"
	"github.com/thereayou/gm-table/internal/room"
	"github.com/thereayou/gm-table/internal/roster"
	"github.com/thereayou/gm-table/internal/services"
	"github.com/thereayou/gm-table/internal/websocket"
	"github.com/thereayou/gm-table/pkg/auth"
)

type memStore struct {
	mu       sync.Mutex
	rooms    map[uuid.UUID]room.Room
	messages []room.Message
	chars    map[uuid.UUID]*models.Character
}

func newMemStore() *memStore {
	return &memStore{
		rooms: make(map[uuid.UUID]room.Room),
		chars: make(map[uuid.UUID]*models.Character),
	}
}

func (m *memStore) SaveRoom(_ context.Context, r room.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = r.Clone()
	return nil
}

func (m *memStore) LoadActiveRooms(context.Context) ([]room.Room, error) {
	return nil, nil
}

func (m *memStore) SaveMessage(_ context.Context, msg room.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memStore) RoomMessages(_ context.Context, roomID uuid.UUID, limit int, _ *uuid.UUID) ([]room.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []room.Message
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memStore) GetCharacter(_ context.Context, id uuid.UUID) (*models.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chars[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return c, nil
}

func (m *memStore) addCharacter(owner uuid.UUID, name string) uuid.UUID {
	c := &models.Character{ID: uuid.New(), UserID: owner, Name: name, Occupation: "Professor", Power: 60, Constitution: 50, Size: 60}
	c.Derive()
	m.mu.Lock()
	m.chars[c.ID] = c
	m.mu.Unlock()
	return c.ID
}

type openBlacklist struct{}

func (openBlacklist) Revoke(context.Context, string, time.Duration) error { return nil }
func (openBlacklist) Revoked(context.Context, string) (bool, error)      { return false, nil }

// echoGenerator answers with the last prompt line it was given.
type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, _ uuid.UUID, messages []narrator.Message) (string, error) {
	return "The Keeper considers: " + messages[len(messages)-1].Content, nil
}

type testEnv struct {
	engine     *gin.Engine
	store      *memStore
	hub        *websocket.Hub
	jwt        *auth.JWTManager
	dispatcher *narration.Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zerolog.Nop()
	store := newMemStore()
	rooms := roster.New()
	hist := history.New(20)
	hub := websocket.NewHub(log)
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)

	announcer := services.NewAnnouncer(rooms, store, hub, log)
	d := narration.New(echoGenerator{}, hist, rooms, announcer, narration.Options{Timeout: 5 * time.Second, Logger: log})
	t.Cleanup(d.Close)

	roomSvc := services.NewRoomService(rooms, store, hub, d, hist, log)
	chatSvc := services.NewChatService(rooms, store, hub, d, dice.NewRoller(7), log)

	rh := NewRoomHandler(roomSvc)
	mh := NewHTTPMessageHandler(chatSvc)
	wsh := NewWebSocketHandler(hub, NewMessageHandler(roomSvc, chatSvc, hub, log), []string{"*"}, RateConfig{PerSecond: 100, Burst: 100}, log)

	r := gin.New()
	api := r.Group("/api/v1", middleware.AuthMiddleware(jwtMgr, openBlacklist{}))
	api.POST("/rooms", rh.CreateRoom)
	api.GET("/rooms", rh.ListRooms)
	api.GET("/rooms/:id", rh.GetRoom)
	api.POST("/rooms/:id/join", rh.Join)
	api.POST("/rooms/:id/leave", rh.Leave)
	api.POST("/rooms/:id/select-character", rh.SelectCharacter)
	api.POST("/rooms/:id/start", rh.Start)
	api.POST("/rooms/:id/end", rh.Remove)
	api.GET("/rooms/:id/messages", mh.GetRoomMessages)
	api.POST("/rooms/:id/messages", mh.PostRoomMessage)
	r.GET("/ws", middleware.WSAuthMiddleware(jwtMgr, openBlacklist{}), wsh.HandleWebSocket)

	return &testEnv{engine: r, store: store, hub: hub, jwt: jwtMgr, dispatcher: d}
}

type user struct {
	id    uuid.UUID
	name  string
	token string
}

func (e *testEnv) user(t *testing.T, name string) user {
	t.Helper()
	id := uuid.New()
	token, err := e.jwt.Generate(id, name)
	require.NoError(t, err)
	return user{id: id, name: name, token: token}
}

func (e *testEnv) do(t *testing.T, u user, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (e *testEnv) createRoom(t *testing.T, host user, maxPlayers int) room.Room {
	t.Helper()
	w := e.do(t, host, http.MethodPost, "/api/v1/rooms", gin.H{
		"name":        "The Haunting",
		"script":      "A house on Corbitt Street has a bad reputation.",
		"max_players": maxPlayers,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody[room.Room](t, w)
}
