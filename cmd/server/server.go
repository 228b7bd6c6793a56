package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/thereayou/gm-table/internal/config"
	"github.com/thereayou/gm-table/internal/database"
	"github.com/thereayou/gm-table/internal/dice"
	"github.com/thereayou/gm-table/internal/handlers"
	"github.com/thereayou/gm-table/internal/history"
	"github.com/thereayou/gm-table/internal/middleware"
	"github.com/thereayou/gm-table/internal/narration"
	"github.com/thereayou/gm-table/internal/narrator"
	"github.com/thereayou/gm-table/internal/roster"
	"github.com/thereayou/gm-table/internal/services"
	"github.com/thereayou/gm-table/internal/websocket"
	"github.com/thereayou/gm-table/pkg/auth"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	cfg        *config.Config
	log        zerolog.Logger
	http       *http.Server
	db         *database.Database
	redis      *redis.Client
	hub        *websocket.Hub
	dispatcher *narration.Dispatcher
}

func NewServer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Server, error) {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	roller, err := dice.NewSeededRoller()
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, err
	}

	var gen narrator.Generator = narrator.Disabled{}
	if c := narrator.NewClient(narrator.Config{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.NarratorModel,
	}, log); c != nil {
		gen = c
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, narration falls back to system lines")
	}

	rooms := roster.New()
	hist := history.New(cfg.HistoryTurns)
	hub := websocket.NewHub(log)
	blacklist := middleware.NewRedisBlacklist(rdb)
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	announcer := services.NewAnnouncer(rooms, db, hub, log)
	dispatcher := narration.New(gen, hist, rooms, announcer, narration.Options{
		Timeout: cfg.NarratorTimeout,
		Logger:  log,
	})
	roomSvc := services.NewRoomService(rooms, db, hub, dispatcher, hist, log)
	chatSvc := services.NewChatService(rooms, db, hub, dispatcher, roller, log)

	restored, err := roomSvc.Restore(ctx)
	if err != nil {
		dispatcher.Close()
		_ = db.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("restore rooms: %w", err)
	}
	log.Info().Int("rooms", restored).Msg("active rooms restored")

	gin.SetMode(cfg.GinMode)
	router := newRouter(routes{
		auth:       handlers.NewAuthHandler(db, jwtMgr, blacklist, log),
		users:      handlers.NewUserHandler(db),
		characters: handlers.NewCharacterHandler(db),
		rooms:      handlers.NewRoomHandler(roomSvc),
		messages:   handlers.NewHTTPMessageHandler(chatSvc),
		ws: handlers.NewWebSocketHandler(
			hub,
			handlers.NewMessageHandler(roomSvc, chatSvc, hub, log),
			cfg.AllowedOrigins,
			handlers.RateConfig{PerSecond: cfg.ChatRate, Burst: cfg.ChatBurst},
			log,
		),
	}, jwtMgr, blacklist, cfg.AllowedOrigins)

	return &Server{
		cfg: cfg,
		log: log,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		db:         db,
		redis:      rdb,
		hub:        hub,
		dispatcher: dispatcher,
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight narrations and
// closes the stores.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.hub.Run(gctx)
	})

	g.Go(func() error {
		s.log.Info().Str("addr", s.http.Addr).Msg("server starting")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	s.dispatcher.Close()
	if cerr := s.redis.Close(); cerr != nil {
		s.log.Warn().Err(cerr).Msg("redis close failed")
	}
	if cerr := s.db.Close(); cerr != nil {
		s.log.Warn().Err(cerr).Msg("postgres close failed")
	}
	return err
}
