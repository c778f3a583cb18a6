package server

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dukerupert/foodlottery/internal/backup"
	"github.com/dukerupert/foodlottery/internal/config"
	"github.com/dukerupert/foodlottery/internal/handler"
	"github.com/dukerupert/foodlottery/internal/lottery"
	"github.com/dukerupert/foodlottery/internal/metrics"
	"github.com/dukerupert/foodlottery/internal/middleware"
	"github.com/dukerupert/foodlottery/internal/statcache"
	"github.com/dukerupert/foodlottery/internal/store"
	"github.com/dukerupert/foodlottery/internal/web"
	ws "github.com/dukerupert/foodlottery/internal/websocket"
)

const (
	drawRateLimit   = 30
	backupRateLimit = 5
)

type Server struct {
	hub             *ws.Hub
	metrics         metrics.Recorder
	metricsEnabled  bool
	foodH           *handler.FoodHandler
	drawH           *handler.DrawHandler
	historyH        *handler.HistoryHandler
	statsH          *handler.StatsHandler
	backupH         *handler.BackupHandler
	templateHandler *handler.TemplateHandler
	drawLimiter     *middleware.RateLimiter
	backupLimiter   *middleware.RateLimiter
	backupManager   *backup.Manager
	logger          *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger.With("component", "websocket"))

	foodStore := store.NewFoodStore(db)
	drawStore := store.NewDrawStore(db)
	backupStore := store.NewBackupStore(db)

	var rec metrics.Recorder = metrics.Noop{}
	if cfg.Metrics.Enabled {
		rec = metrics.New(func() float64 {
			n, err := foodStore.Count()
			if err != nil {
				return 0
			}
			return float64(n)
		})
	}

	cache := statcache.New(cfg.Cache.SizeMB, cfg.Cache.TTL)

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.S3.Endpoint,
			Bucket:    cfg.Backup.S3.Bucket,
			Region:    cfg.Backup.S3.Region,
			AccessKey: cfg.Backup.S3.AccessKey,
			SecretKey: cfg.Backup.S3.SecretKey,
			Prefix:    cfg.Backup.S3.Prefix,
		},
		Passphrase:    cfg.Backup.Passphrase,
		ScheduleHour:  cfg.Backup.ScheduleHour,
		RetentionDays: cfg.Backup.RetentionDays,
	}, db, backupStore, func(s backup.Status) {
		hub.Broadcast(ws.NewMessage(ws.EntityBackup, string(s.State), 0, map[string]any{
			"in_progress": s.InProgress,
			"error":       s.Error,
		}))
	}, logger.With("component", "backup"))

	tmpl, err := handler.ParseTemplates(time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	foodH := handler.NewFoodHandler(foodStore, cache, hub, logger.With("component", "food"))
	drawH := handler.NewDrawHandler(foodStore, drawStore, lottery.NewRand(), cfg.DrawDelay, rec, cache, hub, logger.With("component", "draw"))
	historyH := handler.NewHistoryHandler(drawStore, cache, hub, logger.With("component", "history"))
	statsH := handler.NewStatsHandler(foodStore, drawStore, cache, rec, logger.With("component", "stats"))

	return &Server{
		hub:             hub,
		metrics:         rec,
		metricsEnabled:  cfg.Metrics.Enabled,
		foodH:           foodH,
		drawH:           drawH,
		historyH:        historyH,
		statsH:          statsH,
		backupH:         handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		templateHandler: handler.NewTemplateHandler(tmpl, foodH, drawH, historyH, statsH, logger.With("component", "template")),
		drawLimiter:     middleware.NewRateLimiter(),
		backupLimiter:   middleware.NewRateLimiter(),
		backupManager:   backupMgr,
		logger:          logger,
	}, nil
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// CleanupRateLimits drops expired rate limit windows.
func (s *Server) CleanupRateLimits() {
	s.drawLimiter.Cleanup()
	s.backupLimiter.Cleanup()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	static, _ := fs.Sub(web.FS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /health", s.healthHandler)
	if s.metricsEnabled {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// API routes
	mux.HandleFunc("GET /api/foods", s.foodH.List)
	mux.HandleFunc("POST /api/foods", s.foodH.Create)
	mux.HandleFunc("DELETE /api/foods/{id}", s.foodH.Delete)

	mux.HandleFunc("POST /api/draws", s.limited(s.drawLimiter, drawRateLimit, time.Minute, s.drawH.Create))

	mux.HandleFunc("GET /api/history", s.historyH.List)
	mux.HandleFunc("DELETE /api/history", s.historyH.Clear)

	mux.HandleFunc("GET /api/stats", s.statsH.Stats)
	mux.HandleFunc("GET /api/stats/chart", s.statsH.Chart)

	mux.HandleFunc("POST /api/backups", s.limited(s.backupLimiter, backupRateLimit, time.Hour, s.backupH.Create))
	mux.HandleFunc("GET /api/backups", s.backupH.List)

	// Pages
	mux.HandleFunc("GET /", s.templateHandler.DrawPage)
	mux.HandleFunc("POST /draw", s.limited(s.drawLimiter, drawRateLimit, time.Minute, s.templateHandler.Draw))
	mux.HandleFunc("GET /manage", s.templateHandler.ManagePage)
	mux.HandleFunc("POST /manage/foods", s.templateHandler.FoodCreate)
	mux.HandleFunc("POST /manage/foods/{id}/delete", s.templateHandler.FoodDelete)
	mux.HandleFunc("GET /history", s.templateHandler.HistoryPage)
	mux.HandleFunc("POST /history/clear", s.templateHandler.HistoryClear)
	mux.HandleFunc("GET /stats", s.templateHandler.StatsPage)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, nil, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"), s.metrics)(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) limited(rl *middleware.RateLimiter, limit int, per time.Duration, h http.HandlerFunc) http.HandlerFunc {
	return middleware.RateLimit(rl, limit, per)(h).ServeHTTP
}
