package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mdsreq-fga-unb/REQ-2025.2-T01-PPBM-sub000/internal/activity"
	"github.com/mdsreq-fga-unb/REQ-2025.2-T01-PPBM-sub000/internal/auth"
	"github.com/mdsreq-fga-unb/REQ-2025.2-T01-PPBM-sub000/internal/config"
	"github.com/mdsreq-fga-unb/REQ-2025.2-T01-PPBM-sub000/internal/httpmiddleware"
	"github.com/mdsreq-fga-unb/REQ-2025.2-T01-PPBM-sub000/internal/queue"
	"github.com/mdsreq-fga-unb/REQ-2025.2-T01-PPBM-sub000/internal/store"
)

const topStudentsLimit = 10

var (
	reportsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frequencia_reports_served_total",
		Help: "Reports served, by report kind.",
	}, []string{"kind"})
	reportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frequencia_report_errors_total",
		Help: "Report requests that failed, by error class.",
	}, []string{"class"})
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "frequencia:snapshots")
	}

	repo := activity.NewRepository(db.Client)
	svc := activity.NewService(repo)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/login", func(c *gin.Context) {
		var req struct {
			Name   string `json:"name" binding:"required"`
			Secret string `json:"secret" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Secret != cfg.StaffSecret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		tokens, err := auth.Issue(req.Name, "staff", cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	authGroup := r.Group("/v1", auth.StaffAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.GET("/students/:id/timeline", func(c *gin.Context) {
		studentID, ok := pathID(c, "id")
		if !ok {
			return
		}
		rng, ok := queryRange(c)
		if !ok {
			return
		}
		kinds, ok := queryKinds(c)
		if !ok {
			return
		}

		res, err := svc.Timeline(c.Request.Context(), studentID, activity.TimelineOptions{
			Range:      rng,
			Kinds:      kinds,
			BestEffort: c.Query("best_effort") == "true",
		})
		if err != nil {
			respondEngineError(c, err)
			return
		}
		reportsServed.WithLabelValues("timeline").Inc()
		c.JSON(http.StatusOK, res)
	})

	authGroup.GET("/students/:id/frequency", func(c *gin.Context) {
		studentID, ok := pathID(c, "id")
		if !ok {
			return
		}
		rng, ok := queryRange(c)
		if !ok {
			return
		}

		report, err := svc.FrequencyReport(c.Request.Context(), studentID, rng)
		if err != nil {
			respondEngineError(c, err)
			return
		}
		reportsServed.WithLabelValues("frequency").Inc()
		c.JSON(http.StatusOK, report)
	})

	authGroup.GET("/statistics", func(c *gin.Context) {
		scope, ok := queryScope(c)
		if !ok {
			return
		}

		stats, err := svc.Aggregate(c.Request.Context(), scope)
		if err != nil {
			respondEngineError(c, err)
			return
		}
		reportsServed.WithLabelValues("statistics").Inc()
		c.JSON(http.StatusOK, gin.H{
			"summary":     stats.Overall,
			"byClass":     stats.ByClass,
			"trend":       stats.ByDay,
			"topStudents": stats.TopStudents(topStudentsLimit),
			"allStudents": stats.ByStudent,
		})
	})

	authGroup.POST("/statistics/snapshots", func(c *gin.Context) {
		// an empty body means a full-cohort snapshot
		var req snapshotJob
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		body, err := json.Marshal(req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "encode job failed"})
			return
		}
		if err := q.Publish(c.Request.Context(), queue.Message{Type: "snapshot", Body: body}); err != nil {
			log.Printf("queue publish failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot queue unavailable"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	})

	authGroup.GET("/statistics/snapshots/latest", func(c *gin.Context) {
		payload, err := redisClient.GetSnapshot(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot cache unavailable"})
			return
		}
		if payload == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot cached yet"})
			return
		}
		c.Data(http.StatusOK, "application/json", payload)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// snapshotJob mirrors the queue payload consumed by cmd/worker.
type snapshotJob struct {
	ClassID *int64     `json:"classId,omitempty"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryRange reads the optional from/to bounds. Both RFC3339 timestamps
// and plain yyyy-mm-dd dates are accepted.
func queryRange(c *gin.Context) (activity.DateRange, bool) {
	var rng activity.DateRange
	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{
		{"from", &rng.From},
		{"to", &rng.To},
	} {
		raw := c.Query(bound.name)
		if raw == "" {
			continue
		}
		t, err := parseTimestamp(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + bound.name})
			return activity.DateRange{}, false
		}
		*bound.dst = &t
	}
	return rng, true
}

func parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func queryKinds(c *gin.Context) ([]activity.Kind, bool) {
	raw := c.Query("kinds")
	if raw == "" {
		return nil, true
	}
	var kinds []activity.Kind
	for _, part := range strings.Split(raw, ",") {
		switch k := activity.Kind(strings.TrimSpace(part)); k {
		case activity.KindAttendance, activity.KindJustification, activity.KindWarning:
			kinds = append(kinds, k)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kind: " + part})
			return nil, false
		}
	}
	return kinds, true
}

func queryScope(c *gin.Context) (activity.Scope, bool) {
	var scope activity.Scope
	if raw := c.Query("class_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid class_id"})
			return activity.Scope{}, false
		}
		scope.ClassID = &id
	}
	rng, ok := queryRange(c)
	if !ok {
		return activity.Scope{}, false
	}
	scope.Range = rng
	return scope, true
}

// respondEngineError maps the engine's error taxonomy onto HTTP codes.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, activity.ErrStudentNotFound):
		reportErrors.WithLabelValues("not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
	case errors.Is(err, activity.ErrInvalidDateRange), errors.Is(err, activity.ErrInvalidInput):
		reportErrors.WithLabelValues("invalid_input").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, activity.ErrSourceUnavailable):
		reportErrors.WithLabelValues("source_unavailable").Inc()
		log.Printf("record source failure: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record source unavailable"})
	default:
		reportErrors.WithLabelValues("internal").Inc()
		log.Printf("unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
