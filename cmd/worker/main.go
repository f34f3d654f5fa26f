package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mdsreq-fga-unb/REQ-2025.2-T01-PPBM-sub000/internal/activity"
	"github.com/mdsreq-fga-unb/REQ-2025.2-T01-PPBM-sub000/internal/config"
	"github.com/mdsreq-fga-unb/REQ-2025.2-T01-PPBM-sub000/internal/queue"
	"github.com/mdsreq-fga-unb/REQ-2025.2-T01-PPBM-sub000/internal/store"
)

// snapshotJob mirrors the queue payload published by cmd/api.
type snapshotJob struct {
	ClassID *int64     `json:"classId,omitempty"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
}

// snapshot is what gets cached for dashboard reads.
type snapshot struct {
	ID          string                    `json:"id"`
	GeneratedAt time.Time                 `json:"generatedAt"`
	ClassID     *int64                    `json:"classId,omitempty"`
	Period      activity.DateRange        `json:"period"`
	Statistics  *activity.ClassStatistics `json:"statistics"`
}

// Worker consumes snapshot jobs, runs the cohort aggregation and caches
// the result in Redis. It also enqueues a full-cohort snapshot on an
// interval so dashboards stay warm without manual requests.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "frequencia:snapshots")
	}

	svc := activity.NewService(activity.NewRepository(db.Client))

	go func() {
		ticker := time.NewTicker(cfg.SnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := q.Publish(ctx, queue.Message{Type: "snapshot"}); err != nil {
					log.Printf("interval snapshot enqueue failed: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for snapshot jobs...")
	for msg := range messages {
		if msg.Type != "snapshot" {
			continue
		}

		var job snapshotJob
		if len(msg.Body) > 0 {
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				log.Printf("malformed snapshot job, skipping: %v", err)
				continue
			}
		}

		scope := activity.Scope{
			ClassID: job.ClassID,
			Range:   activity.DateRange{From: job.From, To: job.To},
		}
		stats, err := svc.Aggregate(ctx, scope)
		if err != nil {
			log.Printf("snapshot aggregation failed: %v", err)
			continue
		}

		payload, err := json.Marshal(snapshot{
			ID:          uuid.NewString(),
			GeneratedAt: time.Now().UTC(),
			ClassID:     job.ClassID,
			Period:      scope.Range,
			Statistics:  stats,
		})
		if err != nil {
			log.Printf("snapshot encode failed: %v", err)
			continue
		}
		if err := redisClient.SetSnapshot(ctx, payload, cfg.SnapshotTTL); err != nil {
			log.Printf("snapshot cache write failed: %v", err)
			continue
		}
		log.Printf("snapshot cached (%d records)", stats.Overall.Total)
	}

	log.Println("worker stopped")
}
