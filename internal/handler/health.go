package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/pradipta/schedule-engine/pkg/response"
)

const probeTimeout = 5 * time.Second

type HealthHandler struct {
	db    *sqlx.DB
	redis *redis.Client
}

func NewHealthHandler(db *sqlx.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redis,
	}
}

type HealthStatus struct {
	Service   string            `json:"service"`
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health reports liveness only; it must not touch any backing store.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, HealthStatus{
		Service:   "schedule-engine",
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Ready probes the loan store and the schedule cache. A loan store outage
// makes every endpoint fail; a cache outage only slows schedule reads, but
// the instance still reports not-ready so traffic drains to healthy peers.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	probes := []struct {
		name string
		ping func(context.Context) error
	}{
		{"loan-store", h.db.PingContext},
		{"schedule-cache", func(ctx context.Context) error { return h.redis.Ping(ctx).Err() }},
	}

	status := HealthStatus{
		Service:   "schedule-engine",
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(probes)),
	}
	for _, p := range probes {
		if err := p.ping(ctx); err != nil {
			status.Status = "error"
			status.Checks[p.name] = "failed: " + err.Error()
			continue
		}
		status.Checks[p.name] = "ok"
	}

	if status.Status == "error" {
		response.Error(w, http.StatusServiceUnavailable, "Service not ready", nil)
		return
	}
	response.Success(w, status)
}
