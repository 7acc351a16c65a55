package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type HealthHandler struct {
	DB        *sql.DB
	RabbitMQ  *amqp091.Connection
	StartTime time.Time
}

type HealthResponse struct {
	OK           bool              `json:"ok"`
	Time         string            `json:"time"`
	DBState      int               `json:"dbState"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(db *sql.DB, rabbitMQ *amqp091.Connection) *HealthHandler {
	return &HealthHandler{
		DB:        db,
		RabbitMQ:  rabbitMQ,
		StartTime: time.Now(),
	}
}

// dbState mirrors the store connection's readiness: 1 connected, 0 configured
// but unreachable, -1 not configured.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)
	dbState := -1

	if h.DB != nil {
		if err := h.DB.PingContext(r.Context()); err != nil {
			dbState = 0
			deps["database"] = fmt.Sprintf("unhealthy: %v", err)
		} else {
			dbState = 1
			deps["database"] = "healthy"
		}
	} else {
		deps["database"] = "not configured"
	}

	if h.RabbitMQ != nil {
		if h.RabbitMQ.IsClosed() {
			deps["rabbitmq"] = "unhealthy: connection closed"
		} else {
			deps["rabbitmq"] = "healthy"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		OK:           true,
		Time:         time.Now().UTC().Format(time.RFC3339),
		DBState:      dbState,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	})
}
