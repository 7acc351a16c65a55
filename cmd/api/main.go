package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/James-lakeshore/generac-crm-backend/internal/entity"
	"github.com/James-lakeshore/generac-crm-backend/internal/infra/database"
	"github.com/James-lakeshore/generac-crm-backend/internal/infra/http/handlers"
	"github.com/James-lakeshore/generac-crm-backend/internal/infra/http/middleware"
	"github.com/James-lakeshore/generac-crm-backend/internal/infra/mail"
	"github.com/James-lakeshore/generac-crm-backend/internal/infra/queue"
	"github.com/James-lakeshore/generac-crm-backend/internal/usecase"
)

func main() {
	godotenv.Load()

	statuses := entity.ParseStatusSet(os.Getenv("LEAD_STATUSES"))

	// 1. Storage (optional: the API keeps serving without it)
	var db *sql.DB
	var leadRepo entity.LeadRepositoryInterface
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		conn, err := database.NewDBConnection(dsn)
		if err != nil {
			log.Printf("⚠️ Postgres connection failed, running without DB: %v", err)
		} else {
			if err := database.EnsureSchema(context.Background(), conn); err != nil {
				log.Fatalf("schema setup failed: %v", err)
			}
			db = conn
			leadRepo = database.NewLeadRepository(conn)
			defer conn.Close()
			log.Println("✅ Postgres connected")
		}
	} else {
		log.Println("⚠️ DATABASE_URL not set — API will run without DB")
	}

	// 2. Queue (optional)
	var rabbit *queue.RabbitMQ
	var producer usecase.LeadEventPublisher
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		rmq, err := queue.NewRabbitMQ(url)
		if err != nil {
			log.Printf("⚠️ RabbitMQ unavailable, lead events disabled: %v", err)
		} else {
			rabbit = rmq
			producer = queue.NewProducer(rmq.Conn, rmq.Ch)
			defer rmq.Conn.Close()
			defer rmq.Ch.Close()
		}
	}

	// 3. Notification worker (optional, consumes lead events)
	notifyTo := os.Getenv("LEAD_NOTIFY_TO")
	if rabbit != nil && os.Getenv("MAIL_HOST") != "" && notifyTo != "" {
		mailPort, _ := strconv.Atoi(os.Getenv("MAIL_PORT"))
		if mailPort == 0 {
			mailPort = 587
		}
		sender := mail.NewEmailSender(
			os.Getenv("MAIL_HOST"), mailPort,
			os.Getenv("MAIL_USER"), os.Getenv("MAIL_PASS"),
			os.Getenv("MAIL_FROM"),
		)
		worker := queue.NewWorker(rabbit.Ch, sender, notifyTo)
		go worker.Start(queue.QueueName)
	}

	// 4. UseCases
	ingestUC := usecase.NewIngestWebhookUseCase(leadRepo, statuses, producer)
	createUC := usecase.NewCreateLeadUseCase(leadRepo, statuses, producer)

	// 5. Handlers
	leadHandler := handlers.NewLeadHandler(leadRepo, createUC, statuses)
	webhookHandler := handlers.NewWebhookHandler(ingestUC, os.Getenv("TALLY_SECRET"))
	healthHandler := handlers.NewHealthHandler(db, rabbitConn(rabbit))

	// 6. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "x-tally-secret"},
	}))

	r.Get("/api/health", healthHandler.Handle)
	r.Get("/api/leads", leadHandler.List)
	r.Get("/api/leads.csv", leadHandler.ExportCSV)
	r.Get("/api/leads/{id}", leadHandler.Get)
	r.Post("/api/leads", leadHandler.Create)
	r.Patch("/api/leads/{id}", leadHandler.UpdateStatus)
	r.Post("/api/webhooks/tally", webhookHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())
	r.NotFound(handlers.NotFound)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	log.Printf("🔥 API listening on http://localhost:%s", port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}

func allowedOrigins() []string {
	raw := os.Getenv("ALLOWED_ORIGINS")
	if raw == "" {
		return []string{"*"}
	}
	return strings.Split(raw, ",")
}

func rabbitConn(r *queue.RabbitMQ) *amqp.Connection {
	if r == nil {
		return nil
	}
	return r.Conn
}
