package usecase

import (
	"context"

	"github.com/James-lakeshore/generac-crm-backend/internal/entity"
	"github.com/James-lakeshore/generac-crm-backend/internal/infra/queue"
)

type LeadEventPublisher interface {
	PublishLeadCreated(ctx context.Context, payload queue.LeadEventPayload) error
}

type CreateLeadInput struct {
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Phone   string      `json:"phone"`
	Message string      `json:"message"`
	Meta    entity.Meta `json:"meta"`
}

type IngestWebhookOutput struct {
	Received bool
	Saved    bool
	// Created distinguishes a fresh insert from an idempotent replay. The
	// external contract reports saved:true for both.
	Created bool
	LeadID  string
}
