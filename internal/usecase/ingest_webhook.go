package usecase

import (
	"context"
	"log"

	"github.com/James-lakeshore/generac-crm-backend/internal/entity"
	"github.com/James-lakeshore/generac-crm-backend/internal/infra/integration/tally"
	"github.com/James-lakeshore/generac-crm-backend/internal/infra/queue"
)

// IngestWebhookUseCase runs the webhook pipeline: normalize the raw body,
// persist idempotently, announce fresh leads on the queue. Storage being down
// or failing never turns into a webhook failure; the payload is logged instead
// and the caller reports saved:false.
type IngestWebhookUseCase struct {
	Repo      entity.LeadRepositoryInterface
	Statuses  entity.StatusSet
	Publisher LeadEventPublisher
}

func NewIngestWebhookUseCase(
	repo entity.LeadRepositoryInterface,
	statuses entity.StatusSet,
	publisher LeadEventPublisher,
) *IngestWebhookUseCase {
	return &IngestWebhookUseCase{
		Repo:      repo,
		Statuses:  statuses,
		Publisher: publisher,
	}
}

func (uc *IngestWebhookUseCase) Execute(ctx context.Context, body []byte) (IngestWebhookOutput, error) {
	lead, err := tally.Normalize(body, uc.Statuses.Initial())
	if err != nil {
		return IngestWebhookOutput{}, err
	}

	if uc.Repo == nil {
		log.Printf("webhook received (no DB configured): name=%q email=%q phone=%q body=%s",
			lead.Name, lead.Email, lead.Phone, body)
		return IngestWebhookOutput{Received: true, Saved: false}, nil
	}

	saved, created, err := uc.Repo.CreateIdempotent(ctx, lead)
	if err != nil {
		// The sender must still get an ack; the payload survives in the log.
		log.Printf("❌ DB save error: %v body=%s", err, body)
		return IngestWebhookOutput{Received: true, Saved: false}, nil
	}

	// Duplicate deliveries are acked but never announced twice.
	if created && uc.Publisher != nil {
		payload := queue.LeadEventPayload{
			LeadID:  saved.ID,
			Name:    saved.Name,
			Email:   saved.Email,
			Phone:   saved.Phone,
			Source:  saved.Source,
			Status:  saved.Status,
			EventID: saved.Meta.EventID(),
			Origin:  "WEBHOOK_TALLY",
		}
		if err := uc.Publisher.PublishLeadCreated(ctx, payload); err != nil {
			log.Printf("⚠️ lead %s saved but queue publish failed: %v", saved.ID, err)
		}
	}

	return IngestWebhookOutput{Received: true, Saved: true, Created: created, LeadID: saved.ID}, nil
}
