package usecase

import (
	"context"
	"log"

	"github.com/James-lakeshore/generac-crm-backend/internal/entity"
	"github.com/James-lakeshore/generac-crm-backend/internal/infra/queue"
)

// CreateLeadUseCase handles direct API submissions. Unlike the webhook path,
// callers here do see storage failures.
type CreateLeadUseCase struct {
	Repo      entity.LeadRepositoryInterface
	Statuses  entity.StatusSet
	Publisher LeadEventPublisher
}

func NewCreateLeadUseCase(
	repo entity.LeadRepositoryInterface,
	statuses entity.StatusSet,
	publisher LeadEventPublisher,
) *CreateLeadUseCase {
	return &CreateLeadUseCase{
		Repo:      repo,
		Statuses:  statuses,
		Publisher: publisher,
	}
}

func (uc *CreateLeadUseCase) Execute(ctx context.Context, input CreateLeadInput) (*entity.Lead, error) {
	if uc.Repo == nil {
		return nil, entity.ErrStoreUnavailable
	}

	lead := entity.NewLead(
		input.Name, input.Email, input.Phone, input.Message,
		entity.SourceAPI, uc.Statuses.Initial(), input.Meta,
	)

	if err := uc.Repo.Create(ctx, lead); err != nil {
		return nil, err
	}

	if uc.Publisher != nil {
		payload := queue.LeadEventPayload{
			LeadID: lead.ID,
			Name:   lead.Name,
			Email:  lead.Email,
			Phone:  lead.Phone,
			Source: lead.Source,
			Status: lead.Status,
			Origin: "API",
		}
		if err := uc.Publisher.PublishLeadCreated(ctx, payload); err != nil {
			log.Printf("⚠️ lead %s saved but queue publish failed: %v", lead.ID, err)
		}
	}

	return lead, nil
}
