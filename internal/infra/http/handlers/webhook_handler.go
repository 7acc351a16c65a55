package handlers

import (
	"io"
	"net/http"

	"github.com/James-lakeshore/generac-crm-backend/internal/infra/http/middleware"
	"github.com/James-lakeshore/generac-crm-backend/internal/usecase"
)

const maxWebhookBody = 1 << 20 // 1 MiB, same cap the form provider documents

// WebhookHandler terminates the Tally ingestion endpoint. Once the shared
// secret checks out the sender always gets a 200 ack; saved:false signals a
// degraded store without triggering provider-side retries.
type WebhookHandler struct {
	UC     *usecase.IngestWebhookUseCase
	Secret string
}

func NewWebhookHandler(uc *usecase.IngestWebhookUseCase, secret string) *WebhookHandler {
	return &WebhookHandler{UC: uc, Secret: secret}
}

type webhookResponse struct {
	OK       bool   `json:"ok"`
	Received bool   `json:"received"`
	Saved    bool   `json:"saved"`
	LeadID   string `json:"leadId,omitempty"`
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// Opt-in auth: an unset secret disables the check entirely.
	if h.Secret != "" {
		provided := r.URL.Query().Get("secret")
		if provided == "" {
			provided = r.Header.Get("x-tally-secret")
		}
		if provided != h.Secret {
			middleware.RecordWebhookDelivery("unauthorized")
			writeError(w, http.StatusUnauthorized, "Unauthorized webhook")
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		middleware.RecordWebhookDelivery("bad_payload")
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	out, err := h.UC.Execute(r.Context(), body)
	if err != nil {
		middleware.RecordWebhookDelivery("bad_payload")
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	middleware.RecordWebhookDelivery("ok")
	switch {
	case !out.Saved:
		middleware.RecordLeadIngested("tally", "unsaved")
	case out.Created:
		middleware.RecordLeadIngested("tally", "created")
	default:
		middleware.RecordLeadIngested("tally", "duplicate")
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		OK:       true,
		Received: out.Received,
		Saved:    out.Saved,
		LeadID:   out.LeadID,
	})
}
