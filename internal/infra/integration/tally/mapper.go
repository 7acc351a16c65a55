package tally

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/James-lakeshore/generac-crm-backend/internal/entity"
)

// Synonym tables for the label-keyed shape. Matching is trimmed and
// case-insensitive; the first matching field in submission order wins.
var (
	firstNameLabels = []string{"First name", "First Name", "First"}
	lastNameLabels  = []string{"Last name", "Last Name", "Last"}
	emailLabels     = []string{"Email", "E-mail"}
	phoneLabels     = []string{"Phone number", "Phone", "Phone Number"}
	messageLabels   = []string{"Your question", "Message", "Notes", "Comments"}
)

func normLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FindField returns the value of the first field whose label matches any of
// the given synonyms, "" when nothing matches. A nil or malformed field slice
// yields "" rather than an error.
func FindField(fields []Field, synonyms []string) string {
	if len(fields) == 0 {
		return ""
	}
	wanted := make(map[string]struct{}, len(synonyms))
	for _, s := range synonyms {
		wanted[normLabel(s)] = struct{}{}
	}
	for _, f := range fields {
		if _, ok := wanted[normLabel(f.Label)]; ok {
			return asString(f.Value)
		}
	}
	return ""
}

// EventID resolves the idempotency key: explicit top-level eventId first, then
// the provider-assigned responseId, else "".
func EventID(p *Payload) string {
	if id := strings.TrimSpace(p.EventID); id != "" {
		return id
	}
	return strings.TrimSpace(p.Data.ResponseID)
}

// Normalize turns a raw webhook body into a Lead draft. The entire raw payload
// is kept in meta so extraction stays auditable from persisted data; the
// resolved event id is written into meta.eventId, which is what the store
// dedupes on. Missing optional fields come back "" to keep the schema stable.
func Normalize(body []byte, initialStatus string) (*entity.Lead, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("tally payload: %w", err)
	}

	meta := entity.Meta{}
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("tally payload: %w", err)
	}
	if id := EventID(&p); id != "" {
		meta["eventId"] = id
	}

	var name, email, phone, message string

	shape, fields := p.DetectShape()
	switch shape {
	case ShapeLabelKeyed:
		first := FindField(fields, firstNameLabels)
		last := FindField(fields, lastNameLabels)
		email = FindField(fields, emailLabels)
		phone = FindField(fields, phoneLabels)
		message = FindField(fields, messageLabels)

		name = strings.TrimSpace(first + " " + last)
		if name == "" {
			name = firstNonEmpty(p.Name, p.FullName)
		}

	case ShapeFlat:
		name = firstNonEmpty(
			p.Name,
			p.FullName,
			strings.TrimSpace(p.FirstName+" "+p.LastName),
		)
		email = firstNonEmpty(p.Email, answerString(p.Answers, "email"))
		phone = firstNonEmpty(p.Phone, answerString(p.Answers, "phone"))
		message = firstNonEmpty(p.Message, p.Notes)
		if message == "" {
			message = serializeFallback(p.Answers, meta)
		}
	}

	return entity.NewLead(name, email, phone, message, entity.SourceTally, initialStatus, meta), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func answerString(answers map[string]any, key string) string {
	if answers == nil {
		return ""
	}
	return asString(answers[key])
}

// serializeFallback keeps the submission readable even when the sender gave us
// no recognizable message field.
func serializeFallback(answers map[string]any, whole entity.Meta) string {
	if len(answers) > 0 {
		if b, err := json.Marshal(answers); err == nil {
			return string(b)
		}
	}
	if b, err := json.Marshal(whole); err == nil {
		return string(b)
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
