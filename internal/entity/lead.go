package entity

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SourceTally = "tally"
	SourceAPI   = "api"
)

var (
	ErrLeadNotFound     = errors.New("lead not found")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Meta holds the raw source payload of a lead. Its shape is payload-dependent,
// so it stays an open map persisted as JSONB. The optional "eventId" key is
// what the idempotent insert dedupes on.
type Meta map[string]any

func (m Meta) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Meta) Scan(src any) error {
	if src == nil {
		*m = Meta{}
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("meta: unsupported scan type")
	}
	return json.Unmarshal(b, m)
}

// EventID returns the idempotency key carried in the payload, "" when absent.
func (m Meta) EventID() string {
	if m == nil {
		return ""
	}
	if s, ok := m["eventId"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	Status    string    `json:"status"`
	Meta      Meta      `json:"meta"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewLead(name, email, phone, message, source, status string, meta Meta) *Lead {
	if meta == nil {
		meta = Meta{}
	}
	return &Lead{
		ID:      uuid.New().String(),
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Phone:   strings.TrimSpace(phone),
		Message: strings.TrimSpace(message),
		Source:  source,
		Status:  status,
		Meta:    meta,
	}
}

// StatusSet is the configured lead lifecycle enum. The first entry is the
// initial state for new leads.
type StatusSet struct {
	ordered []string
	allowed map[string]struct{}
}

const DefaultStatuses = "new,contacted,qualified,closed-won,closed-lost"

// ParseStatusSet builds a StatusSet from a comma-separated list, falling back
// to DefaultStatuses when the list is empty.
func ParseStatusSet(csv string) StatusSet {
	if strings.TrimSpace(csv) == "" {
		csv = DefaultStatuses
	}
	set := StatusSet{allowed: make(map[string]struct{})}
	for _, s := range strings.Split(csv, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := set.allowed[s]; dup {
			continue
		}
		set.ordered = append(set.ordered, s)
		set.allowed[s] = struct{}{}
	}
	if len(set.ordered) == 0 {
		return ParseStatusSet(DefaultStatuses)
	}
	return set
}

func (s StatusSet) Initial() string { return s.ordered[0] }

func (s StatusSet) Contains(status string) bool {
	_, ok := s.allowed[status]
	return ok
}

func (s StatusSet) Values() []string {
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

type LeadFilter struct {
	Status string
	Query  string
	Limit  int
}

type LeadRepositoryInterface interface {
	// Create inserts unconditionally.
	Create(ctx context.Context, lead *Lead) error

	// CreateIdempotent inserts unless a lead with the same meta.eventId
	// already exists, in which case the existing lead is returned and
	// created is false. Leads without an eventId always insert.
	CreateIdempotent(ctx context.Context, lead *Lead) (result *Lead, created bool, err error)

	FindByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]*Lead, error)
	UpdateStatus(ctx context.Context, id, status string) (*Lead, error)
}
