package tally

import "encoding/json"

// Field is one answer of a form submission, keyed by its on-form label.
type Field struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Payload is the loosely-typed webhook body. Tally's form-submission shape
// nests the answers under data.fields; older integrations post a flat body
// with direct field names, optionally grouping values under "answers".
type Payload struct {
	EventID string `json:"eventId"`
	Data    struct {
		ResponseID string          `json:"responseId"`
		Fields     json.RawMessage `json:"fields"`
	} `json:"data"`

	Name      string `json:"name"`
	FullName  string `json:"fullName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
	Notes     string `json:"notes"`

	Answers map[string]any `json:"answers"`
}

// Shape discriminates the two accepted body layouts.
type Shape int

const (
	ShapeFlat Shape = iota
	ShapeLabelKeyed
)

// DetectShape probes for a well-formed data.fields array. Anything else,
// including a non-array value under that key, is treated as flat.
func (p *Payload) DetectShape() (Shape, []Field) {
	if len(p.Data.Fields) == 0 {
		return ShapeFlat, nil
	}
	var fields []Field
	if err := json.Unmarshal(p.Data.Fields, &fields); err != nil || fields == nil {
		// fields was null or not an array
		return ShapeFlat, nil
	}
	return ShapeLabelKeyed, fields
}
