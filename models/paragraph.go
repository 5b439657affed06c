package models

// Paragraph is a nested field-bearing entity without its own URL. Its fields
// resolve through the same pipeline as node fields and may nest further
// paragraphs.
type Paragraph struct {
	ID         int64                   `json:"id"`
	RevisionID int64                   `json:"revision_id"`
	Type       string                  `json:"type"`
	Fields     map[string][]FieldValue `json:"fields,omitempty"`
}
