package models

// Term is a taxonomy term with one level of its own field data. Term fields
// are never descended into further; entity references inside them stay raw.
type Term struct {
	TID         int64                   `json:"tid"`
	Vocabulary  string                  `json:"vocabulary"`
	Name        string                  `json:"name"`
	Weight      int64                   `json:"weight"`
	Description string                  `json:"description,omitempty"`
	Status      int64                   `json:"status"`
	Parent      *TermRef                `json:"parent,omitempty"`
	Fields      map[string][]FieldValue `json:"fields,omitempty"`
}

// TermRef points at a parent term.
type TermRef struct {
	TID  int64  `json:"tid"`
	Name string `json:"name"`
}
