package models

import "fmt"

// WarningKind names a recoverable data anomaly found during resolution.
type WarningKind string

const (
	WarnDanglingReference WarningKind = "dangling_reference"
	WarnCycleDetected     WarningKind = "cycle_detected"
)

// Warning records one anomaly. The value it concerns is omitted from the
// document; the warning surfaces in the export result so the operator can
// audit data quality without losing the rest of the export.
type Warning struct {
	Kind   WarningKind `json:"kind"`
	Field  string      `json:"field,omitempty"`
	Target string      `json:"target,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

// Warnings accumulates anomalies for one node assembly. Not safe for
// concurrent use; each assembly owns its own collector.
type Warnings struct {
	list []Warning
}

// Dangling records a reference whose target row no longer exists.
func (w *Warnings) Dangling(field string, target int64, detail string) {
	w.list = append(w.list, Warning{
		Kind:   WarnDanglingReference,
		Field:  field,
		Target: fmt.Sprintf("%d", target),
		Detail: detail,
	})
}

// Cycle records a reference chain that looped back on itself. The chain is
// truncated at the first repeated entity.
func (w *Warnings) Cycle(field, entity string) {
	w.list = append(w.list, Warning{
		Kind:   WarnCycleDetected,
		Field:  field,
		Target: entity,
		Detail: "reference chain loops back on itself, truncated",
	})
}

// List returns the accumulated warnings in the order they were recorded.
func (w *Warnings) List() []Warning {
	return w.list
}
