package models

// FieldKind classifies what a field's stored rows resolve to.
type FieldKind string

const (
	KindScalar    FieldKind = "scalar"
	KindFile      FieldKind = "file"
	KindTerm      FieldKind = "term"
	KindParagraph FieldKind = "paragraph"
	KindNode      FieldKind = "node"
)

// FieldValue is one delta-ordered value of a multi-value field. Values holds
// the row's own columns with the field-name prefix stripped (value, format,
// alt, width, ...). For reference kinds exactly one of the entity pointers
// is set as well.
type FieldValue struct {
	Kind      FieldKind      `json:"kind"`
	Values    map[string]any `json:"values,omitempty"`
	File      *File          `json:"file,omitempty"`
	Term      *Term          `json:"term,omitempty"`
	Paragraph *Paragraph     `json:"paragraph,omitempty"`
	Node      *NodeRef       `json:"node,omitempty"`
}
