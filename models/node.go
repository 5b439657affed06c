// Package models defines the document structures emitted by the exporter
// and the runtime settings that drive a run.
package models

// Node is one exported content item: a read-only projection of the Drupal
// rows that make it up at export time. Struct field order fixes the JSON key
// order of the document: taxonomies always precede fields, children always
// come last.
type Node struct {
	NID        int64                   `json:"nid"`
	VID        int64                   `json:"vid"`
	Type       string                  `json:"type"`
	Title      string                  `json:"title"`
	Langcode   string                  `json:"langcode,omitempty"`
	Status     int64                   `json:"status"`
	URL        string                  `json:"url"`
	Created    int64                   `json:"created,omitempty"`
	Changed    int64                   `json:"changed,omitempty"`
	Taxonomies map[string][]Term       `json:"taxonomies,omitempty"`
	Fields     map[string][]FieldValue `json:"fields,omitempty"`
	Parents    []ParentRef             `json:"parents,omitempty"`
	Children   []ChildRef              `json:"children,omitempty"`
}

// NodeRef is a lightweight pointer at another node, used for entity
// reference field values.
type NodeRef struct {
	NID   int64  `json:"nid"`
	Title string `json:"title"`
	Type  string `json:"type"`
}
