package models

// Placement says where a parent's content sits relative to this node's own.
type Placement string

const (
	// PlacementBefore renders the parent's entire content before this node.
	PlacementBefore Placement = "before"
	// PlacementSplit renders the parent's heading segment before this node's
	// body and its trailing segment after this node's children. A container
	// type (e.g. page) gets this placement.
	PlacementSplit Placement = "split"
)

// ParentRef points at a node whose entity-reference field links here. Via
// names the field that created the link; two links between the same pair of
// nodes through different fields stay distinct. Parents carries the
// grandparent chain, resolved bottom-up.
type ParentRef struct {
	NID       int64       `json:"nid"`
	Title     string      `json:"title"`
	Type      string      `json:"type"`
	Via       string      `json:"via"`
	Placement Placement   `json:"placement"`
	Parents   []ParentRef `json:"parents,omitempty"`
}

// ChildRef points at a node this node's own entity-reference fields link to,
// in field then delta order.
type ChildRef struct {
	NID   int64  `json:"nid"`
	Title string `json:"title"`
	Type  string `json:"type"`
	Via   string `json:"via"`
	Delta int64  `json:"delta"`
}
