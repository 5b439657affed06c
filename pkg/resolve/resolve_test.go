package resolve_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/dtnitsch/druxit/internal/testdb"
	"github.com/dtnitsch/druxit/models"
	"github.com/dtnitsch/druxit/pkg/resolve"
)

func TestChainVisit(t *testing.T) {
	chain := resolve.NewChain()
	if !chain.Visit("node", 1196) {
		t.Error("Visit() first call = false, want true")
	}
	if chain.Visit("node", 1196) {
		t.Error("Visit() repeat call = true, want false")
	}
	if !chain.Visit("paragraph", 1196) {
		t.Error("Visit() same id different kind = false, want true")
	}
	chain.Leave("node", 1196)
	if !chain.Visit("node", 1196) {
		t.Error("Visit() after Leave() = false, want true")
	}
}

func TestFieldValuesDeltaOrder(t *testing.T) {
	conn := testdb.New(t)
	disc := newDiscoverer(t, conn)
	r := resolve.New(conn, disc, resolve.NewProber(conn), false)

	w := &models.Warnings{}
	vals, err := r.FieldValues(fieldDesc(t, disc, "node", "field_sections"), 1196, 9196, resolve.NewChain(), w)
	if err != nil {
		t.Fatalf("FieldValues() error = %v", err)
	}
	if len(vals) != 2 {
		t.Fatalf("FieldValues() returned %d values, want 2", len(vals))
	}
	if vals[0].Kind != models.KindParagraph || vals[1].Kind != models.KindParagraph {
		t.Fatalf("FieldValues() kinds = %q, %q, want paragraph", vals[0].Kind, vals[1].Kind)
	}
	if vals[0].Paragraph.ID != 100 || vals[1].Paragraph.ID != 101 {
		t.Errorf("paragraph ids = %d, %d, want 100, 101", vals[0].Paragraph.ID, vals[1].Paragraph.ID)
	}
	if vals[0].Paragraph.Type != "text_block" {
		t.Errorf("paragraph type = %q, want text_block", vals[0].Paragraph.Type)
	}

	text := vals[0].Paragraph.Fields["field_text"]
	if len(text) != 1 {
		t.Fatalf("paragraph field_text has %d values, want 1", len(text))
	}
	if got := text[0].Values["value"]; got != "Intro paragraph" {
		t.Errorf("paragraph field_text value = %v, want Intro paragraph", got)
	}
	if len(w.List()) != 0 {
		t.Errorf("unexpected warnings: %v", w.List())
	}
}

func TestFieldValuesFile(t *testing.T) {
	conn := testdb.New(t)
	disc := newDiscoverer(t, conn)
	r := resolve.New(conn, disc, resolve.NewProber(conn), false)

	w := &models.Warnings{}
	vals, err := r.FieldValues(fieldDesc(t, disc, "node", "field_image"), 1033, 9033, resolve.NewChain(), w)
	if err != nil {
		t.Fatalf("FieldValues() error = %v", err)
	}
	if len(vals) != 1 {
		t.Fatalf("FieldValues() returned %d values, want 1", len(vals))
	}

	v := vals[0]
	if v.Kind != models.KindFile {
		t.Fatalf("Kind = %q, want file", v.Kind)
	}
	if v.File.FID != 10 || v.File.Filename != "hero.jpg" || v.File.URI != "public://hero.jpg" {
		t.Errorf("file = %+v, want fid 10 hero.jpg", v.File)
	}
	if v.File.Owner != "admin" {
		t.Errorf("file owner = %q, want admin", v.File.Owner)
	}
	if got := v.Values["alt"]; got != "Hero image" {
		t.Errorf("alt = %v, want Hero image", got)
	}
	if got := v.Values["width"]; got != int64(800) {
		t.Errorf("width = %v (%T), want 800", got, got)
	}
}

func TestFieldValuesTerm(t *testing.T) {
	conn := testdb.New(t)
	disc := newDiscoverer(t, conn)
	r := resolve.New(conn, disc, resolve.NewProber(conn), false)

	w := &models.Warnings{}
	vals, err := r.FieldValues(fieldDesc(t, disc, "node", "field_tags"), 1033, 9033, resolve.NewChain(), w)
	if err != nil {
		t.Fatalf("FieldValues() error = %v", err)
	}
	if len(vals) != 1 || vals[0].Kind != models.KindTerm {
		t.Fatalf("FieldValues() = %+v, want one term value", vals)
	}

	term := vals[0].Term
	if term.TID != 6 || term.Name != "Seals" || term.Vocabulary != "topics" {
		t.Errorf("term = %+v, want tid 6 Seals in topics", term)
	}
	if term.Parent == nil || term.Parent.TID != 5 || term.Parent.Name != "Bearings" {
		t.Errorf("term parent = %+v, want tid 5 Bearings", term.Parent)
	}
}

func TestFieldValuesNodeReference(t *testing.T) {
	conn := testdb.New(t)
	disc := newDiscoverer(t, conn)
	r := resolve.New(conn, disc, resolve.NewProber(conn), false)

	w := &models.Warnings{}
	vals, err := r.FieldValues(fieldDesc(t, disc, "node", "field_related"), 1196, 9196, resolve.NewChain(), w)
	if err != nil {
		t.Fatalf("FieldValues() error = %v", err)
	}
	if len(vals) != 1 || vals[0].Kind != models.KindNode {
		t.Fatalf("FieldValues() = %+v, want one node value", vals)
	}
	ref := vals[0].Node
	if ref.NID != 1033 || ref.Title != "Installation notes" || ref.Type != "product_notes" {
		t.Errorf("node ref = %+v, want 1033 Installation notes product_notes", ref)
	}
}

func TestFieldValuesDangling(t *testing.T) {
	conn := testdb.New(t)
	disc := newDiscoverer(t, conn)
	r := resolve.New(conn, disc, resolve.NewProber(conn), false)

	w := &models.Warnings{}
	vals, err := r.FieldValues(fieldDesc(t, disc, "node", "field_related"), 1033, 9033, resolve.NewChain(), w)
	if err != nil {
		t.Fatalf("FieldValues() error = %v", err)
	}
	if len(vals) != 0 {
		t.Errorf("FieldValues() = %+v, want the dangling value omitted", vals)
	}

	warns := w.List()
	if len(warns) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warns)
	}
	if warns[0].Kind != models.WarnDanglingReference || warns[0].Field != "field_related" || warns[0].Target != "9999" {
		t.Errorf("warning = %+v, want dangling field_related target 9999", warns[0])
	}
}

func TestFieldValuesCycleTruncated(t *testing.T) {
	conn := testdb.New(t)
	disc := newDiscoverer(t, conn)
	r := resolve.New(conn, disc, resolve.NewProber(conn), false)

	w := &models.Warnings{}
	chain := resolve.NewChain()
	chain.Visit("node", 4001)
	vals, err := r.FieldValues(fieldDesc(t, disc, "node", "field_sections"), 4001, 9401, chain, w)
	if err != nil {
		t.Fatalf("FieldValues() error = %v", err)
	}
	if len(vals) != 1 || vals[0].Paragraph.ID != 110 {
		t.Fatalf("FieldValues() = %+v, want paragraph 110", vals)
	}

	inner := vals[0].Paragraph.Fields["field_inner"]
	if len(inner) != 1 || inner[0].Paragraph.ID != 111 {
		t.Fatalf("inner paragraphs = %+v, want paragraph 111", inner)
	}
	// 111 references 110 again; the chain stops the loop there.
	if inner[0].Paragraph.Fields != nil {
		t.Errorf("paragraph 111 fields = %+v, want none after truncation", inner[0].Paragraph.Fields)
	}

	warns := w.List()
	if len(warns) != 1 || warns[0].Kind != models.WarnCycleDetected {
		t.Fatalf("warnings = %v, want one cycle_detected", warns)
	}
	if warns[0].Field != "field_inner" || warns[0].Target != "paragraph:110" {
		t.Errorf("cycle warning = %+v, want field_inner paragraph:110", warns[0])
	}
}

func TestFieldValuesRepeatedParagraph(t *testing.T) {
	conn := testdb.New(t)
	disc := newDiscoverer(t, conn)
	r := resolve.New(conn, disc, resolve.NewProber(conn), false)

	// The same paragraph stored under two deltas is a legitimate reuse, not
	// a cycle: the chain only guards the path currently being descended.
	if _, err := conn.Exec(
		`INSERT INTO node__field_sections VALUES ('page', 0, 1196, 9196, 'en', 2, 100, 100)`); err != nil {
		t.Fatalf("failed to insert repeated paragraph row: %v", err)
	}

	w := &models.Warnings{}
	chain := resolve.NewChain()
	chain.Visit("node", 1196)
	vals, err := r.FieldValues(fieldDesc(t, disc, "node", "field_sections"), 1196, 9196, chain, w)
	if err != nil {
		t.Fatalf("FieldValues() error = %v", err)
	}
	if len(vals) != 3 {
		t.Fatalf("FieldValues() returned %d values, want all 3 stored rows", len(vals))
	}

	var ids []int64
	for _, v := range vals {
		ids = append(ids, v.Paragraph.ID)
	}
	if !slices.Equal(ids, []int64{100, 101, 100}) {
		t.Errorf("paragraph ids = %v, want [100 101 100]", ids)
	}
	if got := vals[2].Paragraph.Fields["field_text"][0].Values["value"]; got != "Intro paragraph" {
		t.Errorf("repeated paragraph value = %v, want Intro paragraph", got)
	}
	if len(w.List()) != 0 {
		t.Errorf("unexpected warnings: %v", w.List())
	}
}

func TestFieldValuesNullTarget(t *testing.T) {
	conn := testdb.New(t)
	disc := newDiscoverer(t, conn)
	r := resolve.New(conn, disc, resolve.NewProber(conn), false)

	if _, err := conn.Exec(
		`INSERT INTO node__field_related VALUES ('page', 0, 2001, 9201, 'en', 3, NULL)`); err != nil {
		t.Fatalf("failed to insert null target row: %v", err)
	}

	w := &models.Warnings{}
	vals, err := r.FieldValues(fieldDesc(t, disc, "node", "field_related"), 2001, 9201, resolve.NewChain(), w)
	if err != nil {
		t.Fatalf("FieldValues() error = %v", err)
	}
	// The row at delta 0 still resolves; only the null row is dropped.
	if len(vals) != 1 {
		t.Fatalf("FieldValues() returned %d values, want 1", len(vals))
	}

	warns := w.List()
	if len(warns) != 1 || warns[0].Kind != models.WarnDanglingReference {
		t.Fatalf("warnings = %v, want one dangling reference", warns)
	}
	if !strings.Contains(warns[0].Detail, "delta 3") {
		t.Errorf("warning detail = %q, want the row's delta named", warns[0].Detail)
	}
}

func TestScalarPlaintext(t *testing.T) {
	conn := testdb.New(t)
	disc := newDiscoverer(t, conn)
	r := resolve.New(conn, disc, resolve.NewProber(conn), true)

	w := &models.Warnings{}
	vals, err := r.FieldValues(fieldDesc(t, disc, "node", "body"), 1033, 9033, resolve.NewChain(), w)
	if err != nil {
		t.Fatalf("FieldValues() error = %v", err)
	}
	if len(vals) != 1 {
		t.Fatalf("FieldValues() returned %d values, want 1", len(vals))
	}

	v := vals[0].Values
	if got := v["text"]; got != "Notes body with" {
		t.Errorf("text = %v, want Notes body with", got)
	}
	images, _ := v["images"].([]string)
	if !slices.Equal(images, []string{"/sites/default/files/inline.png"}) {
		t.Errorf("images = %v, want the inline image url", images)
	}
	if _, ok := v["value"]; !ok {
		t.Error("plaintext rendering must keep the original value")
	}
}

func TestScalarWithoutPlaintext(t *testing.T) {
	conn := testdb.New(t)
	disc := newDiscoverer(t, conn)
	r := resolve.New(conn, disc, resolve.NewProber(conn), false)

	w := &models.Warnings{}
	vals, err := r.FieldValues(fieldDesc(t, disc, "node", "body"), 1033, 9033, resolve.NewChain(), w)
	if err != nil {
		t.Fatalf("FieldValues() error = %v", err)
	}
	if _, ok := vals[0].Values["text"]; ok {
		t.Error("text rendering present without the plaintext option")
	}
}

func TestTerm(t *testing.T) {
	conn := testdb.New(t)
	disc := newDiscoverer(t, conn)
	r := resolve.New(conn, disc, resolve.NewProber(conn), false)

	term, found, err := r.Term(5)
	if err != nil {
		t.Fatalf("Term(5) error = %v", err)
	}
	if !found {
		t.Fatal("Term(5) found = false, want true")
	}
	if term.Name != "Bearings" || term.Vocabulary != "topics" || term.Description != "Rotating parts" {
		t.Errorf("term = %+v, want Bearings in topics", term)
	}
	if term.Parent != nil {
		t.Errorf("term parent = %+v, want nil for a root term", term.Parent)
	}
	color := term.Fields["field_color"]
	if len(color) != 1 || color[0].Values["value"] != "blue" {
		t.Errorf("term field_color = %+v, want blue", color)
	}
}

func TestTermMissing(t *testing.T) {
	conn := testdb.New(t)
	disc := newDiscoverer(t, conn)
	r := resolve.New(conn, disc, resolve.NewProber(conn), false)

	term, found, err := r.Term(404)
	if err != nil {
		t.Fatalf("Term(404) error = %v", err)
	}
	if found || term != nil {
		t.Errorf("Term(404) = %+v found=%v, want nil false", term, found)
	}
}
