package assemble_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/druxit/internal/testdb"
	"github.com/dtnitsch/druxit/models"
	"github.com/dtnitsch/druxit/pkg/assemble"
	"github.com/dtnitsch/druxit/pkg/db"
	"github.com/dtnitsch/druxit/pkg/discover"
)

func newAssembler(t *testing.T, conn *db.DB) *assemble.Assembler {
	t.Helper()
	disc, err := discover.New(conn, models.DefaultBlacklist)
	require.NoError(t, err)
	t.Cleanup(disc.Close)
	return assemble.New(conn, disc, assemble.Options{ContainerTypes: []string{"page"}})
}

func TestAssemblePage(t *testing.T) {
	conn := testdb.New(t)
	asm := newAssembler(t, conn)

	doc, warns, err := asm.Assemble(1196)
	require.NoError(t, err)
	require.Empty(t, warns)

	require.Equal(t, int64(1196), doc.NID)
	require.Equal(t, int64(9196), doc.VID)
	require.Equal(t, "page", doc.Type)
	require.Equal(t, "Product information", doc.Title)
	require.Equal(t, "en", doc.Langcode)
	require.Equal(t, int64(1), doc.Status)
	require.Equal(t, "/products/info", doc.URL)

	// Taxonomies come from taxonomy_index, keyed by vocabulary.
	require.Len(t, doc.Taxonomies["topics"], 1)
	require.Equal(t, int64(5), doc.Taxonomies["topics"][0].TID)

	// field_subtitle has storage for the page bundle but no rows for this
	// node; empty fields are omitted, not emitted as null.
	require.NotContains(t, doc.Fields, "field_subtitle")
	require.Contains(t, doc.Fields, "body")
	require.Len(t, doc.Fields["field_sections"], 2)
	require.Equal(t, int64(100), doc.Fields["field_sections"][0].Paragraph.ID)
	require.Equal(t, int64(101), doc.Fields["field_sections"][1].Paragraph.ID)

	related := doc.Fields["field_related"]
	require.Len(t, related, 1)
	require.Equal(t, int64(1033), related[0].Node.NID)

	tags := doc.Fields["field_tags"]
	require.Len(t, tags, 1)
	require.Equal(t, "Bearings", tags[0].Term.Name)

	require.Len(t, doc.Children, 1)
	require.Equal(t, int64(1033), doc.Children[0].NID)
	require.Equal(t, "field_related", doc.Children[0].Via)

	require.Len(t, doc.Parents, 1)
	require.Equal(t, int64(2001), doc.Parents[0].NID)
	require.Equal(t, models.PlacementSplit, doc.Parents[0].Placement)
}

func TestAssembleNotes(t *testing.T) {
	conn := testdb.New(t)
	asm := newAssembler(t, conn)

	doc, warns, err := asm.Assemble(1033)
	require.NoError(t, err)

	require.Equal(t, "/products/installation-notes", doc.URL)
	require.Len(t, doc.Taxonomies["topics"], 1)
	require.Equal(t, "Seals", doc.Taxonomies["topics"][0].Name)

	// Every stored field_related target dangles, so the field disappears
	// from the document and surfaces as warnings instead: once from field
	// resolution, once from the child scan.
	require.NotContains(t, doc.Fields, "field_related")
	require.Len(t, warns, 2)
	for _, w := range warns {
		require.Equal(t, models.WarnDanglingReference, w.Kind)
		require.Equal(t, "9999", w.Target)
	}
	require.Empty(t, doc.Children)

	image := doc.Fields["field_image"]
	require.Len(t, image, 1)
	require.Equal(t, int64(10), image[0].File.FID)
	require.Equal(t, "admin", image[0].File.Owner)

	// Non-container parent first, container parent second with its own
	// parent chain resolved behind it.
	require.Len(t, doc.Parents, 2)
	require.Equal(t, int64(3001), doc.Parents[0].NID)
	require.Equal(t, models.PlacementBefore, doc.Parents[0].Placement)
	require.Equal(t, int64(1196), doc.Parents[1].NID)
	require.Equal(t, models.PlacementSplit, doc.Parents[1].Placement)
	require.Len(t, doc.Parents[1].Parents, 1)
	require.Equal(t, int64(2001), doc.Parents[1].Parents[0].NID)
}

func TestAssembleParagraphCycle(t *testing.T) {
	conn := testdb.New(t)
	asm := newAssembler(t, conn)

	doc, warns, err := asm.Assemble(4001)
	require.NoError(t, err)

	// No alias seeded for this node.
	require.Equal(t, "/node/4001", doc.URL)

	sections := doc.Fields["field_sections"]
	require.Len(t, sections, 1)
	require.Equal(t, int64(110), sections[0].Paragraph.ID)
	inner := sections[0].Paragraph.Fields["field_inner"]
	require.Len(t, inner, 1)
	require.Equal(t, int64(111), inner[0].Paragraph.ID)
	require.Nil(t, inner[0].Paragraph.Fields)

	require.Len(t, warns, 1)
	require.Equal(t, models.WarnCycleDetected, warns[0].Kind)
	require.Equal(t, "paragraph:110", warns[0].Target)
}

func TestAssembleMissingNode(t *testing.T) {
	conn := testdb.New(t)
	asm := newAssembler(t, conn)

	_, _, err := asm.Assemble(8888)
	require.Error(t, err)

	var ee *assemble.ExportError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, int64(8888), ee.NID)
}

func TestAssembleUnpublishedNode(t *testing.T) {
	conn := testdb.New(t)
	asm := newAssembler(t, conn)

	_, err := conn.Exec(`
		INSERT INTO node VALUES (5001, 9501, 'page', 'en');
		INSERT INTO node_field_data VALUES (5001, 9501, 'page', 'en', 0, 'Draft', 1699995000, 1699995001);
	`)
	require.NoError(t, err)

	_, _, err = asm.Assemble(5001)
	require.Error(t, err)
	require.ErrorContains(t, err, "not found or unpublished")
}

func TestAssembleIdempotent(t *testing.T) {
	conn := testdb.New(t)
	asm := newAssembler(t, conn)

	first, _, err := asm.Assemble(1196)
	require.NoError(t, err)
	second, _, err := asm.Assemble(1196)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestExportErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &assemble.ExportError{NID: 7, Err: inner}
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "node 7")
}
