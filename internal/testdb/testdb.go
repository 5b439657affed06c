// Package testdb builds an in-memory SQLite database with a miniature
// Drupal 9 schema for tests: two content types, taxonomy, files, nested
// paragraphs, a dangling reference and a paragraph cycle.
package testdb

import (
	"testing"

	"github.com/dtnitsch/druxit/pkg/db"
)

const schema = `
CREATE TABLE node (nid INTEGER PRIMARY KEY, vid INTEGER, type TEXT, langcode TEXT);
CREATE TABLE node_field_data (nid INTEGER, vid INTEGER, type TEXT, langcode TEXT, status INTEGER, title TEXT, created INTEGER, changed INTEGER);
CREATE TABLE path_alias (id INTEGER PRIMARY KEY, path TEXT, alias TEXT);

CREATE TABLE users_field_data (uid INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE file_managed (fid INTEGER PRIMARY KEY, uid INTEGER, filename TEXT, uri TEXT, filemime TEXT, filesize INTEGER, status INTEGER, created INTEGER, changed INTEGER);

CREATE TABLE taxonomy_index (nid INTEGER, tid INTEGER);
CREATE TABLE taxonomy_term_field_data (tid INTEGER PRIMARY KEY, vid TEXT, langcode TEXT, status INTEGER, name TEXT, weight INTEGER, description__value TEXT);
CREATE TABLE taxonomy_term__parent (bundle TEXT, deleted INTEGER, entity_id INTEGER, revision_id INTEGER, langcode TEXT, delta INTEGER, parent_target_id INTEGER);
CREATE TABLE taxonomy_term__field_color (bundle TEXT, deleted INTEGER, entity_id INTEGER, revision_id INTEGER, langcode TEXT, delta INTEGER, field_color_value TEXT);

CREATE TABLE paragraphs_item (id INTEGER PRIMARY KEY, revision_id INTEGER, type TEXT);
CREATE TABLE paragraph__field_text (bundle TEXT, deleted INTEGER, entity_id INTEGER, revision_id INTEGER, langcode TEXT, delta INTEGER, field_text_value TEXT, field_text_format TEXT);
CREATE TABLE paragraph__field_inner (bundle TEXT, deleted INTEGER, entity_id INTEGER, revision_id INTEGER, langcode TEXT, delta INTEGER, field_inner_target_id INTEGER, field_inner_target_revision_id INTEGER);

CREATE TABLE node__body (bundle TEXT, deleted INTEGER, entity_id INTEGER, revision_id INTEGER, langcode TEXT, delta INTEGER, body_value TEXT, body_summary TEXT, body_format TEXT);
CREATE TABLE node__field_image (bundle TEXT, deleted INTEGER, entity_id INTEGER, revision_id INTEGER, langcode TEXT, delta INTEGER, field_image_target_id INTEGER, field_image_alt TEXT, field_image_title TEXT, field_image_width INTEGER, field_image_height INTEGER);
CREATE TABLE node__field_sections (bundle TEXT, deleted INTEGER, entity_id INTEGER, revision_id INTEGER, langcode TEXT, delta INTEGER, field_sections_target_id INTEGER, field_sections_target_revision_id INTEGER);
CREATE TABLE node__field_related (bundle TEXT, deleted INTEGER, entity_id INTEGER, revision_id INTEGER, langcode TEXT, delta INTEGER, field_related_target_id INTEGER);
CREATE TABLE node__field_tags (bundle TEXT, deleted INTEGER, entity_id INTEGER, revision_id INTEGER, langcode TEXT, delta INTEGER, field_tags_target_id INTEGER);
CREATE TABLE node__field_subtitle (bundle TEXT, deleted INTEGER, entity_id INTEGER, revision_id INTEGER, langcode TEXT, delta INTEGER, field_subtitle_value TEXT);

-- Excluded from discovery: blacklist substring match.
CREATE TABLE node__field_zen_layout (bundle TEXT, deleted INTEGER, entity_id INTEGER, revision_id INTEGER, langcode TEXT, delta INTEGER, field_zen_layout_value TEXT);
-- Matches the node__% LIKE pattern through underscore wildcards; the exact
-- prefix re-check must drop it.
CREATE TABLE node_revision__field_related (bundle TEXT, deleted INTEGER, entity_id INTEGER, revision_id INTEGER, langcode TEXT, delta INTEGER, field_related_target_id INTEGER);
`

const seed = `
INSERT INTO users_field_data VALUES (1, 'admin');
INSERT INTO file_managed VALUES (10, 1, 'hero.jpg', 'public://hero.jpg', 'image/jpeg', 2048, 1, 1700000000, 1700000001);

INSERT INTO taxonomy_term_field_data VALUES (5, 'topics', 'en', 1, 'Bearings', 0, 'Rotating parts');
INSERT INTO taxonomy_term_field_data VALUES (6, 'topics', 'en', 1, 'Seals', 1, NULL);
INSERT INTO taxonomy_term__parent VALUES ('topics', 0, 5, 5, 'en', 0, 0);
INSERT INTO taxonomy_term__parent VALUES ('topics', 0, 6, 6, 'en', 0, 5);
INSERT INTO taxonomy_term__field_color VALUES ('topics', 0, 5, 5, 'en', 0, 'blue');

INSERT INTO node VALUES (1033, 9033, 'product_notes', 'en');
INSERT INTO node_field_data VALUES (1033, 9033, 'product_notes', 'en', 1, 'Installation notes', 1699990000, 1699990001);
INSERT INTO node VALUES (1196, 9196, 'page', 'en');
INSERT INTO node_field_data VALUES (1196, 9196, 'page', 'en', 1, 'Product information', 1699991000, 1699991001);
INSERT INTO node VALUES (2001, 9201, 'page', 'en');
INSERT INTO node_field_data VALUES (2001, 9201, 'page', 'en', 1, 'Catalog', 1699992000, 1699992001);
INSERT INTO node VALUES (3001, 9301, 'article', 'en');
INSERT INTO node_field_data VALUES (3001, 9301, 'article', 'en', 1, 'Crossref article', 1699993000, 1699993001);
INSERT INTO node VALUES (4001, 9401, 'page', 'en');
INSERT INTO node_field_data VALUES (4001, 9401, 'page', 'en', 1, 'Cycle host', 1699994000, 1699994001);

INSERT INTO path_alias VALUES (1, '/node/1196', '/products/info');
INSERT INTO path_alias VALUES (2, '/node/1033', '/products/installation-notes');

INSERT INTO taxonomy_index VALUES (1196, 5);
INSERT INTO taxonomy_index VALUES (1033, 6);

INSERT INTO node__body VALUES ('page', 0, 1196, 9196, 'en', 0, '<p>Product <b>info</b> body.</p>', '', 'basic_html');
INSERT INTO node__body VALUES ('product_notes', 0, 1033, 9033, 'en', 0, '<p>Notes body with <img src="/sites/default/files/inline.png"/></p>', NULL, 'full_html');

INSERT INTO node__field_image VALUES ('product_notes', 0, 1033, 9033, 'en', 0, 10, 'Hero image', '', 800, 600);

INSERT INTO node__field_sections VALUES ('page', 0, 1196, 9196, 'en', 0, 100, 100);
INSERT INTO node__field_sections VALUES ('page', 0, 1196, 9196, 'en', 1, 101, 101);
INSERT INTO node__field_sections VALUES ('page', 0, 4001, 9401, 'en', 0, 110, 110);

INSERT INTO node__field_related VALUES ('page', 0, 1196, 9196, 'en', 0, 1033);
INSERT INTO node__field_related VALUES ('page', 0, 2001, 9201, 'en', 0, 1196);
INSERT INTO node__field_related VALUES ('article', 0, 3001, 9301, 'en', 0, 1033);
INSERT INTO node__field_related VALUES ('product_notes', 0, 1033, 9033, 'en', 0, 9999);

INSERT INTO node__field_tags VALUES ('page', 0, 1196, 9196, 'en', 0, 5);
INSERT INTO node__field_tags VALUES ('product_notes', 0, 1033, 9033, 'en', 0, 6);

INSERT INTO node__field_subtitle VALUES ('page', 0, 4001, 9401, 'en', 0, 'Cycles ahead');
INSERT INTO node__field_zen_layout VALUES ('page', 0, 1196, 9196, 'en', 0, 'zen-default');
INSERT INTO node_revision__field_related VALUES ('page', 0, 1196, 9195, 'en', 0, 3001);

INSERT INTO paragraphs_item VALUES (100, 100, 'text_block');
INSERT INTO paragraphs_item VALUES (101, 101, 'text_block');
INSERT INTO paragraphs_item VALUES (110, 110, 'composite');
INSERT INTO paragraphs_item VALUES (111, 111, 'composite');

INSERT INTO paragraph__field_text VALUES ('text_block', 0, 100, 100, 'en', 0, 'Intro paragraph', 'plain_text');
INSERT INTO paragraph__field_text VALUES ('text_block', 0, 101, 101, 'en', 0, 'Second paragraph', 'plain_text');

INSERT INTO paragraph__field_inner VALUES ('composite', 0, 110, 110, 'en', 0, 111, 111);
INSERT INTO paragraph__field_inner VALUES ('composite', 0, 111, 111, 'en', 0, 110, 110);
`

// New opens a fresh seeded in-memory database. The pool is pinned to one
// connection so every query sees the same :memory: instance.
func New(t *testing.T) *db.DB {
	t.Helper()

	conn, err := db.Open(db.Config{Driver: "sqlite", Database: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if _, err := conn.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}
	if _, err := conn.Exec(seed); err != nil {
		t.Fatalf("failed to seed test data: %v", err)
	}
	return conn
}
