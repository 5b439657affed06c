// Package resolve turns raw field-storage rows into typed field values:
// scalars, file attachments, taxonomy terms and nested paragraphs.
package resolve

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dtnitsch/druxit/models"
	"github.com/dtnitsch/druxit/pkg/db"
	"github.com/dtnitsch/druxit/pkg/discover"
	"github.com/dtnitsch/druxit/pkg/htmltext"
)

// Chain tracks the entity ids already visited on one resolution path so a
// reference loop cannot recurse forever. It is passed down explicitly, never
// shared globally.
type Chain map[string]bool

// NewChain returns an empty visited set.
func NewChain() Chain {
	return make(Chain)
}

// Visit marks an entity and reports whether it was new. A false return means
// the chain looped back on itself.
func (c Chain) Visit(kind string, id int64) bool {
	key := fmt.Sprintf("%s:%d", kind, id)
	if c[key] {
		return false
	}
	c[key] = true
	return true
}

// Leave unmarks an entity when its resolution path returns. Only entities on
// the current path count as a cycle; sibling rows may reference the same
// entity again.
func (c Chain) Leave(kind string, id int64) {
	delete(c, fmt.Sprintf("%s:%d", kind, id))
}

// Resolver resolves field values for one connection. Not safe for concurrent
// use; each worker owns its own Resolver.
type Resolver struct {
	db        *db.DB
	disc      *discover.Discoverer
	prober    *Prober
	plaintext bool
}

// New builds a Resolver. With plaintext set, HTML-formatted scalar values
// additionally carry a stripped text rendering and any embedded image URLs.
func New(database *db.DB, disc *discover.Discoverer, prober *Prober, plaintext bool) *Resolver {
	return &Resolver{db: database, disc: disc, prober: prober, plaintext: plaintext}
}

// FieldValues resolves the stored rows of one field for one entity revision
// into delta-ordered values. Dangling references and truncated cycles are
// recorded on w and omitted from the result, never returned as errors.
func (r *Resolver) FieldValues(desc discover.FieldDescriptor, entityID, revisionID int64, chain Chain, w *models.Warnings) ([]models.FieldValue, error) {
	rows, err := r.fieldRows(desc, entityID, revisionID)
	if err != nil {
		return nil, err
	}

	var out []models.FieldValue
	for _, row := range rows {
		if desc.TargetColumn == "" {
			out = append(out, r.scalar(row.values))
			continue
		}
		if !row.target.Valid {
			w.Dangling(desc.Name, 0, fmt.Sprintf("reference row at delta %d stores no target id", row.delta))
			continue
		}
		if fv, ok := r.resolveTarget(desc, row, chain, w); ok {
			out = append(out, fv)
		}
	}
	return out, nil
}

// Term loads one taxonomy term with its parent reference and one level of
// its own field data. Returns false when the term row is gone.
func (r *Resolver) Term(tid int64) (*models.Term, bool, error) {
	var (
		term models.Term
		desc sql.NullString
	)
	err := r.db.QueryRow(`
		SELECT tid, vid, name, weight, status, description__value
		FROM taxonomy_term_field_data WHERE tid = ?`, tid).
		Scan(&term.TID, &term.Vocabulary, &term.Name, &term.Weight, &term.Status, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load term %d: %w", tid, err)
	}
	if desc.Valid {
		term.Description = desc.String
	}

	if parent, err := r.termParent(tid); err != nil {
		return nil, false, err
	} else if parent != nil {
		term.Parent = parent
	}

	fields, err := r.termFields(term.Vocabulary, tid)
	if err != nil {
		return nil, false, err
	}
	term.Fields = fields
	return &term, true, nil
}

func (r *Resolver) termParent(tid int64) (*models.TermRef, error) {
	if !r.db.HasTable("taxonomy_term__parent") {
		return nil, nil
	}
	var parent sql.NullInt64
	err := r.db.QueryRow(`
		SELECT parent_target_id FROM taxonomy_term__parent
		WHERE entity_id = ? AND deleted = 0 ORDER BY delta LIMIT 1`, tid).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && (!parent.Valid || parent.Int64 == 0)) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load parent of term %d: %w", tid, err)
	}

	var name string
	err = r.db.QueryRow(`SELECT name FROM taxonomy_term_field_data WHERE tid = ?`, parent.Int64).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load parent term %d: %w", parent.Int64, err)
	}
	return &models.TermRef{TID: parent.Int64, Name: name}, nil
}

// termFields returns a term's own field data as raw values. Recursion depth
// for terms is bounded to one level: entity references inside term fields
// stay raw target ids.
func (r *Resolver) termFields(vocabulary string, tid int64) (map[string][]models.FieldValue, error) {
	descs, err := r.disc.Fields("taxonomy_term", vocabulary)
	if err != nil {
		return nil, err
	}

	fields := make(map[string][]models.FieldValue)
	for _, desc := range descs {
		if desc.Name == "parent" {
			continue // handled as the term's parent reference
		}
		rows, err := r.fieldRows(desc, tid, 0)
		if err != nil {
			return nil, err
		}
		var vals []models.FieldValue
		for _, row := range rows {
			if row.target.Valid {
				row.values["target_id"] = row.target.Int64
			}
			vals = append(vals, models.FieldValue{Kind: models.KindScalar, Values: row.values})
		}
		if len(vals) > 0 {
			fields[desc.Name] = vals
		}
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func (r *Resolver) resolveTarget(desc discover.FieldDescriptor, row fieldRow, chain Chain, w *models.Warnings) (models.FieldValue, bool) {
	kind, ok := r.prober.FieldKind(desc)
	if !ok {
		w.Dangling(desc.Name, row.target.Int64, "target resolves to no known entity")
		return models.FieldValue{}, false
	}

	target := row.target.Int64
	switch kind {
	case models.KindParagraph:
		return r.paragraphValue(desc, target, chain, w)
	case models.KindFile:
		return r.fileValue(desc, target, row.values, w)
	case models.KindTerm:
		return r.termValue(desc, target, row.values, w)
	case models.KindNode:
		return r.nodeValue(desc, target, row.values, w)
	default:
		w.Dangling(desc.Name, target, "target resolves to no known entity")
		return models.FieldValue{}, false
	}
}

func (r *Resolver) fileValue(desc discover.FieldDescriptor, fid int64, values map[string]any, w *models.Warnings) (models.FieldValue, bool) {
	var (
		file  models.File
		owner sql.NullString
	)
	err := r.db.QueryRow(`
		SELECT f.fid, f.uid, f.filename, f.uri, f.filemime, f.filesize, f.created, f.changed, u.name
		FROM file_managed f
		LEFT JOIN users_field_data u ON u.uid = f.uid
		WHERE f.fid = ?`, fid).
		Scan(&file.FID, &file.UID, &file.Filename, &file.URI, &file.Filemime,
			&file.Filesize, &file.Created, &file.Changed, &owner)
	if err != nil {
		w.Dangling(desc.Name, fid, "file_managed row missing")
		return models.FieldValue{}, false
	}
	if owner.Valid {
		file.Owner = owner.String
	}
	return models.FieldValue{Kind: models.KindFile, Values: values, File: &file}, true
}

func (r *Resolver) termValue(desc discover.FieldDescriptor, tid int64, values map[string]any, w *models.Warnings) (models.FieldValue, bool) {
	term, found, err := r.Term(tid)
	if err != nil || !found {
		w.Dangling(desc.Name, tid, "taxonomy term row missing")
		return models.FieldValue{}, false
	}
	return models.FieldValue{Kind: models.KindTerm, Values: values, Term: term}, true
}

func (r *Resolver) nodeValue(desc discover.FieldDescriptor, nid int64, values map[string]any, w *models.Warnings) (models.FieldValue, bool) {
	var ref models.NodeRef
	err := r.db.QueryRow(`
		SELECT n.nid, nfd.title, n.type
		FROM node n
		JOIN node_field_data nfd ON nfd.nid = n.nid AND nfd.vid = n.vid
		WHERE n.nid = ?`, nid).
		Scan(&ref.NID, &ref.Title, &ref.Type)
	if err != nil {
		w.Dangling(desc.Name, nid, "referenced node missing")
		return models.FieldValue{}, false
	}
	return models.FieldValue{Kind: models.KindNode, Values: values, Node: &ref}, true
}

func (r *Resolver) paragraphValue(desc discover.FieldDescriptor, pid int64, chain Chain, w *models.Warnings) (models.FieldValue, bool) {
	if !chain.Visit("paragraph", pid) {
		w.Cycle(desc.Name, fmt.Sprintf("paragraph:%d", pid))
		return models.FieldValue{}, false
	}
	defer chain.Leave("paragraph", pid)

	var p models.Paragraph
	err := r.db.QueryRow(`SELECT id, revision_id, type FROM paragraphs_item WHERE id = ?`, pid).
		Scan(&p.ID, &p.RevisionID, &p.Type)
	if err != nil {
		w.Dangling(desc.Name, pid, "paragraphs_item row missing")
		return models.FieldValue{}, false
	}

	descs, err := r.disc.Fields("paragraph", p.Type)
	if err != nil {
		// Structural: surface as dangling so the export survives, the run
		// summary shows what happened.
		w.Dangling(desc.Name, pid, fmt.Sprintf("failed to discover paragraph fields: %v", err))
		return models.FieldValue{}, false
	}

	fields := make(map[string][]models.FieldValue)
	for _, fd := range descs {
		vals, err := r.FieldValues(fd, p.ID, p.RevisionID, chain, w)
		if err != nil {
			w.Dangling(fd.Name, pid, fmt.Sprintf("failed to resolve paragraph field: %v", err))
			continue
		}
		if len(vals) > 0 {
			fields[fd.Name] = vals
		}
	}
	if len(fields) > 0 {
		p.Fields = fields
	}
	return models.FieldValue{Kind: models.KindParagraph, Paragraph: &p}, true
}

func (r *Resolver) scalar(values map[string]any) models.FieldValue {
	if r.plaintext {
		addPlaintext(values)
	}
	return models.FieldValue{Kind: models.KindScalar, Values: values}
}

// addPlaintext renders HTML-formatted values as plain text and surfaces any
// embedded image URLs, which the operator has to migrate by hand.
func addPlaintext(values map[string]any) {
	format, _ := values["format"].(string)
	if !strings.Contains(format, "html") {
		return
	}
	html, _ := values["value"].(string)
	if html == "" {
		return
	}
	if text, err := htmltext.Strip(html); err == nil {
		values["text"] = text
	}
	if images := htmltext.Images(html); len(images) > 0 {
		values["images"] = images
	}
}

type fieldRow struct {
	delta  int64
	values map[string]any
	target sql.NullInt64
}

// fieldRows loads a field's rows for one entity in delta order. A zero
// revisionID skips the revision filter (taxonomy terms are not revisioned).
func (r *Resolver) fieldRows(desc discover.FieldDescriptor, entityID, revisionID int64) ([]fieldRow, error) {
	cols := make([]string, 0, len(desc.ValueColumns)+1)
	cols = append(cols, desc.ValueColumns...)
	if desc.TargetColumn != "" {
		cols = append(cols, desc.TargetColumn)
	}

	query := fmt.Sprintf("SELECT delta, %s FROM %s WHERE entity_id = ? AND deleted = 0",
		strings.Join(cols, ", "), desc.Table)
	args := []any{entityID}
	if revisionID != 0 {
		query += " AND revision_id = ?"
		args = append(args, revisionID)
	}
	query += " ORDER BY delta"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", desc.Table, err)
	}
	defer rows.Close()

	prefix := desc.Name + "_"
	var out []fieldRow
	for rows.Next() {
		scan := make([]any, len(cols)+1)
		var delta int64
		scan[0] = &delta
		for i := range cols {
			scan[i+1] = new(any)
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", desc.Table, err)
		}

		row := fieldRow{delta: delta, values: make(map[string]any)}
		for i, col := range cols {
			val := normalize(*scan[i+1].(*any))
			if col == desc.TargetColumn {
				if id, ok := asInt64(val); ok {
					row.target = sql.NullInt64{Int64: id, Valid: true}
				}
				continue
			}
			if val != nil {
				row.values[strings.TrimPrefix(col, prefix)] = val
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalize maps driver-specific scan types onto plain JSON-friendly ones.
// The MySQL driver hands text columns back as []byte.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		var id int64
		if _, err := fmt.Sscanf(n, "%d", &id); err == nil {
			return id, true
		}
	}
	return 0, false
}
