package resolve

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dtnitsch/druxit/models"
	"github.com/dtnitsch/druxit/pkg/db"
	"github.com/dtnitsch/druxit/pkg/discover"
)

// Prober classifies reference fields by checking which entity table claims
// their stored target ids. Drupal 9 keeps field types in serialized PHP
// config, so the storage tables themselves are the only portable registry.
// Classification is per field table and memoized for the run. Not safe for
// concurrent use; each worker owns its own Prober.
type Prober struct {
	db    *db.DB
	kinds map[string]models.FieldKind
}

// NewProber builds a Prober over one connection.
func NewProber(database *db.DB) *Prober {
	return &Prober{db: database, kinds: make(map[string]models.FieldKind)}
}

// probeOrder pairs each candidate entity table with its id column and the
// kind a hit implies. Paragraphs and files first: their id spaces are the
// ones most likely to collide with node ids.
var probeOrder = []struct {
	table  string
	column string
	kind   models.FieldKind
}{
	{"paragraphs_item", "id", models.KindParagraph},
	{"file_managed", "fid", models.KindFile},
	{"taxonomy_term_field_data", "tid", models.KindTerm},
	{"node", "nid", models.KindNode},
}

// FieldKind classifies a reference field by sampling targets from its own
// storage table. Returns false when no sampled target resolves anywhere,
// which means every stored reference dangles.
func (p *Prober) FieldKind(desc discover.FieldDescriptor) (models.FieldKind, bool) {
	if desc.TargetColumn == "" {
		return models.KindScalar, true
	}
	// Keyed by table: the same field machine name can exist on several
	// entity types and target different entities from each.
	if kind, ok := p.kinds[desc.Table]; ok {
		return kind, kind != ""
	}

	kind := p.sample(desc)
	p.kinds[desc.Table] = kind
	return kind, kind != ""
}

func (p *Prober) sample(desc discover.FieldDescriptor) models.FieldKind {
	rows, err := p.db.Query(fmt.Sprintf(
		"SELECT %s FROM %s WHERE deleted = 0 LIMIT 5", desc.TargetColumn, desc.Table))
	if err != nil {
		return ""
	}

	var targets []int64
	for rows.Next() {
		var target sql.NullInt64
		if err := rows.Scan(&target); err != nil || !target.Valid {
			continue
		}
		targets = append(targets, target.Int64)
	}
	// Drain and close before probing: the probe queries would block forever
	// on a single-connection pool while this cursor still holds it.
	if err := rows.Close(); err != nil {
		return ""
	}

	for _, target := range targets {
		if kind := p.probe(target); kind != "" {
			return kind
		}
	}
	return ""
}

// probe checks the candidate tables for a single id.
func (p *Prober) probe(target int64) models.FieldKind {
	for _, c := range probeOrder {
		if !p.db.HasTable(c.table) {
			continue
		}
		var one int
		err := p.db.QueryRow(fmt.Sprintf(
			"SELECT 1 FROM %s WHERE %s = ?", c.table, c.column), target).Scan(&one)
		if err == nil {
			return c.kind
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return ""
		}
	}
	return ""
}
