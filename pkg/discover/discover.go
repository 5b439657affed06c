// Package discover enumerates Drupal field-storage tables without any
// per-site configuration. Drupal keeps one table per field per entity type
// (node__field_image, paragraph__field_text, ...), so the table listing
// itself is the field registry.
package discover

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/dtnitsch/druxit/pkg/db"
)

// FieldDescriptor describes one discovered field-storage table.
type FieldDescriptor struct {
	// Name is the field machine name, e.g. field_image or body.
	Name string
	// Table is the storage table, e.g. node__field_image.
	Table string
	// ValueColumns are the field's own data columns (name-prefixed in the
	// table), excluding the target column.
	ValueColumns []string
	// TargetColumn is "<name>_target_id" when the field stores references.
	TargetColumn string
}

// SchemaError reports field metadata that cannot be read. It aborts the
// whole export: the database is not a Drupal 9 schema we understand.
type SchemaError struct {
	Op  string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Discoverer resolves field descriptors per bundle, cached for the run.
type Discoverer struct {
	db        *db.DB
	blacklist []string
	cache     *ristretto.Cache[string, []FieldDescriptor]
}

// New builds a Discoverer. Tables whose names contain a blacklist substring
// are never reported.
func New(database *db.DB, blacklist []string) (*Discoverer, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []FieldDescriptor]{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create descriptor cache: %w", err)
	}
	return &Discoverer{db: database, blacklist: blacklist, cache: cache}, nil
}

// Close releases the descriptor cache.
func (d *Discoverer) Close() {
	d.cache.Close()
}

// Fields returns the descriptors of all fields that have storage for the
// given bundle, in table-name order. entity is "node", "paragraph" or
// "taxonomy_term". Fields with storage but no rows for a particular entity
// are the caller's business; discovery only says the storage exists.
func (d *Discoverer) Fields(entity, bundle string) ([]FieldDescriptor, error) {
	key := entity + ":" + bundle
	if descs, ok := d.cache.Get(key); ok {
		return descs, nil
	}

	all, err := d.AllFields(entity)
	if err != nil {
		return nil, err
	}

	var descs []FieldDescriptor
	for _, desc := range all {
		bundles, err := d.bundles(desc.Table)
		if err != nil {
			return nil, &SchemaError{Op: "read bundles of " + desc.Table, Err: err}
		}
		if slices.Contains(bundles, bundle) {
			descs = append(descs, desc)
		}
	}

	d.cache.Set(key, descs, 1)
	d.cache.Wait()
	return descs, nil
}

// AllFields returns the descriptors of every field table of an entity type,
// across all bundles.
func (d *Discoverer) AllFields(entity string) ([]FieldDescriptor, error) {
	key := entity + ":*"
	if descs, ok := d.cache.Get(key); ok {
		return descs, nil
	}

	tables, err := d.tables(entity)
	if err != nil {
		return nil, err
	}

	var descs []FieldDescriptor
	for _, tbl := range tables {
		desc, err := d.describe(entity, tbl)
		if err != nil {
			return nil, err
		}
		if desc != nil {
			descs = append(descs, *desc)
		}
	}

	d.cache.Set(key, descs, 1)
	d.cache.Wait()
	return descs, nil
}

func (d *Discoverer) tables(entity string) ([]string, error) {
	prefix := entity + "__"
	names, err := d.db.Dialect().ListTables(d.db, prefix+"%")
	if err != nil {
		return nil, &SchemaError{Op: "list " + entity + " field tables", Err: err}
	}

	var out []string
	for _, name := range names {
		// LIKE underscores are single-char wildcards, so the pattern also
		// matches e.g. node_revision__field_x. Re-check the exact prefix.
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if d.blacklisted(name) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

func (d *Discoverer) blacklisted(table string) bool {
	for _, b := range d.blacklist {
		if strings.Contains(table, b) {
			return true
		}
	}
	return false
}

// describe reads a field table's columns and splits them into value columns
// and the reference target column. Tables without any field-owned columns
// (pure bookkeeping) yield nil.
func (d *Discoverer) describe(entity, table string) (*FieldDescriptor, error) {
	name := strings.TrimPrefix(table, entity+"__")
	cols, err := d.db.Dialect().ListColumns(d.db, table)
	if err != nil {
		return nil, &SchemaError{Op: "read columns of " + table, Err: err}
	}
	if len(cols) == 0 {
		return nil, &SchemaError{Op: "read columns of " + table, Err: fmt.Errorf("table has no columns")}
	}

	desc := FieldDescriptor{Name: name, Table: table}
	prefix := name + "_"
	for _, col := range cols {
		switch {
		case col == name+"_target_id":
			desc.TargetColumn = col
		case strings.HasPrefix(col, prefix):
			desc.ValueColumns = append(desc.ValueColumns, col)
		}
	}
	if desc.TargetColumn == "" && len(desc.ValueColumns) == 0 {
		return nil, nil
	}
	return &desc, nil
}

// bundles lists the content types that actually store rows in a field table.
func (d *Discoverer) bundles(table string) ([]string, error) {
	// Table names come from schema introspection above, never from input.
	rows, err := d.db.Query(fmt.Sprintf("SELECT DISTINCT bundle FROM %s WHERE deleted = 0", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
