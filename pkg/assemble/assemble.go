// Package assemble orchestrates discovery, resolution and relationships
// into one JSON-serializable document per node.
package assemble

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dtnitsch/druxit/models"
	"github.com/dtnitsch/druxit/pkg/db"
	"github.com/dtnitsch/druxit/pkg/discover"
	"github.com/dtnitsch/druxit/pkg/relate"
	"github.com/dtnitsch/druxit/pkg/resolve"
)

// ExportError wraps a per-node failure so the driver can decide whether to
// abort the batch or skip the node and continue.
type ExportError struct {
	NID int64
	Err error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("failed to export node %d: %v", e.NID, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Assembler builds node documents over one connection. Not safe for
// concurrent use; each worker owns its own Assembler.
type Assembler struct {
	db        *db.DB
	disc      *discover.Discoverer
	resolver  *resolve.Resolver
	relations *relate.Resolver
}

// Options configure an Assembler.
type Options struct {
	// ContainerTypes feed the parent placement policy.
	ContainerTypes []string
	// Plaintext adds stripped text renderings of HTML values.
	Plaintext bool
}

// New wires an Assembler and its collaborators over a shared discoverer.
func New(database *db.DB, disc *discover.Discoverer, opts Options) *Assembler {
	prober := resolve.NewProber(database)
	return &Assembler{
		db:        database,
		disc:      disc,
		resolver:  resolve.New(database, disc, prober, opts.Plaintext),
		relations: relate.New(database, disc, prober, opts.ContainerTypes),
	}
}

// Assemble builds the document for one published node. Warnings collected
// during resolution come back alongside the document; they never fail the
// node. Schema errors and load failures wrap into an ExportError.
func (a *Assembler) Assemble(nid int64) (*models.Node, []models.Warning, error) {
	w := &models.Warnings{}

	node, err := a.nodeRow(nid)
	if err != nil {
		return nil, nil, &ExportError{NID: nid, Err: err}
	}
	node.URL = a.urlAlias(nid)

	if err := a.taxonomies(node); err != nil {
		return nil, nil, &ExportError{NID: nid, Err: err}
	}
	if err := a.fields(node, w); err != nil {
		return nil, nil, &ExportError{NID: nid, Err: err}
	}

	children, err := a.relations.Children(node.NID, node.VID, node.Type, w)
	if err != nil {
		return nil, nil, &ExportError{NID: nid, Err: err}
	}
	node.Children = children

	parents, err := a.relations.Parents(nid, nil)
	if err != nil {
		return nil, nil, &ExportError{NID: nid, Err: err}
	}
	node.Parents = parents

	return node, w.List(), nil
}

func (a *Assembler) nodeRow(nid int64) (*models.Node, error) {
	var n models.Node
	err := a.db.QueryRow(`
		SELECT n.nid, n.vid, n.type, nfd.title, nfd.langcode, nfd.status, nfd.created, nfd.changed
		FROM node n
		JOIN node_field_data nfd ON nfd.nid = n.nid AND nfd.vid = n.vid
		WHERE n.nid = ? AND nfd.status = 1`, nid).
		Scan(&n.NID, &n.VID, &n.Type, &n.Title, &n.Langcode, &n.Status, &n.Created, &n.Changed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node not found or unpublished")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load node row: %w", err)
	}
	return &n, nil
}

// urlAlias resolves the node's path alias, falling back to the canonical
// /node/<nid> path when no alias exists.
func (a *Assembler) urlAlias(nid int64) string {
	canonical := fmt.Sprintf("/node/%d", nid)
	if !a.db.HasTable("path_alias") {
		return canonical
	}
	var alias string
	err := a.db.QueryRow(`
		SELECT alias FROM path_alias WHERE path = ? ORDER BY id DESC LIMIT 1`, canonical).
		Scan(&alias)
	if err != nil {
		return canonical
	}
	return alias
}

func (a *Assembler) taxonomies(node *models.Node) error {
	if !a.db.HasTable("taxonomy_index") {
		return nil
	}
	rows, err := a.db.Query(`
		SELECT DISTINCT t.tid
		FROM taxonomy_index ti
		JOIN taxonomy_term_field_data t ON t.tid = ti.tid
		WHERE ti.nid = ?
		ORDER BY t.vid, t.weight, t.tid`, node.NID)
	if err != nil {
		return fmt.Errorf("failed to query taxonomy index: %w", err)
	}
	defer rows.Close()

	var tids []int64
	for rows.Next() {
		var tid int64
		if err := rows.Scan(&tid); err != nil {
			return fmt.Errorf("failed to scan taxonomy index row: %w", err)
		}
		tids = append(tids, tid)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, tid := range tids {
		term, found, err := a.resolver.Term(tid)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if node.Taxonomies == nil {
			node.Taxonomies = make(map[string][]models.Term)
		}
		node.Taxonomies[term.Vocabulary] = append(node.Taxonomies[term.Vocabulary], *term)
	}
	return nil
}

func (a *Assembler) fields(node *models.Node, w *models.Warnings) error {
	descs, err := a.disc.Fields("node", node.Type)
	if err != nil {
		return err
	}

	chain := resolve.NewChain()
	chain.Visit("node", node.NID)

	for _, desc := range descs {
		vals, err := a.resolver.FieldValues(desc, node.NID, node.VID, chain, w)
		if err != nil {
			return err
		}
		if len(vals) == 0 {
			continue // configured but empty for this node: omit, not an error
		}
		if node.Fields == nil {
			node.Fields = make(map[string][]models.FieldValue)
		}
		node.Fields[desc.Name] = vals
	}
	return nil
}
