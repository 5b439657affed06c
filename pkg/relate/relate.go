// Package relate discovers parent/child relationships between nodes through
// entity-reference fields and decides how a parent's content is placed
// around a child's.
package relate

import (
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"sort"

	"github.com/dtnitsch/druxit/models"
	"github.com/dtnitsch/druxit/pkg/db"
	"github.com/dtnitsch/druxit/pkg/discover"
	"github.com/dtnitsch/druxit/pkg/resolve"
)

// Resolver finds relationships for one connection. Not safe for concurrent
// use; each worker owns its own Resolver.
type Resolver struct {
	db         *db.DB
	disc       *discover.Discoverer
	prober     *resolve.Prober
	containers map[string]bool
}

// New builds a relationship resolver. containerTypes is the explicit policy
// table deciding placement; it is configuration, never inferred from names.
func New(database *db.DB, disc *discover.Discoverer, prober *resolve.Prober, containerTypes []string) *Resolver {
	containers := make(map[string]bool, len(containerTypes))
	for _, t := range containerTypes {
		containers[t] = true
	}
	return &Resolver{db: database, disc: disc, prober: prober, containers: containers}
}

// Children returns the nodes this node's own entity-reference fields point
// at, in field then delta order. Targets whose node row is gone are recorded
// as dangling and skipped.
func (r *Resolver) Children(nid, vid int64, bundle string, w *models.Warnings) ([]models.ChildRef, error) {
	descs, err := r.disc.Fields("node", bundle)
	if err != nil {
		return nil, err
	}

	var out []models.ChildRef
	for _, desc := range descs {
		if desc.TargetColumn == "" {
			continue
		}
		if kind, ok := r.prober.FieldKind(desc); !ok || kind != models.KindNode {
			continue
		}

		stored, err := r.childRows(desc, nid, vid)
		if err != nil {
			return nil, err
		}
		for _, row := range stored {
			ref, found, err := r.nodeRef(row.target)
			if err != nil {
				return nil, err
			}
			if !found {
				w.Dangling(desc.Name, row.target, "referenced node missing")
				continue
			}
			out = append(out, models.ChildRef{
				NID:   ref.NID,
				Title: ref.Title,
				Type:  ref.Type,
				Via:   desc.Name,
				Delta: row.delta,
			})
		}
	}
	return out, nil
}

type childRow struct {
	delta  int64
	target int64
}

// childRows drains one field's reference rows before any per-target lookup
// runs; the lookups would block forever on a single-connection pool while
// the cursor still holds it.
func (r *Resolver) childRows(desc discover.FieldDescriptor, nid, vid int64) ([]childRow, error) {
	rows, err := r.db.Query(fmt.Sprintf(
		"SELECT delta, %s FROM %s WHERE entity_id = ? AND revision_id = ? AND deleted = 0 ORDER BY delta",
		desc.TargetColumn, desc.Table), nid, vid)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", desc.Table, err)
	}
	defer rows.Close()

	var out []childRow
	for rows.Next() {
		var row childRow
		if err := rows.Scan(&row.delta, &row.target); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", desc.Table, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Parents returns the nodes whose entity-reference fields point at this
// node. Every (parent, field) path stays distinct. Placement is a pure
// function of the parent's own content type, and grandparents are resolved
// bottom-up behind each parent, guarded against reference loops by the nid
// chain. Pass a nil chain at the top.
func (r *Resolver) Parents(nid int64, chain map[int64]bool) ([]models.ParentRef, error) {
	if chain == nil {
		chain = make(map[int64]bool)
	}
	chain[nid] = true

	descs, err := r.disc.AllFields("node")
	if err != nil {
		return nil, err
	}

	var out []models.ParentRef
	for _, desc := range descs {
		if desc.TargetColumn == "" {
			continue
		}
		if kind, ok := r.prober.FieldKind(desc); !ok || kind != models.KindNode {
			continue
		}

		parentIDs, err := r.referrers(desc, nid)
		if err != nil {
			return nil, err
		}
		for _, pnid := range parentIDs {
			if chain[pnid] {
				continue // mutual reference, stop the climb here
			}
			ref, found, err := r.nodeRef(pnid)
			if err != nil {
				return nil, err
			}
			if !found {
				continue // unpublished or gone, not a renderable parent
			}

			placement := models.PlacementBefore
			if r.containers[ref.Type] {
				placement = models.PlacementSplit
			}
			grandparents, err := r.Parents(pnid, maps.Clone(chain))
			if err != nil {
				return nil, err
			}
			out = append(out, models.ParentRef{
				NID:       ref.NID,
				Title:     ref.Title,
				Type:      ref.Type,
				Via:       desc.Name,
				Placement: placement,
				Parents:   grandparents,
			})
		}
	}

	// Non-container parents render entirely before the node, container
	// parents wrap around it, so the before group leads. Stable to keep
	// discovery order within each group.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Placement == models.PlacementBefore && out[j].Placement == models.PlacementSplit
	})
	return out, nil
}

func (r *Resolver) referrers(desc discover.FieldDescriptor, nid int64) ([]int64, error) {
	rows, err := r.db.Query(fmt.Sprintf(
		"SELECT DISTINCT entity_id FROM %s WHERE %s = ? AND deleted = 0 ORDER BY entity_id",
		desc.Table, desc.TargetColumn), nid)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", desc.Table, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", desc.Table, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Resolver) nodeRef(nid int64) (models.NodeRef, bool, error) {
	var ref models.NodeRef
	err := r.db.QueryRow(`
		SELECT n.nid, nfd.title, n.type
		FROM node n
		JOIN node_field_data nfd ON nfd.nid = n.nid AND nfd.vid = n.vid
		WHERE n.nid = ? AND nfd.status = 1`, nid).
		Scan(&ref.NID, &ref.Title, &ref.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return ref, false, nil
	}
	if err != nil {
		return ref, false, fmt.Errorf("failed to load node %d: %w", nid, err)
	}
	return ref, true, nil
}
