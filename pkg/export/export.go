// Package export drives batch exports: select nodes, assemble each into a
// document, write JSON artifacts and a run summary.
package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/dtnitsch/druxit/models"
	"github.com/dtnitsch/druxit/pkg/assemble"
	"github.com/dtnitsch/druxit/pkg/db"
	"github.com/dtnitsch/druxit/pkg/discover"
	"github.com/dtnitsch/druxit/pkg/storage"
)

// Policy decides what a per-node failure does to the rest of the batch.
type Policy string

const (
	// PolicyAbort stops the whole run on the first node failure.
	PolicyAbort Policy = "abort"
	// PolicySkip records the failure and continues with the next node.
	PolicySkip Policy = "skip"
)

// ParsePolicy validates a policy string from flags or settings.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAbort, "":
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown on-error policy: %q (use abort or skip)", s)
	}
}

// Options configure one export run.
type Options struct {
	// Types selects all published nodes of these content types when NIDs
	// is empty.
	Types []string
	// NIDs exports exactly these nodes.
	NIDs []int64
	// OutDir receives one JSON file per node plus nodes.json and
	// summary.yaml. Empty means no files; callers use Result.Documents.
	OutDir string
	// Workers sets the assembly parallelism. Each node's resolution is
	// independent; output order stays deterministic regardless.
	Workers int
	// OnError picks the batch failure policy.
	OnError Policy
	// Pretty indents the JSON artifacts.
	Pretty bool
	// Plaintext adds stripped text renderings of HTML values.
	Plaintext bool
	// ContainerTypes feed the parent placement policy.
	ContainerTypes []string
	// Blacklist excludes field tables by substring.
	Blacklist []string
	// Progress draws a terminal progress bar.
	Progress bool
}

// NodeWarning ties a resolution warning to the node it surfaced under.
type NodeWarning struct {
	NID     int64          `json:"nid" yaml:"nid"`
	Warning models.Warning `json:"warning" yaml:"warning"`
}

// NodeStatus records the outcome for one node in the run summary.
type NodeStatus struct {
	NID      int64  `json:"nid" yaml:"nid"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	File     string `json:"file,omitempty" yaml:"file,omitempty"`
	Status   string `json:"status" yaml:"status"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Warnings int    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Result is what a run produced: the documents in selection order, every
// warning the resolvers recovered from, and a per-node status list.
type Result struct {
	Documents []*models.Node
	Warnings  []NodeWarning
	Statuses  []NodeStatus
	Exported  int
	Skipped   int
}

// Driver runs exports over one connection.
type Driver struct {
	db    *db.DB
	disc  *discover.Discoverer
	store *storage.Storage
	opts  Options
	log   zerolog.Logger
}

// New builds a Driver. Pass zerolog.Nop() when no logging is wanted.
func New(database *db.DB, opts Options, log zerolog.Logger) (*Driver, error) {
	blacklist := opts.Blacklist
	if len(blacklist) == 0 {
		blacklist = models.DefaultBlacklist
	}
	disc, err := discover.New(database, blacklist)
	if err != nil {
		return nil, err
	}
	if opts.OnError == "" {
		opts.OnError = PolicyAbort
	}
	return &Driver{db: database, disc: disc, store: &storage.Storage{}, opts: opts, log: log}, nil
}

// Close releases per-run caches.
func (d *Driver) Close() {
	d.disc.Close()
}

type assembly struct {
	idx   int
	nid   int64
	doc   *models.Node
	warns []models.Warning
	err   error
}

// Run exports the selected nodes. With PolicyAbort the first node failure
// returns an error alongside the partial result; with PolicySkip failures
// land in the summary and the run finishes.
func (d *Driver) Run() (*Result, error) {
	nids := d.opts.NIDs
	if len(nids) == 0 {
		var err error
		nids, err = d.listNIDs()
		if err != nil {
			return nil, err
		}
	}

	items := d.assembleAll(nids)

	res := &Result{}
	for _, item := range items {
		if item.err != nil {
			if d.opts.OnError == PolicyAbort {
				return res, item.err
			}
			d.log.Warn().Int64("nid", item.nid).Err(item.err).Msg("skipping node")
			res.Skipped++
			res.Statuses = append(res.Statuses, NodeStatus{
				NID:    item.nid,
				Status: "skipped",
				Error:  item.err.Error(),
			})
			continue
		}

		status := NodeStatus{
			NID:      item.doc.NID,
			Type:     item.doc.Type,
			Title:    item.doc.Title,
			Status:   "exported",
			Warnings: len(item.warns),
		}
		if d.opts.OutDir != "" {
			path := storage.DocumentPath(d.opts.OutDir, item.doc)
			if err := d.writeJSON(path, item.doc); err != nil {
				return res, &assemble.ExportError{NID: item.doc.NID, Err: err}
			}
			status.File = path
		}

		res.Documents = append(res.Documents, item.doc)
		res.Exported++
		for _, warn := range item.warns {
			res.Warnings = append(res.Warnings, NodeWarning{NID: item.doc.NID, Warning: warn})
		}
		res.Statuses = append(res.Statuses, status)
	}

	if d.opts.OutDir != "" {
		if err := d.writeJSON(filepath.Join(d.opts.OutDir, "nodes.json"), res.Documents); err != nil {
			return res, err
		}
		if err := d.writeSummary(res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// assembleAll resolves every node, optionally across workers. Results come
// back in selection order so output is deterministic either way.
func (d *Driver) assembleAll(nids []int64) []assembly {
	var bar *progressbar.ProgressBar
	if d.opts.Progress {
		bar = progressbar.Default(int64(len(nids)), "exporting")
	}

	workers := d.opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(nids) {
		workers = len(nids)
	}

	items := make([]assembly, len(nids))
	jobs := make(chan int, len(nids))
	done := make(chan int, len(nids))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			asm := assemble.New(d.db, d.disc, assemble.Options{
				ContainerTypes: d.opts.ContainerTypes,
				Plaintext:      d.opts.Plaintext,
			})
			for idx := range jobs {
				doc, warns, err := asm.Assemble(nids[idx])
				items[idx] = assembly{idx: idx, nid: nids[idx], doc: doc, warns: warns, err: err}
				done <- idx
			}
		}()
	}

	for idx := range nids {
		jobs <- idx
	}
	close(jobs)

	for range nids {
		<-done
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	wg.Wait()
	return items
}

// listNIDs selects all published nodes of the configured types, ordered by
// type then title so batches are reproducible.
func (d *Driver) listNIDs() ([]int64, error) {
	if len(d.opts.Types) == 0 {
		return nil, fmt.Errorf("no node ids and no content types selected")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(d.opts.Types)), ",")
	args := make([]any, len(d.opts.Types))
	for i, t := range d.opts.Types {
		args[i] = t
	}

	rows, err := d.db.Query(fmt.Sprintf(`
		SELECT n.nid
		FROM node n
		JOIN node_field_data nfd ON nfd.nid = n.nid AND nfd.vid = n.vid
		WHERE n.type IN (%s) AND nfd.status = 1
		ORDER BY n.type, nfd.title`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	var nids []int64
	for rows.Next() {
		var nid int64
		if err := rows.Scan(&nid); err != nil {
			return nil, fmt.Errorf("failed to scan nid: %w", err)
		}
		nids = append(nids, nid)
	}
	return nids, rows.Err()
}

func (d *Driver) writeJSON(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if d.opts.Pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	return d.store.SaveFile(path, data)
}

// ExportNodes connects with the given credentials and exports all published
// nodes of the default content types, returning the documents. Programmatic
// equivalent of the interactive run.
func ExportNodes(database, user, password string) (*Result, error) {
	conn, err := db.Open(db.Config{Database: database, User: user, Password: password})
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	defaults := models.DefaultSettings()
	driver, err := New(conn, Options{
		Types:          defaults.Types,
		ContainerTypes: defaults.ContainerTypes,
		OnError:        PolicyAbort,
	}, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	defer driver.Close()

	return driver.Run()
}
