package export

import (
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Summary is the YAML overview written next to the artifacts so the operator
// can audit a run without opening every document.
type Summary struct {
	GeneratedAt string        `yaml:"generated_at"`
	TotalNodes  int           `yaml:"total_nodes"`
	Exported    int           `yaml:"exported"`
	Skipped     int           `yaml:"skipped"`
	Warnings    []NodeWarning `yaml:"warnings,omitempty"`
	Nodes       []NodeStatus  `yaml:"nodes"`
}

func buildSummary(res *Result) Summary {
	return Summary{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		TotalNodes:  len(res.Statuses),
		Exported:    res.Exported,
		Skipped:     res.Skipped,
		Warnings:    res.Warnings,
		Nodes:       res.Statuses,
	}
}

func (d *Driver) writeSummary(res *Result) error {
	data, err := yaml.Marshal(buildSummary(res))
	if err != nil {
		return err
	}
	return d.store.SaveFile(filepath.Join(d.opts.OutDir, "summary.yaml"), data)
}
