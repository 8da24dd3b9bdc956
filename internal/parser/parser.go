// Package parser splits notebook JSON into per-cell documents keyed by cell
// id, and joins them back.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// cellIDRe is the nbformat constraint on cell ids; ids outside it are
// replaced so they can double as file names.
var cellIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Cell is one notebook cell with its id.
type Cell struct {
	ID  string
	Raw json.RawMessage
}

// Result holds the output of parsing a notebook.
type Result struct {
	// Header is the notebook object with the "cells" key removed.
	Header json.RawMessage
	Cells  []Cell
	// Assigned counts cells that received a generated id.
	Assigned int
}

// IDs returns the cell ids in notebook order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		ids[i] = c.ID
	}
	return ids
}

// Parse splits notebook JSON into header and cells. Cells without a usable
// id, or with an id already seen, get a fresh UUID.
func Parse(data []byte) (*Result, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parser: notebook: %w", err)
	}

	var rawCells []map[string]json.RawMessage
	if cellsJSON, ok := top["cells"]; ok {
		if err := json.Unmarshal(cellsJSON, &rawCells); err != nil {
			return nil, fmt.Errorf("parser: cells: %w", err)
		}
	}
	delete(top, "cells")

	header, err := json.Marshal(top)
	if err != nil {
		return nil, fmt.Errorf("parser: header: %w", err)
	}

	res := &Result{Header: header, Cells: make([]Cell, 0, len(rawCells))}
	seen := make(map[string]struct{}, len(rawCells))
	for i, cell := range rawCells {
		id := cellID(cell)
		if _, dup := seen[id]; id == "" || dup {
			id = uuid.NewString()
			idJSON, _ := json.Marshal(id)
			cell["id"] = idJSON
			res.Assigned++
		}
		seen[id] = struct{}{}

		raw, err := json.Marshal(cell)
		if err != nil {
			return nil, fmt.Errorf("parser: cell %d: %w", i, err)
		}
		res.Cells = append(res.Cells, Cell{ID: id, Raw: raw})
	}
	return res, nil
}

// cellID reads "id", falling back to the legacy "uuid" key.
func cellID(cell map[string]json.RawMessage) string {
	for _, key := range []string{"id", "uuid"} {
		raw, ok := cell[key]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err == nil && cellIDRe.MatchString(id) {
			return id
		}
	}
	return ""
}

// Join reassembles a notebook from its header and ordered cells.
func Join(header json.RawMessage, cells []Cell) ([]byte, error) {
	top := map[string]json.RawMessage{}
	if len(header) > 0 {
		if err := json.Unmarshal(header, &top); err != nil {
			return nil, fmt.Errorf("parser: header: %w", err)
		}
	}
	raws := make([]json.RawMessage, len(cells))
	for i, c := range cells {
		raws[i] = c.Raw
	}
	cellsJSON, err := json.Marshal(raws)
	if err != nil {
		return nil, fmt.Errorf("parser: cells: %w", err)
	}
	top["cells"] = cellsJSON

	out, err := json.MarshalIndent(top, "", " ")
	if err != nil {
		return nil, fmt.Errorf("parser: notebook: %w", err)
	}
	return append(out, '\n'), nil
}
