package parser

import (
	"encoding/json"
	"testing"
)

const sample = `{
 "cells": [
  {"cell_type": "markdown", "id": "intro", "metadata": {}, "source": ["# Title"]},
  {"cell_type": "code", "id": "calc-1", "metadata": {}, "source": ["1+1"], "outputs": [], "execution_count": null}
 ],
 "metadata": {"kernelspec": {"name": "python3"}},
 "nbformat": 4,
 "nbformat_minor": 5
}`

func TestParseSplitsCells(t *testing.T) {
	res, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ids := res.IDs()
	if len(ids) != 2 || ids[0] != "intro" || ids[1] != "calc-1" {
		t.Errorf("ids = %v", ids)
	}
	if res.Assigned != 0 {
		t.Errorf("assigned = %d", res.Assigned)
	}

	var header map[string]any
	_ = json.Unmarshal(res.Header, &header)
	if _, ok := header["cells"]; ok {
		t.Error("header still contains cells")
	}
	if header["nbformat"] != float64(4) {
		t.Errorf("nbformat = %v", header["nbformat"])
	}
}

func TestParseAssignsMissingAndDuplicateIDs(t *testing.T) {
	data := `{"cells":[
		{"cell_type":"code","source":[]},
		{"cell_type":"code","id":"same","source":[]},
		{"cell_type":"code","id":"same","source":[]},
		{"cell_type":"code","uuid":"legacy-id","source":[]},
		{"cell_type":"code","id":"../escape","source":[]}
	]}`
	res, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Assigned != 3 {
		t.Errorf("assigned = %d, want 3", res.Assigned)
	}
	seen := map[string]bool{}
	for _, c := range res.Cells {
		if !cellIDRe.MatchString(c.ID) {
			t.Errorf("unsafe id %q", c.ID)
		}
		if seen[c.ID] {
			t.Errorf("duplicate id %q", c.ID)
		}
		seen[c.ID] = true

		var cell map[string]any
		_ = json.Unmarshal(c.Raw, &cell)
		if c.ID != "legacy-id" && cell["id"] != c.ID {
			t.Errorf("cell id field = %v, want %q", cell["id"], c.ID)
		}
	}
	if res.Cells[1].ID != "same" || res.Cells[3].ID != "legacy-id" {
		t.Errorf("ids = %v", res.IDs())
	}
}

func TestJoinRoundTripsCells(t *testing.T) {
	res, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Join(res.Header, res.Cells)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	again, err := Parse(out)
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	if len(again.Cells) != 2 || again.Cells[1].ID != "calc-1" {
		t.Errorf("cells = %v", again.IDs())
	}
	if string(again.Header) != string(res.Header) {
		t.Errorf("header changed: %s vs %s", again.Header, res.Header)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "[]", `{"cells": 3}`} {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("Parse(%q) expected error", in)
		}
	}
}
