package graphdb

import (
	"strings"
	"testing"

	"measnet/internal/topology"
)

func TestExportStatements(t *testing.T) {
	topo := topology.Assignment()
	stmts := exportStatements(topo)

	// clear, constraint, one per node, one per link
	if want := 2 + 10 + 9; len(stmts) != want {
		t.Fatalf("want %d statements, got %d", want, len(stmts))
	}
	if !strings.Contains(stmts[0].query, "DETACH DELETE") || stmts[0].params["topology"] != "assignment" {
		t.Fatalf("first statement should clear the previous export: %+v", stmts[0])
	}

	h1 := stmts[2]
	if h1.params["name"] != "h1" || h1.params["kind"] != "host" {
		t.Fatalf("unexpected node statement %+v", h1.params)
	}
	s5 := stmts[11]
	if s5.params["name"] != "s5" || s5.params["kind"] != "switch" {
		t.Fatalf("unexpected node statement %+v", s5.params)
	}

	s1s2 := stmts[12+5]
	if s1s2.params["a"] != "s1" || s1s2.params["b"] != "s2" {
		t.Fatalf("unexpected link statement %+v", s1s2.params)
	}
	if s1s2.params["bw"] != 10.0 || s1s2.params["delay_ms"] != 40.0 {
		t.Fatalf("link parameters not exported: %+v", s1s2.params)
	}
	for _, s := range stmts[12:] {
		if !strings.Contains(s.query, "MERGE (a)-[r:LINK]-(b)") {
			t.Fatalf("link statement should merge a LINK: %s", s.query)
		}
	}
}
