package topology

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestAssignmentFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assignment.yaml")
	orig := Assignment()
	if err := orig.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != orig.Name {
		t.Fatalf("name: want %s, got %s", orig.Name, loaded.Name)
	}
	if !reflect.DeepEqual(loaded.NodeNames(), orig.NodeNames()) {
		t.Fatalf("node order changed: %v", loaded.NodeNames())
	}
	if !reflect.DeepEqual(loaded.Links, orig.Links) {
		t.Fatalf("links changed:\nwant %+v\ngot  %+v", orig.Links, loaded.Links)
	}
}

func TestUnmarshal(t *testing.T) {
	doc := `
name: small
hosts: [h1, h2]
switches: [s1]
links:
  - {a: h1, b: s1}
  - {a: h2, b: s1, bw: 5, delay: 2500, loss: 1, max_queue: 100}
`
	topo, err := Unmarshal([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	want := LinkOptions{Bandwidth: 5, Delay: 2500 * time.Microsecond, Loss: 1, MaxQueueSize: 100}
	if got := topo.Links[1].Options; got != want {
		t.Fatalf("want %+v, got %+v", want, got)
	}
}

func TestUnmarshalRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"unknown endpoint", "hosts: [h1]\nlinks:\n  - {a: h1, b: s1}\n", ErrUnknownNode},
		{"duplicate node", "hosts: [h1]\nswitches: [h1]\n", ErrDuplicateNode},
		{"unknown field", "hosts: [h1]\nrouters: [r1]\n", nil},
		{"bad delay", "hosts: [h1]\nswitches: [s1]\nlinks:\n  - {a: h1, b: s1, delay: soon}\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read topology") {
		t.Fatalf("unexpected error %v", err)
	}
}
