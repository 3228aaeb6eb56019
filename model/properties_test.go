package model

import (
	"encoding/json"
	"testing"
)

func TestProperties_orderPreserved(t *testing.T) {
	p := NewProperties()
	p.Set("BucketName", "my-bucket")
	p.Set("VersioningConfiguration", "x")
	p.Set("AccessControl", "Private")

	keys := p.Keys()
	want := []string{"BucketName", "VersioningConfiguration", "AccessControl"}
	if len(keys) != len(want) {
		t.Fatalf("len(keys) = %d, want %d", len(keys), len(want))
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], k)
		}
	}
}

func TestProperties_overwriteKeepsPosition(t *testing.T) {
	p := NewProperties()
	p.Set("a", 1)
	p.Set("b", 2)
	p.Set("a", 3)

	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2", p.Len())
	}
	if p.Keys()[0] != "a" {
		t.Errorf("keys[0] = %q, want a", p.Keys()[0])
	}
	v, _ := p.Get("a")
	if v != 3 {
		t.Errorf("Get(a) = %v, want 3", v)
	}
}

func TestProperties_marshalJSONOrdered(t *testing.T) {
	p := NewProperties()
	p.Set("z", 1)
	nested := NewProperties()
	nested.Set("Status", "Enabled")
	p.Set("a", nested)

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `{"z":1,"a":{"Status":"Enabled"}}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}

func TestProperties_mapFlattensNested(t *testing.T) {
	p := NewProperties()
	nested := NewProperties()
	nested.Set("Status", "Enabled")
	p.Set("VersioningConfiguration", nested)
	p.Set("Tags", []any{nested})

	m := p.Map()
	vc, ok := m["VersioningConfiguration"].(map[string]any)
	if !ok {
		t.Fatalf("VersioningConfiguration not flattened: %T", m["VersioningConfiguration"])
	}
	if vc["Status"] != "Enabled" {
		t.Errorf("Status = %v, want Enabled", vc["Status"])
	}
	tags, ok := m["Tags"].([]any)
	if !ok || len(tags) != 1 {
		t.Fatalf("Tags not flattened: %#v", m["Tags"])
	}
	if _, ok := tags[0].(map[string]any); !ok {
		t.Errorf("Tags[0] not flattened: %T", tags[0])
	}
}
