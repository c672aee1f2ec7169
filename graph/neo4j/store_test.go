package neo4j

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func TestNodeToEntity_ReadsKnownProps(t *testing.T) {
	node := neo4j.Node{
		Props: map[string]any{"id": "e1", "name": "Widget", "type": "product"},
	}
	e := nodeToEntity(node)
	if e.ID != "e1" || e.Name != "Widget" || e.Type != "product" {
		t.Fatalf("unexpected entity: %+v", e)
	}
}

func TestNodeToEntity_MissingOptionalPropsLeavesZeroValues(t *testing.T) {
	node := neo4j.Node{Props: map[string]any{"id": "e2"}}
	e := nodeToEntity(node)
	if e.ID != "e2" || e.Name != "" || e.Type != "" {
		t.Fatalf("expected zero-value name/type, got %+v", e)
	}
}

func TestNodeToEntity_DecodesFlattenedProperties(t *testing.T) {
	node := neo4j.Node{
		Props: map[string]any{
			"id":         "e1",
			"name":       "Widget",
			"type":       "product",
			"properties": []any{"doc_id=d1", "category=widgets"},
		},
	}
	e := nodeToEntity(node)
	if e.Properties["doc_id"] != "d1" || e.Properties["category"] != "widgets" {
		t.Fatalf("expected properties decoded from flattened form, got %+v", e.Properties)
	}
}

func TestNodeToEntity_MissingPropertiesLeavesNilMap(t *testing.T) {
	node := neo4j.Node{Props: map[string]any{"id": "e1"}}
	e := nodeToEntity(node)
	if e.Properties != nil {
		t.Fatalf("expected nil Properties when absent, got %+v", e.Properties)
	}
}

func TestAddEntityThenNodeToEntity_PropertiesRoundTrip(t *testing.T) {
	original := map[string]any{"doc_id": "d42"}
	flattened := flattenProperties(original)

	node := neo4j.Node{
		Props: map[string]any{
			"id":         "e1",
			"properties": toAnySlice(flattened),
		},
	}
	e := nodeToEntity(node)
	if e.Properties["doc_id"] != "d42" {
		t.Fatalf("expected doc_id to round-trip through flatten/unflatten, got %+v", e.Properties)
	}
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func TestFlattenProperties_FormatsKeyValuePairs(t *testing.T) {
	out := flattenProperties(map[string]any{"a": 1})
	if len(out) != 1 || out[0] != "a=1" {
		t.Fatalf("unexpected flattened properties: %v", out)
	}
}

func TestFlattenProperties_NilInputReturnsEmpty(t *testing.T) {
	out := flattenProperties(nil)
	if len(out) != 0 {
		t.Fatalf("expected empty slice, got %v", out)
	}
}

func TestIsTransient_NonNeo4jErrorIsNotTransient(t *testing.T) {
	if isTransient(nil) {
		t.Fatalf("nil error should not be treated as transient")
	}
}
