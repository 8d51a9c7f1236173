package openapi

import (
	"testing"

	"github.com/goliatone/go-userconfig"
	"github.com/goliatone/go-userconfig/internal/literal"
	"github.com/goliatone/go-userconfig/pkg/state"
)

func TestGenerateFromStoreDefaults(t *testing.T) {
	store, err := userconfig.New("schema", userconfig.Sections{
		{Name: "window", Options: map[string]any{
			"width":  800,
			"scale":  1.5,
			"title":  "app",
			"origin": literal.Tuple{0, 0.5},
			"recent": []string{"a.txt"},
			"theme":  nil,
		}},
	}, userconfig.WithBackend(state.NewMemoryStore()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	schema, err := Generate(store.Schema())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	window := schema["properties"].(map[string]any)["window"].(map[string]any)
	props := window["properties"].(map[string]any)

	expectType := func(option, want string) {
		t.Helper()
		got := props[option].(map[string]any)["type"]
		if got != want {
			t.Fatalf("%s: want type %q got %v", option, want, got)
		}
	}
	expectType("width", "integer")
	expectType("scale", "number")
	expectType("title", "string")
	expectType("origin", "array")
	expectType("recent", "array")

	origin := props["origin"].(map[string]any)
	if items := origin["prefixItems"].([]any); len(items) != 2 {
		t.Fatalf("expected two tuple positions, got %d", len(items))
	}
	if props["width"].(map[string]any)["default"] != 800 {
		t.Fatalf("expected default to be carried: %+v", props["width"])
	}
	if props["theme"].(map[string]any)["nullable"] != true {
		t.Fatalf("expected nil default to be nullable: %+v", props["theme"])
	}
	if props["recent"].(map[string]any)["items"].(map[string]any)["type"] != "string" {
		t.Fatalf("expected string items: %+v", props["recent"])
	}
}

func TestGenerateRejectsUnknownFormat(t *testing.T) {
	if _, err := Generate(userconfig.SchemaDocument{Format: "openapi"}); err == nil {
		t.Fatalf("expected error for foreign format")
	}
}
