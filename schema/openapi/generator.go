// Package openapi renders a store's defaults as an OpenAPI 3 schema object:
// one object property per section, one typed property per option.
package openapi

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-userconfig"
	"github.com/goliatone/go-userconfig/internal/literal"
)

var tupleType = reflect.TypeOf(literal.Tuple{})

// Generate converts descriptors produced by Store.Schema.
func Generate(doc userconfig.SchemaDocument) (map[string]any, error) {
	if doc.Format != userconfig.SchemaFormatDescriptors {
		return nil, fmt.Errorf("openapi: unsupported schema format %q", doc.Format)
	}

	properties := map[string]any{}
	for _, field := range doc.Document {
		section, option := field.Section, field.Option
		if section == "" || option == "" {
			return nil, fmt.Errorf("openapi: descriptor %q has no section or option", field.Path)
		}
		child, err := buildSchema(reflect.ValueOf(field.Default))
		if err != nil {
			return nil, fmt.Errorf("openapi: %s: %w", field.Path, err)
		}
		if field.Default != nil {
			child["default"] = field.Default
		}
		child["x-userconfig-kind"] = field.Kind.String()

		sectionSchema, ok := properties[section].(map[string]any)
		if !ok {
			sectionSchema = map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			}
			properties[section] = sectionSchema
		}
		sectionSchema["properties"].(map[string]any)[option] = child
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}

func buildSchema(rv reflect.Value) (map[string]any, error) {
	if !rv.IsValid() {
		return map[string]any{"nullable": true}, nil
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return map[string]any{"nullable": true}, nil
		}
		return buildSchema(rv.Elem())
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}, nil
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Slice, reflect.Array:
		return schemaForSlice(rv)
	}
	return nil, fmt.Errorf("type %s unsupported", rv.Type())
}

// Tuples keep their positional element types through prefixItems.
func schemaForSlice(rv reflect.Value) (map[string]any, error) {
	if rv.Type() == tupleType {
		items := make([]any, rv.Len())
		for i := range items {
			child, err := buildSchema(rv.Index(i))
			if err != nil {
				return nil, err
			}
			items[i] = child
		}
		return map[string]any{
			"type":        "array",
			"prefixItems": items,
			"minItems":    len(items),
			"maxItems":    len(items),
		}, nil
	}

	itemSchema := map[string]any{}
	if rv.Len() > 0 {
		child, err := buildSchema(rv.Index(0))
		if err != nil {
			return nil, err
		}
		itemSchema = child
	}
	return map[string]any{
		"type":  "array",
		"items": itemSchema,
	}, nil
}
