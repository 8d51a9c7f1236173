package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-userconfig"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// loadDefaults reads a JSONC object of sections. Section order in the file
// is kept, so it decodes through a yaml.Node rather than a Go map.
func loadDefaults(path string) (userconfig.Defaults, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}
	return parseDefaults(jsonc.ToJSON(data))
}

func parseDefaults(data []byte) (userconfig.Sections, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse defaults: %w", err)
	}
	if len(root.Content) == 0 {
		return userconfig.Sections{}, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse defaults: expected an object of sections")
	}

	sections := make(userconfig.Sections, 0, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		name := doc.Content[i].Value
		var options map[string]any
		if err := doc.Content[i+1].Decode(&options); err != nil {
			return nil, fmt.Errorf("parse defaults section %q: %w", name, err)
		}
		sections = append(sections, userconfig.Section{Name: name, Options: options})
	}
	return sections, nil
}
