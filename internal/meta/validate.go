package meta

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Allowed keys per object, checked before decoding so that typos in entity
// files fail startup instead of silently dropping metadata.
var allowedEntityKeys = map[string]bool{
	"table":       true,
	"primary_key": true,
	"list_text":   true,
	"security":    true,
	"properties":  true,
	"includes":    true,
}

var allowedPropertyKeys = map[string]bool{
	"name":     true,
	"json":     true,
	"column":   true,
	"type":     true,
	"internal": true,
	"unmapped": true,
	"roles":    true,
	"search":   true,
	"values":   true,
	"model":    true,
	"fk":       true,
	"pk":       true,
}

var allowedRolesKeys = map[string]bool{
	"read":   true,
	"create": true,
	"edit":   true,
}

var allowedSecurityKeys = map[string]bool{
	"create": true,
	"edit":   true,
	"delete": true,
}

var allowedPropertyTypeValues = map[string]bool{
	"string":      true,
	"int":         true,
	"decimal":     true,
	"bool":        true,
	"guid":        true,
	"enum":        true,
	"date":        true,
	"date_offset": true,
	"object":      true,
	"collection":  true,
}

var allowedSearchValues = map[string]bool{
	"begins_with": true,
	"contains":    true,
	"equals":      true,
}

func validateEntityNode(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("entity: expected mapping, got %v", node.Kind)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i]
		val := node.Content[i+1]
		if !allowedEntityKeys[key.Value] {
			return fmt.Errorf("entity: unknown key %q (line %d)", key.Value, key.Line)
		}
		switch key.Value {
		case "properties":
			if err := validatePropertiesNode(val); err != nil {
				return err
			}
		case "security":
			if err := validateKeySet(val, allowedSecurityKeys, "security"); err != nil {
				return err
			}
		case "includes":
			if err := validateIncludesNode(val); err != nil {
				return err
			}
		}
	}
	return nil
}

func validatePropertiesNode(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("properties: expected sequence (line %d)", node.Line)
	}
	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			return fmt.Errorf("properties: expected mapping item (line %d)", item.Line)
		}
		for i := 0; i < len(item.Content); i += 2 {
			key := item.Content[i]
			val := item.Content[i+1]
			if !allowedPropertyKeys[key.Value] {
				return fmt.Errorf("property: unknown key %q (line %d)", key.Value, key.Line)
			}
			switch key.Value {
			case "type":
				if !allowedPropertyTypeValues[val.Value] {
					return fmt.Errorf("property: invalid type %q (line %d)", val.Value, val.Line)
				}
			case "search":
				if !allowedSearchValues[val.Value] {
					return fmt.Errorf("property: invalid search method %q (line %d)", val.Value, val.Line)
				}
			case "roles":
				if err := validateKeySet(val, allowedRolesKeys, "roles"); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// validateIncludesNode checks that every named tree is a (possibly empty)
// nested mapping. Navigation names are resolved later by the linker.
func validateIncludesNode(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("includes: expected mapping (line %d)", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		if err := validateTreeNode(node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func validateTreeNode(node *yaml.Node) error {
	// an empty tree may be written as "{}" or as a null value
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("include tree: expected mapping (line %d)", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		if err := validateTreeNode(node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func validateKeySet(node *yaml.Node, allowed map[string]bool, what string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: expected mapping (line %d)", what, node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i]
		if !allowed[key.Value] {
			return fmt.Errorf("%s: unknown key %q (line %d)", what, key.Value, key.Line)
		}
	}
	return nil
}
