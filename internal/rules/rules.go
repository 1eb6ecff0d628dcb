// Package rules loads and saves conversion rules as JSON or YAML files.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/widelong/internal/core"
	"gopkg.in/yaml.v3"
)

// Format is a rule file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from a file extension. Unknown extensions
// are an error.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported rule file type %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Decode parses a rule. Fields absent from data keep their DefaultRule
// values.
func Decode(data []byte, format Format) (core.Rule, error) {
	rule := core.DefaultRule()
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rule); err != nil {
			return core.Rule{}, fmt.Errorf("decode json rule: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&rule); err != nil {
			return core.Rule{}, fmt.Errorf("decode yaml rule: %w", err)
		}
	default:
		return core.Rule{}, fmt.Errorf("unknown rule format %q", format)
	}

	if _, err := core.ParseExpandMode(string(rule.ExpandMode)); err != nil {
		return core.Rule{}, err
	}
	return rule, nil
}

// Encode serializes rule.
func Encode(rule core.Rule, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(rule, "", "    ")
		if err != nil {
			return nil, fmt.Errorf("encode json rule: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(rule); err != nil {
			return nil, fmt.Errorf("encode yaml rule: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml rule: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown rule format %q", format)
	}
}

// Load reads a rule file.
func Load(path string) (core.Rule, error) {
	format, err := FormatFor(path)
	if err != nil {
		return core.Rule{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Rule{}, fmt.Errorf("read rule %s: %w", path, err)
	}
	rule, err := Decode(data, format)
	if err != nil {
		return core.Rule{}, fmt.Errorf("%s: %w", path, err)
	}
	return rule, nil
}

// Save writes rule to path. A rule is only saved once it names an index
// column, at least one selected column and a non-empty output map.
func Save(path string, rule core.Rule) error {
	if err := core.CheckRuleComplete(rule); err != nil {
		return err
	}
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Encode(rule, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write rule %s: %w", path, err)
	}
	return nil
}

// Validate checks that rule fits a file with the given columns.
func Validate(rule core.Rule, columns []string) error {
	return core.ValidateRuleColumns(rule, columns)
}

// Init builds a starting rule for a file: the first column is the index,
// every other column is selected, and the output map is the default one.
func Init(columns []string) (core.Rule, error) {
	if len(columns) < 2 {
		return core.Rule{}, &core.ConfigurationError{Reason: "no usable columns to expand: need an index column and at least one value column"}
	}
	rule := core.DefaultRule()
	rule.IndexColumn = core.NormalizeColumnName(columns[0])
	for _, c := range columns[1:] {
		rule.SelectedColumns = append(rule.SelectedColumns, core.NormalizeColumnName(c))
	}
	rule.GeneralOutputMap = core.ReconcileOutputMap(nil, rule)
	return rule, nil
}
