package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a rule leaves a field blank.
const (
	DefaultValueAlias   = "日期"
	DefaultNameTemplate = "清洗_{basename}.xlsx"
	DefaultDataPrefix   = "#"
	BasenamePlaceholder = "{basename}"
)

// ExpandMode selects the sort precedence of reshaped rows.
type ExpandMode string

const (
	// IndexThenValue groups rows by index value, then by value column.
	IndexThenValue ExpandMode = "index_then_value"
	// ValueThenIndex groups rows by value column, then by index value.
	ValueThenIndex ExpandMode = "value_then_index"
)

// ParseExpandMode parses a mode name. Blank input yields IndexThenValue.
func ParseExpandMode(s string) (ExpandMode, error) {
	switch ExpandMode(strings.TrimSpace(s)) {
	case "", IndexThenValue:
		return IndexThenValue, nil
	case ValueThenIndex:
		return ValueThenIndex, nil
	default:
		return "", fmt.Errorf("unknown expand mode %q (want %s or %s)", s, IndexThenValue, ValueThenIndex)
	}
}

// OutputRole identifies what an output column is synthesized from.
type OutputRole int

const (
	RolePassthrough OutputRole = iota
	RoleSerialNumber
	RoleIndexAlias
	RoleValueAlias
	RoleConfigurableField
)

// Role keys as they appear in saved rules.
const (
	KeySerialNumber      = "序号"
	KeyIndexAlias        = "索引列名"
	KeyValueAlias        = "转换后列名"
	KeyConfigurableField = "可配置字段"
)

func (r OutputRole) String() string {
	switch r {
	case RoleSerialNumber:
		return "serial_number"
	case RoleIndexAlias:
		return "index_alias"
	case RoleValueAlias:
		return "value_alias"
	case RoleConfigurableField:
		return "configurable_field"
	default:
		return "passthrough"
	}
}

// OutputField is one entry of an output map: a role (or a passthrough
// source column) and the final column name it is written under.
type OutputField struct {
	Role   OutputRole
	Source string // literal source column, only for RolePassthrough
	Name   string
}

// ParseOutputKey turns a saved role key into a field with the given name.
// Unknown keys become passthrough fields.
func ParseOutputKey(key, name string) OutputField {
	switch key {
	case KeySerialNumber:
		return OutputField{Role: RoleSerialNumber, Name: name}
	case KeyIndexAlias:
		return OutputField{Role: RoleIndexAlias, Name: name}
	case KeyValueAlias:
		return OutputField{Role: RoleValueAlias, Name: name}
	case KeyConfigurableField:
		return OutputField{Role: RoleConfigurableField, Name: name}
	default:
		return OutputField{Role: RolePassthrough, Source: key, Name: name}
	}
}

// Key returns the saved form of the field's role.
func (f OutputField) Key() string {
	switch f.Role {
	case RoleSerialNumber:
		return KeySerialNumber
	case RoleIndexAlias:
		return KeyIndexAlias
	case RoleValueAlias:
		return KeyValueAlias
	case RoleConfigurableField:
		return KeyConfigurableField
	default:
		return f.Source
	}
}

// OutputMap is the ordered list of output fields. Its order is the final
// column order. Keys are unique.
type OutputMap []OutputField

// Index returns the position of the field with the given key, or -1.
func (m OutputMap) Index(key string) int {
	for i, f := range m {
		if f.Key() == key {
			return i
		}
	}
	return -1
}

// Has reports whether the map contains a field for the role.
func (m OutputMap) Has(role OutputRole) bool {
	for _, f := range m {
		if f.Role == role {
			return true
		}
	}
	return false
}

// Set assigns name to key, keeping the entry's position when it exists and
// appending otherwise.
func (m OutputMap) Set(key, name string) OutputMap {
	if i := m.Index(key); i >= 0 {
		m[i].Name = name
		return m
	}
	return append(m, ParseOutputKey(key, name))
}

// Delete removes the entry for key.
func (m OutputMap) Delete(key string) OutputMap {
	i := m.Index(key)
	if i < 0 {
		return m
	}
	return append(m[:i:i], m[i+1:]...)
}

// Clone returns an independent copy.
func (m OutputMap) Clone() OutputMap {
	if m == nil {
		return nil
	}
	return append(OutputMap(nil), m...)
}

// Names returns the mapped output names in order.
func (m OutputMap) Names() []string {
	names := make([]string, len(m))
	for i, f := range m {
		names[i] = f.Name
	}
	return names
}

// MarshalJSON writes the map as a JSON object in field order.
func (m OutputMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key())
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping its key order.
func (m *OutputMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("output map: expected object, got %v", tok)
	}

	out := OutputMap{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("output map: expected string key, got %v", kt)
		}
		var name *string
		if err := dec.Decode(&name); err != nil {
			return fmt.Errorf("output map: value for %q: %w", key, err)
		}
		v := ""
		if name != nil {
			v = *name
		}
		out = out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// MarshalYAML writes the map as an ordered YAML mapping.
func (m OutputMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range m {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key()},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Name},
		)
	}
	return node, nil
}

// UnmarshalYAML reads an ordered YAML mapping.
func (m *OutputMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*m = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("output map: expected mapping at line %d", value.Line)
	}

	out := OutputMap{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		name := v.Value
		if v.Tag == "!!null" {
			name = ""
		}
		out = out.Set(k.Value, name)
	}
	*m = out
	return nil
}

// Rule is the reshape and output configuration for one conversion run.
// It is a plain value; callers rebuild it before each conversion.
type Rule struct {
	SelectedColumns     []string   `json:"selected_columns" yaml:"selected_columns"`
	IndexColumn         string     `json:"index_column" yaml:"index_column"`
	IndexAlias          string     `json:"index_alias" yaml:"index_alias"`
	ValueColumnAlias    string     `json:"value_column_alias" yaml:"value_column_alias"`
	OutputNameTemplate  string     `json:"output_name_template" yaml:"output_name_template"`
	ExpandMode          ExpandMode `json:"expand_mode" yaml:"expand_mode"`
	EnableSerialNumber  bool       `json:"enable_serial_number" yaml:"enable_serial_number"`
	EnableTrimAndPrefix bool       `json:"enable_trim_and_prefix" yaml:"enable_trim_and_prefix"`
	DataPrefix          string     `json:"data_prefix" yaml:"data_prefix"`
	GeneralOutputMap    OutputMap  `json:"general_output_map" yaml:"general_output_map"`
}

// DefaultRule returns a rule with the stock settings and no columns chosen.
func DefaultRule() Rule {
	return Rule{
		ValueColumnAlias:    DefaultValueAlias,
		OutputNameTemplate:  DefaultNameTemplate,
		ExpandMode:          IndexThenValue,
		EnableSerialNumber:  true,
		EnableTrimAndPrefix: true,
		DataPrefix:          DefaultDataPrefix,
	}
}

// IndexName is the output name of the index column.
func (r Rule) IndexName() string {
	if a := strings.TrimSpace(r.IndexAlias); a != "" {
		return a
	}
	return NormalizeColumnName(r.IndexColumn)
}

// ValueName is the output name of the origin-column field.
func (r Rule) ValueName() string {
	if a := strings.TrimSpace(r.ValueColumnAlias); a != "" {
		return a
	}
	return DefaultValueAlias
}

// NameTemplate returns the output file template, falling back to the default.
func (r Rule) NameTemplate() string {
	if t := strings.TrimSpace(r.OutputNameTemplate); t != "" {
		return t
	}
	return DefaultNameTemplate
}

// Clone returns a deep copy.
func (r Rule) Clone() Rule {
	c := r
	c.SelectedColumns = append([]string(nil), r.SelectedColumns...)
	c.GeneralOutputMap = r.GeneralOutputMap.Clone()
	return c
}
