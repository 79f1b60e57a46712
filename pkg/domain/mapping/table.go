package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ColumnType is the analytical column type a field is coerced into.
type ColumnType string

const (
	TypeString    ColumnType = "string"
	TypeTimestamp ColumnType = "timestamp"
	TypeInteger   ColumnType = "integer"
	TypeFloat     ColumnType = "float"
	TypeBoolean   ColumnType = "boolean"
)

// Rule maps one CRM field onto one analytical column.
type Rule struct {
	Field    string     `json:"field" yaml:"field"`
	Column   string     `json:"column" yaml:"column"`
	Type     ColumnType `json:"type,omitempty" yaml:"type,omitempty"`
	Required bool       `json:"required,omitempty" yaml:"required,omitempty"`
}

// Table is the ordered list of rules; row columns follow this order.
type Table []Rule

// DefaultTable mirrors the stock Account export schema.
func DefaultTable() Table {
	return Table{
		{Field: "Id", Column: "id", Type: TypeString, Required: true},
		{Field: "Name", Column: "name", Type: TypeString},
		{Field: "Industry", Column: "industry", Type: TypeString},
		{Field: "Phone", Column: "phone", Type: TypeString},
		{Field: "CreatedDate", Column: "created_date", Type: TypeTimestamp},
	}
}

type tableFile struct {
	Columns Table `json:"columns" yaml:"columns"`
}

// ParseYAML reads a table from a document of the form
//
//	columns:
//	  - field: Id
//	    column: id
//	    required: true
func ParseYAML(data []byte) (Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse mapping yaml: %w", err)
	}
	return f.Columns.normalized()
}

// ParseJSON accepts either {"columns": [...]} or a bare rule array.
func ParseJSON(data []byte) (Table, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var t Table
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse mapping json: %w", err)
		}
		return t.normalized()
	}
	var f tableFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse mapping json: %w", err)
	}
	return f.Columns.normalized()
}

// Load resolves the table from a YAML file path, inline JSON, or the default.
func Load(path, inlineJSON string) (Table, error) {
	switch {
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read mapping file: %w", err)
		}
		if strings.HasSuffix(path, ".json") {
			return ParseJSON(data)
		}
		return ParseYAML(data)
	case inlineJSON != "":
		return ParseJSON([]byte(inlineJSON))
	}
	return DefaultTable(), nil
}

// normalized defaults missing types to string and validates the table.
func (t Table) normalized() (Table, error) {
	if len(t) == 0 {
		return nil, fmt.Errorf("mapping table has no columns")
	}
	out := make(Table, len(t))
	seen := make(map[string]bool, len(t))
	for i, r := range t {
		if r.Field == "" || r.Column == "" {
			return nil, fmt.Errorf("mapping rule %d: field and column are required", i)
		}
		if seen[r.Column] {
			return nil, fmt.Errorf("mapping rule %d: duplicate column %q", i, r.Column)
		}
		seen[r.Column] = true
		if r.Type == "" {
			r.Type = TypeString
		}
		switch r.Type {
		case TypeString, TypeTimestamp, TypeInteger, TypeFloat, TypeBoolean:
		default:
			return nil, fmt.Errorf("mapping rule %d: unknown type %q", i, r.Type)
		}
		out[i] = r
	}
	return out, nil
}
