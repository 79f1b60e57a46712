// Package mapping turns a dynamic CRM field set into a typed analytical row.
//
// The dynamic map[string]any representation stops here: everything after
// Map works with Row and its typed column values.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fitglue/crm-pipeline/pkg/domain/failure"
)

// salesforceTimeLayout is the datetime format the CRM emits in REST payloads.
const salesforceTimeLayout = "2006-01-02T15:04:05.000-0700"

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	salesforceTimeLayout,
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

// Column is one typed cell. Value is nil, string, time.Time, int64,
// float64 or bool.
type Column struct {
	Name  string
	Value any
}

// Row is the mapped record, columns in table order.
type Row struct {
	RecordID string
	Columns  []Column
}

// Values returns the row as a column → value map.
func (r Row) Values() map[string]any {
	out := make(map[string]any, len(r.Columns))
	for _, c := range r.Columns {
		out[c.Name] = c.Value
	}
	return out
}

// Mapper applies a fixed Table. It is safe for concurrent use.
type Mapper struct {
	table Table
}

func NewMapper(table Table) *Mapper {
	return &Mapper{table: table}
}

// Map coerces record into a Row. A missing required field yields
// RequiredFieldMissing; a value of the wrong shape yields InvalidFieldValue.
// No partial row is ever returned alongside an error.
func (m *Mapper) Map(record map[string]any) (Row, error) {
	row := Row{Columns: make([]Column, 0, len(m.table))}
	if id, ok := record["Id"].(string); ok {
		row.RecordID = id
	}

	for _, rule := range m.table {
		raw, present := record[rule.Field]
		if !present || raw == nil || isBlank(raw) {
			if rule.Required {
				return Row{}, failure.ForField(failure.RequiredFieldMissing, rule.Field, nil)
			}
			row.Columns = append(row.Columns, Column{Name: rule.Column, Value: nil})
			continue
		}

		value, err := coerce(rule.Type, raw)
		if err != nil {
			return Row{}, failure.ForField(failure.InvalidFieldValue, rule.Field, err)
		}
		row.Columns = append(row.Columns, Column{Name: rule.Column, Value: value})
	}

	return row, nil
}

func isBlank(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func coerce(t ColumnType, raw any) (any, error) {
	switch t {
	case TypeString, "":
		return toString(raw)
	case TypeTimestamp:
		return toTimestamp(raw)
	case TypeInteger:
		return toInteger(raw)
	case TypeFloat:
		return toFloat(raw)
	case TypeBoolean:
		return toBoolean(raw)
	}
	return nil, fmt.Errorf("unknown column type %q", t)
}

func toString(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case map[string]any, []any:
		// Compound fields (addresses, geolocations) are stored as JSON text.
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return fmt.Sprint(raw), nil
}

// ParseTimestamp parses the CRM's datetime formats and normalizes to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func toTimestamp(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return ParseTimestamp(v)
	case time.Time:
		return v.UTC(), nil
	}
	return nil, fmt.Errorf("expected timestamp string, got %T", raw)
}

func toInteger(raw any) (any, error) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return integral(f)
	case float64:
		return integral(v)
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	}
	return nil, fmt.Errorf("expected integer, got %T", raw)
}

func integral(f float64) (any, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("%v is not an integer", f)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if f < math.MinInt64 || f >= float64(math.MaxInt64) {
		return nil, fmt.Errorf("%v overflows int64", f)
	}
	return int64(f), nil
}

func toFloat(raw any) (any, error) {
	switch v := raw.(type) {
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return nil, fmt.Errorf("expected number, got %T", raw)
}

func toBoolean(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	}
	return nil, errors.New("expected boolean")
}
