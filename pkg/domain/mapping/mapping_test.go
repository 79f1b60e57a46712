package mapping

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitglue/crm-pipeline/pkg/domain/failure"
)

func acmeRecord() map[string]any {
	return map[string]any{
		"Id":          "001xx000003DUM1AAG",
		"Name":        "Acme",
		"Industry":    "Tech",
		"Phone":       "555-0100",
		"CreatedDate": "2024-01-01T00:00:00Z",
		"Website":     "https://acme.example",
	}
}

func TestMap_DefaultTable(t *testing.T) {
	row, err := NewMapper(DefaultTable()).Map(acmeRecord())
	require.NoError(t, err)

	assert.Equal(t, "001xx000003DUM1AAG", row.RecordID)
	assert.Equal(t, []Column{
		{Name: "id", Value: "001xx000003DUM1AAG"},
		{Name: "name", Value: "Acme"},
		{Name: "industry", Value: "Tech"},
		{Name: "phone", Value: "555-0100"},
		{Name: "created_date", Value: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}, row.Columns)
	_, hasWebsite := row.Values()["website"]
	assert.False(t, hasWebsite, "unmapped fields must not leak into the row")
}

func TestMap_AbsentOptionalBecomesNull(t *testing.T) {
	rec := acmeRecord()
	delete(rec, "Industry")
	rec["Phone"] = nil

	row, err := NewMapper(DefaultTable()).Map(rec)
	require.NoError(t, err)

	values := row.Values()
	industry, ok := values["industry"]
	assert.True(t, ok)
	assert.Nil(t, industry)
	phone, ok := values["phone"]
	assert.True(t, ok)
	assert.Nil(t, phone)
	assert.Len(t, row.Columns, 5)
}

func TestMap_RequiredFieldMissing(t *testing.T) {
	for name, value := range map[string]any{"absent": nil, "blank": "  "} {
		t.Run(name, func(t *testing.T) {
			rec := acmeRecord()
			if value == nil {
				delete(rec, "Id")
			} else {
				rec["Id"] = value
			}

			row, err := NewMapper(DefaultTable()).Map(rec)
			require.Error(t, err)
			assert.Empty(t, row.Columns, "no partial row on failure")
			assert.ErrorIs(t, err, failure.ForField(failure.RequiredFieldMissing, "Id", nil))
		})
	}
}

func TestMap_InvalidTimestamp(t *testing.T) {
	rec := acmeRecord()
	rec["CreatedDate"] = "yesterday"

	_, err := NewMapper(DefaultTable()).Map(rec)
	assert.Equal(t, failure.InvalidFieldValue, failure.CodeOf(err))
}

func TestMap_Coercion(t *testing.T) {
	table := Table{
		{Field: "Id", Column: "id", Type: TypeString, Required: true},
		{Field: "NumberOfEmployees", Column: "employees", Type: TypeInteger},
		{Field: "AnnualRevenue", Column: "revenue", Type: TypeFloat},
		{Field: "IsActive__c", Column: "active", Type: TypeBoolean},
		{Field: "LastModifiedDate", Column: "modified_at", Type: TypeTimestamp},
		{Field: "BillingAddress", Column: "billing_address", Type: TypeString},
		{Field: "Score__c", Column: "score_text", Type: TypeString},
	}
	rec := map[string]any{
		"Id":                "001",
		"NumberOfEmployees": json.Number("120"),
		"AnnualRevenue":     json.Number("1500000.5"),
		"IsActive__c":       true,
		"LastModifiedDate":  "2024-03-05T10:15:30.000+0100",
		"BillingAddress":    map[string]any{"city": "Springfield"},
		"Score__c":          json.Number("7.5"),
	}

	row, err := NewMapper(table).Map(rec)
	require.NoError(t, err)

	values := row.Values()
	assert.Equal(t, int64(120), values["employees"])
	assert.Equal(t, 1500000.5, values["revenue"])
	assert.Equal(t, true, values["active"])
	assert.Equal(t, time.Date(2024, 3, 5, 9, 15, 30, 0, time.UTC), values["modified_at"])
	assert.Equal(t, `{"city":"Springfield"}`, values["billing_address"])
	assert.Equal(t, "7.5", values["score_text"])
}

func TestMap_IntegerRejectsFraction(t *testing.T) {
	table := Table{{Field: "Count", Column: "count", Type: TypeInteger}}
	_, err := NewMapper(table).Map(map[string]any{"Count": json.Number("1.5")})
	assert.Equal(t, failure.InvalidFieldValue, failure.CodeOf(err))
}

func TestMap_IntegerRejectsOverflow(t *testing.T) {
	table := Table{{Field: "Count", Column: "count", Type: TypeInteger}}
	for name, value := range map[string]any{
		"exponent":      json.Number("1e20"),
		"just past max": json.Number("9223372036854775808"),
		"float":         float64(1e19),
		"negative":      float64(-1e19),
	} {
		t.Run(name, func(t *testing.T) {
			row, err := NewMapper(table).Map(map[string]any{"Count": value})
			require.Error(t, err)
			assert.Empty(t, row.Columns)
			assert.ErrorIs(t, err, failure.ForField(failure.InvalidFieldValue, "Count", nil))
		})
	}
}

func TestMap_IntegerBounds(t *testing.T) {
	table := Table{{Field: "Count", Column: "count", Type: TypeInteger}}
	for value, want := range map[json.Number]int64{
		"9223372036854775807":  math.MaxInt64,
		"-9223372036854775808": math.MinInt64,
		"1e3":                  1000,
	} {
		row, err := NewMapper(table).Map(map[string]any{"Count": value})
		require.NoError(t, err, value)
		assert.Equal(t, want, row.Values()["count"], value)
	}
}

func TestParseTimestamp_Layouts(t *testing.T) {
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-01-01T00:00:00Z",
		"2024-01-01T00:00:00.000Z",
		"2024-01-01T00:00:00.000+0000",
		"2024-01-01T02:00:00+02:00",
		"2024-01-01",
	} {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
		assert.Equal(t, time.UTC, got.Location())
	}
}

func TestParseYAML(t *testing.T) {
	table, err := ParseYAML([]byte(`
columns:
  - field: Id
    column: account_id
    required: true
  - field: Name
    column: account_name
  - field: CreatedDate
    column: created_at
    type: timestamp
`))
	require.NoError(t, err)
	assert.Equal(t, Table{
		{Field: "Id", Column: "account_id", Type: TypeString, Required: true},
		{Field: "Name", Column: "account_name", Type: TypeString},
		{Field: "CreatedDate", Column: "created_at", Type: TypeTimestamp},
	}, table)
}

func TestParseJSON_BareArray(t *testing.T) {
	table, err := ParseJSON([]byte(`[{"field":"Id","column":"id","required":true}]`))
	require.NoError(t, err)
	assert.Equal(t, Table{{Field: "Id", Column: "id", Type: TypeString, Required: true}}, table)
}

func TestTableValidation(t *testing.T) {
	tests := map[string]string{
		"empty":          `[]`,
		"missing column": `[{"field":"Id"}]`,
		"duplicate":      `[{"field":"Id","column":"id"},{"field":"Name","column":"id"}]`,
		"unknown type":   `[{"field":"Id","column":"id","type":"geopoint"}]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJSON([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	table, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable(), table)

	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("columns:\n  - field: Id\n    column: id\n"), 0o644))
	table, err = Load(path, `[{"field":"ignored","column":"ignored"}]`)
	require.NoError(t, err)
	assert.Equal(t, "id", table[0].Column)

	table, err = Load("", `{"columns":[{"field":"Id","column":"record_id"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "record_id", table[0].Column)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}
