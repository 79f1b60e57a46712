package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/fitglue/crm-pipeline/pkg/domain/failure"
	"github.com/fitglue/crm-pipeline/pkg/domain/mapping"
)

// putter is the subset of *bigquery.Inserter the writer needs.
type putter interface {
	Put(ctx context.Context, src interface{}) error
}

// RowWriter streams one mapped row per call into a fixed table.
type RowWriter struct {
	inserter putter
	dataset  string
	table    string
	dedupe   bool
}

// NewRowWriter targets projectID.dataset.table. When dedupe is set the
// record id is sent as the streaming insert id; otherwise each call is an
// independent append.
func NewRowWriter(client *bigquery.Client, dataset, table string, dedupe bool) *RowWriter {
	return &RowWriter{
		inserter: client.Dataset(dataset).Table(table).Inserter(),
		dataset:  dataset,
		table:    table,
		dedupe:   dedupe,
	}
}

// Target returns "dataset.table".
func (w *RowWriter) Target() string {
	return w.dataset + "." + w.table
}

// Insert appends row. Every error is reported as InsertRejected.
func (w *RowWriter) Insert(ctx context.Context, row mapping.Row) error {
	if err := w.inserter.Put(ctx, rowSaver{row: row, dedupe: w.dedupe}); err != nil {
		var multi bigquery.PutMultiError
		if errors.As(err, &multi) && len(multi) > 0 {
			return failure.New(failure.InsertRejected, fmt.Errorf("%s: %v", w.Target(), multi[0].Errors))
		}
		return failure.New(failure.InsertRejected, fmt.Errorf("%s: %w", w.Target(), err))
	}
	return nil
}

// rowSaver adapts mapping.Row to bigquery.ValueSaver.
type rowSaver struct {
	row    mapping.Row
	dedupe bool
}

func (s rowSaver) Save() (map[string]bigquery.Value, string, error) {
	values := make(map[string]bigquery.Value, len(s.row.Columns))
	for _, c := range s.row.Columns {
		values[c.Name] = c.Value
	}
	insertID := bigquery.NoDedupeID
	if s.dedupe && s.row.RecordID != "" {
		insertID = s.row.RecordID
	}
	return values, insertID, nil
}
