package frame

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/jmoiron/sqlx"
)

// Rows is a fully materialized SQL result.
type Rows struct {
	Columns []string
	Types   []string // Database type names.
	Values  [][]any
}

// ReadRows reads and closes rows.
func ReadRows(rows *sqlx.Rows) (*Rows, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	types := make([]string, len(cts))
	for cdx, ct := range cts {
		types[cdx] = ct.DatabaseTypeName()
	}

	values := [][]any{}
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		values = append(values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Rows{
		Columns: cols,
		Types:   types,
		Values:  values,
	}, nil
}

// ColumnTypes maps the database types of the columns to dataframe column types.
func (r *Rows) ColumnTypes() []series.Type {
	types := make([]series.Type, len(r.Types))
	for tdx, t := range r.Types {
		types[tdx] = ColumnType(t)
	}
	return types
}

func (r *Rows) Frame() (dataframe.DataFrame, error) {
	return FromRows(r.Columns, r.ColumnTypes(), r.Values)
}
