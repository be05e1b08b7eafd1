package sqlctx

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/go-gota/gota/dataframe"
)

// Format selects how each statement's result is materialized.
type Format string

const (
	DataFrame Format = "dataframe"
	Columnar  Format = "columnar"
	Rows      Format = "rows"
)

// Result is the result of one statement. Exactly one of Frame, Table, or Rows is
// populated, depending on Format: DataFrame fills Frame, Columnar fills Table, and
// every other format fills Rows. Columns are the names returned by the engine; the
// column names of Frame are made unique, so duplicate names get _0, _1 suffixes there.
type Result struct {
	Statement string
	Format    Format
	Columns   []string

	Frame dataframe.DataFrame
	Table arrow.Table
	Rows  [][]any
}

// Release frees the memory held by a columnar result.
func (r *Result) Release() {
	if r.Table != nil {
		r.Table.Release()
		r.Table = nil
	}
}

func (r *Result) NumRows() int {
	switch {
	case r.Table != nil:
		return int(r.Table.NumRows())
	case r.Format == DataFrame:
		return r.Frame.Nrow()
	}
	return len(r.Rows)
}
