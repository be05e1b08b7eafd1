package repl

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/go-gota/gota/series"
	"github.com/olekukonko/tablewriter"

	"github.com/leftmike/bearsql/frame"
	"github.com/leftmike/bearsql/sqlctx"
)

const null = "NULL"

// Render writes res to w as a table followed by a row count.
func Render(w io.Writer, res *sqlctx.Result) error {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader(res.Columns)

	switch {
	case res.Table != nil:
		tr := array.NewTableReader(res.Table, 0)
		defer tr.Release()

		for tr.Next() {
			rec := tr.Record()
			for rdx := 0; rdx < int(rec.NumRows()); rdx += 1 {
				row := make([]string, rec.NumCols())
				for cdx, col := range rec.Columns() {
					if col.IsNull(rdx) {
						row[cdx] = null
					} else {
						row[cdx] = col.ValueStr(rdx)
					}
				}
				tw.Append(row)
			}
		}
		if err := tr.Err(); err != nil {
			return err
		}
	case res.Format == sqlctx.DataFrame:
		df := res.Frame
		for rdx := 0; rdx < df.Nrow(); rdx += 1 {
			row := make([]string, df.Ncol())
			for cdx := range row {
				e := df.Elem(rdx, cdx)
				if e.IsNA() {
					row[cdx] = null
				} else {
					row[cdx] = e.String()
				}
			}
			tw.Append(row)
		}
	default:
		for _, vals := range res.Rows {
			row := make([]string, len(vals))
			for cdx, v := range vals {
				if v == nil {
					row[cdx] = null
					continue
				}
				s, err := frame.Normalize(v, series.String)
				if err != nil {
					return err
				}
				row[cdx] = s.(string)
			}
			tw.Append(row)
		}
	}

	tw.Render()
	fmt.Fprintf(w, "(%d rows)\n", tw.NumLines())
	return nil
}
