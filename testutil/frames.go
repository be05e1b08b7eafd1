package testutil

import (
	"strings"

	"github.com/andreyvit/diff"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// People returns the two row dataframe used throughout the tests.
func People() dataframe.DataFrame {
	return dataframe.New(
		series.New([]string{"John Doe", "Jane Doe"}, series.String, "name"),
		series.New([]string{"New York", "Chicago"}, series.String, "city"),
	)
}

// Scores returns a dataframe with one column of each supported type, including a
// missing value.
func Scores() dataframe.DataFrame {
	return dataframe.New(
		series.New([]string{"ann", "bob", "cid"}, series.String, "player"),
		series.New([]interface{}{7, 3, nil}, series.Int, "games"),
		series.New([]float64{1.5, 2.25, -4}, series.Float, "score"),
		series.New([]bool{true, false, true}, series.Bool, "active"),
	)
}

// FormatFrame renders df as text: a line of column names, a line of column types, and
// one line per row.
func FormatFrame(df dataframe.DataFrame) string {
	var b strings.Builder

	types := df.Types()
	ts := make([]string, len(types))
	for tdx, t := range types {
		ts[tdx] = string(t)
	}

	b.WriteString(strings.Join(df.Names(), "|"))
	b.WriteByte('\n')
	b.WriteString(strings.Join(ts, "|"))
	b.WriteByte('\n')

	for rdx := 0; rdx < df.Nrow(); rdx++ {
		for cdx := 0; cdx < df.Ncol(); cdx++ {
			if cdx > 0 {
				b.WriteByte('|')
			}
			e := df.Elem(rdx, cdx)
			if e.IsNA() {
				b.WriteString("NULL")
			} else {
				b.WriteString(e.String())
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// DiffFrames returns "" if got and want have the same columns, types, and values, and
// a line diff of the two otherwise.
func DiffFrames(got, want dataframe.DataFrame) string {
	g := FormatFrame(got)
	w := FormatFrame(want)
	if g == w {
		return ""
	}
	return diff.LineDiff(w, g)
}
