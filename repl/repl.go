// Package repl runs SQL statements read from a console or a file against a Context and
// prints their results.
package repl

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/bearsql/sqlctx"
)

// ReplSQL runs each statement read from rr and renders its result to w. A failing
// statement is reported to w and does not stop the statements after it. ReplSQL returns
// when rr is exhausted or fails.
func ReplSQL(ctx context.Context, sc *sqlctx.Context, format sqlctx.Format, rr io.RuneReader,
	w io.Writer) error {

	sp := NewSplitter(rr)
	for {
		stmt, err := sp.Next()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		for res, err := range sc.SQL(ctx, format, stmt) {
			if err != nil {
				log.WithField("sql", stmt).Debug(err)
				fmt.Fprintln(w, err)
				continue
			}
			err = Render(w, res)
			res.Release()
			if err != nil {
				fmt.Fprintln(w, err)
			}
		}
	}
}
