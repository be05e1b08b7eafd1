package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leftmike/bearsql/repl"
	"github.com/leftmike/bearsql/sqlctx"
)

func newQueryCmd(b *bearsql) *cobra.Command {
	return &cobra.Command{
		Use:   "query sql...",
		Short: "Run SQL statements and print their results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return b.queryRun(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}
}

func (b *bearsql) queryRun(ctx context.Context, w io.Writer, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var stmts []string
	sp := repl.NewSplitter(strings.NewReader(strings.Join(args, ";\n")))
	for {
		stmt, err := sp.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		stmts = append(stmts, stmt)
	}

	sc, err := b.openContext(ctx)
	if err != nil {
		return fmt.Errorf("bearsql: %s", err)
	}
	defer sc.Close()

	for res, err := range sc.SQL(ctx, sqlctx.Format(b.output), stmts...) {
		if err != nil {
			return fmt.Errorf("bearsql: %s", err)
		}
		err = repl.Render(w, res)
		res.Release()
		if err != nil {
			return fmt.Errorf("bearsql: %s", err)
		}
	}
	return nil
}
