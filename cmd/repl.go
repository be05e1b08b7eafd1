package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leftmike/bearsql/repl"
	"github.com/leftmike/bearsql/sqlctx"
)

func newReplCmd(b *bearsql) *cobra.Command {
	return &cobra.Command{
		Use:   "repl [file...]",
		Short: "Run statements from files, or with an interactive console session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return b.replRun(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}
}

func (b *bearsql) replRun(ctx context.Context, w io.Writer, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sc, err := b.openContext(ctx)
	if err != nil {
		return fmt.Errorf("bearsql: %s", err)
	}
	defer sc.Close()

	format := sqlctx.Format(b.output)
	if len(args) == 0 {
		return repl.Interact(ctx, sc, format)
	}

	for _, arg := range args {
		f, err := os.Open(arg)
		if err != nil {
			return fmt.Errorf("bearsql: %s", err)
		}
		err = repl.ReplSQL(ctx, sc, format, bufio.NewReader(f), w)
		f.Close()
		if err != nil {
			return fmt.Errorf("bearsql: %s: %s", arg, err)
		}
	}
	return nil
}
