package repl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/leftmike/bearsql/sqlctx"
)

const (
	bearsqlHistory = ".bearsql_history"
)

type lineReader struct {
	line *liner.State
	r    *strings.Reader
}

func (lr *lineReader) ReadRune() (r rune, size int, err error) {
	for {
		if lr.r == nil {
			s, err := lr.line.Prompt("bearsql: ")
			if err != nil {
				return 0, 0, err
			}
			lr.line.AppendHistory(s)
			lr.r = strings.NewReader(s + "\n")
		}

		r, sz, err := lr.r.ReadRune()
		if err == io.EOF {
			lr.r = nil
		} else if err != nil {
			return 0, 0, err
		} else {
			return r, sz, nil
		}
	}
}

// Interact runs an interactive console session on the terminal until end of input.
// History is kept in .bearsql_history in the current directory.
func Interact(ctx context.Context, sc *sqlctx.Context, format sqlctx.Format) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(bearsqlHistory); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	err := ReplSQL(ctx, sc, format, &lineReader{line: line}, os.Stdout)
	if err == liner.ErrPromptAborted {
		err = nil
	}

	if f, ferr := os.Create(bearsqlHistory); ferr != nil {
		fmt.Fprintf(os.Stderr, "bearsql: error writing history file, %s: %s\n", bearsqlHistory,
			ferr)
	} else {
		line.WriteHistory(f)
		f.Close()
	}
	return err
}
