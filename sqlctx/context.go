// Package sqlctx lets dataframes be queried with SQL by registering them as tables or
// views in an embedded DuckDB database.
//
// A Context owns one engine connection and remembers the most recently used table and
// view names:
//
//	sc, err := sqlctx.Open(ctx, sqlctx.Options{})
//	err = sc.RegisterTable(ctx, df, "people")
//	for res, err := range sc.SQL(ctx, sqlctx.DataFrame, "SELECT * FROM people") {
//		...
//	}
//	sc.Close()
//
// A Context is not safe for concurrent use.
package sqlctx

import (
	"context"
	"fmt"
	"iter"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/bearsql/engine"
)

const viewNameLength = 10

type Options struct {
	Table    string
	View     string
	Database string // Empty for a transient in-memory database.
	Logger   log.FieldLogger
}

type Context struct {
	conn  *engine.Conn
	table string
	view  string
	log   log.FieldLogger
}

// Open connects to the database named by opts.Database; a connection failure is returned
// as a *ConnectionError.
func Open(ctx context.Context, opts Options) (*Context, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	location := opts.Database
	if location == "" {
		location = engine.InMemory
	}
	conn, err := engine.Open(ctx, location, logger)
	if err != nil {
		return nil, &ConnectionError{Location: location, Err: err}
	}
	logger.WithField("database", location).Info("database created")

	return &Context{
		conn:  conn,
		table: opts.Table,
		view:  opts.View,
		log:   logger,
	}, nil
}

func (c *Context) Database() string {
	return c.conn.Location()
}

func (c *Context) Table() string {
	return c.table
}

func (c *Context) SetTable(table string) error {
	if table == "" {
		return &InvalidNameError{Kind: "table"}
	}
	c.log.WithField("table", table).Info("setting table name")
	c.table = table
	return nil
}

func (c *Context) View() string {
	return c.view
}

func (c *Context) SetView(view string) error {
	if view == "" {
		return &InvalidNameError{Kind: "view"}
	}
	c.log.WithField("view", view).Info("setting view name")
	c.view = view
	return nil
}

// randomName returns n random lowercase letters.
func randomName(n int) string {
	b := make([]byte, 0, n)
	for len(b) < n {
		id := uuid.New()
		for _, r := range id {
			if len(b) == n {
				break
			}
			b = append(b, 'a'+r%26)
		}
	}
	return string(b)
}

// RegisterTable creates the table (or the current table when table is empty) as a copy
// of df. The dataframe is first registered as the current view, which gets a random name
// if none was set.
func (c *Context) RegisterTable(ctx context.Context, df dataframe.DataFrame,
	table string) error {

	view := c.view
	if view == "" {
		view = randomName(viewNameLength)
	}
	if err := c.SetView(view); err != nil {
		return err
	}

	if table != "" {
		if err := c.SetTable(table); err != nil {
			return err
		}
	}
	if c.table == "" {
		return ErrNoTableName
	}

	c.log.WithField("table", c.table).Info("creating table")
	err := c.conn.Register(ctx, view, df)
	if err != nil {
		return &ExecutionError{Statement: fmt.Sprintf("register %s", view), Err: err}
	}

	stmt := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", pq.QuoteIdentifier(c.table),
		pq.QuoteIdentifier(view))
	err = c.conn.Exec(ctx, stmt)
	if err != nil {
		return &ExecutionError{Statement: stmt, Err: err}
	}
	c.log.WithField("table", c.table).Info("table created")
	return nil
}

// RegisterView makes df queryable as view, or as the current view when view is empty.
func (c *Context) RegisterView(ctx context.Context, df dataframe.DataFrame,
	view string) error {

	if view == "" {
		view = c.view
	}
	if view == "" {
		return ErrNoViewName
	}
	if err := c.SetView(view); err != nil {
		return err
	}

	err := c.conn.Register(ctx, view, df)
	if err != nil {
		return &ExecutionError{Statement: fmt.Sprintf("register %s", view), Err: err}
	}
	c.log.WithField("view", view).Info("view created")
	return nil
}

// SQL returns a sequence with one result per statement. Statements are executed lazily:
// each statement runs only when its result is pulled from the sequence, so the effects
// of a statement are visible to the next one. An execution failure is yielded as an
// *ExecutionError and ends the sequence; later statements are never executed.
func (c *Context) SQL(ctx context.Context, format Format,
	stmts ...string) iter.Seq2[*Result, error] {

	return func(yield func(*Result, error) bool) {
		c.log.WithField("statements", len(stmts)).Info("starting query execution")

		for _, stmt := range stmts {
			res, err := c.execute(ctx, format, stmt)
			if err != nil {
				yield(nil, &ExecutionError{Statement: stmt, Err: err})
				return
			}
			if !yield(res, nil) {
				return
			}
		}
	}
}

// Query is SQL with dataframe results.
func (c *Context) Query(ctx context.Context, stmts ...string) iter.Seq2[*Result, error] {
	return c.SQL(ctx, DataFrame, stmts...)
}

func (c *Context) execute(ctx context.Context, format Format, stmt string) (*Result, error) {
	c.log.WithFields(log.Fields{
		"sql":    stmt,
		"format": format,
	}).Info("executing")

	res := &Result{
		Statement: stmt,
		Format:    format,
	}

	switch format {
	case DataFrame:
		rows, err := c.conn.Query(ctx, stmt)
		if err != nil {
			return nil, err
		}
		df, err := rows.Frame()
		if err != nil {
			return nil, err
		}
		res.Frame = df
		res.Columns = rows.Columns
	case Columnar:
		tbl, err := c.conn.QueryArrow(ctx, stmt)
		if err != nil {
			return nil, err
		}
		res.Table = tbl
		for _, fld := range tbl.Schema().Fields() {
			res.Columns = append(res.Columns, fld.Name)
		}
	default:
		rows, err := c.conn.Query(ctx, stmt)
		if err != nil {
			return nil, err
		}
		res.Rows = rows.Values
		res.Columns = rows.Columns
	}
	return res, nil
}

func (c *Context) Close() error {
	c.log.WithField("database", c.conn.Location()).Info("closing")
	return c.conn.Close()
}
