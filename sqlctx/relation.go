package sqlctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Relation is a query over a dataframe that is built up step by step and run when it is
// materialized. Relations are immutable: every method returns a new Relation.
type Relation struct {
	sc      *Context
	alias   string
	columns []string
	where   []string
	order   string
	limit   int
}

// Relation exposes df to the engine under the alias table, or under a generated
// table_<n> alias when table is empty, and makes the alias the current table. The alias
// is a temporary view, so later statements can select from it, but it is not added to
// the persistent catalog and does not change the current view.
func (c *Context) Relation(ctx context.Context, df dataframe.DataFrame,
	table string) (*Relation, error) {

	if table == "" {
		table = fmt.Sprintf("table_%d", uuid.New().ID())
	}
	if err := c.SetTable(table); err != nil {
		return nil, err
	}

	err := c.conn.Register(ctx, table, df)
	if err != nil {
		return nil, &ExecutionError{Statement: fmt.Sprintf("register %s", table), Err: err}
	}
	c.log.WithField("alias", table).Info("relation created")

	return &Relation{
		sc:    c,
		alias: table,
	}, nil
}

func (r *Relation) Alias() string {
	return r.alias
}

func (r *Relation) clone() *Relation {
	nr := *r
	nr.columns = append([]string(nil), r.columns...)
	nr.where = append([]string(nil), r.where...)
	return &nr
}

// Filter keeps the rows for which the SQL predicate is true. Multiple filters are
// combined with AND.
func (r *Relation) Filter(predicate string) *Relation {
	nr := r.clone()
	nr.where = append(nr.where, predicate)
	return nr
}

// Project keeps only the listed column expressions, in order.
func (r *Relation) Project(columns ...string) *Relation {
	nr := r.clone()
	nr.columns = append([]string(nil), columns...)
	return nr
}

// Order sorts the rows by the SQL expression.
func (r *Relation) Order(expr string) *Relation {
	nr := r.clone()
	nr.order = expr
	return nr
}

// Limit keeps at most n rows; n <= 0 removes the limit.
func (r *Relation) Limit(n int) *Relation {
	nr := r.clone()
	nr.limit = n
	return nr
}

// SQL returns the SELECT statement for the relation.
func (r *Relation) SQL() string {
	var b strings.Builder

	b.WriteString("SELECT ")
	if len(r.columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(r.columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(pq.QuoteIdentifier(r.alias))

	for wdx, pred := range r.where {
		if wdx == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "(%s)", pred)
	}
	if r.order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(r.order)
	}
	if r.limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", r.limit)
	}
	return b.String()
}

func (r *Relation) run(ctx context.Context, format Format) (*Result, error) {
	for res, err := range r.sc.SQL(ctx, format, r.SQL()) {
		return res, err
	}
	return nil, &ExecutionError{Statement: r.SQL(), Err: errNoResult}
}

func (r *Relation) DataFrame(ctx context.Context) (dataframe.DataFrame, error) {
	res, err := r.run(ctx, DataFrame)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return res.Frame, nil
}

// Arrow returns the relation as an Arrow table; the caller must release it.
func (r *Relation) Arrow(ctx context.Context) (arrow.Table, error) {
	res, err := r.run(ctx, Columnar)
	if err != nil {
		return nil, err
	}
	return res.Table, nil
}

func (r *Relation) Rows(ctx context.Context) ([][]any, error) {
	res, err := r.run(ctx, Rows)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Create materializes the relation as the new table.
func (r *Relation) Create(ctx context.Context, table string) error {
	if table == "" {
		return &InvalidNameError{Kind: "table"}
	}

	stmt := fmt.Sprintf("CREATE TABLE %s AS %s", pq.QuoteIdentifier(table), r.SQL())
	err := r.sc.conn.Exec(ctx, stmt)
	if err != nil {
		return &ExecutionError{Statement: stmt, Err: err}
	}
	return nil
}
