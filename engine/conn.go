package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/go-gota/gota/dataframe"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/marcboeker/go-duckdb"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/bearsql/frame"
)

const (
	// InMemory is the location of a transient, non-persistent database.
	InMemory = ":memory:"

	backingPrefix = "__bearsql_"
	scanPrefix    = "__bearsql_scan_"
)

// Conn is a single connection to an embedded DuckDB database. Views registered from
// dataframes are scoped to the connection, so every statement runs on the same
// pinned connection.
type Conn struct {
	location string
	db       *sqlx.DB
	conn     *sqlx.Conn
	log      log.FieldLogger
	scans    int
}

// Open opens a read-write connection to the database at location; an empty location or
// InMemory opens a transient in-memory database.
func Open(ctx context.Context, location string, logger log.FieldLogger) (*Conn, error) {
	if location == "" {
		location = InMemory
	}
	if logger == nil {
		logger = log.StandardLogger()
	}

	dsn := location
	if location == InMemory {
		dsn = ""
	}
	connector, err := duckdb.NewConnector(dsn, nil)
	if err != nil {
		return nil, err
	}

	db := sqlx.NewDb(sql.OpenDB(connector), "duckdb")
	db.SetMaxOpenConns(1)
	conn, err := db.Connx(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.WithField("location", location).Info("database opened")
	return &Conn{
		location: location,
		db:       db,
		conn:     conn,
		log:      logger,
	}, nil
}

func (c *Conn) Location() string {
	return c.location
}

func (c *Conn) Close() error {
	err := c.conn.Close()
	if dberr := c.db.Close(); err == nil {
		err = dberr
	}
	c.log.WithField("location", c.location).Info("database closed")
	return err
}

func (c *Conn) Exec(ctx context.Context, query string) error {
	c.log.WithField("sql", query).Debug("exec")
	_, err := c.conn.ExecContext(ctx, query)
	return err
}

// Query runs query and reads all of its rows.
func (c *Conn) Query(ctx context.Context, query string) (*frame.Rows, error) {
	c.log.WithField("sql", query).Debug("query")

	rows, err := c.conn.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return frame.ReadRows(rows)
}

func (c *Conn) raw(fn func(dc driver.Conn, ar *duckdb.Arrow) error) error {
	return c.conn.Raw(
		func(driverConn any) error {
			dc, ok := driverConn.(driver.Conn)
			if !ok {
				return fmt.Errorf("engine: unexpected driver connection %T", driverConn)
			}
			ar, err := duckdb.NewArrowFromConn(dc)
			if err != nil {
				return err
			}
			return fn(dc, ar)
		})
}

// QueryArrow runs query and returns its result as an Arrow table. The caller must
// release the table.
func (c *Conn) QueryArrow(ctx context.Context, query string) (arrow.Table, error) {
	c.log.WithField("sql", query).Debug("query arrow")

	var tbl arrow.Table
	err := c.raw(
		func(_ driver.Conn, ar *duckdb.Arrow) error {
			rdr, err := ar.QueryContext(ctx, query)
			if err != nil {
				return err
			}
			defer rdr.Release()

			var recs []arrow.Record
			defer func() {
				for _, rec := range recs {
					rec.Release()
				}
			}()
			for rdr.Next() {
				rec := rdr.Record()
				rec.Retain()
				recs = append(recs, rec)
			}
			if err := rdr.Err(); err != nil {
				return err
			}

			tbl = array.NewTableFromRecords(rdr.Schema(), recs)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return tbl, nil
}

// Register makes df queryable as the view name. The rows are copied once through an
// Arrow scan into a temporary backing table; the view is replaced if it already exists.
// Both the view and its backing table go away when the connection is closed.
func (c *Conn) Register(ctx context.Context, name string, df dataframe.DataFrame) error {
	rdr, err := frame.Reader(df, nil)
	if err != nil {
		return err
	}
	defer rdr.Release()

	c.scans += 1
	scan := fmt.Sprintf("%s%d", scanPrefix, c.scans)
	backing := pq.QuoteIdentifier(backingPrefix + name)

	err = c.raw(
		func(dc driver.Conn, ar *duckdb.Arrow) error {
			release, err := ar.RegisterView(rdr, scan)
			if err != nil {
				return err
			}
			defer release()

			execer, ok := dc.(driver.ExecerContext)
			if !ok {
				return fmt.Errorf("engine: driver connection %T can not exec", dc)
			}
			stmts := []string{
				fmt.Sprintf("CREATE OR REPLACE TEMP TABLE %s AS SELECT * FROM %s", backing,
					pq.QuoteIdentifier(scan)),
				fmt.Sprintf("DROP VIEW IF EXISTS %s", pq.QuoteIdentifier(scan)),
				fmt.Sprintf("CREATE OR REPLACE TEMP VIEW %s AS SELECT * FROM %s",
					pq.QuoteIdentifier(name), backing),
			}
			for _, stmt := range stmts {
				c.log.WithField("sql", stmt).Debug("register")
				_, err = execer.ExecContext(ctx, stmt, nil)
				if err != nil {
					return err
				}
			}
			return nil
		})
	if err != nil {
		return err
	}

	c.log.WithFields(log.Fields{
		"view":    name,
		"rows":    df.Nrow(),
		"columns": df.Ncol(),
	}).Info("dataframe registered")
	return nil
}

// Unregister drops a view created by Register along with its backing table.
func (c *Conn) Unregister(ctx context.Context, name string) error {
	err := c.Exec(ctx, fmt.Sprintf("DROP VIEW IF EXISTS %s", pq.QuoteIdentifier(name)))
	if err != nil {
		return err
	}
	return c.Exec(ctx,
		fmt.Sprintf("DROP TABLE IF EXISTS %s", pq.QuoteIdentifier(backingPrefix+name)))
}
