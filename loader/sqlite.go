package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/leftmike/bearsql/frame"
)

// SQLite reads all rows of table from the SQLite database at path. Column types come
// from the declared types of the table.
func SQLite(ctx context.Context, path, table string) (dataframe.DataFrame, error) {
	// Opening a missing database would create it.
	if _, err := os.Stat(path); err != nil {
		return dataframe.DataFrame{}, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer db.Close()

	rows, err := db.QueryxContext(ctx, "SELECT * FROM "+pq.QuoteIdentifier(table))
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("loader: %s#%s: %s", path, table, err)
	}
	r, err := frame.ReadRows(rows)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("loader: %s#%s: %s", path, table, err)
	}
	return r.Frame()
}
