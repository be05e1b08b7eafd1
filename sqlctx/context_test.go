package sqlctx_test

import (
	"context"
	"errors"
	"flag"
	"iter"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/leftmike/bearsql/sqlctx"
	"github.com/leftmike/bearsql/testutil"
)

func TestMain(m *testing.M) {
	flag.Parse()
	testutil.SetupLogger()
	os.Exit(m.Run())
}

func openContext(t *testing.T, opts sqlctx.Options) *sqlctx.Context {
	t.Helper()

	sc, err := sqlctx.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open(%#v) failed with %s", opts, err)
	}
	t.Cleanup(func() {
		sc.Close()
	})
	return sc
}

func collect(t *testing.T, seq iter.Seq2[*sqlctx.Result, error]) []*sqlctx.Result {
	t.Helper()

	var results []*sqlctx.Result
	for res, err := range seq {
		if err != nil {
			t.Fatalf("SQL() failed with %s", err)
		}
		results = append(results, res)
	}
	return results
}

func TestTableName(t *testing.T) {
	sc := openContext(t, sqlctx.Options{})

	if sc.Table() != "" {
		t.Errorf("Table() got %q want \"\"", sc.Table())
	}

	for _, n := range []string{"t1", "people", "Mixed_Case", "t1"} {
		err := sc.SetTable(n)
		if err != nil {
			t.Errorf("SetTable(%q) failed with %s", n, err)
		} else if sc.Table() != n {
			t.Errorf("SetTable(%q): Table() got %q", n, sc.Table())
		}
	}

	err := sc.SetTable("")
	var ine *sqlctx.InvalidNameError
	if !errors.As(err, &ine) {
		t.Errorf("SetTable(\"\") got %v want InvalidNameError", err)
	} else if ine.Kind != "table" {
		t.Errorf("SetTable(\"\") got kind %q want \"table\"", ine.Kind)
	}
	if sc.Table() != "t1" {
		t.Errorf("SetTable(\"\"): Table() got %q want \"t1\"", sc.Table())
	}
}

func TestViewName(t *testing.T) {
	sc := openContext(t, sqlctx.Options{Table: "tbl", View: "vw"})

	if sc.Table() != "tbl" {
		t.Errorf("Table() got %q want \"tbl\"", sc.Table())
	}
	if sc.View() != "vw" {
		t.Errorf("View() got %q want \"vw\"", sc.View())
	}

	err := sc.SetView("other")
	if err != nil {
		t.Errorf("SetView(\"other\") failed with %s", err)
	} else if sc.View() != "other" {
		t.Errorf("SetView(\"other\"): View() got %q", sc.View())
	}

	err = sc.SetView("")
	var ine *sqlctx.InvalidNameError
	if !errors.As(err, &ine) || ine.Kind != "view" {
		t.Errorf("SetView(\"\") got %v want InvalidNameError for view", err)
	}
	if sc.View() != "other" {
		t.Errorf("SetView(\"\"): View() got %q want \"other\"", sc.View())
	}
	if sc.Database() != ":memory:" {
		t.Errorf("Database() got %q want \":memory:\"", sc.Database())
	}
}

func TestRegisterTable(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})
	df := testutil.People()

	err := sc.RegisterTable(ctx, df, "testable")
	if err != nil {
		t.Fatalf("RegisterTable(testable) failed with %s", err)
	}
	if sc.Table() != "testable" {
		t.Errorf("RegisterTable(testable): Table() got %q", sc.Table())
	}

	view := sc.View()
	if len(view) != 10 {
		t.Errorf("RegisterTable(testable): View() got %q want 10 letters", view)
	}
	for _, r := range view {
		if r < 'a' || r > 'z' {
			t.Errorf("RegisterTable(testable): View() got %q want lowercase letters", view)
			break
		}
	}

	results := collect(t, sc.SQL(ctx, sqlctx.DataFrame, "select * from testable"))
	if len(results) != 1 {
		t.Fatalf("SQL(select * from testable) got %d results want 1", len(results))
	}
	if d := testutil.DiffFrames(results[0].Frame, df); d != "" {
		t.Errorf("SQL(select * from testable) got diff\n%s", d)
	}

	results = collect(t, sc.Query(ctx, "SELECT * FROM "+view))
	if d := testutil.DiffFrames(results[0].Frame, df); d != "" {
		t.Errorf("Query(select * from %s) got diff\n%s", view, d)
	}
}

func TestRegisterTableTypes(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{Table: "scores", View: "scores_view"})
	df := testutil.Scores()

	err := sc.RegisterTable(ctx, df, "")
	if err != nil {
		t.Fatalf("RegisterTable() failed with %s", err)
	}
	if sc.View() != "scores_view" {
		t.Errorf("RegisterTable(): View() got %q want \"scores_view\"", sc.View())
	}

	results := collect(t, sc.Query(ctx, "SELECT * FROM scores"))
	if d := testutil.DiffFrames(results[0].Frame, df); d != "" {
		t.Errorf("Query(SELECT * FROM scores) got diff\n%s", d)
	}

	results = collect(t, sc.SQL(ctx, sqlctx.Rows,
		"SELECT player, games FROM scores WHERE games IS NULL"))
	want := [][]any{{"cid", nil}}
	if !reflect.DeepEqual(results[0].Rows, want) {
		t.Errorf("SQL(games IS NULL) got %v want %v", results[0].Rows, want)
	}
}

func TestRegisterTableNoName(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})

	err := sc.RegisterTable(ctx, testutil.People(), "")
	if err != sqlctx.ErrNoTableName {
		t.Errorf("RegisterTable() got %v want %v", err, sqlctx.ErrNoTableName)
	}
	if sc.Table() != "" {
		t.Errorf("RegisterTable(): Table() got %q want \"\"", sc.Table())
	}
}

func TestRegisterTableExists(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})

	err := sc.RegisterTable(ctx, testutil.People(), "twice")
	if err != nil {
		t.Fatalf("RegisterTable(twice) failed with %s", err)
	}
	err = sc.RegisterTable(ctx, testutil.People(), "twice")
	var ee *sqlctx.ExecutionError
	if !errors.As(err, &ee) {
		t.Errorf("RegisterTable(twice) again got %v want ExecutionError", err)
	}
}

func TestRegisterView(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})
	df := testutil.People()

	err := sc.RegisterView(ctx, df, "testview")
	if err != nil {
		t.Fatalf("RegisterView(testview) failed with %s", err)
	}
	if sc.View() != "testview" {
		t.Errorf("RegisterView(testview): View() got %q", sc.View())
	}

	results := collect(t, sc.Query(ctx, "select * from testview"))
	if d := testutil.DiffFrames(results[0].Frame, df); d != "" {
		t.Errorf("Query(select * from testview) got diff\n%s", d)
	}

	// The view can be read more than once and is replaced by a new registration.
	results = collect(t, sc.SQL(ctx, sqlctx.Rows, "select count(*) from testview"))
	if !reflect.DeepEqual(results[0].Rows, [][]any{{int64(2)}}) {
		t.Errorf("SQL(select count(*) from testview) got %v", results[0].Rows)
	}

	err = sc.RegisterView(ctx, testutil.Scores(), "")
	if err != nil {
		t.Fatalf("RegisterView() failed with %s", err)
	}
	results = collect(t, sc.Query(ctx, "select * from testview"))
	if d := testutil.DiffFrames(results[0].Frame, testutil.Scores()); d != "" {
		t.Errorf("Query(select * from testview) got diff\n%s", d)
	}
}

func TestRegisterViewNoName(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})

	err := sc.RegisterView(ctx, testutil.People(), "")
	if err != sqlctx.ErrNoViewName {
		t.Errorf("RegisterView() got %v want %v", err, sqlctx.ErrNoViewName)
	}
	if sc.View() != "" {
		t.Errorf("RegisterView(): View() got %q want \"\"", sc.View())
	}

	results := collect(t, sc.SQL(ctx, sqlctx.Rows,
		"SELECT count(*) FROM duckdb_views() WHERE NOT internal"))
	if !reflect.DeepEqual(results[0].Rows, [][]any{{int64(0)}}) {
		t.Errorf("RegisterView(): got views %v want none", results[0].Rows)
	}
}

func TestColumnar(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})
	df := testutil.People()

	err := sc.RegisterTable(ctx, df, "testable")
	if err != nil {
		t.Fatalf("RegisterTable(testable) failed with %s", err)
	}

	results := collect(t, sc.SQL(ctx, sqlctx.Columnar, "select * from testable"))
	res := results[0]
	defer res.Release()

	tbl := res.Table
	if tbl == nil {
		t.Fatal("SQL(columnar) got nil table")
	}
	if tbl.NumRows() != 2 || tbl.NumCols() != 2 {
		t.Fatalf("SQL(columnar) got %d rows and %d columns want 2 and 2", tbl.NumRows(),
			tbl.NumCols())
	}
	if !reflect.DeepEqual(res.Columns, []string{"name", "city"}) {
		t.Errorf("SQL(columnar) got columns %v", res.Columns)
	}

	for cdx := 0; cdx < int(tbl.NumCols()); cdx++ {
		name := tbl.Schema().Field(cdx).Name
		var got []string
		for _, chunk := range tbl.Column(cdx).Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				got = append(got, chunk.ValueStr(i))
			}
		}
		want := df.Col(name).Records()
		if !reflect.DeepEqual(got, want) {
			t.Errorf("SQL(columnar): column %s got %v want %v", name, got, want)
		}
	}
	if res.NumRows() != 2 {
		t.Errorf("NumRows() got %d want 2", res.NumRows())
	}
}

func TestRowsFallback(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})

	err := sc.RegisterTable(ctx, testutil.People(), "testable")
	if err != nil {
		t.Fatalf("RegisterTable(testable) failed with %s", err)
	}

	want := [][]any{{"John Doe", "New York"}, {"Jane Doe", "Chicago"}}
	for _, f := range []sqlctx.Format{sqlctx.Rows, "any", "arrow", "df", ""} {
		results := collect(t, sc.SQL(ctx, f, "select * from testable"))
		if len(results) != 1 {
			t.Errorf("SQL(%q) got %d results want 1", f, len(results))
			continue
		}
		if !reflect.DeepEqual(results[0].Rows, want) {
			t.Errorf("SQL(%q) got %v want %v", f, results[0].Rows, want)
		}
		if results[0].Table != nil {
			t.Errorf("SQL(%q) got a columnar table", f)
		}
	}
}

func TestLazySQL(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})

	stmts := []string{
		"CREATE TABLE lazy (x INTEGER)",
		"INSERT INTO lazy VALUES (1), (2)",
		"SELECT x FROM lazy ORDER BY x",
	}
	next, stop := iter.Pull2(sc.SQL(ctx, sqlctx.Rows, stmts...))
	defer stop()

	_, err, ok := next()
	if !ok || err != nil {
		t.Fatalf("SQL(%v): first result got %v, %v", stmts, ok, err)
	}

	// The insert has not run yet.
	results := collect(t, sc.SQL(ctx, sqlctx.Rows, "SELECT count(*) FROM lazy"))
	if !reflect.DeepEqual(results[0].Rows, [][]any{{int64(0)}}) {
		t.Errorf("SQL(%v): after first result got count %v want 0", stmts, results[0].Rows)
	}

	_, err, ok = next()
	if !ok || err != nil {
		t.Fatalf("SQL(%v): second result got %v, %v", stmts, ok, err)
	}
	res, err, ok := next()
	if !ok || err != nil {
		t.Fatalf("SQL(%v): third result got %v, %v", stmts, ok, err)
	}
	want := [][]any{{int32(1)}, {int32(2)}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Errorf("SQL(%v) got %v want %v", stmts, res.Rows, want)
	}
	if _, _, ok = next(); ok {
		t.Errorf("SQL(%v) got more than %d results", stmts, len(stmts))
	}
}

func TestSQLInOrder(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})

	err := sc.RegisterTable(ctx, testutil.People(), "t1")
	if err != nil {
		t.Fatalf("RegisterTable(t1) failed with %s", err)
	}

	results := collect(t, sc.SQL(ctx, sqlctx.DataFrame,
		"CREATE TABLE t2 AS SELECT * FROM t1 WHERE city = 'Chicago'",
		"SELECT name FROM t2",
		"SELECT count(*) AS n FROM t1"))
	if len(results) != 3 {
		t.Fatalf("SQL() got %d results want 3", len(results))
	}
	if got := results[1].Frame.Col("name").Records(); !reflect.DeepEqual(got,
		[]string{"Jane Doe"}) {

		t.Errorf("SQL(SELECT name FROM t2) got %v", got)
	}
	if got := results[2].Frame.Col("n").Records(); !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("SQL(SELECT count(*) AS n FROM t1) got %v", got)
	}
}

func TestSQLError(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})

	seq := sc.SQL(ctx, sqlctx.Rows,
		"CREATE TABLE before_error (x INTEGER)",
		"SELECT * FROM missing_table",
		"CREATE TABLE after_error (x INTEGER)")

	var cnt int
	var ee *sqlctx.ExecutionError
	for res, err := range seq {
		cnt += 1
		if cnt == 1 && err != nil {
			t.Fatalf("SQL(): first result failed with %s", err)
		}
		if cnt == 2 {
			if res != nil || !errors.As(err, &ee) {
				t.Errorf("SQL(): second result got %v, %v want ExecutionError", res, err)
			} else if ee.Statement != "SELECT * FROM missing_table" {
				t.Errorf("SQL(): got statement %q", ee.Statement)
			}
		}
	}
	if cnt != 2 {
		t.Errorf("SQL() got %d results want 2", cnt)
	}

	results := collect(t, sc.SQL(ctx, sqlctx.Rows,
		"SELECT table_name FROM duckdb_tables() ORDER BY table_name"))
	want := [][]any{{"before_error"}}
	if !reflect.DeepEqual(results[0].Rows, want) {
		t.Errorf("SQL(duckdb_tables) got %v want %v", results[0].Rows, want)
	}
}

func TestPersistentDatabase(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "bearsql.duckdb")

	sc, err := sqlctx.Open(ctx, sqlctx.Options{Database: location})
	if err != nil {
		t.Fatalf("Open(%s) failed with %s", location, err)
	}
	if sc.Database() != location {
		t.Errorf("Database() got %q want %q", sc.Database(), location)
	}
	err = sc.RegisterTable(ctx, testutil.People(), "kept")
	if err != nil {
		t.Fatalf("RegisterTable(kept) failed with %s", err)
	}
	view := sc.View()
	err = sc.Close()
	if err != nil {
		t.Fatalf("Close() failed with %s", err)
	}

	sc = openContext(t, sqlctx.Options{Database: location})
	results := collect(t, sc.Query(ctx, "SELECT * FROM kept"))
	if d := testutil.DiffFrames(results[0].Frame, testutil.People()); d != "" {
		t.Errorf("Query(SELECT * FROM kept) got diff\n%s", d)
	}

	// Views are temporary and do not survive the connection.
	for _, err := range sc.Query(ctx, "SELECT * FROM "+view) {
		if err == nil {
			t.Errorf("Query(SELECT * FROM %s) after reopen did not fail", view)
		}
	}
}

func TestConnectionError(t *testing.T) {
	location := filepath.Join(t.TempDir(), "missing", "dir", "bearsql.duckdb")

	_, err := sqlctx.Open(context.Background(), sqlctx.Options{Database: location})
	var ce *sqlctx.ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("Open(%s) got %v want ConnectionError", location, err)
	}
	if ce.Location != location {
		t.Errorf("Open(%s) got location %q", location, ce.Location)
	}
	if errors.Unwrap(err) == nil {
		t.Errorf("Open(%s) got error without cause", location)
	}
}

func TestDuplicateColumns(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})

	for _, format := range []sqlctx.Format{sqlctx.DataFrame, sqlctx.Columnar, sqlctx.Rows} {
		results := collect(t, sc.SQL(ctx, format, "SELECT 1 AS a, 2 AS a"))
		if !reflect.DeepEqual(results[0].Columns, []string{"a", "a"}) {
			t.Errorf("SQL(%s): Columns got %v want [a a]", format, results[0].Columns)
		}
		if results[0].NumRows() != 1 {
			t.Errorf("SQL(%s): NumRows() got %d want 1", format, results[0].NumRows())
		}
		results[0].Release()
	}
}

func TestIntegerOutOfRange(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})

	stmt := "SELECT 18446744073709551615::UBIGINT AS u"
	for res, err := range sc.SQL(ctx, sqlctx.DataFrame, stmt) {
		var ee *sqlctx.ExecutionError
		if err == nil {
			t.Errorf("SQL(%s) got %v want an error", stmt, res.Frame.Col("u").Records())
		} else if !errors.As(err, &ee) {
			t.Errorf("SQL(%s) failed with %T want *sqlctx.ExecutionError", stmt, err)
		}
	}

	results := collect(t, sc.SQL(ctx, sqlctx.Rows, stmt))
	want := [][]any{{uint64(18446744073709551615)}}
	if !reflect.DeepEqual(results[0].Rows, want) {
		t.Errorf("SQL(rows, %s) got %v want %v", stmt, results[0].Rows, want)
	}
}
