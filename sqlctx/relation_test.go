package sqlctx_test

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/leftmike/bearsql/sqlctx"
	"github.com/leftmike/bearsql/testutil"
)

func TestRelationFilter(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})
	df := testutil.People()

	rel, err := sc.Relation(ctx, df, "new_table")
	if err != nil {
		t.Fatalf("Relation(new_table) failed with %s", err)
	}
	if rel.Alias() != "new_table" || sc.Table() != "new_table" {
		t.Errorf("Relation(new_table) got alias %q and table %q", rel.Alias(), sc.Table())
	}
	if sc.View() != "" {
		t.Errorf("Relation(new_table): View() got %q want \"\"", sc.View())
	}

	got, err := rel.Filter("name == 'John Doe'").DataFrame(ctx)
	if err != nil {
		t.Fatalf("Filter(name == 'John Doe').DataFrame() failed with %s", err)
	}
	if d := testutil.DiffFrames(got, df.Subset([]int{0})); d != "" {
		t.Errorf("Filter(name == 'John Doe').DataFrame() got diff\n%s", d)
	}

	// The unfiltered relation is unchanged.
	got, err = rel.DataFrame(ctx)
	if err != nil {
		t.Fatalf("DataFrame() failed with %s", err)
	}
	if d := testutil.DiffFrames(got, df); d != "" {
		t.Errorf("DataFrame() got diff\n%s", d)
	}

	// The alias can be used in later statements.
	results := collect(t, sc.SQL(ctx, sqlctx.Rows,
		"SELECT city FROM new_table WHERE name = 'Jane Doe'"))
	if !reflect.DeepEqual(results[0].Rows, [][]any{{"Chicago"}}) {
		t.Errorf("SQL(SELECT city FROM new_table) got %v", results[0].Rows)
	}
}

func TestRelationGeneratedAlias(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})

	rel, err := sc.Relation(ctx, testutil.People(), "")
	if err != nil {
		t.Fatalf("Relation() failed with %s", err)
	}
	if !strings.HasPrefix(rel.Alias(), "table_") {
		t.Errorf("Relation() got alias %q want table_<n>", rel.Alias())
	}
	if sc.Table() != rel.Alias() {
		t.Errorf("Relation(): Table() got %q want %q", sc.Table(), rel.Alias())
	}

	rows, err := rel.Rows(ctx)
	if err != nil {
		t.Fatalf("Rows() failed with %s", err)
	}
	if len(rows) != 2 {
		t.Errorf("Rows() got %d rows want 2", len(rows))
	}
}

func TestRelationCompose(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})

	rel, err := sc.Relation(ctx, testutil.Scores(), "scores")
	if err != nil {
		t.Fatalf("Relation(scores) failed with %s", err)
	}

	cases := []struct {
		rel  *sqlctx.Relation
		sql  string
		rows [][]any
	}{
		{
			rel:  rel.Project("player").Order("player DESC"),
			sql:  `SELECT player FROM "scores" ORDER BY player DESC`,
			rows: [][]any{{"cid"}, {"bob"}, {"ann"}},
		},
		{
			rel:  rel.Filter("active").Filter("score > 0").Project("player", "score"),
			sql:  `SELECT player, score FROM "scores" WHERE (active) AND (score > 0)`,
			rows: [][]any{{"ann", 1.5}},
		},
		{
			rel:  rel.Project("player").Order("score").Limit(2),
			sql:  `SELECT player FROM "scores" ORDER BY score LIMIT 2`,
			rows: [][]any{{"cid"}, {"ann"}},
		},
		{
			rel:  rel.Filter("games IS NULL").Project("player"),
			sql:  `SELECT player FROM "scores" WHERE (games IS NULL)`,
			rows: [][]any{{"cid"}},
		},
	}

	for _, c := range cases {
		if c.rel.SQL() != c.sql {
			t.Errorf("SQL() got %q want %q", c.rel.SQL(), c.sql)
		}
		rows, err := c.rel.Rows(ctx)
		if err != nil {
			t.Errorf("Rows(%s) failed with %s", c.sql, err)
		} else if !reflect.DeepEqual(rows, c.rows) {
			t.Errorf("Rows(%s) got %v want %v", c.sql, rows, c.rows)
		}
	}
}

func TestRelationArrowAndCreate(t *testing.T) {
	ctx := context.Background()
	sc := openContext(t, sqlctx.Options{})

	rel, err := sc.Relation(ctx, testutil.People(), "people")
	if err != nil {
		t.Fatalf("Relation(people) failed with %s", err)
	}

	tbl, err := rel.Filter("city = 'New York'").Arrow(ctx)
	if err != nil {
		t.Fatalf("Arrow() failed with %s", err)
	}
	if tbl.NumRows() != 1 || tbl.NumCols() != 2 {
		t.Errorf("Arrow() got %d rows and %d columns want 1 and 2", tbl.NumRows(),
			tbl.NumCols())
	}
	tbl.Release()

	err = rel.Project("name").Create(ctx, "names")
	if err != nil {
		t.Fatalf("Create(names) failed with %s", err)
	}
	results := collect(t, sc.SQL(ctx, sqlctx.Rows, "SELECT name FROM names ORDER BY name"))
	want := [][]any{{"Jane Doe"}, {"John Doe"}}
	if !reflect.DeepEqual(results[0].Rows, want) {
		t.Errorf("SQL(SELECT name FROM names) got %v want %v", results[0].Rows, want)
	}

	if err = rel.Create(ctx, ""); err == nil {
		t.Errorf("Create(\"\") did not fail")
	}
}
