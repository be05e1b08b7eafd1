// Package frame converts between dataframes, Arrow records, and SQL result rows.
package frame

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ArrowType returns the Arrow type used to expose a column of type typ.
func ArrowType(typ series.Type) (arrow.DataType, error) {
	switch typ {
	case series.String:
		return arrow.BinaryTypes.String, nil
	case series.Int:
		return arrow.PrimitiveTypes.Int64, nil
	case series.Float:
		return arrow.PrimitiveTypes.Float64, nil
	case series.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	}
	return nil, fmt.Errorf("frame: unsupported column type %s", typ)
}

// Schema returns the Arrow schema of df.
func Schema(df dataframe.DataFrame) (*arrow.Schema, error) {
	if df.Err != nil {
		return nil, df.Err
	}

	names := df.Names()
	types := df.Types()
	fields := make([]arrow.Field, len(names))
	for cdx, name := range names {
		dt, err := ArrowType(types[cdx])
		if err != nil {
			return nil, fmt.Errorf("%s: %s", name, err)
		}
		fields[cdx] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// Record copies df into a single Arrow record. NaN elements become nulls. The caller
// must release the record.
func Record(df dataframe.DataFrame, mem memory.Allocator) (arrow.Record, error) {
	schema, err := Schema(df)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for cdx, name := range df.Names() {
		col := df.Col(name)
		err = appendSeries(b.Field(cdx), col)
		if err != nil {
			return nil, fmt.Errorf("frame: %s: %s", name, err)
		}
	}
	return b.NewRecord(), nil
}

func appendSeries(fb array.Builder, s series.Series) error {
	n := s.Len()
	fb.Reserve(n)

	for i := 0; i < n; i++ {
		e := s.Elem(i)
		if e.IsNA() {
			fb.AppendNull()
			continue
		}

		switch b := fb.(type) {
		case *array.StringBuilder:
			b.Append(e.String())
		case *array.Int64Builder:
			v, err := e.Int()
			if err != nil {
				return err
			}
			b.Append(int64(v))
		case *array.Float64Builder:
			b.Append(e.Float())
		case *array.BooleanBuilder:
			v, err := e.Bool()
			if err != nil {
				return err
			}
			b.Append(v)
		default:
			return fmt.Errorf("unexpected builder %T", fb)
		}
	}
	return nil
}

// Reader wraps df as a single record Arrow stream. The caller must release the reader.
func Reader(df dataframe.DataFrame, mem memory.Allocator) (array.RecordReader, error) {
	rec, err := Record(df, mem)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	return array.NewRecordReader(rec.Schema(), []arrow.Record{rec})
}

// ColumnType maps a SQL type name, as reported by database/sql, to a dataframe column
// type. Unknown types are kept as strings.
func ColumnType(sqlType string) series.Type {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	if idx := strings.IndexByte(t, '('); idx >= 0 {
		t = strings.TrimSpace(t[:idx])
	}

	switch t {
	case "TINYINT", "SMALLINT", "INTEGER", "INT", "BIGINT", "HUGEINT", "UTINYINT",
		"USMALLINT", "UINTEGER", "UBIGINT", "INT1", "INT2", "INT4", "INT8", "SIGNED", "LONG":
		return series.Int
	case "FLOAT", "REAL", "DOUBLE", "DECIMAL", "NUMERIC", "FLOAT4", "FLOAT8":
		return series.Float
	case "BOOLEAN", "BOOL", "LOGICAL":
		return series.Bool
	}
	return series.String
}

// FromRows builds a dataframe from materialized SQL rows. A result without columns,
// such as from most DDL statements, is an empty dataframe.
func FromRows(cols []string, types []series.Type, rows [][]any) (dataframe.DataFrame, error) {
	if len(cols) != len(types) {
		return dataframe.DataFrame{},
			fmt.Errorf("frame: got %d column types for %d columns", len(types), len(cols))
	}
	if len(cols) == 0 {
		return dataframe.DataFrame{}, nil
	}

	cs := make([]series.Series, len(cols))
	for cdx, col := range cols {
		vals := make([]interface{}, len(rows))
		for rdx, row := range rows {
			if cdx >= len(row) {
				return dataframe.DataFrame{},
					fmt.Errorf("frame: row %d: got %d values; want %d", rdx, len(row), len(cols))
			}
			v, err := Normalize(row[cdx], types[cdx])
			if err != nil {
				return dataframe.DataFrame{}, fmt.Errorf("frame: %s: row %d: %s", col, rdx, err)
			}
			vals[rdx] = v
		}
		cs[cdx] = series.New(vals, types[cdx], col)
	}

	df := dataframe.New(cs...)
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	return df, nil
}

// Normalize converts a value scanned from a SQL driver into the Go type expected by a
// dataframe column of type typ; nil stays nil and becomes NaN in the column.
func Normalize(v any, typ series.Type) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch typ {
	case series.Int:
		return toInt(v)
	case series.Float:
		return toFloat(v)
	case series.Bool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		}
		return nil, fmt.Errorf("expected a boolean; got %T", v)
	}
	return toString(v), nil
}

func toInt(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d out of range", n)
		}
		return int(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d out of range", n)
		}
		return int(n), nil
	case *big.Int:
		if !n.IsInt64() {
			return nil, fmt.Errorf("integer %s out of range", n)
		}
		return int(n.Int64()), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return nil, fmt.Errorf("expected an integer; got %T", v)
}

func toFloat(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case interface{ Float64() float64 }:
		// duckdb.Decimal
		return n.Float64(), nil
	}

	i, err := toInt(v)
	if err != nil {
		return nil, fmt.Errorf("expected a number; got %T", v)
	}
	return float64(i.(int)), nil
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}
