// Package loader reads datasets from files into dataframes.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// Source names a dataset to load and register.
type Source struct {
	Name string
	Path string
}

// ParseSource parses name=path.
func ParseSource(s string) (Source, error) {
	name, path, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if !ok || name == "" || path == "" {
		return Source{}, fmt.Errorf("loader: expected name=path, got %q", s)
	}
	return Source{Name: name, Path: path}, nil
}

func (src Source) String() string {
	return src.Name + "=" + src.Path
}

// Load reads the dataset at path; the format is picked by the file extension. A SQLite
// database is followed by #table to name the table to read.
func Load(ctx context.Context, path string) (dataframe.DataFrame, error) {
	file, table, _ := strings.Cut(path, "#")

	switch ext := strings.ToLower(filepath.Ext(file)); ext {
	case ".csv", ".tsv":
		delim := ','
		if ext == ".tsv" {
			delim = '\t'
		}
		return readFile(file, func(r io.Reader) (dataframe.DataFrame, error) {
			return CSV(r, delim)
		})
	case ".json":
		return readFile(file, JSON)
	case ".db", ".sqlite", ".sqlite3":
		if table == "" {
			return dataframe.DataFrame{}, fmt.Errorf("loader: %s: expected #table", path)
		}
		return SQLite(ctx, file, table)
	case ".shp":
		return Shapefile(file)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("loader: %s: unknown file type %q", path, ext)
	}
}

func readFile(path string,
	read func(r io.Reader) (dataframe.DataFrame, error)) (dataframe.DataFrame, error) {

	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()

	df, err := read(f)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("loader: %s: %s", path, err)
	}
	return df, nil
}

// CSV reads delimited text with a header row; column types are detected from the values.
func CSV(r io.Reader, delim rune) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r, dataframe.WithDelimiter(delim), dataframe.HasHeader(true),
		dataframe.DetectTypes(true))
	return df, df.Err
}

// JSON reads an array of objects. Columns are ordered by name.
func JSON(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadJSON(r, dataframe.DetectTypes(true))
	return df, df.Err
}
