package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	shp "github.com/jonas-p/go-shp"

	"github.com/leftmike/bearsql/frame"
)

// GeometryColumn holds each shape as a GeoJSON geometry.
const GeometryColumn = "geometry"

func fieldType(fld shp.Field) series.Type {
	switch fld.Fieldtype {
	case 'N':
		if fld.Precision == 0 {
			return series.Int
		}
		return series.Float
	case 'F':
		return series.Float
	case 'L':
		return series.Bool
	default:
		return series.String
	}
}

func parseAttribute(s string, typ series.Type) (any, error) {
	s = strings.Trim(s, " \x00")
	if s == "" || s == "?" {
		return nil, nil
	}

	switch typ {
	case series.Bool:
		switch s {
		case "T", "t", "Y", "y":
			return true, nil
		case "F", "f", "N", "n":
			return false, nil
		}
		return nil, fmt.Errorf("bad logical value %q", s)
	case series.String:
		return s, nil
	}

	v := series.New([]string{s}, typ, "").Val(0)
	if v == nil {
		return nil, fmt.Errorf("bad %s value %q", typ, s)
	}
	return v, nil
}

func geometry(shape shp.Shape) (any, error) {
	var geom any
	switch s := shape.(type) {
	case *shp.Point:
		geom = map[string]any{"type": "Point", "coordinates": []float64{s.X, s.Y}}
	case *shp.PolyLine:
		coords := make([][]float64, len(s.Points))
		for pdx, p := range s.Points {
			coords[pdx] = []float64{p.X, p.Y}
		}
		geom = map[string]any{"type": "LineString", "coordinates": coords}
	case *shp.Polygon:
		ring := make([][]float64, len(s.Points))
		for pdx, p := range s.Points {
			ring[pdx] = []float64{p.X, p.Y}
		}
		geom = map[string]any{"type": "Polygon", "coordinates": [][][]float64{ring}}
	default:
		return nil, nil
	}

	b, err := json.Marshal(geom)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Shapefile reads the attribute table of the shapefile at path, plus a geometry column.
func Shapefile(path string) (dataframe.DataFrame, error) {
	// Without its attribute table a shapefile would load as geometry alone.
	dbf := strings.TrimSuffix(path, filepath.Ext(path)) + ".dbf"
	if _, err := os.Stat(dbf); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("loader: %s: %s", path, err)
	}

	r, err := shp.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("loader: %s: %s", path, err)
	}
	defer r.Close()

	fields := r.Fields()
	cols := make([]string, 0, len(fields)+1)
	types := make([]series.Type, 0, len(fields)+1)
	for _, fld := range fields {
		cols = append(cols, fld.String())
		types = append(types, fieldType(fld))
	}
	cols = append(cols, GeometryColumn)
	types = append(types, series.String)

	rows := [][]any{}
	for r.Next() {
		idx, shape := r.Shape()
		row := make([]any, len(cols))
		for fdx := range fields {
			row[fdx], err = parseAttribute(r.ReadAttribute(idx, fdx), types[fdx])
			if err != nil {
				return dataframe.DataFrame{}, fmt.Errorf("loader: %s: record %d: %s: %s", path,
					idx, cols[fdx], err)
			}
		}
		row[len(fields)], err = geometry(shape)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		rows = append(rows, row)
	}
	if err := r.Err(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("loader: %s: %s", path, err)
	}

	return frame.FromRows(cols, types, rows)
}
