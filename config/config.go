// Package config reads the bearsql configuration file.
//
// The file is HCL:
//
//	database = "scores.duckdb"
//	log-level = "info"
//	output = "rows"
//
//	dataset "scores" {
//	    path = "scores.csv"
//	}
//
//	dataset "people" {
//	    path = "people.db#people"
//	    view = true
//	}
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl"
	"github.com/hashicorp/hcl/hcl/ast"
	"github.com/hashicorp/hcl/hcl/scanner"
	"github.com/hashicorp/hcl/hcl/token"
	"github.com/spf13/pflag"
)

type Dataset struct {
	Name string `hcl:",key"`
	Path string `hcl:"path"`
	View bool   `hcl:"view"`
}

type Config struct {
	Database string    `hcl:"database"`
	Table    string    `hcl:"table"`
	View     string    `hcl:"view"`
	Output   string    `hcl:"output"`
	LogFile  string    `hcl:"log-file"`
	LogLevel string    `hcl:"log-level"`
	Datasets []Dataset `hcl:"dataset"`
}

var (
	configVars = map[string]struct{}{
		"database":  {},
		"table":     {},
		"view":      {},
		"output":    {},
		"log-file":  {},
		"log-level": {},
	}
	datasetVars = map[string]struct{}{
		"path": {},
		"view": {},
	}
)

func itemName(item *ast.ObjectItem) string {
	if len(item.Keys) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", item.Keys[0].Token.Value())
}

func checkValues(items []*ast.ObjectItem, vars map[string]struct{}) error {
	for _, item := range items {
		name := itemName(item)
		if _, ok := vars[name]; !ok {
			return fmt.Errorf("%s is not a config variable", name)
		}
		if len(item.Keys) != 1 {
			return fmt.Errorf("%s: expected a value", name)
		}
		if lit, ok := item.Val.(*ast.LiteralType); !ok || lit.Token.Text == "" {
			return fmt.Errorf("%s: expected a value", name)
		}
	}
	return nil
}

func check(list *ast.ObjectList) error {
	var vals []*ast.ObjectItem
	for _, item := range list.Items {
		if itemName(item) != "dataset" {
			vals = append(vals, item)
			continue
		}

		if len(item.Keys) != 2 {
			return fmt.Errorf("dataset: expected a name")
		}
		obj, ok := item.Val.(*ast.ObjectType)
		if !ok {
			return fmt.Errorf("dataset %v: expected a block", item.Keys[1].Token.Value())
		}
		err := checkValues(obj.List.Items, datasetVars)
		if err != nil {
			return fmt.Errorf("dataset %v: %s", item.Keys[1].Token.Value(), err)
		}
	}
	return checkValues(vals, configVars)
}

// checkTrailing fails if s ends with an assignment and no value; the parser drops such an
// item instead of reporting it.
func checkTrailing(s string) error {
	var last token.Token
	sc := scanner.New([]byte(s))
	for {
		tok := sc.Scan()
		if tok.Type == token.EOF {
			break
		} else if tok.Type != token.COMMENT {
			last = tok
		}
	}
	if last.Type == token.ASSIGN {
		return fmt.Errorf("%s: expected a value", last.Pos)
	}
	return nil
}

func Decode(s string) (*Config, error) {
	f, err := hcl.ParseString(s)
	if err != nil {
		return nil, err
	}
	err = checkTrailing(s)
	if err != nil {
		return nil, err
	}
	list, ok := f.Node.(*ast.ObjectList)
	if !ok {
		return nil, fmt.Errorf("expected config variables")
	}
	err = check(list)
	if err != nil {
		return nil, err
	}

	var cfg Config
	err = hcl.DecodeObject(&cfg, f)
	if err != nil {
		return nil, err
	}

	for _, ds := range cfg.Datasets {
		if ds.Path == "" {
			return nil, fmt.Errorf("dataset %s: expected path", ds.Name)
		}
	}
	return &cfg, nil
}

func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg, err := Decode(string(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %s", filename, err)
	}
	return cfg, nil
}

// Apply sets the flags in fs named by the configuration variables; flags that were set
// on the command line are left alone.
func (cfg *Config) Apply(fs *pflag.FlagSet) error {
	vars := map[string]string{
		"database":  cfg.Database,
		"table":     cfg.Table,
		"view":      cfg.View,
		"output":    cfg.Output,
		"log-file":  cfg.LogFile,
		"log-level": cfg.LogLevel,
	}

	for name, val := range vars {
		if val == "" {
			continue
		}
		flg := fs.Lookup(name)
		if flg == nil || flg.Changed {
			continue
		}
		err := flg.Value.Set(val)
		if err != nil {
			return fmt.Errorf("%s: %s", name, err)
		}
	}

	return nil
}
