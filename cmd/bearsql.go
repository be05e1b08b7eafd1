package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/leftmike/bearsql/config"
	"github.com/leftmike/bearsql/engine"
	"github.com/leftmike/bearsql/loader"
	"github.com/leftmike/bearsql/sqlctx"
)

type bearsql struct {
	logFile   string
	logLevel  string
	logStderr bool
	logWriter io.WriteCloser

	configFile string
	noConfig   bool
	cfg        *config.Config

	database  string
	table     string
	view      string
	output    string
	loads     []string
	loadViews []string
}

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})
}

func newBearsqlCmd() *cobra.Command {
	b := &bearsql{
		logLevel:   "error",
		configFile: "bearsql.hcl",
		database:   engine.InMemory,
		output:     string(sqlctx.DataFrame),
	}
	if ll, ok := os.LookupEnv("LOG_LEVEL"); ok {
		b.logLevel = ll
	}

	bearsqlCmd := &cobra.Command{
		Use:               "bearsql",
		Short:             "Query dataframes with SQL",
		Long:              "Bearsql loads datasets into an embedded DuckDB database and queries them with SQL.",
		SilenceUsage:      true,
		PersistentPreRunE: b.preRun,
		PersistentPostRun: b.postRun,
	}

	fs := bearsqlCmd.PersistentFlags()
	fs.StringVar(&b.logFile, "log-file", b.logFile, "`file` to use for logging")
	fs.StringVar(&b.logLevel, "log-level", b.logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	fs.BoolVarP(&b.logStderr, "log-stderr", "s", b.logStderr, "log to standard error")

	fs.StringVar(&b.configFile, "config-file", b.configFile, "`file` to load config from")
	fs.BoolVar(&b.noConfig, "no-config", b.noConfig, "don't load config file")

	fs.StringVar(&b.database, "database", b.database,
		"`location` of the database file; :memory: for a transient database")
	fs.StringVar(&b.table, "table", b.table, "current table `name`")
	fs.StringVar(&b.view, "view", b.view, "current view `name`")
	fs.StringVar(&b.output, "output", b.output, "result format: dataframe, columnar, or rows")
	fs.StringArrayVar(&b.loads, "load", b.loads,
		"load a dataset as a table: `name=path`; multiple allowed")
	fs.StringArrayVar(&b.loadViews, "load-view", b.loadViews,
		"load a dataset as a view: `name=path`; multiple allowed")

	bearsqlCmd.AddCommand(newQueryCmd(b), newReplCmd(b), newVersionCmd())
	return bearsqlCmd
}

func Execute() error {
	return newBearsqlCmd().Execute()
}

func (b *bearsql) preRun(cmd *cobra.Command, args []string) error {
	if b.configFile != "" && !b.noConfig {
		err := b.loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("bearsql: %s", err)
		}
	}

	if !b.logStderr && b.logFile != "" {
		var err error
		b.logWriter, err = os.OpenFile(b.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			b.logWriter = nil
			return fmt.Errorf("bearsql: %s", err)
		}
		log.SetOutput(b.logWriter)
	}

	ll, err := log.ParseLevel(b.logLevel)
	if err != nil {
		return fmt.Errorf("bearsql: %s", err)
	}
	log.SetLevel(ll)

	log.WithField("pid", os.Getpid()).Info("bearsql starting")
	return nil
}

func (b *bearsql) postRun(cmd *cobra.Command, args []string) {
	log.WithField("pid", os.Getpid()).Info("bearsql done")

	if b.logWriter != nil {
		log.SetOutput(os.Stderr)
		b.logWriter.Close()
		b.logWriter = nil
	}
}

func (b *bearsql) loadConfig(cmd *cobra.Command) error {
	// A missing config file is only an error if it was asked for.
	if _, err := os.Stat(b.configFile); os.IsNotExist(err) &&
		!cmd.Flags().Changed("config-file") {

		return nil
	}

	cfg, err := config.Load(b.configFile)
	if err != nil {
		return err
	}
	b.cfg = cfg
	return cfg.Apply(cmd.Flags())
}

// openContext opens the database and registers the datasets named by the config file,
// then those named by --load and --load-view.
func (b *bearsql) openContext(ctx context.Context) (*sqlctx.Context, error) {
	sc, err := sqlctx.Open(ctx, sqlctx.Options{
		Database: b.database,
		Table:    b.table,
		View:     b.view,
		Logger:   log.StandardLogger(),
	})
	if err != nil {
		return nil, err
	}

	err = b.loadDatasets(ctx, sc)
	if err != nil {
		sc.Close()
		return nil, err
	}
	return sc, nil
}

func (b *bearsql) loadDatasets(ctx context.Context, sc *sqlctx.Context) error {
	if b.cfg != nil {
		for _, ds := range b.cfg.Datasets {
			err := loadDataset(ctx, sc, loader.Source{Name: ds.Name, Path: ds.Path}, ds.View)
			if err != nil {
				return err
			}
		}
	}

	for _, s := range b.loads {
		src, err := loader.ParseSource(s)
		if err != nil {
			return err
		}
		err = loadDataset(ctx, sc, src, false)
		if err != nil {
			return err
		}
	}

	for _, s := range b.loadViews {
		src, err := loader.ParseSource(s)
		if err != nil {
			return err
		}
		err = loadDataset(ctx, sc, src, true)
		if err != nil {
			return err
		}
	}

	return nil
}

func loadDataset(ctx context.Context, sc *sqlctx.Context, src loader.Source, view bool) error {
	df, err := loader.Load(ctx, src.Path)
	if err != nil {
		return err
	}

	if view {
		err = sc.RegisterView(ctx, df, src.Name)
	} else {
		err = sc.RegisterTable(ctx, df, src.Name)
	}
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"dataset": src.String(),
		"rows":    df.Nrow(),
		"view":    view,
	}).Info("dataset loaded")
	return nil
}
