package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/inbox-dashboard/internal/config"
	"github.com/DoyleJ11/inbox-dashboard/internal/etl"
	"github.com/DoyleJ11/inbox-dashboard/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "inbox-etl:", err)
		os.Exit(1)
	}
}

func run(args []string) (err error) {
	cfg, err := config.Load(config.RoleETL, "inbox-etl", args)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log, "inbox-etl")
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, logging.Sync(logger)) }()

	_, err = etl.Run(cfg.ETL.Input, cfg.ETL.Output, etl.Options{
		DatasetSource: cfg.ETL.DatasetSource,
		Logger:        logger,
	})
	if errors.Is(err, os.ErrNotExist) {
		logger.Error("orders file not found; place the export under data/raw/", zap.String("input", cfg.ETL.Input))
	}
	return err
}
