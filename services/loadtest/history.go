package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/config"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/factory"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/storage"
	"github.com/urfave/cli"
)

var (
	// historyLimit bounds the number of listed runs
	historyLimit = cli.IntFlag{
		Name:  "limit",
		Usage: "This flag specifies the maximum `number` of stored runs to list, newest first.",
		Value: 10,
	}
	// historyRun selects a single stored run to print in full
	historyRun = cli.StringFlag{
		Name:  "run",
		Usage: "This flag specifies the `run ID` of a stored run. If set, the full report of that run is printed.",
	}

	historyCommand = cli.Command{
		Name:   "history",
		Usage:  "Prints the runs stored in the results database",
		Flags:  []cli.Flag{historyLimit, historyRun},
		Action: history,
	}
)

func history(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx.GlobalString(configFile.Name))
	if err != nil {
		return err
	}
	if len(cfg.ResultsDatabasePath) == 0 {
		return errors.New("ResultsDatabasePath is not configured")
	}

	// 0 keeps the stored history untouched
	store, err := storage.NewSQLiteStorage(cfg.ResultsDatabasePath, 0)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	return printHistory(context.Background(), store, ctx.Int(historyLimit.Name), ctx.String(historyRun.Name), ctx.App.Writer)
}

// printHistory writes either the recent runs summaries or, when runID is set, the full stored report as JSON
func printHistory(ctx context.Context, store factory.RunStorage, limit int, runID string, w io.Writer) error {
	var result interface{}
	var err error
	if len(runID) > 0 {
		result, err = store.GetRunReport(ctx, runID)
	} else {
		result, err = store.GetRecentRuns(ctx, limit)
	}
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(result)
}
