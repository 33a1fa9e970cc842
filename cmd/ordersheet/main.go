// Command ordersheet transforms a raw rep order sheet into the ERP
// import format. The input filename's prefix picks the salesperson;
// reference file paths come from the environment.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/matta-kelly/local-bi/internal/config"
	"github.com/matta-kelly/local-bi/internal/logging"
	"github.com/matta-kelly/local-bi/internal/transform"
)

func main() {
	input := flag.String("input", "", "order sheet CSV to transform (required)")
	output := flag.String("output", "", "output directory (default: OUTPUT_DIR)")
	team := flag.String("team", "", "sales team for this batch (default: BATCH_SALES_TEAM)")
	tag := flag.String("tag", "", "order tag for this batch (default: BATCH_TAG)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: ordersheet -input <order-sheet.csv> [-output dir] [-team name] [-tag tag]")
		os.Exit(2)
	}

	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	job := transform.Job{
		OrderSheetPath: *input,
		MasterPath:     cfg.Files.MasterPath,
		VariantPath:    cfg.Files.VariantPath,
		ContactsPath:   cfg.Files.ContactsPath,
		OutputDir:      cfg.Files.OutputDir,
		SalesTeam:      cfg.Batch.SalesTeam,
		Tag:            cfg.Batch.Tag,
	}
	if *output != "" {
		job.OutputDir = *output
	}
	if *team != "" {
		job.SalesTeam = *team
	}
	if *tag != "" {
		job.Tag = *tag
	}

	outPath, err := transform.Run(job, slog.Default())
	if err != nil {
		slog.Error("transform failed", "error", err)
		os.Exit(1)
	}
	if outPath == "" {
		slog.Info("input had no order rows, nothing written")
		return
	}
	fmt.Println(outPath)
}
