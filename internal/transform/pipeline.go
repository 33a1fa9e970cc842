package transform

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matta-kelly/local-bi/internal/catalog"
	"github.com/matta-kelly/local-bi/internal/contacts"
	"github.com/matta-kelly/local-bi/internal/csvx"
	"github.com/matta-kelly/local-bi/internal/ordersheet"
)

// Job describes one order-sheet transformation run.
type Job struct {
	OrderSheetPath string
	MasterPath     string
	VariantPath    string
	ContactsPath   string
	OutputDir      string
	SalesTeam      string
	Tag            string

	// Now anchors ship-date normalization; zero means time.Now.
	Now time.Time
}

// Run executes the full pipeline for one order sheet and returns the
// output file path. Nothing is written until every row has been
// processed; a failed run leaves no partial output behind.
func Run(job Job, logger *slog.Logger) (string, error) {
	runID := uuid.NewString()
	inputName := filepath.Base(job.OrderSheetPath)
	logger = logger.With("run_id", runID, "input", inputName)

	if job.Now.IsZero() {
		job.Now = time.Now()
	}

	rep, prefix, known := InferSalesperson(inputName)
	if !known {
		logger.Warn("unknown salesperson prefix", "prefix", prefix)
	}

	logger.Info("reading order sheet")
	sheet, err := csvx.ReadFile(job.OrderSheetPath)
	if err != nil {
		return "", fmt.Errorf("reading order sheet: %w", err)
	}

	cat, err := catalog.Build(job.MasterPath, job.VariantPath, logger)
	if err != nil {
		return "", err
	}

	list, err := contacts.Load(job.ContactsPath)
	if err != nil {
		return "", err
	}
	logger.Info("contacts loaded", "total", list.Len(), "companies", list.Companies())

	cols, err := ordersheet.DetectSizeColumns(sheet, cat.Sizes())
	if err != nil {
		return "", err
	}
	logger.Info("size columns detected", "count", len(cols))

	res := Group(sheet, cols, cat, list, job.Now, logger)

	records := Render(res.Orders, Options{
		Salesperson: rep,
		SalesTeam:   job.SalesTeam,
		Tag:         job.Tag,
	})
	if len(records) == 1 {
		logger.Info("no line items to write, output file not created")
		return "", nil
	}

	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	outPath := filepath.Join(job.OutputDir, "output-"+inputName)
	if err := csvx.Write(outPath, records); err != nil {
		return "", fmt.Errorf("writing output: %w", err)
	}
	logger.Info("wrote output", "rows", len(records)-1, "path", outPath)

	if !known {
		stem := strings.TrimSuffix(inputName, filepath.Ext(inputName))
		sidecar := filepath.Join(job.OutputDir, "output-"+stem+".log")
		note := fmt.Sprintf("Unknown salesperson for input %q. Unrecognized prefix %q.\n", inputName, prefix)
		if err := os.WriteFile(sidecar, []byte(note), 0o644); err != nil {
			return "", fmt.Errorf("writing sidecar note: %w", err)
		}
		logger.Info("wrote sidecar note", "path", sidecar)
	}

	return outPath, nil
}
