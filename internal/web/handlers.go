package web

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matta-kelly/local-bi/internal/transform"
)

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleTransform accepts an order-sheet upload and starts a transform
// job. Batch parameters default from config and can be overridden per
// upload with the sales_team and tag form fields.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Server.MaxUploadSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	salesTeam := r.FormValue("sales_team")
	if salesTeam == "" {
		salesTeam = s.cfg.Batch.SalesTeam
	}
	tag := r.FormValue("tag")
	if tag == "" {
		tag = s.cfg.Batch.Tag
	}

	// Each run gets its own directory so concurrent uploads of the
	// same filename cannot collide.
	runDir, err := os.MkdirTemp("", "ordersheet-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create working directory")
		return
	}

	inputPath := filepath.Join(runDir, filepath.Base(header.Filename))
	if err := saveUpload(inputPath, file); err != nil {
		os.RemoveAll(runDir)
		writeError(w, http.StatusInternalServerError, "could not save upload")
		return
	}

	job := s.jobs.Create(filepath.Base(header.Filename))
	logger := s.logger.With("job_id", job.ID, "input", job.Filename)

	go func() {
		outPath, err := transform.Run(transform.Job{
			OrderSheetPath: inputPath,
			MasterPath:     s.cfg.Files.MasterPath,
			VariantPath:    s.cfg.Files.VariantPath,
			ContactsPath:   s.cfg.Files.ContactsPath,
			OutputDir:      runDir,
			SalesTeam:      salesTeam,
			Tag:            tag,
			Now:            time.Now(),
		}, logger)

		switch {
		case err != nil:
			logger.Error("transform failed", "error", err)
			s.jobs.Finish(job.ID, StatusFailed, "", err.Error())
		case outPath == "":
			s.jobs.Finish(job.ID, StatusEmpty, "", "")
		default:
			s.jobs.Finish(job.ID, StatusDone, outPath, "")
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"job_id": job.ID})
}

// handleJobStatus returns the job record.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(chi.URLParam(r, "jobID"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, job)
}

// handleJobResult serves the finished import as a CSV download.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(chi.URLParam(r, "jobID"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch job.Status {
	case StatusRunning:
		writeError(w, http.StatusConflict, "job still running")
		return
	case StatusFailed:
		writeError(w, http.StatusUnprocessableEntity, "job failed: "+job.Error)
		return
	case StatusEmpty:
		writeError(w, http.StatusNotFound, "input had no order rows")
		return
	}

	f, err := os.Open(job.outputPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "result no longer available")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(job.outputPath)))
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Error("streaming result failed", "job_id", job.ID, "error", err)
	}
}

// saveUpload writes the uploaded file to path.
func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Close()
}
