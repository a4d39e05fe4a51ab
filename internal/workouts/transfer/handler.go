package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/liftlog-app/liftlog/internal/telemetry/tracing"
	"github.com/liftlog-app/liftlog/internal/workouts"
	"github.com/liftlog-app/liftlog/pkg"
)

//go:generate mockgen -source=handler.go -destination=handler_mocks_test.go -package=transfer_test

// import payloads come from export files, they stay small
const maxImportBytes = 8 * 1024 * 1024

type workoutsAccess interface {
	List(ctx context.Context) ([]workouts.Workout, error)
	Create(ctx context.Context, workout workouts.Workout) (workouts.Workout, error)
}

type ImportResponse struct {
	Imported int `json:"imported"`
}

type Handler struct {
	access workoutsAccess
	now    func() time.Time
}

func NewHandler(access workoutsAccess) *Handler {
	return &Handler{
		access: access,
		now:    time.Now,
	}
}

func (handler *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.export.csv")
	defer span.End()

	all, err := handler.access.List(ctx)
	if err != nil {
		log.Errorf("export csv, list workouts: %s", err)
		http.Error(w, "failed to load workouts", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, all); err != nil {
		log.Errorf("export csv, write: %s", err)
		http.Error(w, "failed to export workouts", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("liftlog-export-%s.csv", handler.now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	pkg.WriteResponseBytes(w, pkg.ContentType.CSV, buf.Bytes(), http.StatusOK)
}

func (handler *Handler) HandleExportJSON(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.export.json")
	defer span.End()

	all, err := handler.access.List(ctx)
	if err != nil {
		log.Errorf("export json, list workouts: %s", err)
		http.Error(w, "failed to load workouts", http.StatusInternalServerError)
		return
	}

	exportJson, err := json.Marshal(BuildExport(all, handler.now()))
	if err != nil {
		log.Errorf("export json, marshal: %s", err)
		http.Error(w, "failed to export workouts", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("liftlog-export-%s.json", handler.now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exportJson, http.StatusOK)
}

// HandleImport takes a JSON export (bare array or envelope), validates it in
// full, then creates the records one by one. A create failure aborts with the
// number already imported in the error message.
func (handler *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.import")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		log.Errorf("import workouts, read body: %s", err)
		http.Error(w, "failed to read import payload", http.StatusBadRequest)
		return
	}

	all, err := ParseImport(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	imported := 0
	for _, workout := range all {
		// ids are reassigned by the receiving store
		workout.ID = ""
		if _, err := handler.access.Create(ctx, workout); err != nil {
			log.Errorf("import workouts, create [%s]: %s", workout.Date.Format("2006-01-02"), err)
			http.Error(
				w,
				fmt.Sprintf("import aborted after %d workouts", imported),
				http.StatusInternalServerError,
			)
			return
		}
		imported++
	}

	log.Debugf("imported %d workouts", imported)

	importRespJson, err := json.Marshal(ImportResponse{Imported: imported})
	if err != nil {
		log.Errorf("failed to marshal import response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, importRespJson, http.StatusCreated)
}
