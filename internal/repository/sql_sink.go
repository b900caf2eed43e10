package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-ocr/constants"
	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

const (
	runsTable   = "ocr_runs"
	imagesTable = "ocr_image_results"
)

// SQLSink records runs and per-image results in the run-history database.
type SQLSink struct {
	store *Store
	log   *slog.Logger
}

func NewSQLSink(store *Store, log *slog.Logger) *SQLSink {
	if log == nil {
		log = slog.Default()
	}
	return &SQLSink{store: store, log: log}
}

func (r *SQLSink) Name() string { return "sql" }

func (r *SQLSink) builder() *entsql.DialectBuilder { return entsql.Dialect(r.store.Dialect()) }

// Migrate creates the tables when missing.
func (r *SQLSink) Migrate(ctx context.Context) error {
	b := r.builder()
	stmts := []entsql.Querier{
		b.CreateTable(runsTable).IfNotExists().
			Columns(
				entsql.Column("id").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("input_folder").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("processing_date").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("total_images").Type("INTEGER").Attr("NOT NULL"),
				entsql.Column("successful").Type("INTEGER").Attr("NOT NULL"),
				entsql.Column("failed").Type("INTEGER").Attr("NOT NULL"),
			).
			PrimaryKey("id"),
		b.CreateTable(imagesTable).IfNotExists().
			Columns(
				entsql.Column("id").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("run_id").Type("TEXT"),
				entsql.Column("file_path").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("status").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("best_text").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("method").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("confidence").Type("DOUBLE PRECISION").Attr("NOT NULL"),
				entsql.Column("error_message").Type("TEXT"),
				entsql.Column("all_results").Type("TEXT"),
				entsql.Column("processed_at").Type("TEXT").Attr("NOT NULL"),
			).
			PrimaryKey("id"),
	}
	for _, s := range stmts {
		q, args := s.Query()
		if _, err := r.store.DB().ExecContext(ctx, q, args...); err != nil {
			r.log.Error("migration failed", "query", q, "error", err)
			return storageError("migrate", err)
		}
	}
	return nil
}

// SaveBatch stores the run row and one row per image in a single transaction.
func (r *SQLSink) SaveBatch(ctx context.Context, b *entity.BatchResult) error {
	runID, err := uuid.Parse(b.Metadata.RunID)
	if err != nil {
		runID = uuid.New()
		r.log.Warn("batch has no valid run id, generated one", "run_id", runID)
	}
	tx, err := r.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	m := b.Metadata
	q, args := r.builder().Insert(runsTable).
		Columns("id", "input_folder", "processing_date", "total_images", "successful", "failed").
		Values(runID.String(), m.InputFolder, formatTime(m.ProcessingDate), m.TotalImages, m.Successful, m.Failed).
		Query()
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		r.log.Error("run insert failed", "run_id", runID, "error", err)
		return storageError("insert run", err)
	}

	paths := make([]string, 0, len(b.Results))
	for p := range b.Results {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		rec, err := toImageRecord(b.Results[p], uuid.NullUUID{UUID: runID, Valid: true})
		if err != nil {
			return err
		}
		if err := r.insertImage(ctx, tx, rec); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return storageError("commit", err)
	}
	r.log.Info("run recorded", "run_id", runID, "images", len(paths), "successful", m.Successful, "failed", m.Failed)
	return nil
}

// SaveImage stores a single-image result outside any run.
func (r *SQLSink) SaveImage(ctx context.Context, res entity.ExtractionResult) error {
	rec, err := toImageRecord(res, uuid.NullUUID{})
	if err != nil {
		return err
	}
	return r.insertImage(ctx, r.store.DB(), rec)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLSink) insertImage(ctx context.Context, ex execer, rec imageRow) error {
	q, args := r.builder().Insert(imagesTable).
		Columns("id", "run_id", "file_path", "status", "best_text", "method", "confidence", "error_message", "all_results", "processed_at").
		Values(rec.ID.String(), rec.RunID, rec.FilePath, rec.Status, rec.BestText, rec.Method, rec.Confidence, rec.ErrorText, rec.AllResults, formatTime(rec.ProcessedAt)).
		Query()
	if _, err := ex.ExecContext(ctx, q, args...); err != nil {
		r.log.Error("image insert failed", "file_path", rec.FilePath, "error", err)
		return storageError("insert image", err)
	}
	return nil
}

// ListRuns returns the newest runs first.
func (r *SQLSink) ListRuns(ctx context.Context, limit int) ([]entity.RunRecord, error) {
	sel := r.builder().Select("id", "input_folder", "processing_date", "total_images", "successful", "failed").
		From(entsql.Table(runsTable)).
		OrderBy(entsql.Desc("processing_date"))
	if limit > 0 {
		sel.Limit(limit)
	}
	q, args := sel.Query()
	rows, err := r.store.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageError("list runs", err)
	}
	defer rows.Close()

	var out []entity.RunRecord
	for rows.Next() {
		var (
			rec      entity.RunRecord
			id, date string
		)
		if err := rows.Scan(&id, &rec.InputFolder, &date, &rec.TotalImages, &rec.Successful, &rec.Failed); err != nil {
			return nil, storageError("scan run", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, storageError("parse run id", err)
		}
		if rec.ProcessingDate, err = time.Parse(time.RFC3339Nano, date); err != nil {
			return nil, storageError("parse run date", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list runs", err)
	}
	return out, nil
}

// ImagesForRun returns a run's image rows ordered by path.
func (r *SQLSink) ImagesForRun(ctx context.Context, runID uuid.UUID) ([]entity.ImageRecord, error) {
	q, args := r.builder().Select("id", "file_path", "status", "best_text", "method", "confidence", "error_message", "all_results", "processed_at").
		From(entsql.Table(imagesTable)).
		Where(entsql.EQ("run_id", runID.String())).
		OrderBy("file_path").
		Query()
	rows, err := r.store.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageError("list images", err)
	}
	defer rows.Close()

	var out []entity.ImageRecord
	for rows.Next() {
		var (
			rec        entity.ImageRecord
			id, at     string
			errText    sql.NullString
			allResults sql.NullString
		)
		if err := rows.Scan(&id, &rec.FilePath, &rec.Status, &rec.BestText, &rec.Method, &rec.Confidence, &errText, &allResults, &at); err != nil {
			return nil, storageError("scan image", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, storageError("parse image id", err)
		}
		if rec.ProcessedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, storageError("parse image time", err)
		}
		rec.RunID = runID
		if errText.Valid {
			rec.ErrorText = &errText.String
		}
		if allResults.Valid {
			rec.AllResults = json.RawMessage(allResults.String)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list images", err)
	}
	return out, nil
}

// imageRow is an ImageRecord with nullable columns ready for insertion.
type imageRow struct {
	entity.ImageRecord
	RunID      sql.NullString
	ErrorText  sql.NullString
	AllResults sql.NullString
}

func toImageRecord(res entity.ExtractionResult, runID uuid.NullUUID) (imageRow, error) {
	row := imageRow{ImageRecord: entity.ImageRecord{
		ID:          uuid.New(),
		FilePath:    res.FilePath,
		ProcessedAt: res.Timestamp,
	}}
	if runID.Valid {
		row.RunID = sql.NullString{String: runID.UUID.String(), Valid: true}
	}
	switch {
	case res.Error != "":
		row.Status = string(constants.ResultStatusError)
		row.Method = constants.MethodNone
		row.ErrorText = sql.NullString{String: res.Error, Valid: true}
	case res.Succeeded():
		row.Status = string(constants.ResultStatusOK)
	default:
		row.Status = string(constants.ResultStatusEmpty)
	}
	if res.BestResult != nil {
		row.BestText = res.BestResult.Text
		row.Method = res.BestResult.Method
		row.Confidence = res.BestResult.Confidence
	}
	if res.AllResults != nil {
		b, err := json.Marshal(res.AllResults)
		if err != nil {
			return imageRow{}, fmt.Errorf("marshal all_results for %s: %w", res.FilePath, err)
		}
		row.AllResults = sql.NullString{String: string(b), Valid: true}
	}
	return row, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
