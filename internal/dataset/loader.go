package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/collision-dashboard/internal/domain"
	"github.com/couchcryptid/collision-dashboard/internal/observability"
)

// Loader produces a normalized Dataset for a row limit.
type Loader interface {
	Load(ctx context.Context, rowLimit int) (*domain.Dataset, error)
	Fingerprint() (string, error)
}

// CSVLoader reads a bounded prefix of a CSV source and normalizes it.
// It does no caching; wrap it in a Cache.
type CSVLoader struct {
	source  Source
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCSVLoader creates a loader for source.
func NewCSVLoader(source Source, logger *slog.Logger, metrics *observability.Metrics) *CSVLoader {
	return &CSVLoader{
		source:  source,
		logger:  logger,
		metrics: metrics,
	}
}

// Fingerprint reports the source fingerprint.
func (l *CSVLoader) Fingerprint() (string, error) {
	return l.source.Fingerprint()
}

// Load reads at most rowLimit data rows, drops rows without coordinates or a
// parseable timestamp, and returns the normalized Dataset.
func (l *CSVLoader) Load(ctx context.Context, rowLimit int) (*domain.Dataset, error) {
	if rowLimit <= 0 {
		return nil, fmt.Errorf("%w: row limit %d must be positive", domain.ErrInvalidParameter, rowLimit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	ds, err := l.load(rowLimit)
	if err != nil {
		l.metrics.DatasetLoads.WithLabelValues("error").Inc()
		l.logger.Error("dataset load failed", "source", l.source.Name(), "row_limit", rowLimit, "error", err)
		return nil, err
	}

	l.metrics.DatasetLoads.WithLabelValues("success").Inc()
	l.metrics.DatasetLoadDuration.Observe(time.Since(start).Seconds())
	l.metrics.DatasetRecords.WithLabelValues(strconv.Itoa(rowLimit)).Set(float64(ds.Len()))
	l.metrics.RowsDropped.WithLabelValues(domain.DropMissingCoordinates.String()).Add(float64(ds.Dropped.MissingCoordinates))
	l.metrics.RowsDropped.WithLabelValues(domain.DropInvalidTimestamp.String()).Add(float64(ds.Dropped.InvalidTimestamp))

	l.logger.Info("dataset loaded",
		"source", l.source.Name(),
		"row_limit", rowLimit,
		"rows_read", ds.RowsRead,
		"records", ds.Len(),
		"duration", time.Since(start),
	)
	if ds.Dropped.InvalidTimestamp > 0 {
		l.logger.Warn("rows with unparseable crash date/time dropped",
			"row_limit", rowLimit,
			"count", ds.Dropped.InvalidTimestamp,
		)
	}
	return ds, nil
}

func (l *CSVLoader) load(rowLimit int) (*domain.Dataset, error) {
	fingerprint, err := l.source.Fingerprint()
	if err != nil {
		return nil, err
	}

	rc, err := l.source.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return ReadCSV(rc, rowLimit, fingerprint)
}

// ReadCSV parses a collision CSV from r, keeping at most rowLimit data rows
// before dropping invalid ones.
func ReadCSV(r io.Reader, rowLimit int, fingerprint string) (*domain.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: source has no header row", domain.ErrSchemaMismatch)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", domain.ErrSourceUnavailable, err)
	}

	schema, err := domain.ResolveSchema(header)
	if err != nil {
		return nil, err
	}

	records := make([]domain.CollisionRecord, 0, min(rowLimit, 1<<16))
	var dropped domain.DropCounts
	rowsRead := 0

	for rowsRead < rowLimit {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read row %d: %w", domain.ErrSourceUnavailable, rowsRead, err)
		}

		rec, reason := domain.ParseRow(schema, row, rowsRead)
		rowsRead++

		switch reason {
		case domain.Keep:
			records = append(records, rec)
		case domain.DropMissingCoordinates:
			dropped.MissingCoordinates++
		case domain.DropInvalidTimestamp:
			dropped.InvalidTimestamp++
		}
	}

	return domain.NewDataset(records, schema.Columns(), rowLimit, rowsRead, dropped, fingerprint), nil
}
