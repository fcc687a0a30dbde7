// Package history persists soil readings in SQLite so reports can show
// trends across restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/cropwatch/cropwatch/internal/farm"
)

// Metric names recorded for every snapshot.
const (
	MetricMoisture    = "moisture"
	MetricTemperature = "temperature"
	MetricPH          = "ph"
	MetricNitrogen    = "nitrogen"
	MetricPhosphorus  = "phosphorus"
	MetricPotassium   = "potassium"
	MetricCropHealth  = "crop_health"
	MetricPestAlerts  = "pest_alerts"
)

// Metrics lists the recorded metrics in display order.
var Metrics = []string{
	MetricMoisture, MetricTemperature, MetricPH,
	MetricNitrogen, MetricPhosphorus, MetricPotassium,
	MetricCropHealth, MetricPestAlerts,
}

// Point is a single stored reading.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Stats summarizes one metric over a window.
type Stats struct {
	Metric  string  `json:"metric"`
	Count   int     `json:"count"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Avg     float64 `json:"avg"`
	Current float64 `json:"current"`
}

// Store is a SQLite-backed reading store.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the database location within dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "history.db")
}

// Open creates or opens the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	// Open database with pragmas in DSN so every pool connection is configured
	dsn := path + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}.Encode()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", path).Msg("History store initialized")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			metric TEXT NOT NULL,
			value REAL NOT NULL,
			timestamp INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_readings_lookup
		ON readings(metric, timestamp);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func snapshotValues(snap farm.MetricsSnapshot) map[string]float64 {
	values := map[string]float64{
		MetricMoisture:    snap.Soil.Moisture,
		MetricTemperature: snap.Soil.Temperature,
		MetricPH:          snap.Soil.PH,
		MetricNitrogen:    snap.Soil.Nitrogen,
		MetricPhosphorus:  snap.Soil.Phosphorus,
		MetricPotassium:   snap.Soil.Potassium,
	}
	if snap.Crop != nil {
		values[MetricCropHealth] = snap.Crop.AvgHealthScore
	}
	if snap.Pest != nil {
		values[MetricPestAlerts] = float64(snap.Pest.ActiveAlerts)
	}
	return values
}

// Record stores every reading in snap at time at in one transaction.
func (s *Store) Record(ctx context.Context, snap farm.MetricsSnapshot, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO readings (metric, value, timestamp) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer stmt.Close()

	for metric, value := range snapshotValues(snap) {
		if _, err := stmt.ExecContext(ctx, metric, value, at.UnixMilli()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert %s reading: %w", metric, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history batch: %w", err)
	}
	return nil
}

// Query returns the readings of metric within [start, end], oldest first.
func (s *Store) Query(ctx context.Context, metric string, start, end time.Time) ([]Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, value FROM readings
		WHERE metric = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, id ASC
	`, metric, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	points := []Point{}
	for rows.Next() {
		var ts int64
		var p Point
		if err := rows.Scan(&ts, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		p.Timestamp = time.UnixMilli(ts)
		points = append(points, p)
	}
	return points, rows.Err()
}

// Summary returns per-metric statistics within [start, end]. Metrics without
// readings are omitted.
func (s *Store) Summary(ctx context.Context, start, end time.Time) ([]Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.metric, COUNT(*), MIN(r.value), MAX(r.value), AVG(r.value),
			(SELECT value FROM readings l
			 WHERE l.metric = r.metric AND l.timestamp >= ? AND l.timestamp <= ?
			 ORDER BY l.timestamp DESC, l.id DESC LIMIT 1)
		FROM readings r
		WHERE r.timestamp >= ? AND r.timestamp <= ?
		GROUP BY r.metric
	`, start.UnixMilli(), end.UnixMilli(), start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to summarize history: %w", err)
	}
	defer rows.Close()

	byMetric := make(map[string]Stats)
	for rows.Next() {
		var st Stats
		if err := rows.Scan(&st.Metric, &st.Count, &st.Min, &st.Max, &st.Avg, &st.Current); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		byMetric[st.Metric] = st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Stats, 0, len(byMetric))
	for _, m := range Metrics {
		if st, ok := byMetric[m]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

// Prune deletes readings older than cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE timestamp < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		log.Debug().Int64("removed", n).Msg("Pruned history readings")
	}
	return n, nil
}

// RunRetention prunes readings older than retention every interval until
// ctx is cancelled.
func (s *Store) RunRetention(ctx context.Context, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := s.Prune(ctx, now.Add(-retention)); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("History retention failed")
			}
		}
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
