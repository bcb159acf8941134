// package repositories provides the persistence layer for saved
// discovery runs.
package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/earshot/internal/models"
	"github.com/desertthunder/earshot/internal/shared"
)

// listSeparator joins multi-valued text columns (artists, reasons).
const listSeparator = "|"

// RunRepository persists [models.DiscoveryRun] records. A run is one
// header row plus one positioned row per ranked track; deleting the
// header cascades to the tracks.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new [RunRepository] with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run and its ranked tracks in a single transaction.
func (r *RunRepository) Create(run *models.DiscoveryRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO discovery_runs (run_id, created_at, desired, pool_size, diversified_size, skipped_known, trace)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		run.RunID,
		run.Created,
		run.Desired,
		run.PoolSize,
		run.DiversifiedSize,
		run.SkippedKnown,
		run.Trace,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	trackQuery := `
		INSERT INTO discovery_run_tracks (
			run_id, position, track_id, name, artists,
			artwork_url, uri, preview_url, popularity, score, reasons
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for position, result := range run.Results {
		_, err = tx.Exec(trackQuery,
			run.RunID,
			position,
			result.Track.ID,
			result.Track.Name,
			strings.Join(result.Track.Artists, listSeparator),
			result.Track.ArtworkURL,
			result.Track.URI,
			result.Track.PreviewURL,
			result.Track.Popularity,
			result.Score,
			strings.Join(result.Reasons, listSeparator),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run track %d: %w", position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	return nil
}

// Get retrieves a run with its ranked tracks in stored order.
func (r *RunRepository) Get(id string) (*models.DiscoveryRun, error) {
	query := `
		SELECT run_id, created_at, desired, pool_size, diversified_size, skipped_known, trace
		FROM discovery_runs
		WHERE run_id = ?
	`

	run := &models.DiscoveryRun{}
	var createdAt time.Time

	err := r.db.QueryRow(query, id).Scan(
		&run.RunID,
		&createdAt,
		&run.Desired,
		&run.PoolSize,
		&run.DiversifiedSize,
		&run.SkippedKnown,
		&run.Trace,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	run.Created = createdAt

	results, err := r.runTracks(id)
	if err != nil {
		return nil, err
	}
	run.Results = results
	run.TrackCount = len(results)

	return run, nil
}

// List retrieves run headers with track counts, newest first. A limit
// of zero or less returns everything.
func (r *RunRepository) List(limit int) ([]*models.DiscoveryRun, error) {
	query := `
		SELECT r.run_id, r.created_at, r.desired, r.pool_size, r.diversified_size, r.skipped_known, r.trace,
			COUNT(t.track_id)
		FROM discovery_runs r
		LEFT JOIN discovery_run_tracks t ON t.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.created_at DESC
	`

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.DiscoveryRun
	for rows.Next() {
		run := &models.DiscoveryRun{}
		var createdAt time.Time

		err := rows.Scan(
			&run.RunID,
			&createdAt,
			&run.Desired,
			&run.PoolSize,
			&run.DiversifiedSize,
			&run.SkippedKnown,
			&run.Trace,
			&run.TrackCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Created = createdAt

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Delete removes a run; track rows cascade with it.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM discovery_runs WHERE run_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}

	return nil
}

// runTracks loads the ranked tracks of one run ordered by position.
func (r *RunRepository) runTracks(runID string) ([]models.DiscoveryResult, error) {
	query := `
		SELECT track_id, name, artists, artwork_url, uri, preview_url, popularity, score, reasons
		FROM discovery_run_tracks
		WHERE run_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run tracks: %w", err)
	}
	defer rows.Close()

	var results []models.DiscoveryResult
	for rows.Next() {
		var (
			result  models.DiscoveryResult
			artists string
			reasons string
		)

		err := rows.Scan(
			&result.Track.ID,
			&result.Track.Name,
			&artists,
			&result.Track.ArtworkURL,
			&result.Track.URI,
			&result.Track.PreviewURL,
			&result.Track.Popularity,
			&result.Score,
			&reasons,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run track: %w", err)
		}

		result.Track.Artists = splitList(artists)
		result.Reasons = splitList(reasons)
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return results, nil
}

// splitList is the inverse of joining with listSeparator; empty text
// yields a nil slice rather than one empty element.
func splitList(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, listSeparator)
}
