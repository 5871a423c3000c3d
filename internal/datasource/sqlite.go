package datasource

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"

	"github.com/vanderheijden86/atlasview/pkg/scene"
)

// SQLiteReader provides read access to the clustering backend's database.
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a backend database for reading.
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	// Open in read-only mode; the backend owns all writes.
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	return &SQLiteReader{db: db, path: source.Path}, nil
}

// Close closes the database connection.
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadSnapshot reads the current clustering run into a scene snapshot.
// Cluster labels below zero are the backend's noise marker and map to
// unclustered items, as does a NULL label.
func (r *SQLiteReader) LoadSnapshot() (*scene.Snapshot, error) {
	runID, err := r.currentRunID()
	if err != nil {
		return nil, err
	}

	clusters, err := r.loadClusters(runID)
	if err != nil {
		return nil, err
	}
	items, err := r.loadItems(runID)
	if err != nil {
		return nil, err
	}

	return scene.NewSnapshot(uuid.New(), clusters, items), nil
}

// currentRunID finds the clustering run flagged current, falling back to the
// most recent run when the flag was never set.
func (r *SQLiteReader) currentRunID() (int64, error) {
	var id int64
	err := r.db.QueryRow(
		`SELECT id FROM clustering_runs WHERE is_current = 1 ORDER BY id DESC LIMIT 1`,
	).Scan(&id)
	if err == sql.ErrNoRows {
		err = r.db.QueryRow(
			`SELECT id FROM clustering_runs ORDER BY id DESC LIMIT 1`,
		).Scan(&id)
	}
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("no clustering runs in %s", r.path)
	}
	if err != nil {
		return 0, fmt.Errorf("querying clustering run: %w", err)
	}
	return id, nil
}

func (r *SQLiteReader) loadClusters(runID int64) ([]scene.ClusterNode, error) {
	rows, err := r.db.Query(`
		SELECT cluster_label, center_x, center_y, image_count
		FROM cluster_metadata
		WHERE clustering_run_id = ? AND cluster_label >= 0
		ORDER BY cluster_label
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying cluster metadata: %w", err)
	}
	defer rows.Close()

	var clusters []scene.ClusterNode
	for rows.Next() {
		var c scene.ClusterNode
		var cx, cy sql.NullFloat64
		if err := rows.Scan(&c.ID, &cx, &cy, &c.MemberCount); err != nil {
			return nil, fmt.Errorf("scanning cluster row: %w", err)
		}
		// A cluster without a centroid cannot be placed; skip it and let
		// its members fall through to noise during snapshot indexing.
		if !cx.Valid || !cy.Valid {
			continue
		}
		c.X = cx.Float64
		c.Y = cy.Float64
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

func (r *SQLiteReader) loadItems(runID int64) ([]scene.ItemPosition, error) {
	rows, err := r.db.Query(`
		SELECT a.image_id, a.x, a.y, a.cluster_label, i.thumbnail_path
		FROM cluster_assignments a
		JOIN images i ON i.id = a.image_id
		WHERE a.clustering_run_id = ?
		ORDER BY a.image_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying cluster assignments: %w", err)
	}
	defer rows.Close()

	var items []scene.ItemPosition
	for rows.Next() {
		var it scene.ItemPosition
		var x, y sql.NullFloat64
		var label sql.NullInt64
		var thumb sql.NullString
		if err := rows.Scan(&it.ID, &x, &y, &label, &thumb); err != nil {
			return nil, fmt.Errorf("scanning assignment row: %w", err)
		}
		if x.Valid {
			it.X = x.Float64
		}
		if y.Valid {
			it.Y = y.Float64
		}
		if label.Valid && label.Int64 >= 0 {
			v := label.Int64
			it.ClusterID = &v
		}
		if thumb.Valid {
			it.Thumbnail = thumb.String
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
