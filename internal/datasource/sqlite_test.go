package datasource

import (
	"database/sql"
	"path/filepath"
	"testing"
)

const backendSchema = `
CREATE TABLE clustering_runs (
	id INTEGER PRIMARY KEY,
	is_current INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE cluster_metadata (
	clustering_run_id INTEGER NOT NULL,
	cluster_label INTEGER NOT NULL,
	center_x REAL,
	center_y REAL,
	image_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE cluster_assignments (
	clustering_run_id INTEGER NOT NULL,
	image_id INTEGER NOT NULL,
	x REAL,
	y REAL,
	cluster_label INTEGER
);
CREATE TABLE images (
	id INTEGER PRIMARY KEY,
	thumbnail_path TEXT
);
`

// newBackendDB creates a populated fixture database mimicking the clustering
// backend: one superseded run and one current run with two clusters, a noise
// item, and a centroid-less cluster.
func newBackendDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atlas.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	stmts := []string{
		backendSchema,
		`INSERT INTO clustering_runs (id, is_current) VALUES (1, 0), (2, 1)`,
		// Run 1 data must never leak into the loaded snapshot.
		`INSERT INTO cluster_metadata VALUES (1, 0, 999, 999, 50)`,
		`INSERT INTO cluster_assignments VALUES (1, 10, 999, 999, 0)`,
		// Run 2: two placeable clusters, one without a centroid, the
		// backend's -1 noise marker, and a NULL label.
		`INSERT INTO cluster_metadata VALUES
			(2, 0, 100.5, 200.25, 2),
			(2, 1, -50, 30, 1),
			(2, 2, NULL, NULL, 1),
			(2, -1, 0, 0, 2)`,
		`INSERT INTO images (id, thumbnail_path) VALUES
			(10, 'thumbs/10.jpg'),
			(11, 'thumbs/11.jpg'),
			(12, NULL),
			(13, 'thumbs/13.jpg'),
			(14, 'thumbs/14.jpg')`,
		`INSERT INTO cluster_assignments VALUES
			(2, 10, 1, 2, 0),
			(2, 11, 3, 4, 0),
			(2, 12, 5, 6, 1),
			(2, 13, 7, 8, -1),
			(2, 14, NULL, NULL, NULL)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("fixture statement failed: %v\n%s", err, s)
		}
	}
	return path
}

func sqliteSource(path string) DataSource {
	return DataSource{Type: SourceTypeSQLite, Path: path}
}

func TestSQLiteReader_LoadSnapshot(t *testing.T) {
	path := newBackendDB(t)
	r, err := NewSQLiteReader(sqliteSource(path))
	if err != nil {
		t.Fatalf("NewSQLiteReader: %v", err)
	}
	defer r.Close()

	snap, err := r.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	// Only run 2's placeable, non-noise clusters survive.
	if len(snap.Clusters) != 2 {
		t.Fatalf("want 2 clusters, got %d: %+v", len(snap.Clusters), snap.Clusters)
	}
	if snap.Clusters[0].ID != 0 || snap.Clusters[0].X != 100.5 || snap.Clusters[0].MemberCount != 2 {
		t.Errorf("cluster 0 = %+v", snap.Clusters[0])
	}

	if len(snap.Items) != 5 {
		t.Fatalf("want 5 items, got %d", len(snap.Items))
	}

	byID := map[int64]int{}
	for i, it := range snap.Items {
		byID[it.ID] = i
	}

	it10 := snap.Items[byID[10]]
	if it10.ClusterID == nil || *it10.ClusterID != 0 {
		t.Error("image 10 should map to cluster 0")
	}
	if it10.Thumbnail != "thumbs/10.jpg" || it10.X != 1 || it10.Y != 2 {
		t.Errorf("image 10 = %+v", it10)
	}
	if snap.Items[byID[12]].Thumbnail != "" {
		t.Error("NULL thumbnail should read as empty")
	}
	if snap.Items[byID[13]].ClusterID != nil {
		t.Error("label -1 is the noise marker and must map to nil")
	}
	if it14 := snap.Items[byID[14]]; it14.ClusterID != nil || it14.X != 0 || it14.Y != 0 {
		t.Errorf("NULL label and position should read as noise at origin, got %+v", it14)
	}
}

func TestSQLiteReader_FallsBackToLatestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atlas.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(backendSchema); err != nil {
		t.Fatal(err)
	}
	// No run is flagged current.
	if _, err := db.Exec(
		`INSERT INTO clustering_runs (id, is_current) VALUES (1, 0), (2, 0)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO cluster_metadata VALUES (2, 0, 10, 10, 1)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO images (id, thumbnail_path) VALUES (1, 't')`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO cluster_assignments VALUES (2, 1, 0, 0, 0)`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	r, err := NewSQLiteReader(sqliteSource(path))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	snap, err := r.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.Clusters) != 1 || len(snap.Items) != 1 {
		t.Errorf("latest run not loaded: %d clusters, %d items", len(snap.Clusters), len(snap.Items))
	}
}

func TestSQLiteReader_NoRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atlas.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(backendSchema); err != nil {
		t.Fatal(err)
	}
	db.Close()

	r, err := NewSQLiteReader(sqliteSource(path))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, err := r.LoadSnapshot(); err == nil {
		t.Error("empty database should error")
	}
}

func TestNewSQLiteReader_RejectsWrongType(t *testing.T) {
	if _, err := NewSQLiteReader(DataSource{Type: SourceTypeJSON, Path: "x.json"}); err == nil {
		t.Error("JSON source must be rejected")
	}
}
