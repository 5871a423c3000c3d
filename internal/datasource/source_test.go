package datasource

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiscoverSources_FindsKnownNames(t *testing.T) {
	dir := t.TempDir()
	writeSnapshotFile(t, dir, "snapshot.json", sampleSnapshot)
	writeSnapshotFile(t, dir, "unrelated.json", `{}`)

	sources, err := DiscoverSources(DiscoveryOptions{DataDir: dir})
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("want 1 source, got %d: %+v", len(sources), sources)
	}
	if sources[0].Type != SourceTypeJSON {
		t.Errorf("type = %s, want json", sources[0].Type)
	}
	if filepath.Base(sources[0].Path) != "snapshot.json" {
		t.Errorf("path = %s", sources[0].Path)
	}
	if sources[0].Size == 0 {
		t.Error("size not populated")
	}
}

func TestDiscoverSources_EmptyDir(t *testing.T) {
	sources, err := DiscoverSources(DiscoveryOptions{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("empty dir should yield no sources, got %d", len(sources))
	}
}

func TestDiscoverSources_FreshestFirst(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeSnapshotFile(t, dir, "atlas.db", "placeholder")
	jsonPath := writeSnapshotFile(t, dir, "snapshot.json", sampleSnapshot)

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(dbPath, old, old); err != nil {
		t.Fatal(err)
	}
	newer := time.Now()
	if err := os.Chtimes(jsonPath, newer, newer); err != nil {
		t.Fatal(err)
	}

	sources, err := DiscoverSources(DiscoveryOptions{DataDir: dir})
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("want 2 sources, got %d", len(sources))
	}
	if sources[0].Type != SourceTypeJSON {
		t.Errorf("fresher JSON export should sort first, got %s", sources[0].Type)
	}
}

func TestDiscoverSources_PriorityBreaksTies(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeSnapshotFile(t, dir, "atlas.db", "placeholder")
	jsonPath := writeSnapshotFile(t, dir, "snapshot.json", sampleSnapshot)

	same := time.Now().Truncate(time.Second)
	for _, p := range []string{dbPath, jsonPath} {
		if err := os.Chtimes(p, same, same); err != nil {
			t.Fatal(err)
		}
	}

	sources, err := DiscoverSources(DiscoveryOptions{DataDir: dir})
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("want 2 sources, got %d", len(sources))
	}
	if sources[0].Type != SourceTypeSQLite {
		t.Errorf("at equal mtime the database should win, got %s", sources[0].Type)
	}
}

func TestDiscoverSources_ValidationFiltersBroken(t *testing.T) {
	dir := t.TempDir()
	writeSnapshotFile(t, dir, "snapshot.json", sampleSnapshot)
	writeSnapshotFile(t, dir, "atlas.json", `not json at all`)

	sources, err := DiscoverSources(DiscoveryOptions{
		DataDir:                dir,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("invalid source should be dropped, got %d", len(sources))
	}
	if !sources[0].Valid || sources[0].ItemCount != 4 {
		t.Errorf("valid source not annotated: %+v", sources[0])
	}

	// IncludeInvalid keeps the broken one, flagged.
	all, err := DiscoverSources(DiscoveryOptions{
		DataDir:                dir,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         true,
	})
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("want both sources, got %d", len(all))
	}
	var sawInvalid bool
	for _, s := range all {
		if !s.Valid && s.ValidationError != "" {
			sawInvalid = true
		}
	}
	if !sawInvalid {
		t.Error("broken source should carry a validation error")
	}
}

func TestSelectBestSource(t *testing.T) {
	sources := []DataSource{
		{Path: "a", Valid: false},
		{Path: "b", Valid: true},
		{Path: "c", Valid: true},
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		t.Fatalf("SelectBestSource: %v", err)
	}
	if best.Path != "b" {
		t.Errorf("best = %s, want first valid entry b", best.Path)
	}

	if _, err := SelectBestSource([]DataSource{{Valid: false}}); err == nil {
		t.Error("no valid sources should error")
	}
	if _, err := SelectBestSource(nil); err == nil {
		t.Error("empty slice should error")
	}
}

func TestLoadSnapshot_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeSnapshotFile(t, dir, "snapshot.json", sampleSnapshot)

	snap, err := LoadSnapshot(dir)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.Items) != 4 || len(snap.Clusters) != 2 {
		t.Errorf("snapshot = %d items / %d clusters", len(snap.Items), len(snap.Clusters))
	}
}

func TestLoadSnapshot_NoSources(t *testing.T) {
	if _, err := LoadSnapshot(t.TempDir()); err == nil {
		t.Error("directory without sources should error")
	}
}

func TestLoadFromSource_UnknownType(t *testing.T) {
	if _, err := LoadFromSource(DataSource{Type: "csv", Path: "x"}); err == nil {
		t.Error("unknown source type should error")
	}
}
