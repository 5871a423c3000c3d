// Package datasource loads atlas dataset snapshots produced by the clustering
// backend. It discovers, validates, and selects the freshest valid source:
// the backend's SQLite database or an exported JSON snapshot file. A snapshot
// is read-only; refreshes replace it wholesale.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is the backend's SQLite database (atlas.db)
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSON is an exported JSON snapshot file
	SourceTypeJSON SourceType = "json"
)

// Priority values for source types (higher = more authoritative). SQLite
// wins at equal freshness because it reflects the latest clustering run.
const (
	PrioritySQLite = 100
	PriorityJSON   = 50
)

// Candidate file names, in preference order.
var (
	sqliteNames = []string{"atlas.db", "atlasview.db"}
	jsonNames   = []string{"snapshot.json", "atlas.json"}
)

// DataSource represents a potential source of atlas snapshot data
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// ItemCount is the number of items in the source (set during validation)
	ItemCount int `json:"item_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, items=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.ItemCount, status)
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// DataDir is the directory holding snapshot sources
	DataDir string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
}

// DiscoverSources finds all potential snapshot sources in the data directory,
// sorted freshest first with priority as tie-break.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	dir := opts.DataDir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	var sources []DataSource
	for _, name := range sqliteNames {
		if s, ok := statSource(filepath.Join(dir, name), SourceTypeSQLite, PrioritySQLite); ok {
			sources = append(sources, s)
		}
	}
	for _, name := range jsonNames {
		if s, ok := statSource(filepath.Join(dir, name), SourceTypeJSON, PriorityJSON); ok {
			sources = append(sources, s)
		}
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			validateSource(&sources[i])
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sort.Slice(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	return sources, nil
}

// SelectBestSource returns the freshest valid source.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	return DataSource{}, fmt.Errorf("no valid snapshot sources")
}

func statSource(path string, typ SourceType, priority int) (DataSource, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return DataSource{}, false
	}
	return DataSource{
		Type:     typ,
		Path:     path,
		Priority: priority,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, true
}

// validateSource checks that the source opens and contains a usable snapshot.
func validateSource(s *DataSource) {
	snap, err := LoadFromSource(*s)
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return
	}
	s.Valid = true
	s.ItemCount = len(snap.Items)
}
