package datasource

import (
	"fmt"

	"github.com/vanderheijden86/atlasview/pkg/scene"
)

// LoadSnapshot performs smart multi-source detection and loading. It discovers
// all available sources in the data directory (SQLite, JSON export), validates
// them, selects the freshest valid source, and loads the snapshot from it.
// SQLite is preferred over JSON at comparable freshness, since the database
// reflects the most recent clustering run.
func LoadSnapshot(dataDir string) (*scene.Snapshot, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		DataDir:                dataDir,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         false,
	})
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no valid sources in %s", dataDir)
	}

	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, err
	}

	return LoadFromSource(best)
}

// LoadFromSource loads a snapshot from a specific DataSource, dispatching to
// the appropriate reader based on source type.
func LoadFromSource(source DataSource) (*scene.Snapshot, error) {
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		return reader.LoadSnapshot()

	case SourceTypeJSON:
		return LoadJSONSnapshot(source.Path)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}
