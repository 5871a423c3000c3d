package datasource

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vanderheijden86/atlasview/pkg/scene"
)

// snapshotFile is the exported snapshot format the backend writes alongside
// the database. Field names follow its export schema.
type snapshotFile struct {
	SnapshotID string `json:"snapshot_id"`
	Clusters   []struct {
		ID          int64   `json:"id"`
		X           float64 `json:"x"`
		Y           float64 `json:"y"`
		MemberCount int     `json:"member_count"`
	} `json:"clusters"`
	Items []struct {
		ID        int64   `json:"id"`
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
		ClusterID *int64  `json:"cluster_id"`
		Thumbnail string  `json:"thumbnail"`
	} `json:"items"`
}

// LoadJSONSnapshot reads an exported snapshot file into a scene snapshot.
func LoadJSONSnapshot(path string) (*scene.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read snapshot file: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("cannot parse snapshot file %s: %w", path, err)
	}

	id, err := uuid.Parse(file.SnapshotID)
	if err != nil {
		// Exports without an identifier still load; mint one so the
		// viewer can tell successive reloads apart.
		id = uuid.New()
	}

	clusters := make([]scene.ClusterNode, 0, len(file.Clusters))
	for _, c := range file.Clusters {
		clusters = append(clusters, scene.ClusterNode{
			ID:          c.ID,
			X:           c.X,
			Y:           c.Y,
			MemberCount: c.MemberCount,
		})
	}

	items := make([]scene.ItemPosition, 0, len(file.Items))
	for _, it := range file.Items {
		items = append(items, scene.ItemPosition{
			ID:        it.ID,
			X:         it.X,
			Y:         it.Y,
			ClusterID: it.ClusterID,
			Thumbnail: it.Thumbnail,
		})
	}

	return scene.NewSnapshot(id, clusters, items), nil
}
