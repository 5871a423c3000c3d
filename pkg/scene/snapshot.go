// Package scene assembles the per-frame draw list for the atlas surface. It
// combines the dataset snapshot from the clustering collaborator with the
// expansion state, explosion-mode relaxation, search-filter dimming, and the
// camera's culling into an ordered list of draw commands for whatever render
// target the host plugs in.
package scene

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"
)

// ClusterNode is a cluster centroid as computed by the upstream clustering
// run. Immutable once received; a new snapshot replaces the set wholesale.
type ClusterNode struct {
	ID          int64
	X, Y        float64
	MemberCount int
}

// ItemPosition is a single image on the surface. For clustered items the raw
// X/Y is informational; the actual render offset comes from the spiral
// layout. ClusterID is nil for unclustered ("noise") items.
type ItemPosition struct {
	ID        int64
	X, Y      float64
	ClusterID *int64
	Thumbnail string // opaque handle for the external image resource
}

// Clustered reports whether the item belongs to a cluster.
func (it ItemPosition) Clustered() bool { return it.ClusterID != nil }

// Snapshot is one read-only dataset state. The engine never mutates it;
// refreshes swap in a whole new Snapshot keyed by a fresh identity.
type Snapshot struct {
	ID       uuid.UUID
	Clusters []ClusterNode
	Items    []ItemPosition

	members  map[int64][]int // cluster id -> indexes into Items, build order
	clusters map[int64]int   // cluster id -> index into Clusters
	noise    []int           // indexes of unclustered items
}

// NewSnapshot indexes the given clusters and items. Items referencing a
// cluster id absent from clusters are treated as noise rather than dropped;
// a well-behaved collaborator never produces them, but a half-written refresh
// must not crash the frame loop.
func NewSnapshot(id uuid.UUID, clusters []ClusterNode, items []ItemPosition) *Snapshot {
	s := &Snapshot{
		ID:       id,
		Clusters: clusters,
		Items:    items,
		members:  make(map[int64][]int, len(clusters)),
		clusters: make(map[int64]int, len(clusters)),
	}
	for i, c := range clusters {
		s.clusters[c.ID] = i
	}
	for i, it := range items {
		if it.ClusterID != nil {
			if _, ok := s.clusters[*it.ClusterID]; ok {
				s.members[*it.ClusterID] = append(s.members[*it.ClusterID], i)
				continue
			}
		}
		s.noise = append(s.noise, i)
	}
	return s
}

// Cluster returns the cluster with the given id.
func (s *Snapshot) Cluster(id int64) (ClusterNode, bool) {
	i, ok := s.clusters[id]
	if !ok {
		return ClusterNode{}, false
	}
	return s.Clusters[i], true
}

// MemberIndexes returns the item indexes belonging to cluster id, in snapshot
// order. The slice is owned by the snapshot; callers must not mutate it.
func (s *Snapshot) MemberIndexes(id int64) []int { return s.members[id] }

// NoiseIndexes returns the indexes of unclustered items in snapshot order.
func (s *Snapshot) NoiseIndexes() []int { return s.noise }

// Centroids returns the world positions of all cluster centroids.
func (s *Snapshot) Centroids() []r2.Vec {
	out := make([]r2.Vec, len(s.Clusters))
	for i, c := range s.Clusters {
		out[i] = r2.Vec{X: c.X, Y: c.Y}
	}
	return out
}
