package datasource

import (
	"fmt"
	"math"

	"github.com/vanderheijden86/atlasview/pkg/scene"
)

// SourceDiff represents differences between two data sources.
type SourceDiff struct {
	// SourceA is the path of the first source
	SourceA string
	// SourceB is the path of the second source
	SourceB string
	// MissingInA contains item IDs present in B but not in A
	MissingInA []int64
	// MissingInB contains item IDs present in A but not in B
	MissingInB []int64
	// Reassigned contains items whose cluster membership differs
	Reassigned []MembershipDifference
	// Moved contains items whose embedding position drifted beyond tolerance
	Moved []int64
	// CountA is the number of items in source A
	CountA int
	// CountB is the number of items in source B
	CountB int
}

// MembershipDifference records a cluster assignment mismatch for one item.
// A nil cluster means the item is noise in that source.
type MembershipDifference struct {
	ID       int64  `json:"id"`
	ClusterA *int64 `json:"cluster_a"`
	ClusterB *int64 `json:"cluster_b"`
}

// HasInconsistencies returns true if the sources disagree.
func (d SourceDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 ||
		len(d.Reassigned) > 0 || len(d.Moved) > 0
}

// Summary returns a human-readable summary of the differences.
func (d SourceDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d items each)", d.CountA)
	}

	summary := fmt.Sprintf("Inconsistencies found between %s and %s:\n", d.SourceA, d.SourceB)

	if d.CountA != d.CountB {
		summary += fmt.Sprintf("  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}
	if len(d.MissingInA) > 0 {
		summary += fmt.Sprintf("  - %d items in %s but not %s\n", len(d.MissingInA), d.SourceB, d.SourceA)
	}
	if len(d.MissingInB) > 0 {
		summary += fmt.Sprintf("  - %d items in %s but not %s\n", len(d.MissingInB), d.SourceA, d.SourceB)
	}
	if len(d.Reassigned) > 0 {
		summary += fmt.Sprintf("  - %d items with different cluster membership\n", len(d.Reassigned))
		if len(d.Reassigned) <= 5 {
			for _, m := range d.Reassigned {
				summary += fmt.Sprintf("    - %d: %s vs %s\n", m.ID, clusterLabel(m.ClusterA), clusterLabel(m.ClusterB))
			}
		}
	}
	if len(d.Moved) > 0 {
		summary += fmt.Sprintf("  - %d items drifted in position\n", len(d.Moved))
	}

	return summary
}

func clusterLabel(id *int64) string {
	if id == nil {
		return "noise"
	}
	return fmt.Sprintf("cluster %d", *id)
}

// DiffOptions configures the diff operation.
type DiffOptions struct {
	// PositionTolerance is the maximum positional drift, in embedding
	// units, before an item counts as moved
	PositionTolerance float64
	// MaxDifferences limits the number of differences tracked per
	// category (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		PositionTolerance: 1.0,
		MaxDifferences:    100,
	}
}

// DetectInconsistencies compares two snapshots and returns their differences.
func DetectInconsistencies(snapA, snapB *scene.Snapshot, sourceA, sourceB string, opts DiffOptions) SourceDiff {
	diff := SourceDiff{
		SourceA: sourceA,
		SourceB: sourceB,
	}

	mapA := make(map[int64]scene.ItemPosition, len(snapA.Items))
	for _, it := range snapA.Items {
		mapA[it.ID] = it
	}
	mapB := make(map[int64]scene.ItemPosition, len(snapB.Items))
	for _, it := range snapB.Items {
		mapB[it.ID] = it
	}

	diff.CountA = len(mapA)
	diff.CountB = len(mapB)

	for id := range mapA {
		if _, exists := mapB[id]; !exists {
			if opts.MaxDifferences == 0 || len(diff.MissingInB) < opts.MaxDifferences {
				diff.MissingInB = append(diff.MissingInB, id)
			}
		}
	}

	for id, itemB := range mapB {
		itemA, exists := mapA[id]
		if !exists {
			if opts.MaxDifferences == 0 || len(diff.MissingInA) < opts.MaxDifferences {
				diff.MissingInA = append(diff.MissingInA, id)
			}
			continue
		}

		if !sameCluster(itemA.ClusterID, itemB.ClusterID) {
			if opts.MaxDifferences == 0 || len(diff.Reassigned) < opts.MaxDifferences {
				diff.Reassigned = append(diff.Reassigned, MembershipDifference{
					ID:       id,
					ClusterA: itemA.ClusterID,
					ClusterB: itemB.ClusterID,
				})
			}
		}

		if math.Hypot(itemA.X-itemB.X, itemA.Y-itemB.Y) > opts.PositionTolerance {
			if opts.MaxDifferences == 0 || len(diff.Moved) < opts.MaxDifferences {
				diff.Moved = append(diff.Moved, id)
			}
		}
	}

	return diff
}

func sameCluster(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CompareSources loads and compares two data sources. Used to check that the
// database and its JSON export agree before preferring one over the other.
func CompareSources(sourceA, sourceB DataSource, opts DiffOptions) (*SourceDiff, error) {
	snapA, err := LoadFromSource(sourceA)
	if err != nil {
		return nil, fmt.Errorf("failed to load source A (%s): %w", sourceA.Path, err)
	}

	snapB, err := LoadFromSource(sourceB)
	if err != nil {
		return nil, fmt.Errorf("failed to load source B (%s): %w", sourceB.Path, err)
	}

	diff := DetectInconsistencies(snapA, snapB, sourceA.Path, sourceB.Path, opts)
	return &diff, nil
}

// CheckAllSourcesConsistent compares all valid sources pairwise and reports
// any inconsistencies.
func CheckAllSourcesConsistent(sources []DataSource, opts DiffOptions) ([]SourceDiff, error) {
	var diffs []SourceDiff

	for i := 0; i < len(sources); i++ {
		if !sources[i].Valid {
			continue
		}
		for j := i + 1; j < len(sources); j++ {
			if !sources[j].Valid {
				continue
			}

			diff, err := CompareSources(sources[i], sources[j], opts)
			if err != nil {
				continue
			}

			if diff.HasInconsistencies() {
				diffs = append(diffs, *diff)
			}
		}
	}

	return diffs, nil
}
