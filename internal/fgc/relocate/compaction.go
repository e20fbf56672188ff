package relocate

import (
	"sort"
	"sync/atomic"

	"github.com/samber/lo"

	"github.com/faxlang/faxc/internal/fgc/heap"
)

// compactionCandidateRatio is the garbage ratio a region must exceed to
// be considered for compaction (compaction.rs's 0.3 threshold).
const compactionCandidateRatio = 0.3

// Compactor selects which regions to compact based on garbage ratio,
// greedily filling a size budget with the most garbage-heavy regions
// first. Ported from fgc/src/relocate/compaction.rs.
type Compactor struct {
	inProgress atomic.Bool
}

// NewCompactor builds an idle compactor.
func NewCompactor() *Compactor {
	return &Compactor{}
}

// SelectRegions picks regions whose garbage ratio exceeds
// compactionCandidateRatio, highest ratio first, until adding the next
// region would exceed maxSize.
func (c *Compactor) SelectRegions(regions []*heap.Region, maxSize uintptr) []*heap.Region {
	type candidate struct {
		region *heap.Region
		ratio  float64
	}
	eligible := lo.Filter(regions, func(r *heap.Region, _ int) bool {
		return r.GarbageRatio() > compactionCandidateRatio
	})
	candidates := lo.Map(eligible, func(r *heap.Region, _ int) candidate {
		return candidate{r, r.GarbageRatio()}
	})
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ratio > candidates[j].ratio })

	selected := make([]*heap.Region, 0, len(candidates))
	var totalSize uintptr
	for _, cand := range candidates {
		if totalSize+cand.region.Size > maxSize {
			break
		}
		selected = append(selected, cand.region)
		totalSize += cand.region.Size
	}
	return selected
}

// Start marks a compaction cycle as in progress.
func (c *Compactor) Start() { c.inProgress.Store(true) }

// Complete marks the compaction cycle finished.
func (c *Compactor) Complete() { c.inProgress.Store(false) }

// IsCompacting reports whether a compaction cycle is currently running.
func (c *Compactor) IsCompacting() bool { return c.inProgress.Load() }
