package textdiff

import (
	"sort"
	"strings"
)

// Conflict marker labels, canonical three-part form.
const (
	MarkerOurs      = "<<<<<<< ours (main)"
	MarkerSeparator = "======="
	MarkerTheirs    = ">>>>>>> theirs (branch)"
)

// MergeResult is the outcome of a three-way merge.
// When HasConflict is true, no Result is produced; ConflictMarkers holds the
// base text with each conflicting region replaced by a marker block showing
// both sides.
type MergeResult struct {
	Merged          bool
	HasConflict     bool
	Result          string
	ConflictMarkers string
}

type region struct {
	start, end int
}

// Merge3 merges ours and theirs against their common base.
//
// Fast paths: identical sides win immediately, and a side equal to base
// yields the other side unmodified. Otherwise both sides are diffed against
// the base and the change sets are compared for base-range overlap:
// disjoint changes are spliced together, overlapping changes become
// coalesced conflict regions with markers.
func Merge3(base, ours, theirs string) MergeResult {
	if ours == theirs {
		return MergeResult{Merged: true, Result: ours}
	}
	if base == ours {
		return MergeResult{Merged: true, Result: theirs}
	}
	if base == theirs {
		return MergeResult{Merged: true, Result: ours}
	}

	baseLines := strings.Split(base, "\n")
	ourChanges := DiffLines(baseLines, strings.Split(ours, "\n"))
	theirChanges := DiffLines(baseLines, strings.Split(theirs, "\n"))

	regions := conflictRegions(ourChanges, theirChanges)
	if len(regions) == 0 {
		merged := applyChanges(baseLines, append(append([]LineChange{}, ourChanges...), theirChanges...))
		return MergeResult{Merged: true, Result: strings.Join(merged, "\n")}
	}

	markers := renderMarkers(baseLines, ourChanges, theirChanges, regions)
	return MergeResult{HasConflict: true, ConflictMarkers: strings.Join(markers, "\n")}
}

func intersects(a, b LineChange) bool {
	return a.StartLine <= b.EndLine && b.StartLine <= a.EndLine
}

func inRegion(c LineChange, r region) bool {
	return c.StartLine <= r.end && r.start <= c.EndLine
}

// conflictRegions finds every pair of cross-side changes whose base ranges
// intersect, then coalesces the hits into disjoint regions. A region is
// grown until it covers every change from either side that touches it, so
// one logical edit never produces multiple marker blocks and every change is
// either wholly inside a region or wholly outside all of them.
func conflictRegions(ours, theirs []LineChange) []region {
	var regions []region
	for _, o := range ours {
		for _, t := range theirs {
			if intersects(o, t) {
				regions = append(regions, region{
					start: min(o.StartLine, t.StartLine),
					end:   max(o.EndLine, t.EndLine),
				})
			}
		}
	}
	if len(regions) == 0 {
		return nil
	}

	all := append(append([]LineChange{}, ours...), theirs...)
	for {
		grown := false
		for i := range regions {
			for _, c := range all {
				if inRegion(c, regions[i]) {
					if c.StartLine < regions[i].start {
						regions[i].start = c.StartLine
						grown = true
					}
					if c.EndLine > regions[i].end {
						regions[i].end = c.EndLine
						grown = true
					}
				}
			}
		}
		regions = coalesce(regions)
		if !grown {
			return regions
		}
	}
}

func coalesce(regions []region) []region {
	sort.Slice(regions, func(i, j int) bool { return regions[i].start < regions[j].start })
	out := regions[:1]
	for _, r := range regions[1:] {
		last := &out[len(out)-1]
		if r.start <= last.end+1 {
			if r.end > last.end {
				last.end = r.end
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// applyChanges splices a change set into base, descending by base line so an
// earlier splice never invalidates a later offset. Callers must pass changes
// with pairwise disjoint base ranges.
func applyChanges(base []string, changes []LineChange) []string {
	sort.Slice(changes, func(i, j int) bool { return changes[i].StartLine > changes[j].StartLine })

	lines := append([]string{}, base...)
	for _, c := range changes {
		switch c.Type {
		case ChangeAdd:
			at := min(c.StartLine, len(lines))
			rest := append([]string{}, lines[at:]...)
			lines = append(append(lines[:at], c.Content...), rest...)
		case ChangeRemove:
			lines = append(lines[:c.StartLine], lines[c.EndLine+1:]...)
		case ChangeModify:
			rest := append([]string{}, lines[c.EndLine+1:]...)
			lines = append(append(lines[:c.StartLine], c.Content...), rest...)
		}
	}
	return lines
}

// sideLines materializes one side's text for a conflict region by applying
// that side's in-region changes to the base slice of the region.
func sideLines(base []string, changes []LineChange, r region) []string {
	s := min(r.start, len(base))
	e := min(r.end+1, len(base))
	segment := append([]string{}, base[s:e]...)

	var local []LineChange
	for _, c := range changes {
		if inRegion(c, r) {
			shifted := c
			shifted.StartLine -= s
			shifted.EndLine -= s
			local = append(local, shifted)
		}
	}
	return applyChanges(segment, local)
}

func renderMarkers(base []string, ours, theirs []LineChange, regions []region) []string {
	var out []string
	prev := 0
	for _, r := range regions {
		cut := min(r.start, len(base))
		out = append(out, base[prev:cut]...)
		out = append(out, MarkerOurs)
		out = append(out, sideLines(base, ours, r)...)
		out = append(out, MarkerSeparator)
		out = append(out, sideLines(base, theirs, r)...)
		out = append(out, MarkerTheirs)
		prev = min(r.end+1, len(base))
	}
	out = append(out, base[prev:]...)
	return out
}
