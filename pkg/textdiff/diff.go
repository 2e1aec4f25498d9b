// Package textdiff implements the line-based diff and three-way merge used by
// the branch convergence engine. All positions are anchored to the base text,
// so two change sets computed against the same base can be compared for overlap.
package textdiff

// ChangeType classifies a line change relative to the base text.
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeRemove ChangeType = "remove"
	ChangeModify ChangeType = "modify"
)

// LineChange is a single hunk anchored to base-line positions.
// For add, StartLine == EndLine and the content is inserted before that base
// line (len(base) means append at end). For remove/modify the inclusive range
// [StartLine, EndLine] of base lines is deleted or replaced.
type LineChange struct {
	Type      ChangeType
	BaseLine  int
	StartLine int
	EndLine   int
	Content   []string
}

// DiffLines computes a minimal ordered change set turning base into updated,
// via a standard LCS table and backtrack. Pure and deterministic.
func DiffLines(base, updated []string) []LineChange {
	n, m := len(base), len(updated)

	// lcs[i][j] = length of the LCS of base[i:] and updated[j:]
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if base[i] == updated[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var changes []LineChange
	var removedFrom, removedTo = -1, -1
	var added []string
	anchor := 0

	flush := func() {
		switch {
		case removedFrom >= 0 && len(added) > 0:
			changes = append(changes, LineChange{
				Type:      ChangeModify,
				BaseLine:  removedFrom,
				StartLine: removedFrom,
				EndLine:   removedTo,
				Content:   added,
			})
		case removedFrom >= 0:
			changes = append(changes, LineChange{
				Type:      ChangeRemove,
				BaseLine:  removedFrom,
				StartLine: removedFrom,
				EndLine:   removedTo,
			})
		case len(added) > 0:
			changes = append(changes, LineChange{
				Type:      ChangeAdd,
				BaseLine:  anchor,
				StartLine: anchor,
				EndLine:   anchor,
				Content:   added,
			})
		}
		removedFrom, removedTo = -1, -1
		added = nil
	}

	i, j := 0, 0
	for i < n || j < m {
		switch {
		case i < n && j < m && base[i] == updated[j]:
			flush()
			i++
			j++
			anchor = i
		case i < n && (j == m || lcs[i+1][j] >= lcs[i][j+1]):
			if removedFrom < 0 {
				removedFrom = i
			}
			removedTo = i
			i++
		default:
			added = append(added, updated[j])
			j++
		}
	}
	flush()

	return changes
}
