// Package state holds list geometry helpers for the popup: which slice of
// the candidate list is on screen and how far a page jump moves the cursor.
package state

// Viewport tracks the first visible row of a scrolling list.
type Viewport struct {
	Offset int
}

// EnsureVisible adjusts the offset so cursor stays inside a window of
// maxVisible rows over total items.
func (v *Viewport) EnsureVisible(cursor, total, maxVisible int) {
	if total == 0 || maxVisible <= 0 {
		v.Offset = 0
		return
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	maxOffset := total - maxVisible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if v.Offset > maxOffset {
		v.Offset = maxOffset
	}
	if v.Offset < 0 {
		v.Offset = 0
	}
	if cursor < v.Offset {
		v.Offset = cursor
	}
	upper := v.Offset + maxVisible - 1
	if cursor > upper {
		v.Offset = cursor - maxVisible + 1
		if v.Offset > maxOffset {
			v.Offset = maxOffset
		}
	}
}

// Window returns the half-open range of visible rows.
func (v Viewport) Window(total, maxVisible int) (int, int) {
	if maxVisible <= 0 || total <= maxVisible {
		return 0, total
	}
	start := v.Offset
	if start < 0 {
		start = 0
	}
	if start+maxVisible > total {
		start = total - maxVisible
	}
	return start, start + maxVisible
}

// PageDelta returns the cursor movement for a page jump in direction dir
// (negative is up). Page jumps stop at the ends of the list rather than
// wrapping.
func PageDelta(cursor, total, maxVisible, dir int) int {
	if total == 0 || dir == 0 {
		return 0
	}
	size := maxVisible
	if size <= 0 || size > total {
		size = total
	}
	target := cursor + size
	if dir < 0 {
		target = cursor - size
	}
	if target < 0 {
		target = 0
	}
	if target >= total {
		target = total - 1
	}
	return target - cursor
}
