package viewer

import "sort"

// Filter reports whether an ordinal is shown while a filter is active.
type Filter func(no int) bool

type WindowInput struct {
	Visible []int
	Buffer  int
	Lowest  int
	Highest int
	// Filter switches to walking the filtered subsequence of Ordinals.
	Filter   Filter
	Ordinals []int
}

// DesiredWindow returns the ordinals that should be resident, ascending.
// It is empty when nothing is visible and no filter anchor exists.
func DesiredWindow(in WindowInput) []int {
	if in.Filter != nil {
		return filteredWindow(in)
	}
	if len(in.Visible) == 0 {
		return nil
	}
	lo, hi := minMax(in.Visible)
	lo -= in.Buffer
	hi += in.Buffer
	if lo < in.Lowest {
		lo = in.Lowest
	}
	if hi > in.Highest {
		hi = in.Highest
	}
	if lo > hi {
		return nil
	}
	out := make([]int, 0, hi-lo+1)
	for no := lo; no <= hi; no++ {
		out = append(out, no)
	}
	return out
}

// InitialWindow is the window forced by the first render: windowSize+buffer
// ordinals from lowest, clamped to highest.
func InitialWindow(lowest, highest, windowSize, buffer int) []int {
	count := windowSize + buffer
	if count < 1 {
		count = 1
	}
	out := make([]int, 0, count)
	for no := lowest; no < lowest+count && no <= highest; no++ {
		out = append(out, no)
	}
	return out
}

func filteredWindow(in WindowInput) []int {
	var subset []int
	for _, no := range in.Ordinals {
		if no >= in.Lowest && no <= in.Highest && in.Filter(no) {
			subset = append(subset, no)
		}
	}
	if len(subset) == 0 {
		return nil
	}

	anchor, last := 0, -1
	if len(in.Visible) == 0 {
		last = subset[0]
	} else {
		lo, hi := minMax(in.Visible)
		last = hi
		anchor = sort.SearchInts(subset, lo)
		if first, ok := firstPassing(in.Visible, in.Filter); ok {
			anchor = sort.SearchInts(subset, first)
		}
		if anchor == len(subset) {
			anchor = len(subset) - 1
		}
	}

	start := anchor - in.Buffer
	if start < 0 {
		start = 0
	}
	end := anchor
	for end+1 < len(subset) && subset[end+1] <= last {
		end++
	}
	end += in.Buffer
	if end > len(subset)-1 {
		end = len(subset) - 1
	}
	return append([]int(nil), subset[start:end+1]...)
}

func firstPassing(visible []int, filter Filter) (int, bool) {
	sorted := append([]int(nil), visible...)
	sort.Ints(sorted)
	for _, no := range sorted {
		if filter(no) {
			return no, true
		}
	}
	return 0, false
}

// Range is an inclusive span of ordinals.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start + 1
}

// GapRanges turns the unregistered ordinals of a window into fetch ranges.
// Filtered windows get one range per contiguous run; otherwise a single
// range spans every gap, registered ordinals inside it included.
func GapRanges(window []int, registered func(int) bool, filtered bool) []Range {
	var out []Range
	if !filtered {
		lo, hi, found := 0, 0, false
		for _, no := range window {
			if registered(no) {
				continue
			}
			if !found || no < lo {
				lo = no
			}
			if !found || no > hi {
				hi = no
			}
			found = true
		}
		if found {
			out = append(out, Range{Start: lo, End: hi})
		}
		return out
	}

	sorted := append([]int(nil), window...)
	sort.Ints(sorted)
	var cur *Range
	for _, no := range sorted {
		if registered(no) {
			continue
		}
		if cur != nil && no-cur.End == 1 {
			cur.End = no
			continue
		}
		if cur != nil {
			out = append(out, *cur)
		}
		cur = &Range{Start: no, End: no}
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

func minMax(values []int) (int, int) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
