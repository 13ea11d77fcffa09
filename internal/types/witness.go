package types

import (
	"sort"
	"strconv"
	"strings"
)

type Witness struct {
	Slots              []int  `json:"slots"`
	BibliographicEntry string `json:"bibliographic_entry"`
}

type WitnessInfo struct {
	Count     int                `json:"witness_count"`
	Witnesses map[string]Witness `json:"witnesses"`
	Centuries map[string]int     `json:"witness_centuries"`
}

type CenturyCount struct {
	Century string
	Count   int
}

// OrderedCenturies returns the histogram sorted by century, numerically
// when the keys are numbers.
func (w *WitnessInfo) OrderedCenturies() []CenturyCount {
	if w == nil {
		return nil
	}
	out := make([]CenturyCount, 0, len(w.Centuries))
	for century, count := range w.Centuries {
		out = append(out, CenturyCount{Century: century, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		a, errA := strconv.Atoi(strings.TrimSpace(out[i].Century))
		b, errB := strconv.Atoi(strings.TrimSpace(out[j].Century))
		if errA == nil && errB == nil {
			return a < b
		}
		return out[i].Century < out[j].Century
	})
	return out
}

// SiglaForMeter lists the witnesses whose slots diverge in the meter. The
// trailing indicator marks selective quotation and is not a slot.
func (w *WitnessInfo) SiglaForMeter(indicators string) []string {
	if w == nil || len(indicators) == 0 {
		return nil
	}
	sigla := make([]string, 0, len(w.Witnesses))
	for siglum := range w.Witnesses {
		sigla = append(sigla, siglum)
	}
	sort.Strings(sigla)

	seen := map[string]struct{}{}
	var out []string
	for slot := 0; slot < len(indicators)-1; slot++ {
		if indicators[slot] == '0' {
			continue
		}
		for _, siglum := range sigla {
			if !containsInt(w.Witnesses[siglum].Slots, slot) {
				continue
			}
			if _, ok := seen[siglum]; ok {
				continue
			}
			seen[siglum] = struct{}{}
			out = append(out, siglum)
			break
		}
	}
	return out
}

func containsInt(values []int, want int) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
