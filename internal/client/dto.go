package client

import (
	"sort"
	"strings"

	"nvsview/internal/types"
)

type PageMeta struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	NumPages    int  `json:"num_pages"`
	HasNextPage bool `json:"has_next_page"`
}

type listResponse[T any] struct {
	Meta    PageMeta `json:"meta"`
	Records []T      `json:"records"`
}

type speechMeta struct {
	PageMeta
	Aggregations struct {
		Speakers map[string]int `json:"speakers"`
	} `json:"aggregations"`
}

type speechResponse struct {
	Meta    speechMeta     `json:"meta"`
	Records []types.Speech `json:"records"`
}

func (r speechResponse) characters() []types.Character {
	keys := make([]string, 0, len(r.Meta.Aggregations.Speakers))
	for key := range r.Meta.Aggregations.Speakers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]types.Character, 0, len(keys))
	for _, key := range keys {
		name, id, ok := strings.Cut(key, speakerKeySeparator)
		if !ok {
			id = name
		}
		out = append(out, types.Character{
			ID:       id,
			Name:     name,
			Speeches: r.Meta.Aggregations.Speakers[key],
		})
	}
	return out
}

func (r speechResponse) lineSpeakers() map[int][]string {
	sets := map[int]map[string]struct{}{}
	for _, speech := range r.Records {
		for _, line := range speech.Lines {
			set, ok := sets[line.LineNumber]
			if !ok {
				set = map[string]struct{}{}
				sets[line.LineNumber] = set
			}
			for _, speaker := range speech.Speaking {
				set[speaker.ID] = struct{}{}
			}
		}
	}
	out := make(map[int][]string, len(sets))
	for lineNo, set := range sets {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[lineNo] = ids
	}
	return out
}
