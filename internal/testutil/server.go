package testutil

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"nvsview/internal/config"
	"nvsview/internal/types"
)

type pageMeta struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	NumPages    int  `json:"num_pages"`
	HasNextPage bool `json:"has_next_page"`
}

// Endpoints maps every config endpoint name onto the Handler mounted at baseURL.
func (e *Edition) Endpoints(baseURL string) map[string]string {
	baseURL = strings.TrimRight(baseURL, "/")
	return map[string]string{
		config.EndpointLine:         baseURL + "/lines/",
		config.EndpointNote:         baseURL + "/notes/",
		config.EndpointCommentary:   baseURL + "/commentary/",
		config.EndpointSearch:       baseURL + "/search/",
		config.EndpointWitness:      baseURL + "/witnesses/",
		config.EndpointWitnessMeter: baseURL + "/meter/",
		config.EndpointSpeech:       baseURL + "/speech/",
	}
}

// Handler serves the edition over the same query dialect the REST corpus
// speaks: r_ ranges, f_ filters and page/page-size paging.
func (e *Edition) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/lines/", e.serveLines)
	mux.HandleFunc("/notes/", e.serveNotes)
	mux.HandleFunc("/commentary/", e.serveCommentary)
	mux.HandleFunc("/search/", e.serveSearch)
	mux.HandleFunc("/witnesses/", func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		info := e.witnesses
		e.mu.Unlock()
		writeJSON(w, http.StatusOK, info)
	})
	mux.HandleFunc("/speech/", e.serveSpeech)
	return mux
}

func (e *Edition) serveLines(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if alt := query.Get("f_alt_xml_ids"); alt != "" {
		e.mu.Lock()
		var records []types.LineStub
		for _, stub := range e.stubs {
			if stub.ID == alt || e.altIDs[alt] == stub.ID {
				records = append(records, types.LineStub{ID: stub.ID})
			}
		}
		e.mu.Unlock()
		writePage(w, r, records)
		return
	}
	rng := query.Get("r_line_number")
	if rng == "" {
		stubs, _, _ := e.Skeleton(r.Context())
		writePage(w, r, stubs)
		return
	}
	start, end := parseRange(rng)
	lines, err := e.Lines(r.Context(), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writePage(w, r, lines)
}

func (e *Edition) serveNotes(w http.ResponseWriter, r *http.Request) {
	start, end := parseRange(r.URL.Query().Get("r_lines.line_number"))
	notes, err := e.Notes(r.Context(), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writePage(w, r, notes)
}

func (e *Edition) serveCommentary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if id := query.Get("f_xml_id"); id != "" {
		comm, err := e.Commentary(r.Context(), id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		var records []*types.Commentary
		if comm != nil {
			records = append(records, comm)
		}
		writePage(w, r, records)
		return
	}
	q := types.CommentaryQuery{Descending: query.Get("s_sequence") == "desc"}
	q.PageSize, _ = strconv.Atoi(query.Get("page-size"))
	if rng := query.Get("r_sequence"); rng != "" {
		from, to, _ := strings.Cut(rng, "to")
		bound := from
		if q.Descending {
			bound = to
		}
		if cursor, err := strconv.Atoi(bound); err == nil {
			q.Cursor = &cursor
		}
	}
	comms, err := e.CommentaryPage(r.Context(), q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meta":    pageMeta{Total: len(comms), Page: 1, PageSize: q.PageSize, NumPages: 1},
		"records": comms,
	})
}

func (e *Edition) serveSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("clear") == "true" {
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}
	e.mu.Lock()
	results := e.search[query.Get("quick_search")]
	e.mu.Unlock()
	writeJSON(w, http.StatusOK, results)
}

func (e *Edition) serveSpeech(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	speeches := append([]types.Speech(nil), e.speeches...)
	aggs := make(map[string]int, len(e.speakerAggs))
	for key, count := range e.speakerAggs {
		aggs[key] = count
	}
	e.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"meta": map[string]any{
			"total":         len(speeches),
			"page":          1,
			"has_next_page": false,
			"aggregations":  map[string]any{"speakers": aggs},
		},
		"records": speeches,
	})
}

func writePage[T any](w http.ResponseWriter, r *http.Request, records []T) {
	query := r.URL.Query()
	size, _ := strconv.Atoi(query.Get("page-size"))
	if size <= 0 {
		size = 50
	}
	page, _ := strconv.Atoi(query.Get("page"))
	if page <= 0 {
		page = 1
	}
	numPages := (len(records) + size - 1) / size
	if numPages == 0 {
		numPages = 1
	}
	lo := (page - 1) * size
	if lo > len(records) {
		lo = len(records)
	}
	hi := lo + size
	if hi > len(records) {
		hi = len(records)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meta": pageMeta{
			Total:       len(records),
			Page:        page,
			PageSize:    size,
			NumPages:    numPages,
			HasNextPage: page < numPages,
		},
		"records": records[lo:hi],
	})
}

func parseRange(raw string) (int, int) {
	from, to, _ := strings.Cut(raw, "to")
	start, _ := strconv.Atoi(from)
	end, err := strconv.Atoi(to)
	if err != nil {
		end = start
	}
	return start, end
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// SortedLineNos returns the keys of a line-keyed set in ascending order.
func SortedLineNos[T any](set map[int]T) []int {
	out := make([]int, 0, len(set))
	for no := range set {
		out = append(out, no)
	}
	sort.Ints(out)
	return out
}
