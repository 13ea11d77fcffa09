package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nvsview/internal/config"
	"nvsview/internal/types"
)

const (
	defaultTimeout      = 10 * time.Second
	skeletonPageSize    = 10000
	rangePageSize       = 1000
	speechPageSize      = 5000
	maxPagesPerRequest  = 100
	lineStubFields      = "xml_id,line_number,line_label,act,scene"
	lineFields          = "xml_id,line_number,rendered_html,act,scene,line_label,witness_meter"
	noteFields          = "xml_id,lines.line_number,lines.xml_id,variants,witness_meter"
	speakerAggregation  = "speaking.name,speaking.xml_id"
	speechFields        = "speaking.xml_id,lines.line_number"
	speakerKeySeparator = "|||"
)

// Client reads the edition's REST endpoints. It is safe for concurrent use.
type Client struct {
	endpoints map[string]string
	play      string
	http      *http.Client
}

func New(cfg config.Config) *Client {
	return &Client{
		endpoints: cfg.Endpoints(),
		play:      cfg.Play(),
		http: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// NewWithEndpoints builds a client against explicit endpoint URLs keyed by
// the config.Endpoint* names.
func NewWithEndpoints(endpoints map[string]string, play string) *Client {
	copied := make(map[string]string, len(endpoints))
	for name, endpoint := range endpoints {
		copied[name] = endpoint
	}
	return &Client{
		endpoints: copied,
		play:      play,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

func (c *Client) Play() string {
	return c.play
}

// Skeleton returns a stub for every line of the play, in line order.
func (c *Client) Skeleton(ctx context.Context) ([]types.LineStub, int, error) {
	params := c.lineParams()
	params.Set("only", lineStubFields)
	stubs, meta, err := fetchAll[types.LineStub](ctx, c, config.EndpointLine, params, skeletonPageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch line skeleton: %w", err)
	}
	total := meta.Total
	if total < len(stubs) {
		total = len(stubs)
	}
	return stubs, total, nil
}

// Lines returns full line records with ordinals in [start, end].
func (c *Client) Lines(ctx context.Context, start, end int) ([]*types.Line, error) {
	params := c.lineParams()
	params.Set("r_line_number", ordinalRange(start, end))
	params.Set("only", lineFields)
	lines, _, err := fetchAll[*types.Line](ctx, c, config.EndpointLine, params, rangePageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch lines %d-%d: %w", start, end, err)
	}
	return lines, nil
}

// Notes returns the textual notes whose line range intersects [start, end].
func (c *Client) Notes(ctx context.Context, start, end int) ([]*types.Note, error) {
	params := url.Values{}
	params.Set("f_play.prefix", c.play)
	params.Set("s_lines.line_number", "asc")
	params.Set("r_lines.line_number", ordinalRange(start, end))
	params.Set("only", noteFields)
	notes, _, err := fetchAll[*types.Note](ctx, c, config.EndpointNote, params, rangePageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch notes %d-%d: %w", start, end, err)
	}
	return notes, nil
}

// LineIDForAltID resolves an alternate TLN identifier (tln_0042) to a line ID.
func (c *Client) LineIDForAltID(ctx context.Context, altID string) (string, error) {
	params := c.lineParams()
	params.Set("f_alt_xml_ids", altID)
	params.Set("only", "xml_id")
	params.Set("page-size", "1")
	var resp listResponse[types.LineStub]
	if err := c.getJSON(ctx, config.EndpointLine, params, &resp); err != nil {
		return "", err
	}
	if len(resp.Records) != 1 {
		return "", nil
	}
	return resp.Records[0].ID, nil
}

// CommentaryPage returns one page of commentary notes ordered by sequence.
func (c *Client) CommentaryPage(ctx context.Context, q types.CommentaryQuery) ([]*types.Commentary, error) {
	params := url.Values{}
	params.Set("f_play.prefix", c.play)
	params.Set("s_sequence", "asc")
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	params.Set("page-size", strconv.Itoa(pageSize))
	if q.Descending {
		params.Set("s_sequence", "desc")
		if q.Cursor != nil {
			params.Set("r_sequence", "to"+strconv.Itoa(*q.Cursor))
		}
	} else if q.Cursor != nil {
		params.Set("r_sequence", strconv.Itoa(*q.Cursor)+"to")
	}
	var resp listResponse[*types.Commentary]
	if err := c.getJSON(ctx, config.EndpointCommentary, params, &resp); err != nil {
		return nil, fmt.Errorf("fetch commentary page: %w", err)
	}
	return resp.Records, nil
}

// Commentary returns a single commentary note, nil when it does not exist.
func (c *Client) Commentary(ctx context.Context, id string) (*types.Commentary, error) {
	params := url.Values{}
	params.Set("f_play.prefix", c.play)
	params.Set("f_xml_id", id)
	var resp listResponse[*types.Commentary]
	if err := c.getJSON(ctx, config.EndpointCommentary, params, &resp); err != nil {
		return nil, fmt.Errorf("fetch commentary %s: %w", id, err)
	}
	if len(resp.Records) != 1 {
		return nil, nil
	}
	return resp.Records[0], nil
}

type SearchRequest struct {
	Query    string
	Type     types.SearchType
	Contents []types.SearchScope
}

func (c *Client) Search(ctx context.Context, req SearchRequest) (*types.SearchResults, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errors.New("search query is required")
	}
	searchType := req.Type
	if searchType == "" {
		searchType = types.SearchTypeExact
	}
	contents := make([]string, 0, len(req.Contents))
	for _, scope := range req.Contents {
		contents = append(contents, string(scope))
	}
	params := url.Values{}
	params.Set("quick_search", query)
	params.Set("search_type", string(searchType))
	params.Set("search_contents", strings.Join(contents, ","))
	var resp types.SearchResults
	if err := c.getJSON(ctx, config.EndpointSearch, params, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return &resp, nil
}

// ClearSearch drops the server-side search highlighting state.
func (c *Client) ClearSearch(ctx context.Context) error {
	params := url.Values{}
	params.Set("clear", "true")
	return c.getJSON(ctx, config.EndpointSearch, params, nil)
}

func (c *Client) Witnesses(ctx context.Context) (*types.WitnessInfo, error) {
	var resp types.WitnessInfo
	if err := c.getJSON(ctx, config.EndpointWitness, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch witnesses: %w", err)
	}
	return &resp, nil
}

// Speakers returns the play's characters and, per line ordinal, the IDs of
// the characters speaking it.
func (c *Client) Speakers(ctx context.Context) ([]types.Character, map[int][]string, error) {
	params := url.Values{}
	params.Set("a_terms_speakers", speakerAggregation)
	params.Set("f_play.prefix", c.play)
	params.Set("only", speechFields)
	params.Set("page-size", strconv.Itoa(speechPageSize))
	var resp speechResponse
	if err := c.getJSON(ctx, config.EndpointSpeech, params, &resp); err != nil {
		return nil, nil, fmt.Errorf("fetch speakers: %w", err)
	}
	return resp.characters(), resp.lineSpeakers(), nil
}

// WitnessMeterURL builds the external meter image URL for export.
func (c *Client) WitnessMeterURL(indicators string, height, width int, inactiveColor string) string {
	base := strings.TrimRight(c.endpoints[config.EndpointWitnessMeter], "/")
	return fmt.Sprintf("%s/%s/%d/%d/%s/0/", base, indicators, height, width, inactiveColor)
}

func (c *Client) lineParams() url.Values {
	params := url.Values{}
	params.Set("f_play.prefix", c.play)
	params.Set("s_line_number", "asc")
	return params
}

func ordinalRange(start, end int) string {
	return strconv.Itoa(start) + "to" + strconv.Itoa(end)
}

func fetchAll[T any](ctx context.Context, c *Client, endpoint string, params url.Values, pageSize int) ([]T, PageMeta, error) {
	var (
		out  []T
		meta PageMeta
	)
	for page := 1; page <= maxPagesPerRequest; page++ {
		pageParams := cloneValues(params)
		pageParams.Set("page-size", strconv.Itoa(pageSize))
		if page > 1 {
			pageParams.Set("page", strconv.Itoa(page))
		}
		var resp listResponse[T]
		if err := c.getJSON(ctx, endpoint, pageParams, &resp); err != nil {
			return nil, PageMeta{}, err
		}
		meta = resp.Meta
		out = append(out, resp.Records...)
		if !resp.Meta.HasNextPage || len(resp.Records) == 0 {
			break
		}
	}
	return out, meta, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	base, ok := c.endpoints[endpoint]
	if !ok || strings.TrimSpace(base) == "" {
		return fmt.Errorf("endpoint %q is not configured", endpoint)
	}
	target := base
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		target = base + sep + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.http
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func cloneValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, vals := range values {
		out[key] = append([]string(nil), vals...)
	}
	return out
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error string `json:"error"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// AsAPIError unwraps err to an *APIError, nil when it is not one.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
