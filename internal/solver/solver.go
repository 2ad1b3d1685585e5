// Package solver speaks the JSON-over-HTTP contract to an external
// browser-challenge-solving daemon, grounded on original_source/src/cf.rs.
// It has no durable state of its own beyond an HTTP client.
package solver

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/reekid420/website-searcher/internal/searcherr"
	"github.com/reekid420/website-searcher/internal/shared"
)

// DefaultTimeout is the solver call timeout per spec.md §6.
const DefaultTimeout = 60 * time.Second

type requestBody struct {
	Cmd        string         `json:"cmd"`
	URL        string         `json:"url"`
	MaxTimeout int64          `json:"maxTimeout"`
	Cookies    []cookieOnWire `json:"cookies,omitempty"`
}

type cookieOnWire struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
}

type solution struct {
	Response string         `json:"response"`
	Cookies  []cookieOnWire `json:"cookies,omitempty"`
}

type responseBody struct {
	Status   string   `json:"status"`
	Solution solution `json:"solution"`
	Message  string   `json:"message"`
}

// Client calls a single configured solver endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// New builds a solver client pointed at endpoint, using the given HTTP
// timeout as an upper bound on the whole request/response round trip.
func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

// Solve asks the solver to fetch url, forwarding cookies deduplicated by
// name (per the resolved open question in spec.md §9: the solver daemon
// sometimes sets cookies it was also handed, so duplicates by name are
// collapsed before sending, last one wins).
func (c *Client) Solve(ctx context.Context, url string, cookies []shared.Cookie) (string, error) {
	body := requestBody{
		Cmd:        "request.get",
		URL:        url,
		MaxTimeout: DefaultTimeout.Milliseconds(),
		Cookies:    dedupCookies(cookies),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: encoding solver request: %v", searcherr.ErrSolverFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: building solver request: %v", searcherr.ErrSolverFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", searcherr.ErrSolverFailed, err)
	}
	defer resp.Body.Close()

	var out responseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding solver response: %v", searcherr.ErrSolverFailed, err)
	}

	if out.Status != "ok" {
		msg := out.Message
		if msg == "" {
			msg = "solver reported failure"
		}
		return "", fmt.Errorf("%w: %s", searcherr.ErrSolverFailed, msg)
	}

	return out.Solution.Response, nil
}

// dedupCookies collapses cookies to one per name, keeping the last
// occurrence (a later entry in the caller's cookie jar overrides an
// earlier one with the same name).
func dedupCookies(cookies []shared.Cookie) []cookieOnWire {
	byName := make(map[string]shared.Cookie, len(cookies))
	var order []string
	for _, c := range cookies {
		if _, exists := byName[c.Name]; !exists {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}

	out := make([]cookieOnWire, 0, len(order))
	for _, name := range order {
		c := byName[name]
		out = append(out, cookieOnWire{Name: c.Name, Value: c.Value, Domain: c.Domain})
	}
	return out
}
