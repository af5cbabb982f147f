// Package gitlab implements the release backend for the GitLab Releases
// API. Self-hosted instances are reached via WithBaseURL.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lansespirit/selfupdate"
	"github.com/lansespirit/selfupdate/internal/logger"
)

const (
	defaultBaseURL = "https://gitlab.com"
	defaultPerPage = 20
	maxPages       = 10
	maxJSONBytes   = 10 << 20
)

type (
	// Client queries the GitLab Releases API for one project.
	Client struct {
		httpClient *http.Client
		project    string
		baseURL    string
		token      string
	}

	Option func(*Client)

	glRelease struct {
		TagName     string   `json:"tag_name"`
		Name        string   `json:"name"`
		Description string   `json:"description"`
		ReleasedAt  string   `json:"released_at"`
		Assets      glAssets `json:"assets"`
	}

	glAssets struct {
		Links []glLink `json:"links"`
	}

	glLink struct {
		Name           string `json:"name"`
		URL            string `json:"url"`
		DirectAssetURL string `json:"direct_asset_url"`
	}
)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) { g.httpClient = c }
}

// WithBaseURL overrides the instance base URL (self-hosted GitLab or
// test servers). The "/api/v4" suffix is appended here.
func WithBaseURL(base string) Option {
	return func(g *Client) { g.baseURL = strings.TrimRight(base, "/") }
}

// WithToken sets a personal/project access token, sent as PRIVATE-TOKEN.
func WithToken(token string) Option {
	return func(g *Client) { g.token = token }
}

// New returns a Client for the project, identified either by its numeric
// ID or by its "group/project" path.
func New(project string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(project) == "" {
		return nil, fmt.Errorf("gitlab: project required")
	}
	c := &Client{
		httpClient: http.DefaultClient,
		project:    url.PathEscape(project),
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListReleases returns the project's releases, newest first. GitLab
// paginates with the x-next-page response header rather than a Link
// header.
func (c *Client) ListReleases(ctx context.Context) ([]selfupdate.Release, error) {
	var out []selfupdate.Release
	page := 1
	for i := 0; page > 0 && i < maxPages; i++ {
		u := fmt.Sprintf("%s/api/v4/projects/%s/releases?per_page=%d&page=%d", c.baseURL, c.project, defaultPerPage, page)
		var batch []glRelease
		next, err := c.getJSON(ctx, u, &batch)
		if err != nil {
			return nil, err
		}
		for i := range batch {
			rel, err := toRelease(&batch[i])
			if err != nil {
				return nil, err
			}
			out = append(out, rel)
		}
		page = next
	}
	return out, nil
}

// LatestRelease returns the most recent release via the permalink
// endpoint.
func (c *Client) LatestRelease(ctx context.Context) (*selfupdate.Release, error) {
	u := fmt.Sprintf("%s/api/v4/projects/%s/releases/permalink/latest", c.baseURL, c.project)
	var gr glRelease
	if _, err := c.getJSON(ctx, u, &gr); err != nil {
		return nil, err
	}
	rel, err := toRelease(&gr)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// getJSON fetches u into v and returns the next page number, 0 when
// there is none.
func (c *Client) getJSON(ctx context.Context, u string, v any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("gitlab: %w", err)
	}
	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}

	logger.Debug("gitlab: GET %s", u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gitlab: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("gitlab: project %s: %w", c.project, selfupdate.ErrRepositoryNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return 0, &selfupdate.HTTPStatusError{StatusCode: resp.StatusCode, URL: u}
	}

	body := io.LimitReader(resp.Body, maxJSONBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return 0, &selfupdate.ParseError{Backend: "gitlab", Input: u, Err: err}
	}

	next, _ := strconv.Atoi(resp.Header.Get("x-next-page"))
	return next, nil
}

func toRelease(gr *glRelease) (selfupdate.Release, error) {
	version, err := selfupdate.NormalizeTag(gr.TagName)
	if err != nil {
		return selfupdate.Release{}, fmt.Errorf("gitlab: release tag: %w", err)
	}
	rel := selfupdate.Release{
		TagName: gr.TagName,
		Version: version,
		Name:    gr.Name,
		Body:    gr.Description,
		Date:    gr.ReleasedAt,
	}
	for _, l := range gr.Assets.Links {
		u := l.DirectAssetURL
		if u == "" {
			u = l.URL
		}
		rel.Assets = append(rel.Assets, selfupdate.Asset{Name: l.Name, URL: u})
	}
	return rel, nil
}
