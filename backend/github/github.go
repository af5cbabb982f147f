// Package github implements the release backend for the GitHub Releases
// API. It also serves GitHub Enterprise instances via WithBaseURL.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lansespirit/selfupdate"
	"github.com/lansespirit/selfupdate/internal/logger"
)

const (
	defaultBaseURL = "https://api.github.com"

	// defaultPerPage is the number of releases fetched per API page.
	defaultPerPage = 30

	// maxPages bounds pagination to avoid runaway requests.
	maxPages = 10

	// maxJSONBytes caps an API response body (10 MB).
	maxJSONBytes = 10 << 20
)

type (
	// Client queries the GitHub Releases API. The zero value is not
	// usable; construct it with New.
	Client struct {
		httpClient *http.Client
		owner      string
		repo       string
		baseURL    string
		token      string
		userAgent  string
	}

	// Option configures a Client during construction.
	Option func(*Client)

	ghRelease struct {
		TagName     string    `json:"tag_name"`
		Name        string    `json:"name"`
		Body        string    `json:"body"`
		Draft       bool      `json:"draft"`
		PublishedAt string    `json:"published_at"`
		Assets      []ghAsset `json:"assets"`
	}

	ghAsset struct {
		Name               string `json:"name"`
		URL                string `json:"url"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
		ContentType        string `json:"content_type"`
	}
)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) { g.httpClient = c }
}

// WithBaseURL overrides the API base URL, for GitHub Enterprise or test
// servers.
func WithBaseURL(base string) Option {
	return func(g *Client) { g.baseURL = strings.TrimRight(base, "/") }
}

// WithToken sets a personal access token for private repositories and
// higher rate limits.
func WithToken(token string) Option {
	return func(g *Client) { g.token = token }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(g *Client) { g.userAgent = ua }
}

// New returns a Client for the given repository. Owner and repo are
// required.
func New(owner, repo string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return nil, fmt.Errorf("github: owner and repo required")
	}
	c := &Client{
		httpClient: http.DefaultClient,
		owner:      owner,
		repo:       repo,
		baseURL:    defaultBaseURL,
		userAgent:  "selfupdate",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListReleases returns the repository's releases, newest first, walking
// Link-header pagination. Draft releases are skipped.
func (c *Client) ListReleases(ctx context.Context) ([]selfupdate.Release, error) {
	var out []selfupdate.Release
	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", c.baseURL, c.owner, c.repo, defaultPerPage)
	for page := 0; url != "" && page < maxPages; page++ {
		var batch []ghRelease
		next, err := c.getJSON(ctx, url, &batch)
		if err != nil {
			return nil, err
		}
		for i := range batch {
			if batch[i].Draft {
				continue
			}
			rel, err := toRelease(&batch[i])
			if err != nil {
				return nil, err
			}
			out = append(out, rel)
		}
		url = next
	}
	return out, nil
}

// LatestRelease returns the repository's latest non-draft, non-prerelease
// release.
func (c *Client) LatestRelease(ctx context.Context) (*selfupdate.Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, c.owner, c.repo)
	var gr ghRelease
	if _, err := c.getJSON(ctx, url, &gr); err != nil {
		return nil, err
	}
	rel, err := toRelease(&gr)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// ReleaseByTag returns the release published under the exact tag.
func (c *Client) ReleaseByTag(ctx context.Context, tag string) (*selfupdate.Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", c.baseURL, c.owner, c.repo, tag)
	var gr ghRelease
	if _, err := c.getJSON(ctx, url, &gr); err != nil {
		return nil, err
	}
	rel, err := toRelease(&gr)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// getJSON fetches url into v and returns the rel="next" pagination link,
// if any.
func (c *Client) getJSON(ctx context.Context, url string, v any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("github: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger.Debug("github: GET %s", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("github: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("github: %s/%s: %w", c.owner, c.repo, selfupdate.ErrRepositoryNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &selfupdate.HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
	}

	body := io.LimitReader(resp.Body, maxJSONBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return "", &selfupdate.ParseError{Backend: "github", Input: url, Err: err}
	}
	return nextLink(resp.Header.Get("Link")), nil
}

// nextLink extracts the rel="next" URL from a Link header:
// `<https://api.github.com/...?page=2>; rel="next", <...>; rel="last"`.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if strings.TrimSpace(section[1]) != `rel="next"` {
			continue
		}
		u := strings.TrimSpace(section[0])
		return strings.TrimSuffix(strings.TrimPrefix(u, "<"), ">")
	}
	return ""
}

func toRelease(gr *ghRelease) (selfupdate.Release, error) {
	version, err := selfupdate.NormalizeTag(gr.TagName)
	if err != nil {
		return selfupdate.Release{}, fmt.Errorf("github: release tag: %w", err)
	}
	rel := selfupdate.Release{
		TagName: gr.TagName,
		Version: version,
		Name:    gr.Name,
		Body:    gr.Body,
		Date:    gr.PublishedAt,
	}
	for _, a := range gr.Assets {
		// The API asset endpoint redirects to the raw file when asked for
		// application/octet-stream, and works for private repositories;
		// the browser URL does not.
		url := a.URL
		if url == "" {
			url = a.BrowserDownloadURL
		}
		rel.Assets = append(rel.Assets, selfupdate.Asset{
			Name:        a.Name,
			URL:         url,
			Size:        a.Size,
			ContentType: a.ContentType,
		})
	}
	return rel, nil
}
