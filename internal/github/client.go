// Package github fetches merged pull requests for the issue linker cache.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ConfabulousDev/aist/internal/logger"
)

var tracer = otel.Tracer("aist/github")

const (
	defaultBaseURL = "https://api.github.com"
	perPage        = 100
	// maxPages bounds a sync; 50 pages is 5000 closed PRs.
	maxPages = 50
)

var (
	// ErrNotFound indicates the repository does not exist or is not visible
	ErrNotFound = errors.New("repository not found")

	// ErrRateLimited indicates the API quota is exhausted
	ErrRateLimited = errors.New("github rate limit exceeded")
)

// PullRequest is the subset of the pulls API response we keep.
type PullRequest struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	MergedAt *time.Time `json:"merged_at"`
	Head     struct {
		Ref string `json:"ref"`
	} `json:"head"`
}

// Branch is the head branch name.
func (pr *PullRequest) Branch() string {
	return pr.Head.Ref
}

// Client is a minimal GitHub REST client.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (useful for testing and GitHub Enterprise).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithTimeout sets a custom HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit paces requests to rps per second.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient creates a client. An empty token makes unauthenticated requests.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListMergedPullRequests pages through closed pull requests and keeps the
// merged ones.
func (c *Client) ListMergedPullRequests(ctx context.Context, owner, repo string) ([]PullRequest, error) {
	ctx, span := tracer.Start(ctx, "github.list_merged_pull_requests",
		trace.WithAttributes(
			attribute.String("github.owner", owner),
			attribute.String("github.repo", repo),
		))
	defer span.End()

	var merged []PullRequest
	for page := 1; page <= maxPages; page++ {
		prs, err := c.listPage(ctx, owner, repo, page)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		for _, pr := range prs {
			if pr.MergedAt != nil {
				merged = append(merged, pr)
			}
		}
		if len(prs) < perPage {
			break
		}
		if page == maxPages {
			logger.Ctx(ctx).Warn("pull request listing truncated",
				"owner", owner, "repo", repo, "pages", maxPages)
		}
	}

	span.SetAttributes(attribute.Int("github.merged_count", len(merged)))
	return merged, nil
}

func (c *Client) listPage(ctx context.Context, owner, repo string, page int) ([]PullRequest, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/pulls?state=closed&per_page=%d&page=%d",
		c.baseURL, owner, repo, perPage, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if err := classifyResponse(resp, body); err != nil {
		return nil, fmt.Errorf("list pulls %s/%s page %d: %w", owner, repo, page, err)
	}

	var prs []PullRequest
	if err := json.Unmarshal(body, &prs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return prs, nil
}

// classifyResponse maps error statuses to sentinel errors.
func classifyResponse(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode < 400:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusForbidden && quotaExhausted(resp):
		return ErrRateLimited
	}
	var apiErr struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("API error (status %d)", resp.StatusCode)
}

func quotaExhausted(resp *http.Response) bool {
	remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	return err == nil && remaining == 0
}
