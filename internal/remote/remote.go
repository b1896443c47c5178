// Package remote talks to the posts REST collection over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smileynet/postdeck/internal/post"
)

// DefaultBaseURL is the public placeholder API.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

// defaultTimeout is used when no timeout option is provided.
const defaultTimeout = 10 * time.Second

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 512

// ErrNotFound is returned by Get when the collection has no such post.
var ErrNotFound = errors.New("remote: post not found")

// StatusError reports a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("remote: %s %s: status %d", e.Method, e.Path, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client calls the posts collection. It is safe for concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a Client rooted at baseURL (for example
// "https://jsonplaceholder.typicode.com"). An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

// BaseURL returns the collection root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// List fetches the whole collection (GET /posts).
func (c *Client) List(ctx context.Context) ([]post.Post, error) {
	var posts []post.Post
	if err := c.do(ctx, http.MethodGet, "/posts", nil, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []post.Post{}
	}
	return posts, nil
}

// Get fetches a single post (GET /posts/{id}).
// A 404 response is reported as ErrNotFound.
func (c *Client) Get(ctx context.Context, id post.ID) (post.Post, error) {
	var p post.Post
	err := c.do(ctx, http.MethodGet, "/posts/"+id.String(), nil, &p)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return post.Post{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return post.Post{}, err
	}
	// The placeholder API answers unknown ids with 404, but some mirrors
	// answer 200 with an empty object.
	if p.ID == 0 {
		return post.Post{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// Create submits a draft (POST /posts) and returns the stored post with its
// server-assigned ID.
func (c *Client) Create(ctx context.Context, d post.Draft) (post.Post, error) {
	var p post.Post
	if err := c.do(ctx, http.MethodPost, "/posts", d, &p); err != nil {
		return post.Post{}, err
	}
	if p.ID == 0 {
		return post.Post{}, errors.New("remote: create response carries no id")
	}
	return p, nil
}

// Delete removes a post (DELETE /posts/{id}).
func (c *Client) Delete(ctx context.Context, id post.ID) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+id.String(), nil, nil)
}

// do performs one request. in is encoded as the JSON body when non-nil;
// out receives the decoded response when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: encoding %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("remote: building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &StatusError{
			Method: method,
			Path:   path,
			Code:   res.StatusCode,
			Body:   string(bytes.TrimSpace(data)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decoding %s %s: %w", method, path, err)
	}
	return nil
}
