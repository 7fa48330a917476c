package gigledgersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Gigledger HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Gig represents the API gig model.
type Gig struct {
	ID          uint64      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Payment     uint64      `json:"payment"`
	Owner       string      `json:"owner"`
	Worker      *string     `json:"worker,omitempty"`
	Status      string      `json:"status"`
	Milestones  []Milestone `json:"milestones,omitempty"`
	Categories  []string    `json:"categories,omitempty"`
	Dispute     *Dispute    `json:"dispute,omitempty"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
}

type Milestone struct {
	GigID       uint64 `json:"gig_id"`
	Position    int    `json:"position"`
	Description string `json:"description,omitempty"`
	Amount      uint64 `json:"amount"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
}

type Dispute struct {
	GigID       uint64 `json:"gig_id"`
	RaisedBy    string `json:"raised_by"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

type UserGigs struct {
	Principal string   `json:"principal"`
	Owned     []uint64 `json:"owned"`
	Worked    []uint64 `json:"worked"`
	Total     int      `json:"total"`
}

type Rating struct {
	Principal  string  `json:"principal"`
	TotalScore uint64  `json:"total_score"`
	Count      uint64  `json:"count"`
	Average    float64 `json:"average"`
	UpdatedAt  string  `json:"updated_at"`
}

type Profile struct {
	Principal string   `json:"principal"`
	Skills    []string `json:"skills"`
	Bio       string   `json:"bio,omitempty"`
	UpdatedAt string   `json:"updated_at"`
}

type Account struct {
	Principal string `json:"principal"`
	Balance   uint64 `json:"balance"`
	UpdatedAt string `json:"updated_at"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json,omitempty"`
}

// PaginatedGigs wraps list responses with cursors.
type PaginatedGigs struct {
	Items      []Gig  `json:"items"`
	NextCursor string `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateGig posts a gig.
func (c *Client) CreateGig(ctx context.Context, title, description string, payment uint64) (Gig, error) {
	body := map[string]any{
		"title":   title,
		"payment": payment,
	}
	if description != "" {
		body["description"] = description
	}
	var resp Gig
	err := c.do(ctx, http.MethodPost, "v0/gigs", body, &resp)
	return resp, err
}

// AcceptGig accepts a gig as the authenticated worker.
func (c *Client) AcceptGig(ctx context.Context, gigID uint64) (Gig, error) {
	var resp Gig
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/gigs/%d/accept", gigID), nil, &resp)
	return resp, err
}

// CompleteGig marks a gig delivered.
func (c *Client) CompleteGig(ctx context.Context, gigID uint64) (Gig, error) {
	var resp Gig
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/gigs/%d/complete", gigID), nil, &resp)
	return resp, err
}

// ReleasePayment pays the worker from escrow.
func (c *Client) ReleasePayment(ctx context.Context, gigID uint64) (Gig, error) {
	var resp Gig
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/gigs/%d/release", gigID), nil, &resp)
	return resp, err
}

// GetGig fetches one gig with milestones, categories and dispute.
func (c *Client) GetGig(ctx context.Context, gigID uint64) (Gig, error) {
	var resp Gig
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/gigs/%d", gigID), nil, &resp)
	return resp, err
}

// ListGigs returns a paginated gig listing.
func (c *Client) ListGigs(ctx context.Context, status string, limit int, cursor string) (PaginatedGigs, error) {
	endpoint := "v0/gigs"
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	var resp PaginatedGigs
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CreateDispute raises a dispute on a gig.
func (c *Client) CreateDispute(ctx context.Context, gigID uint64, description string) (Dispute, error) {
	var resp Dispute
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/gigs/%d/disputes", gigID), map[string]any{
		"description": description,
	}, &resp)
	return resp, err
}

// AddMilestone books part of the payment against a deliverable.
func (c *Client) AddMilestone(ctx context.Context, gigID uint64, description string, amount uint64) (Milestone, error) {
	var resp Milestone
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/gigs/%d/milestones", gigID), map[string]any{
		"description": description,
		"amount":      amount,
	}, &resp)
	return resp, err
}

// AddCategories tags a gig.
func (c *Client) AddCategories(ctx context.Context, gigID uint64, labels []string) ([]string, error) {
	var resp struct {
		Categories []string `json:"categories"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/gigs/%d/categories", gigID), map[string]any{
		"labels": labels,
	}, &resp)
	return resp.Categories, err
}

// UserGigs returns a principal's gig associations.
func (c *Client) UserGigs(ctx context.Context, principal string) (UserGigs, error) {
	var resp UserGigs
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/users/%s/gigs", url.PathEscape(principal)), nil, &resp)
	return resp, err
}

// RateUser folds a score into a principal's rating.
func (c *Client) RateUser(ctx context.Context, principal string, score uint64) (Rating, error) {
	var resp Rating
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/users/%s/ratings", url.PathEscape(principal)), map[string]any{
		"score": score,
	}, &resp)
	return resp, err
}

// GetRating fetches a principal's running rating.
func (c *Client) GetRating(ctx context.Context, principal string) (Rating, error) {
	var resp Rating
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/users/%s/rating", url.PathEscape(principal)), nil, &resp)
	return resp, err
}

// UpdatePortfolio replaces the authenticated principal's skills and bio.
func (c *Client) UpdatePortfolio(ctx context.Context, skills []string, bio string) (Profile, error) {
	var resp Profile
	err := c.do(ctx, http.MethodPut, "v0/me/portfolio", map[string]any{
		"skills": skills,
		"bio":    bio,
	}, &resp)
	return resp, err
}

// GetProfile fetches a portfolio.
func (c *Client) GetProfile(ctx context.Context, principal string) (Profile, error) {
	var resp Profile
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/users/%s/profile", url.PathEscape(principal)), nil, &resp)
	return resp, err
}

// Deposit credits the authenticated principal's account.
func (c *Client) Deposit(ctx context.Context, amount uint64) (Account, error) {
	var resp Account
	err := c.do(ctx, http.MethodPost, "v0/accounts/deposit", map[string]any{
		"amount": amount,
	}, &resp)
	return resp, err
}

// Balance fetches an account balance.
func (c *Client) Balance(ctx context.Context, principal string) (Account, error) {
	var resp Account
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/users/%s/balance", url.PathEscape(principal)), nil, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
