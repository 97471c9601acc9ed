package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	AdminArea *string    `json:"adminArea,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

type session struct {
	Message      string `json:"message"`
	User         *User  `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Login authenticates and stores the returned token pair on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var out session
	err := c.Do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.SetTokens(Tokens{Access: out.Token, Refresh: out.RefreshToken})
	return out.User, nil
}

// Profile returns the authenticated user.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := c.Do(ctx, http.MethodGet, "/auth/profile", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

type Report struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	Tags        []string  `json:"tags"`
	IsPublic    bool      `json:"isPublic"`
	UpvoteCount int       `json:"upvoteCount"`
	HasUpvoted  *bool     `json:"hasUpvoted,omitempty"`
	DistanceKm  *float64  `json:"distanceKm,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	PageSize    int   `json:"pageSize"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

type ReportPage struct {
	Reports    []Report   `json:"reports"`
	Pagination Pagination `json:"pagination"`
}

// ListReports queries the public listing; query carries filters verbatim.
func (c *Client) ListReports(ctx context.Context, query url.Values) (*ReportPage, error) {
	path := "/reports"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out ReportPage
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetReport(ctx context.Context, id string) (*Report, error) {
	var out struct {
		Report *Report `json:"report"`
	}
	if err := c.Do(ctx, http.MethodGet, "/reports/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Report, nil
}

// CreateReport posts body as-is so callers can send any accepted field.
func (c *Client) CreateReport(ctx context.Context, body any) (*Report, error) {
	var out struct {
		Report *Report `json:"report"`
	}
	if err := c.Do(ctx, http.MethodPost, "/reports", body, &out); err != nil {
		return nil, err
	}
	return out.Report, nil
}

// ToggleUpvote flips the caller's upvote and returns the new state.
func (c *Client) ToggleUpvote(ctx context.Context, id string) (bool, int, error) {
	var out struct {
		Upvoted     bool `json:"upvoted"`
		UpvoteCount int  `json:"upvoteCount"`
	}
	if err := c.Do(ctx, http.MethodPost, "/reports/"+url.PathEscape(id)+"/upvote", nil, &out); err != nil {
		return false, 0, err
	}
	return out.Upvoted, out.UpvoteCount, nil
}
