package jira

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// User is the subset of a Jira user record the reporter reads.
type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	TimeZone     string `json:"timeZone"`
}

// Myself returns the user the client authenticates as.
func (c *Client) Myself(ctx context.Context) (*User, error) {
	var u User
	if err := c.GetJSON(ctx, "/rest/api/3/myself", nil, &u); err != nil {
		return nil, fmt.Errorf("failed to fetch current jira user: %w", err)
	}
	return &u, nil
}

// Location returns the timezone of the authenticated user's Jira profile.
// JQL date literals are evaluated in this zone, so cutoffs are computed in it.
func (c *Client) Location(ctx context.Context) (*time.Location, error) {
	me, err := c.Myself(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(me.TimeZone) == "" {
		return nil, fmt.Errorf("jira profile of %s has no timezone", me.DisplayName)
	}
	loc, err := time.LoadLocation(me.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load jira profile timezone %q: %w", me.TimeZone, err)
	}
	return loc, nil
}

// DisplayName looks up query (email or name) in the user directory and
// returns the display name of the first match.
func (c *Client) DisplayName(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("user query cannot be empty")
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("maxResults", "2")

	var users []User
	if err := c.GetJSON(ctx, "/rest/api/3/user/search", q, &users); err != nil {
		return "", fmt.Errorf("failed to search jira users for %s: %w", query, err)
	}
	for _, u := range users {
		if u.DisplayName != "" {
			return u.DisplayName, nil
		}
	}
	return "", fmt.Errorf("no jira user matches %s", query)
}
