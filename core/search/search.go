// Package search runs JQL predicates against the Jira Cloud issue search
// endpoint and maps every hit to a browsable issue record.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opensdd/sprintwatch/core/jira"
	"github.com/opensdd/sprintwatch/core/jql"
)

const (
	searchPath = "/rest/api/3/search/jql"

	DefaultPageSize = 50
	MaxPageSize     = 100

	// updatedLayout is the timestamp format Jira uses for issue fields.
	updatedLayout = "2006-01-02T15:04:05.999-0700"
)

var searchFields = []string{"key", "assignee", "status", "updated"}

// Issue is a single search hit. Key and URL are always set.
type Issue struct {
	Key     string    `json:"key"`
	URL     string    `json:"url"`
	Status  string    `json:"status,omitempty"`
	Updated time.Time `json:"updated,omitzero"`
}

// Result is the full, concatenated outcome of one search.
type Result struct {
	// DisplayName is the assignee display name reported on the first hit
	// that carried one; empty when no hit had an assignee.
	DisplayName string
	Issues      []Issue
}

type searchPage struct {
	Issues        []rawIssue `json:"issues"`
	NextPageToken string     `json:"nextPageToken"`
	IsLast        *bool      `json:"isLast"`
	Total         *int       `json:"total"`
}

type rawIssue struct {
	Key    string    `json:"key"`
	Fields rawFields `json:"fields"`
}

type rawFields struct {
	Status   *rawName     `json:"status"`
	Assignee *rawAssignee `json:"assignee"`
	Updated  string       `json:"updated"`
}

type rawName struct {
	Name string `json:"name"`
}

type rawAssignee struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// Engine executes predicates and paginates transparently.
type Engine struct {
	Client jira.Getter
	// BaseURL is the site root used to build /browse/<key> links.
	BaseURL string
	// PageSize is the maxResults requested per page, capped at 100.
	PageSize int
}

// Search runs pred from the first page to the last and returns every match
// in server order. Any page failure fails the whole search with
// *SearchFailedError; partial results are never returned.
func (e *Engine) Search(ctx context.Context, engineer string, pred jql.Expr) (*Result, error) {
	if pred == nil {
		return nil, &SearchFailedError{Engineer: engineer, Err: fmt.Errorf("predicate cannot be nil")}
	}
	query := pred.String()
	if strings.TrimSpace(query) == "" {
		return nil, &SearchFailedError{Engineer: engineer, Err: fmt.Errorf("predicate cannot be empty")}
	}
	log := slog.With("op", "Search", "engineer", engineer)
	log.Debug("Searching issues", "jql", query)

	pageSize := e.pageSize()
	base := strings.TrimRight(e.BaseURL, "/")

	res := &Result{}
	seen := make(map[string]struct{})
	usedTokens := make(map[string]struct{})
	received := 0
	token := ""

	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("jql", query)
		q.Set("fields", strings.Join(searchFields, ","))
		q.Set("maxResults", strconv.Itoa(pageSize))
		if token != "" {
			q.Set("nextPageToken", token)
		}

		var p searchPage
		if err := e.Client.GetJSON(ctx, searchPath, q, &p); err != nil {
			return nil, &SearchFailedError{Engineer: engineer, Err: fmt.Errorf("page %d: %w", page, err)}
		}
		received += len(p.Issues)

		for _, raw := range p.Issues {
			if raw.Key == "" {
				continue
			}
			if _, dup := seen[raw.Key]; dup {
				log.Debug("Skipping duplicate issue across pages", "key", raw.Key)
				continue
			}
			seen[raw.Key] = struct{}{}
			res.Issues = append(res.Issues, toIssue(base, raw))
			if res.DisplayName == "" && raw.Fields.Assignee != nil {
				res.DisplayName = raw.Fields.Assignee.DisplayName
			}
		}
		log.Debug("Search pagination", "page", page, "issuesSoFar", len(res.Issues))

		if lastPage(p, pageSize, received) {
			break
		}
		if _, reused := usedTokens[p.NextPageToken]; reused {
			return nil, &SearchFailedError{Engineer: engineer, Err: fmt.Errorf("page %d: jira repeated page token %q", page, p.NextPageToken)}
		}
		usedTokens[p.NextPageToken] = struct{}{}
		token = p.NextPageToken
	}

	log.Debug("Search finished", "count", len(res.Issues))
	return res, nil
}

// BrowseURL returns the human-facing link for key.
func BrowseURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/browse/" + url.PathEscape(key)
}

func (e *Engine) pageSize() int {
	switch {
	case e.PageSize <= 0:
		return DefaultPageSize
	case e.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return e.PageSize
	}
}

// lastPage prefers the explicit isLast flag of the search/jql endpoint and
// falls back to token, short-page and total heuristics otherwise.
func lastPage(p searchPage, pageSize, received int) bool {
	if p.NextPageToken == "" {
		return true
	}
	if p.IsLast != nil {
		return *p.IsLast
	}
	if len(p.Issues) < pageSize {
		return true
	}
	return p.Total != nil && received >= *p.Total
}

func toIssue(base string, raw rawIssue) Issue {
	is := Issue{Key: raw.Key, URL: BrowseURL(base, raw.Key)}
	if raw.Fields.Status != nil {
		is.Status = raw.Fields.Status.Name
	}
	if raw.Fields.Updated != "" {
		if t, err := time.Parse(updatedLayout, raw.Fields.Updated); err == nil {
			is.Updated = t
		} else {
			slog.Debug("Unparseable updated timestamp", "key", raw.Key, "value", raw.Fields.Updated)
		}
	}
	return is
}

// SearchFailedError is a search that could not complete for one engineer.
type SearchFailedError struct {
	Engineer string
	Err      error
}

func (e *SearchFailedError) Error() string {
	return fmt.Sprintf("search for %s failed: %v", e.Engineer, e.Err)
}

func (e *SearchFailedError) Unwrap() error { return e.Err }
