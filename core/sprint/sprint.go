// Package sprint locates the active sprint of a Jira Software board.
package sprint

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opensdd/sprintwatch/core/jira"
)

const (
	StateActive = "active"
	StateClosed = "closed"
	StateFuture = "future"

	defaultPageSize = 50
	maxPages        = 200
)

// Board identifies a Jira board. It is usually numeric but treated as opaque.
type Board string

// Sprint is the subset of the agile sprint resource the reporter needs.
type Sprint struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Goal      string    `json:"goal,omitempty"`
	StartDate time.Time `json:"startDate,omitzero"`
	EndDate   time.Time `json:"endDate,omitzero"`
}

type sprintPage struct {
	MaxResults int      `json:"maxResults"`
	StartAt    int      `json:"startAt"`
	IsLast     bool     `json:"isLast"`
	Values     []Sprint `json:"values"`
}

// Locator finds the active sprint of a board.
type Locator struct {
	Client jira.Getter
	// PageSize is the maxResults used when listing sprints. Zero means 50.
	PageSize int
}

// FindActive returns the single sprint in state "active" on board.
// It fails with *NoActiveSprintError when there is none and with
// *AmbiguousActiveSprintError when there is more than one.
func (l *Locator) FindActive(ctx context.Context, board Board) (*Sprint, error) {
	id := strings.TrimSpace(string(board))
	if id == "" {
		return nil, fmt.Errorf("sprint lookup: board id cannot be empty")
	}
	log := slog.With("op", "FindActive", "board", id)

	pageSize := l.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	path := "/rest/agile/1.0/board/" + url.PathEscape(id) + "/sprint"

	var active []Sprint
	startAt := 0
	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("sprint lookup for board %s: gave up after %d pages", id, maxPages)
		}
		q := url.Values{}
		q.Set("state", StateActive)
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(pageSize))

		var p sprintPage
		if err := l.Client.GetJSON(ctx, path, q, &p); err != nil {
			return nil, fmt.Errorf("sprint lookup for board %s: %w", id, err)
		}
		for _, s := range p.Values {
			if strings.EqualFold(s.State, StateActive) {
				active = append(active, s)
			}
		}
		log.Debug("Sprint page", "startAt", startAt, "values", len(p.Values), "activeSoFar", len(active))

		if p.IsLast || len(p.Values) == 0 || len(p.Values) < pageSize {
			break
		}
		startAt += len(p.Values)
	}

	switch len(active) {
	case 0:
		return nil, &NoActiveSprintError{Board: board}
	case 1:
		s := active[0]
		log.Debug("Active sprint resolved", "sprint", s.Name, "id", s.ID)
		return &s, nil
	default:
		return nil, &AmbiguousActiveSprintError{Board: board, Sprints: active}
	}
}

// NoActiveSprintError means the board has no sprint in state "active".
type NoActiveSprintError struct {
	Board Board
}

func (e *NoActiveSprintError) Error() string {
	return fmt.Sprintf("sprint lookup for board %s: no active sprint", e.Board)
}

// AmbiguousActiveSprintError means the board has several active sprints.
type AmbiguousActiveSprintError struct {
	Board   Board
	Sprints []Sprint
}

func (e *AmbiguousActiveSprintError) Error() string {
	names := make([]string, len(e.Sprints))
	for i, s := range e.Sprints {
		names[i] = fmt.Sprintf("%q (id %d)", s.Name, s.ID)
	}
	return fmt.Sprintf("sprint lookup for board %s: %d active sprints found, expected exactly one: %s",
		e.Board, len(e.Sprints), strings.Join(names, ", "))
}
