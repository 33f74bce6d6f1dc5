// Package report assembles the per-engineer view of the active sprint.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opensdd/sprintwatch/core/jira"
	"github.com/opensdd/sprintwatch/core/jql"
	"github.com/opensdd/sprintwatch/core/search"
	"github.com/opensdd/sprintwatch/core/sprint"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// SprintFinder resolves the active sprint of a board.
type SprintFinder interface {
	FindActive(ctx context.Context, board sprint.Board) (*sprint.Sprint, error)
}

// Searcher runs one engineer's predicate to completion.
type Searcher interface {
	Search(ctx context.Context, engineer string, pred jql.Expr) (*search.Result, error)
}

// UserDirectory maps a configured engineer identifier to a display name.
type UserDirectory interface {
	DisplayName(ctx context.Context, query string) (string, error)
}

// Request is the validated input of one report run.
type Request struct {
	Board      sprint.Board
	Project    string
	Engineers  []string
	RecentDays int
	// Now is the run start time; zero means time.Now().
	Now time.Time
	// Location is the zone JQL dates are evaluated in; nil means UTC.
	Location *time.Location
}

// EngineerReport is one configured engineer's slot. Exactly one of Issues
// (possibly empty) or Err is meaningful.
type EngineerReport struct {
	Engineer    string
	DisplayName string
	Issues      []search.Issue
	Err         error
}

// Failed reports whether the engineer's search could not be completed.
func (r EngineerReport) Failed() bool { return r.Err != nil }

// Name returns the display name, falling back to the configured identifier.
func (r EngineerReport) Name() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Engineer
}

// URLs returns the browsable links of the engineer's issues in order.
func (r EngineerReport) URLs() []string {
	out := make([]string, len(r.Issues))
	for i, is := range r.Issues {
		out[i] = is.URL
	}
	return out
}

// SprintReport is the final display model.
type SprintReport struct {
	Sprint    sprint.Sprint
	Cutoff    time.Time
	Engineers []EngineerReport
}

// Failures counts engineers whose search failed.
func (r *SprintReport) Failures() int {
	n := 0
	for _, e := range r.Engineers {
		if e.Failed() {
			n++
		}
	}
	return n
}

// Assembler resolves the sprint once and searches every engineer's issues.
type Assembler struct {
	Sprints SprintFinder
	Search  Searcher
	// Users is optional; it is consulted only when no hit carried an
	// assignee display name.
	Users UserDirectory
	// Concurrency bounds parallel engineer searches. Zero means 4; 1 is sequential.
	Concurrency int
}

// Build returns the sprint report. It fails only when the sprint cannot be
// resolved or Jira rejects the credentials; per-engineer search failures are
// recorded in that engineer's slot.
func (a *Assembler) Build(ctx context.Context, req Request) (*SprintReport, error) {
	if a.Sprints == nil || a.Search == nil {
		return nil, fmt.Errorf("assembler requires a sprint finder and a searcher")
	}
	if req.RecentDays < 0 {
		return nil, fmt.Errorf("recent days cannot be negative: %d", req.RecentDays)
	}
	log := slog.With("op", "BuildReport", "board", req.Board, "project", req.Project)

	active, err := a.Sprints.FindActive(ctx, req.Board)
	if err != nil {
		return nil, err
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := jql.Cutoff(now, req.RecentDays, req.Location)
	log.Debug("Resolved sprint", "sprint", active.Name, "id", active.ID, "cutoff", cutoff.Format(jql.DateLayout))

	slots := make([]EngineerReport, len(req.Engineers))
	limit := a.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	// Plain group: one engineer's failure must not cancel the others.
	var g errgroup.Group
	g.SetLimit(limit)
	for i, engineer := range req.Engineers {
		g.Go(func() error {
			slots[i] = a.engineerReport(ctx, req.Project, active.ID, engineer, cutoff)
			return nil
		})
	}
	_ = g.Wait()

	for _, slot := range slots {
		if jira.IsAuthentication(slot.Err) {
			return nil, slot.Err
		}
	}

	rep := &SprintReport{Sprint: *active, Cutoff: cutoff, Engineers: slots}
	log.Debug("Report assembled", "engineers", len(slots), "failures", rep.Failures())
	return rep, nil
}

func (a *Assembler) engineerReport(ctx context.Context, project string, sprintID int64, engineer string, cutoff time.Time) EngineerReport {
	slot := EngineerReport{Engineer: engineer}
	if err := ctx.Err(); err != nil {
		slot.Err = &search.SearchFailedError{Engineer: engineer, Err: err}
		return slot
	}

	pred := jql.BuildPredicate(project, sprintID, engineer, cutoff)
	res, err := a.Search.Search(ctx, engineer, pred)
	if err != nil {
		var failed *search.SearchFailedError
		if !errors.As(err, &failed) {
			err = &search.SearchFailedError{Engineer: engineer, Err: err}
		}
		slog.Warn("Engineer query failed", "engineer", engineer, "err", err)
		slot.Err = err
		return slot
	}

	slot.Issues = res.Issues
	slot.DisplayName = res.DisplayName
	if slot.DisplayName == "" && a.Users != nil {
		name, err := a.Users.DisplayName(ctx, engineer)
		if err != nil {
			slog.Debug("Display name lookup failed", "engineer", engineer, "err", err)
		} else {
			slot.DisplayName = strings.TrimSpace(name)
		}
	}
	return slot
}
