package jql

import "time"

// BuildPredicate returns the per-engineer sprint predicate:
//
//	project = P AND sprint = S AND assignee = E AND
//	(status NOT IN (Done, Closed, Released) OR updated >= cutoff)
//
// The cutoff is rendered as a date in cutoff's own location.
func BuildPredicate(project string, sprintID int64, engineer string, cutoff time.Time) Expr {
	return And{Terms: []Expr{
		Compare{Field: "project", Op: Eq, Value: Str(project)},
		Compare{Field: "sprint", Op: Eq, Value: Num(sprintID)},
		Compare{Field: "assignee", Op: Eq, Value: Str(engineer)},
		NeedsAttention(cutoff),
	}}
}

// NeedsAttention is the OR group "not terminal, or updated since cutoff".
func NeedsAttention(cutoff time.Time) Or {
	return Or{Terms: []Expr{
		In{Field: "status", Values: Strs(TerminalStatuses...), Not: true},
		Compare{Field: "updated", Op: Gte, Value: DateOf(cutoff)},
	}}
}

// Cutoff returns midnight, in loc, of the calendar day that lies days before
// now. Zero days yields the start of today, so anything touched today counts.
func Cutoff(now time.Time, days int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if days < 0 {
		days = 0
	}
	y, m, d := now.In(loc).AddDate(0, 0, -days).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
