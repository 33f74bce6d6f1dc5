// Package jql models Jira Query Language predicates as composable values.
// A predicate stays structured until String is called, which is the only
// place quoting and grouping rules are applied.
package jql

import (
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"
)

// DateLayout is the JQL date literal format used for recency cutoffs.
const DateLayout = "2006-01-02"

// TerminalStatuses are statuses treated as finished work.
var TerminalStatuses = []string{"Done", "Closed", "Released"}

const (
	precOr = iota + 1
	precAnd
	precTerm
)

// Expr is a JQL boolean expression.
type Expr interface {
	String() string
	precedence() int
}

// Value is a JQL operand.
type Value interface {
	literal() string
}

// Op is a JQL comparison operator.
type Op string

const (
	Eq  Op = "="
	Neq Op = "!="
	Gte Op = ">="
	Lte Op = "<="
)

// And is the conjunction of Terms.
type And struct {
	Terms []Expr
}

func (a And) String() string { return join(a.Terms, " AND ", precAnd) }
func (a And) precedence() int { return precAnd }

// Or is the disjunction of Terms.
type Or struct {
	Terms []Expr
}

func (o Or) String() string { return join(o.Terms, " OR ", precOr) }
func (o Or) precedence() int { return precOr }

// Compare is a single "field op value" clause.
type Compare struct {
	Field string
	Op    Op
	Value Value
}

func (c Compare) String() string { return c.Field + " " + string(c.Op) + " " + c.Value.literal() }
func (c Compare) precedence() int { return precTerm }

// In is "field IN (...)" or, with Not set, "field NOT IN (...)".
type In struct {
	Field  string
	Values []Value
	Not    bool
}

func (in In) String() string {
	vals := make([]string, len(in.Values))
	for i, v := range in.Values {
		vals[i] = v.literal()
	}
	op := " IN ("
	if in.Not {
		op = " NOT IN ("
	}
	return in.Field + op + strings.Join(vals, ", ") + ")"
}

func (in In) precedence() int { return precTerm }

// Str is a string operand; it is always quoted.
type Str string

func (s Str) literal() string { return Quote(string(s)) }

// Num is a bare integer operand, used for ids such as sprint.
type Num int64

func (n Num) literal() string { return strconv.FormatInt(int64(n), 10) }

// Date is a calendar-day operand. The instant is rendered as a date in Loc,
// which should be the timezone Jira evaluates the query in.
type Date struct {
	At  *timestamppb.Timestamp
	Loc *time.Location
}

// DateOf returns the Date operand for t, keeping t's location.
func DateOf(t time.Time) Date {
	return Date{At: timestamppb.New(t), Loc: t.Location()}
}

func (d Date) literal() string {
	loc := d.Loc
	if loc == nil {
		loc = time.UTC
	}
	return Quote(d.At.AsTime().In(loc).Format(DateLayout))
}

// Strs converts plain strings into quoted operands.
func Strs(ss ...string) []Value {
	out := make([]Value, len(ss))
	for i, s := range ss {
		out[i] = Str(s)
	}
	return out
}

// Quote renders s as a double-quoted JQL string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func join(terms []Expr, sep string, parent int) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == nil {
			continue
		}
		s := t.String()
		if s == "" {
			continue
		}
		if t.precedence() < parent {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, sep)
}
