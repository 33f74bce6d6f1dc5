// Package output renders a sprint report for people and for other tools.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/opensdd/sprintwatch/core/report"
)

// Format selects a renderer.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatPrefetch Format = "prefetch"
)

// Formats lists the supported formats in help order.
var Formats = []Format{FormatText, FormatJSON, FormatPrefetch}

// ParseFormat accepts a format name case-insensitively. Empty means text.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatText, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want one of %s)", s, formatList())
}

// Render writes r to w in format f.
func Render(w io.Writer, f Format, r *report.SprintReport) error {
	if r == nil {
		return fmt.Errorf("report cannot be nil")
	}
	switch f {
	case FormatText, "":
		return Text(w, r)
	case FormatJSON:
		return JSON(w, r)
	case FormatPrefetch:
		return Prefetch(w, r)
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

func formatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
