package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/opensdd/sprintwatch/core/jql"
	"github.com/opensdd/sprintwatch/core/report"
	"github.com/opensdd/sprintwatch/core/search"
	"github.com/opensdd/sprintwatch/core/sprint"
)

type jsonReport struct {
	Sprint    sprint.Sprint  `json:"sprint"`
	Cutoff    string         `json:"cutoff"`
	Engineers []jsonEngineer `json:"engineers"`
}

type jsonEngineer struct {
	Engineer    string         `json:"engineer"`
	DisplayName string         `json:"displayName"`
	Issues      []search.Issue `json:"issues"`
	Error       string         `json:"error,omitempty"`
}

// JSON writes the report as an indented JSON document. Failed engineers carry
// an error string and no issues; successful ones always carry an issues array.
func JSON(w io.Writer, r *report.SprintReport) error {
	doc := jsonReport{
		Sprint:    r.Sprint,
		Cutoff:    cutoffString(r.Cutoff),
		Engineers: make([]jsonEngineer, len(r.Engineers)),
	}
	for i, e := range r.Engineers {
		je := jsonEngineer{Engineer: e.Engineer, DisplayName: e.Name()}
		if e.Failed() {
			je.Error = e.Err.Error()
		} else {
			je.Issues = e.Issues
			if je.Issues == nil {
				je.Issues = []search.Issue{}
			}
		}
		doc.Engineers[i] = je
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func cutoffString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(jql.DateLayout)
}
