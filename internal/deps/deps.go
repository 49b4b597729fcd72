package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is an external binary dinehall needs. Alternates are tried in
// order when Command is not found.
type Requirement struct {
	Name        string
	Command     string
	Alternates  []string
	Description string
	Optional    bool
}

func (r Requirement) candidates() []string {
	out := make([]string, 0, 1+len(r.Alternates))
	for _, c := range append([]string{r.Command}, r.Alternates...) {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Status is the outcome of checking one Requirement. Command is the
// candidate that resolved, or the primary command when none did.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries resolves each requirement against PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	candidates := req.candidates()
	if len(candidates) == 0 {
		status.Detail = "command not configured"
		return status
	}
	for _, candidate := range candidates {
		path, err := exec.LookPath(candidate)
		if err != nil {
			continue
		}
		status.Command = candidate
		status.Path = path
		status.Available = true
		status.Detail = path
		return status
	}
	if len(candidates) == 1 {
		status.Detail = fmt.Sprintf("binary %q not found", candidates[0])
	} else {
		status.Detail = fmt.Sprintf("none of %s found", strings.Join(candidates, ", "))
	}
	return status
}

// Missing returns the unavailable statuses that are not optional.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
