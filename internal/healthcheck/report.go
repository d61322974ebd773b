package healthcheck

import "context"

// Report is the aggregated outcome of several checkers.
type Report struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// Healthy reports whether no check failed. Warnings count as healthy.
func (r Report) Healthy() bool {
	return r.Status != StatusError
}

// Run evaluates checkers in order. The report status is the worst item status.
func Run(ctx context.Context, checkers ...Checker) Report {
	report := Report{Status: StatusOK, Checks: []CheckResult{}}
	for _, c := range checkers {
		if c == nil {
			continue
		}
		for _, item := range c.ListChecks(ctx) {
			report.Checks = append(report.Checks, item)
			report.Status = worse(report.Status, item.Status)
		}
	}
	return report
}

func worse(a, b string) string {
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func rank(status string) int {
	switch status {
	case StatusOK:
		return 0
	case StatusWarn:
		return 1
	default:
		return 2
	}
}
