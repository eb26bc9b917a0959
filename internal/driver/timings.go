package driver

import (
	"encoding/json"
	"fmt"

	"flowsema/internal/diag"
	"flowsema/internal/observ"
)

// timingNote is the JSON carried in the note of an OBS6001 diagnostic.
type timingNote struct {
	Path string `json:"path"`
	observ.Report
}

// addTimings appends the per-pass timings of one fixture. The entry is kept
// even when the bag is already full.
func addTimings(bag *diag.Bag, path string, report observ.Report) {
	payload, err := json.Marshal(timingNote{Path: path, Report: report})
	if err != nil {
		return
	}
	d := diag.Diagnostic{
		Severity: diag.SevInfo,
		Code:     diag.ObsTimings,
		Message:  fmt.Sprintf("timings: %.2f ms over %d passes", report.TotalMS, len(report.Phases)),
		Notes:    []diag.Note{{Msg: string(payload)}},
	}
	if bag.Cap() == 0 || bag.Len() < bag.Cap() {
		bag.Add(d)
		return
	}
	extra := diag.NewBag(1)
	extra.Add(d)
	bag.Merge(extra)
}

// TotalTimings merges the timings of every fixture in results.
func TotalTimings(results []Result) observ.Report {
	reports := make([]observ.Report, 0, len(results))
	for _, r := range results {
		if r.Timing != nil {
			reports = append(reports, *r.Timing)
		}
	}
	return observ.Merge(reports...)
}
