package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jonathan/talent-pipeline/internal/pipeline"
)

// rejectionPalette colors rejection reasons by rank.
var rejectionPalette = []string{
	"#ef4444", "#f97316", "#f59e0b", "#eab308",
	"#84cc16", "#10b981", "#06b6d4", "#3b82f6",
	"#8b5cf6", "#ec4899",
}

func computeFunnel(ds *dataset, f Filters) Funnel {
	apps := ds.applicants(f)
	out := Funnel{Stages: make([]FunnelStage, 0, len(ds.groups)), TotalApplicants: len(apps)}

	counts := map[string]int{}
	for _, jc := range apps {
		for key := range ds.visited(jc) {
			counts[key]++
		}
		if ds.isHired(jc) {
			out.TotalHired++
		}
	}

	for _, g := range ds.groups {
		out.Stages = append(out.Stages, FunnelStage{
			StageName:  g.name,
			Count:      counts[g.key],
			Percentage: percent(counts[g.key], len(apps)),
		})
	}
	for i := 0; i+1 < len(out.Stages); i++ {
		out.Stages[i].ConversionToNext = percent(out.Stages[i+1].Count, out.Stages[i].Count)
	}
	out.OverallConversionRate = percent(out.TotalHired, out.TotalApplicants)
	return out
}

func computeTimeInStage(ds *dataset, f Filters) TimeInStage {
	type acc struct {
		hours float64
		n     int
	}
	sums := map[string]*acc{}
	for _, jc := range ds.applicants(f) {
		for _, h := range ds.history[jc.ID] {
			if h.IsOpen() || h.DurationHours == nil {
				continue
			}
			name := ds.stageName(h.StageID)
			if name == "" {
				continue
			}
			key := pipeline.StageKey(name)
			a, ok := sums[key]
			if !ok {
				a = &acc{}
				sums[key] = a
			}
			a.hours += *h.DurationHours
			a.n++
		}
	}

	out := TimeInStage{Stages: make([]StageDuration, 0, len(ds.groups))}
	bottleneck := -1
	for _, g := range ds.groups {
		row := StageDuration{StageName: g.name}
		if a, ok := sums[g.key]; ok {
			row.Entries = a.n
			row.AverageDays = round1(a.hours / float64(a.n) / 24)
		}
		out.Stages = append(out.Stages, row)
		if row.Entries == 0 {
			continue
		}
		if bottleneck < 0 || row.AverageDays > out.Stages[bottleneck].AverageDays {
			bottleneck = len(out.Stages) - 1
		}
	}
	if bottleneck >= 0 {
		b := &out.Stages[bottleneck]
		b.IsBottleneck = true
		out.Suggestion = fmt.Sprintf("Candidates spend the longest in %q (%.1f days on average). Review how %s is scheduled and staffed to shorten it.", b.StageName, b.AverageDays, b.StageName)
	}
	return out
}

func computeRejectionReasons(ds *dataset, f Filters) RejectionReasons {
	type acc struct {
		display string
		count   int
	}
	byReason := map[string]*acc{}
	total := 0
	for _, jc := range ds.applicants(f) {
		for _, h := range ds.history[jc.ID] {
			if h.Comment == nil || !pipeline.IsRejectionStage(ds.stageName(h.StageID)) {
				continue
			}
			key := normalizeReason(*h.Comment)
			if key == "" {
				continue
			}
			a, ok := byReason[key]
			if !ok {
				a = &acc{display: strings.Join(strings.Fields(*h.Comment), " ")}
				byReason[key] = a
			}
			a.count++
			total++
		}
	}

	out := RejectionReasons{Reasons: make([]RejectionReason, 0, len(byReason)), TotalRejections: total}
	for _, a := range byReason {
		out.Reasons = append(out.Reasons, RejectionReason{Reason: a.display, Count: a.count, Percentage: percent(a.count, total)})
	}
	sort.Slice(out.Reasons, func(a, b int) bool {
		if out.Reasons[a].Count != out.Reasons[b].Count {
			return out.Reasons[a].Count > out.Reasons[b].Count
		}
		return normalizeReason(out.Reasons[a].Reason) < normalizeReason(out.Reasons[b].Reason)
	})
	for i := range out.Reasons {
		out.Reasons[i].Color = rejectionPalette[i%len(rejectionPalette)]
	}
	return out
}

// normalizeReason lowercases and collapses whitespace.
func normalizeReason(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// percent returns part/whole as a percentage rounded to one decimal, or 0
// when whole is 0.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round1(float64(part) / float64(whole) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
