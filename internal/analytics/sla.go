package analytics

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/pipeline"
)

// atRiskRatio is the share of the threshold after which a job is at risk.
const atRiskRatio = 0.8

// computeSLA classifies every active job by its longest-resident candidate
// outside terminal stages. The date range does not apply.
func computeSLA(ds *dataset, configs []db.SLAConfig, defaultDays float64, now time.Time) SLAStatus {
	thresholds := make(map[string]float64, len(configs))
	for _, c := range configs {
		thresholds[pipeline.StageKey(c.StageName)] = c.ThresholdDays
	}

	byJob := map[uuid.UUID][]db.JobCandidate{}
	for _, jc := range ds.jobCandidates {
		byJob[jc.JobID] = append(byJob[jc.JobID], jc)
	}

	out := SLAStatus{Jobs: []JobSLA{}}
	for _, job := range ds.jobs {
		if job.Status != db.JobStatusActive {
			continue
		}
		row := JobSLA{JobID: job.ID, JobTitle: job.Title, ThresholdDays: defaultDays, Status: SLAOnTrack}

		var oldest *db.JobCandidate
		var since time.Time
		for i, jc := range byJob[job.ID] {
			stage := ds.stageName(jc.CurrentStageID)
			if pipeline.IsTerminalStage(stage) {
				continue
			}
			entered := ds.enteredCurrent(jc)
			if oldest == nil || entered.Before(since) {
				oldest = &byJob[job.ID][i]
				since = entered
			}
		}

		if oldest != nil {
			id := oldest.ID
			stage := ds.stageName(oldest.CurrentStageID)
			row.JobCandidateID = &id
			row.StageName = stage
			if t, ok := thresholds[pipeline.StageKey(stage)]; ok {
				row.ThresholdDays = t
			}
			days := now.Sub(since).Hours() / 24
			if days < 0 {
				days = 0
			}
			row.DaysInStage = round1(days)
			row.Status = classifySLA(days, row.ThresholdDays)
		}

		switch row.Status {
		case SLABreached:
			out.Breached++
		case SLAAtRisk:
			out.AtRisk++
		default:
			out.OnTrack++
		}
		out.Jobs = append(out.Jobs, row)
	}
	return out
}

// classifySLA is breached above the threshold and at risk from 80% of it.
func classifySLA(days, threshold float64) string {
	if threshold <= 0 {
		return SLAOnTrack
	}
	ratio := days / threshold
	switch {
	case ratio > 1:
		return SLABreached
	case ratio >= atRiskRatio:
		return SLAAtRisk
	}
	return SLAOnTrack
}

// enteredCurrent returns when jc entered its current stage: the open ledger
// entry, falling back to the last stage change.
func (ds *dataset) enteredCurrent(jc db.JobCandidate) time.Time {
	entries := ds.history[jc.ID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].IsOpen() && entries[i].StageID == jc.CurrentStageID {
			return entries[i].EnteredAt
		}
	}
	return jc.UpdatedAt
}
