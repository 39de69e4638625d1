package analytics

import (
	"sort"

	"github.com/google/uuid"

	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/pipeline"
)

// computeProductivity credits job activity to the job's assigned recruiter
// and interview load to panel members. Events are counted when their own
// timestamp falls inside the range.
func computeProductivity(ds *dataset, users []db.User, f Filters) Productivity {
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	recruiters := map[uuid.UUID]*RecruiterStats{}
	recruiterOf := func(jobID uuid.UUID) *RecruiterStats {
		job, ok := ds.jobByID[jobID]
		if !ok || job.AssignedRecruiterID == nil {
			return nil
		}
		id := *job.AssignedRecruiterID
		r, ok := recruiters[id]
		if !ok {
			r = &RecruiterStats{UserID: id, Name: names[id]}
			recruiters[id] = r
		}
		return r
	}

	for _, job := range ds.jobs {
		if r := recruiterOf(job.ID); r != nil {
			r.JobsAssigned++
		}
	}

	jobOf := make(map[uuid.UUID]uuid.UUID, len(ds.jobCandidates))
	for _, jc := range ds.jobCandidates {
		jobOf[jc.ID] = jc.JobID
		r := recruiterOf(jc.JobID)
		if r == nil {
			continue
		}
		if f.contains(jc.AppliedAt) {
			r.CandidatesAdded++
		}
		for _, h := range ds.history[jc.ID] {
			if !f.contains(h.EnteredAt) {
				continue
			}
			name := ds.stageName(h.StageID)
			switch {
			case pipeline.IsOfferStage(name):
				r.OffersMade++
			case pipeline.IsHiredStage(name):
				r.Hires++
			}
		}
	}

	panel := map[uuid.UUID]*PanelStats{}
	turnaround := map[uuid.UUID]float64{}
	panelist := func(id uuid.UUID) *PanelStats {
		p, ok := panel[id]
		if !ok {
			p = &PanelStats{UserID: id, Name: names[id]}
			panel[id] = p
		}
		return p
	}

	for _, iv := range ds.interviews {
		if iv.Status == db.InterviewCancelled {
			continue
		}
		if f.contains(iv.CreatedAt) {
			if r := recruiterOf(jobOf[iv.JobCandidateID]); r != nil {
				r.InterviewsScheduled++
			}
		}
		if !f.contains(iv.ScheduledAt) {
			continue
		}
		submitted := map[uuid.UUID]db.InterviewFeedback{}
		for _, fb := range ds.feedback[iv.ID] {
			submitted[fb.ReviewerID] = fb
		}
		for _, member := range iv.PanelMemberIDs {
			p := panelist(member)
			p.InterviewsAssigned++
			fb, ok := submitted[member]
			if !ok {
				p.FeedbackPending++
				continue
			}
			p.FeedbackSubmitted++
			hours := fb.SubmittedAt.Sub(iv.ScheduledAt).Hours()
			if hours < 0 {
				hours = 0
			}
			turnaround[member] += hours
		}
	}

	out := Productivity{
		Recruiters: make([]RecruiterStats, 0, len(recruiters)),
		Panel:      make([]PanelStats, 0, len(panel)),
	}
	for _, r := range recruiters {
		out.Recruiters = append(out.Recruiters, *r)
	}
	for id, p := range panel {
		if p.FeedbackSubmitted > 0 {
			p.AvgTurnaroundHours = round1(turnaround[id] / float64(p.FeedbackSubmitted))
		}
		out.Panel = append(out.Panel, *p)
	}
	sort.Slice(out.Recruiters, func(a, b int) bool {
		return lessByName(out.Recruiters[a].Name, out.Recruiters[b].Name, out.Recruiters[a].UserID, out.Recruiters[b].UserID)
	})
	sort.Slice(out.Panel, func(a, b int) bool {
		return lessByName(out.Panel[a].Name, out.Panel[b].Name, out.Panel[a].UserID, out.Panel[b].UserID)
	})
	return out
}

func computeKPIs(ds *dataset, f Filters) KPIs {
	var out KPIs
	for _, job := range ds.jobs {
		if job.Status == db.JobStatusActive {
			out.ActiveJobs++
		}
	}

	apps := ds.applicants(f)
	out.TotalApplicants = len(apps)
	inScope := make(map[uuid.UUID]bool, len(apps))

	var hireDays float64
	for _, jc := range apps {
		inScope[jc.ID] = true
		if ds.firstEntry(jc, pipeline.IsOfferStage) != nil {
			out.OffersMade++
		}
		if !ds.isHired(jc) {
			continue
		}
		out.Hires++
		hiredAt := jc.UpdatedAt
		if h := ds.firstEntry(jc, pipeline.IsHiredStage); h != nil {
			hiredAt = h.EnteredAt
		}
		if d := hiredAt.Sub(jc.AppliedAt).Hours() / 24; d > 0 {
			hireDays += d
		}
	}
	if out.Hires > 0 {
		out.AvgTimeToHireDays = round1(hireDays / float64(out.Hires))
	}

	for _, iv := range ds.interviews {
		if inScope[iv.JobCandidateID] && iv.Status != db.InterviewCancelled {
			out.InterviewsScheduled++
		}
	}
	return out
}

func lessByName(a, b string, idA, idB uuid.UUID) bool {
	if a != b {
		return a < b
	}
	return idA.String() < idB.String()
}
