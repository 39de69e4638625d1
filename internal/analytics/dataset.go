package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/pipeline"
)

// dataset is the slice of a company's data one aggregate reads. It is loaded
// once per report and never written to.
type dataset struct {
	jobs          []db.Job
	jobByID       map[uuid.UUID]*db.Job
	stageByID     map[uuid.UUID]*db.PipelineStage
	groups        []stageGroup
	jobCandidates []db.JobCandidate
	history       map[uuid.UUID][]db.StageHistory
	interviews    []db.Interview
	feedback      map[uuid.UUID][]db.InterviewFeedback
}

// stageGroup is every stage sharing a name, across the jobs in scope.
type stageGroup struct {
	key      string
	name     string
	position int
	order    int
}

type loadOptions struct {
	interviews bool
}

// load reads the jobs visible to the query and everything hanging off them.
// Recruiters only see their assigned jobs.
func load(ctx context.Context, store db.Querier, q Query, opts loadOptions) (*dataset, error) {
	filter := db.JobFilter{
		CompanyID:  q.CompanyID,
		Department: q.Filters.Department,
		Location:   q.Filters.Location,
		JobID:      q.Filters.JobID,
	}
	if q.Principal().IsRecruiter() {
		actor := q.ActorID
		filter.AssignedRecruiterID = &actor
	}

	jobs, err := store.ListJobs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	ds := &dataset{
		jobs:      jobs,
		jobByID:   make(map[uuid.UUID]*db.Job, len(jobs)),
		stageByID: map[uuid.UUID]*db.PipelineStage{},
		history:   map[uuid.UUID][]db.StageHistory{},
		feedback:  map[uuid.UUID][]db.InterviewFeedback{},
	}
	if len(jobs) == 0 {
		return ds, nil
	}

	jobIDs := make([]uuid.UUID, len(jobs))
	jobOrder := make(map[uuid.UUID]int, len(jobs))
	for i := range jobs {
		jobIDs[i] = jobs[i].ID
		jobOrder[jobs[i].ID] = i
		ds.jobByID[jobs[i].ID] = &jobs[i]
	}

	stages, err := store.ListStagesForJobs(ctx, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	sort.SliceStable(stages, func(a, b int) bool {
		if oa, ob := jobOrder[stages[a].JobID], jobOrder[stages[b].JobID]; oa != ob {
			return oa < ob
		}
		return stages[a].Position < stages[b].Position
	})
	ds.indexStages(stages)

	ds.jobCandidates, err = store.ListJobCandidates(ctx, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list job candidates: %w", err)
	}
	if len(ds.jobCandidates) == 0 {
		return ds, nil
	}
	jcIDs := make([]uuid.UUID, len(ds.jobCandidates))
	for i, jc := range ds.jobCandidates {
		jcIDs[i] = jc.ID
	}

	entries, err := store.ListStageHistory(ctx, jcIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage history: %w", err)
	}
	for _, h := range entries {
		ds.history[h.JobCandidateID] = append(ds.history[h.JobCandidateID], h)
	}

	if !opts.interviews {
		return ds, nil
	}
	ds.interviews, err = store.ListInterviews(ctx, jcIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	if len(ds.interviews) == 0 {
		return ds, nil
	}
	ivIDs := make([]uuid.UUID, len(ds.interviews))
	for i, iv := range ds.interviews {
		ivIDs[i] = iv.ID
	}
	fbs, err := store.ListFeedback(ctx, ivIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	for _, fb := range fbs {
		ds.feedback[fb.InterviewID] = append(ds.feedback[fb.InterviewID], fb)
	}
	return ds, nil
}

// indexStages groups stages by case-insensitive name, ordered by the lowest
// position the name takes in any job, then by first appearance. The group is
// displayed with the first spelling seen.
func (ds *dataset) indexStages(stages []db.PipelineStage) {
	byKey := map[string]*stageGroup{}
	for i := range stages {
		st := &stages[i]
		ds.stageByID[st.ID] = st

		key := pipeline.StageKey(st.Name)
		g, ok := byKey[key]
		if !ok {
			g = &stageGroup{key: key, name: st.Name, position: st.Position, order: len(byKey)}
			byKey[key] = g
			continue
		}
		if st.Position < g.position {
			g.position = st.Position
		}
	}

	ds.groups = make([]stageGroup, 0, len(byKey))
	for _, g := range byKey {
		ds.groups = append(ds.groups, *g)
	}
	sort.Slice(ds.groups, func(a, b int) bool {
		if ds.groups[a].position != ds.groups[b].position {
			return ds.groups[a].position < ds.groups[b].position
		}
		return ds.groups[a].order < ds.groups[b].order
	})
}

// applicants returns the job candidates whose application date is inside the
// query's range.
func (ds *dataset) applicants(f Filters) []db.JobCandidate {
	out := make([]db.JobCandidate, 0, len(ds.jobCandidates))
	for _, jc := range ds.jobCandidates {
		if f.contains(jc.AppliedAt) {
			out = append(out, jc)
		}
	}
	return out
}

// stageName resolves a stage id, returning "" for stages outside the dataset.
func (ds *dataset) stageName(id uuid.UUID) string {
	if st, ok := ds.stageByID[id]; ok {
		return st.Name
	}
	return ""
}

// visited returns the stage keys a job candidate has been in, including the
// current one.
func (ds *dataset) visited(jc db.JobCandidate) map[string]bool {
	out := map[string]bool{}
	if name := ds.stageName(jc.CurrentStageID); name != "" {
		out[pipeline.StageKey(name)] = true
	}
	for _, h := range ds.history[jc.ID] {
		if name := ds.stageName(h.StageID); name != "" {
			out[pipeline.StageKey(name)] = true
		}
	}
	return out
}

// firstEntry returns the earliest ledger entry of jc for a stage matching.
func (ds *dataset) firstEntry(jc db.JobCandidate, match func(name string) bool) *db.StageHistory {
	for i, h := range ds.history[jc.ID] {
		if match(ds.stageName(h.StageID)) {
			return &ds.history[jc.ID][i]
		}
	}
	return nil
}

func (ds *dataset) isHired(jc db.JobCandidate) bool {
	return pipeline.IsHiredStage(ds.stageName(jc.CurrentStageID))
}
