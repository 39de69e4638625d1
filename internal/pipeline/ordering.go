package pipeline

import (
	"sort"

	"github.com/google/uuid"

	"github.com/jonathan/talent-pipeline/internal/apperr"
	"github.com/jonathan/talent-pipeline/internal/db"
)

// Placement assigns a stage its new position.
type Placement struct {
	StageID  uuid.UUID
	Position int
}

// sortedIDs returns stage ids ordered by position.
func sortedIDs(stages []db.PipelineStage) []uuid.UUID {
	ordered := append([]db.PipelineStage(nil), stages...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })
	ids := make([]uuid.UUID, len(ordered))
	for i, s := range ordered {
		ids[i] = s.ID
	}
	return ids
}

// diff returns a placement for every stage whose index in order differs from
// its stored position.
func diff(stages []db.PipelineStage, order []uuid.UUID) []Placement {
	current := make(map[uuid.UUID]int, len(stages))
	for _, s := range stages {
		current[s.ID] = s.Position
	}
	var out []Placement
	for pos, id := range order {
		if old, ok := current[id]; ok && old == pos {
			continue
		}
		out = append(out, Placement{StageID: id, Position: pos})
	}
	return out
}

// InsertAt returns the renumbering that opens a gap at pos for a new stage
// with id newID: every stage at or after pos moves up by one. pos must be in
// [0, len(stages)]. The new stage's own placement is included.
func InsertAt(stages []db.PipelineStage, newID uuid.UUID, pos int) ([]Placement, error) {
	if pos < 0 || pos > len(stages) {
		return nil, apperr.Validation("position", "must be between 0 and %d, got %d", len(stages), pos)
	}
	ids := sortedIDs(stages)
	order := make([]uuid.UUID, 0, len(ids)+1)
	order = append(order, ids[:pos]...)
	order = append(order, newID)
	order = append(order, ids[pos:]...)
	return diff(stages, order), nil
}

// Move returns the renumbering that places stageID at newPos. Stages between
// the old and new position shift by one towards the vacated slot. Moving to
// the current position yields no placements.
func Move(stages []db.PipelineStage, stageID uuid.UUID, newPos int) ([]Placement, error) {
	if newPos < 0 || newPos >= len(stages) {
		return nil, apperr.Validation("position", "must be between 0 and %d, got %d", len(stages)-1, newPos)
	}
	ids := sortedIDs(stages)
	from := -1
	for i, id := range ids {
		if id == stageID {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, apperr.NotFound("stage", stageID)
	}

	order := make([]uuid.UUID, 0, len(ids))
	order = append(order, ids[:from]...)
	order = append(order, ids[from+1:]...)
	order = append(order[:newPos], append([]uuid.UUID{stageID}, order[newPos:]...)...)
	return diff(stages, order), nil
}

// Remove returns the renumbering that closes the gap left by stageID.
func Remove(stages []db.PipelineStage, stageID uuid.UUID) ([]Placement, error) {
	ids := sortedIDs(stages)
	order := make([]uuid.UUID, 0, len(ids))
	found := false
	for _, id := range ids {
		if id == stageID {
			found = true
			continue
		}
		order = append(order, id)
	}
	if !found {
		return nil, apperr.NotFound("stage", stageID)
	}
	return diff(stages, order), nil
}

// Apply returns a copy of stages with placements applied, sorted by position.
func Apply(stages []db.PipelineStage, placements []Placement) []db.PipelineStage {
	pos := make(map[uuid.UUID]int, len(placements))
	for _, p := range placements {
		pos[p.StageID] = p.Position
	}
	out := append([]db.PipelineStage(nil), stages...)
	for i := range out {
		if p, ok := pos[out[i].ID]; ok {
			out[i].Position = p
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
