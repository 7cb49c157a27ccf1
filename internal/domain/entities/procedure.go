package entities

import (
	"sort"
	"time"
)

// Procedure represents an authored SOP: an ordered set of steps a user
// executes. Procedures are read-only to the execution core; authoring and
// publishing live in the marketplace surface.
type Procedure struct {
	ID          string    `json:"id" db:"id"`
	AuthorID    string    `json:"author_id" db:"author_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	PriceCents  int       `json:"price_cents" db:"price_cents"`
	Steps       []Step    `json:"steps"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Step represents one step of a procedure. Order is 1-based and unique within
// a procedure; the engine re-sequences defensively rather than trusting
// upstream to guarantee contiguity.
type Step struct {
	ID           string    `json:"id" db:"id"`
	ProcedureID  string    `json:"procedure_id" db:"procedure_id"`
	Order        int       `json:"order" db:"order"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	ImageURL     *string   `json:"image_url,omitempty" db:"image_url"`
	VideoURL     *string   `json:"video_url,omitempty" db:"video_url"`
	TimerSeconds *int      `json:"timer_seconds,omitempty" db:"timer_seconds"`
	Question     *string   `json:"question,omitempty" db:"question"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IsFree reports whether the procedure can be executed without a purchase
func (p *Procedure) IsFree() bool {
	return p.PriceCents == 0
}

// NormalizeSteps sorts the steps by their declared order. Gaps and duplicate
// order values are tolerated; ties keep their load order.
func (p *Procedure) NormalizeSteps() {
	sort.SliceStable(p.Steps, func(i, j int) bool {
		return p.Steps[i].Order < p.Steps[j].Order
	})
}

// StepIndex returns the position of the step with the given ID within the
// normalized step list, or -1 if the step does not belong to this procedure.
func (p *Procedure) StepIndex(stepID string) int {
	for i := range p.Steps {
		if p.Steps[i].ID == stepID {
			return i
		}
	}
	return -1
}

// StepByID returns the step with the given ID, or nil
func (p *Procedure) StepByID(stepID string) *Step {
	if i := p.StepIndex(stepID); i >= 0 {
		return &p.Steps[i]
	}
	return nil
}
