// Package requirements implements the requirement registry, the
// review-driven status state machine and ASIL/CAL-aware decomposition.
package requirements

import (
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-safety/pkg/cyber"
	"github.com/dd0wney/cluso-safety/pkg/repository"
	"github.com/dd0wney/cluso-safety/pkg/risk"
)

// Type enumerates the requirement categories
type Type string

const (
	TypeVehicle          Type = "vehicle"
	TypeOperational      Type = "operational"
	TypeFunctionalSafety Type = "functional safety"
	TypeTechnicalSafety  Type = "technical safety"
	TypeAISafety         Type = "AI safety"
	TypeFunctionalMod    Type = "functional modification"
	TypeCybersecurity    Type = "cybersecurity"
	TypeProduction       Type = "production"
	TypeService          Type = "service"
	TypeProduct          Type = "product"
	TypeLegal            Type = "legal"
)

// Status is a requirement's position in the review ladder. Transitions are
// driven only by review workflow outcomes; editing approved text resets to
// StatusInReview.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusInReview        Status = "in review"
	StatusPeerReviewed    Status = "peer reviewed"
	StatusPendingApproval Status = "pending approval"
	StatusApproved        Status = "approved"
	StatusObsolete        Status = "obsolete"
)

// statusRank orders the ladder for the monotone-max rule
var statusRank = map[Status]int{
	StatusDraft:           0,
	StatusInReview:        1,
	StatusPeerReviewed:    2,
	StatusPendingApproval: 3,
	StatusApproved:        4,
}

// Requirement is one registered requirement with its decomposition links
type Requirement struct {
	ID       string    `yaml:"id"`
	Type     Type      `yaml:"type"`
	Text     string    `yaml:"text"`
	ASIL     risk.ASIL `yaml:"asil,omitempty"`
	CAL      cyber.CAL `yaml:"cal,omitempty"`
	Status   Status    `yaml:"status"`
	ParentID string    `yaml:"parent_id,omitempty"`
	ChildIDs []string  `yaml:"child_ids,omitempty"`
}

// Request is the validated input for registering a requirement
type Request struct {
	ID   string `validate:"required,max=64"`
	Type Type   `validate:"required,oneof=vehicle operational 'functional safety' 'technical safety' 'AI safety' 'functional modification' cybersecurity production service product legal"`
	Text string `validate:"required"`
	ASIL risk.ASIL
	CAL  cyber.CAL
}

var validate = validator.New()

// Registry owns all requirements by ID, preserving registration order
type Registry struct {
	mu    sync.RWMutex
	reqs  map[string]*Requirement
	order []string
}

// NewRegistry creates an empty requirement registry
func NewRegistry() *Registry {
	return &Registry{reqs: make(map[string]*Requirement)}
}

// Add validates and registers a new requirement in draft status
func (r *Registry) Add(req Request) (*Requirement, error) {
	if err := validate.Struct(req); err != nil {
		return nil, repository.NewError("AddRequirement").Entity("requirement", req.ID).
			Context(err.Error()).Cause(repository.ErrInvalidOperation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reqs[req.ID]; exists {
		return nil, repository.NewError("AddRequirement").Entity("requirement", req.ID).Cause(repository.ErrDuplicate)
	}

	requirement := &Requirement{
		ID:     req.ID,
		Type:   req.Type,
		Text:   req.Text,
		ASIL:   req.ASIL,
		CAL:    req.CAL,
		Status: StatusDraft,
	}
	r.reqs[req.ID] = requirement
	r.order = append(r.order, req.ID)
	return requirement, nil
}

// Restore inserts a requirement during snapshot load, preserving its
// status and decomposition links
func (r *Registry) Restore(req *Requirement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reqs[req.ID]; exists {
		return repository.NewError("RestoreRequirement").Entity("requirement", req.ID).Cause(repository.ErrDuplicate)
	}
	r.reqs[req.ID] = req
	r.order = append(r.order, req.ID)
	return nil
}

// Get returns a requirement by ID
func (r *Registry) Get(id string) (*Requirement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, exists := r.reqs[id]
	if !exists {
		return nil, repository.NewError("GetRequirement").Entity("requirement", id).Cause(repository.ErrNotFound)
	}
	return req, nil
}

// All returns every requirement in registration order
func (r *Registry) All() []*Requirement {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*Requirement, 0, len(r.order))
	for _, id := range r.order {
		results = append(results, r.reqs[id])
	}
	return results
}

// UpdateText replaces a requirement's text. When the requirement had passed
// any review stage the status drops back to in review; the returned flag
// tells the caller to reopen the reviews that referenced it.
func (r *Registry) UpdateText(id, text string) (reopened bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, exists := r.reqs[id]
	if !exists {
		return false, repository.NewError("UpdateRequirement").Entity("requirement", id).Cause(repository.ErrNotFound)
	}
	if req.Status == StatusObsolete {
		return false, repository.NewError("UpdateRequirement").Entity("requirement", id).
			Context("requirement is obsolete").Cause(repository.ErrInvalidOperation)
	}

	req.Text = text
	if statusRank[req.Status] > statusRank[StatusInReview] {
		req.Status = StatusInReview
		return true, nil
	}
	return false, nil
}

// ApplyReviewStatus raises a requirement's status to the candidate if it
// ranks higher (the ladder is monotone under review progress); it never
// lowers a status. Obsolete requirements are skipped.
func (r *Registry) ApplyReviewStatus(id string, candidate Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, exists := r.reqs[id]
	if !exists || req.Status == StatusObsolete {
		return
	}
	if statusRank[candidate] > statusRank[req.Status] {
		req.Status = candidate
	}
}

// ResetToInReview forces a requirement back into review after its text
// changed or a containing review reopened
func (r *Registry) ResetToInReview(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req, exists := r.reqs[id]; exists && req.Status != StatusObsolete {
		req.Status = StatusInReview
	}
}

// MarkObsolete retires a requirement; the status is terminal
func (r *Registry) MarkObsolete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, exists := r.reqs[id]
	if !exists {
		return repository.NewError("MarkObsolete").Entity("requirement", id).Cause(repository.ErrNotFound)
	}
	req.Status = StatusObsolete
	return nil
}

// SortedIDs returns all requirement IDs in lexical order
func (r *Registry) SortedIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}
