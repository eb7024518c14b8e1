// Package review implements peer and joint reviews: participant roles and
// completion gates, comment threading, baseline naming and the pure
// snapshot diff backing version comparison.
package review

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-safety/pkg/repository"
)

// Mode distinguishes peer from joint reviews
type Mode string

const (
	// ModePeer reviews gate the peer-reviewed requirement status
	ModePeer Mode = "peer"
	// ModeJoint reviews add an approver role and produce baselines
	ModeJoint Mode = "joint"
)

// Role is a participant's function in the review
type Role string

const (
	RoleModerator Role = "moderator"
	RoleReviewer  Role = "reviewer"
	RoleApprover  Role = "approver"
)

// Participant is one person on a review
type Participant struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Role     Role   `yaml:"role"`
	Done     bool   `yaml:"done"`
	Approved bool   `yaml:"approved"`
}

// Comment is one threaded remark against a scoped target
type Comment struct {
	ID         string `yaml:"id"`
	TargetID   string `yaml:"target_id"`       // element ID, requirement ID or document name
	Field      string `yaml:"field,omitempty"` // optional field within the target
	Text       string `yaml:"text"`
	Reviewer   string `yaml:"reviewer"`
	Resolved   bool   `yaml:"resolved"`
	Resolution string `yaml:"resolution,omitempty"`
}

// Scope lists the model parts a review covers
type Scope struct {
	ElementIDs     []uint64 `yaml:"element_ids,omitempty"`
	DocumentNames  []string `yaml:"document_names,omitempty"`
	RequirementIDs []string `yaml:"requirement_ids,omitempty"`
}

// ContainsDocument reports whether a document name is in scope
func (s *Scope) ContainsDocument(name string) bool {
	for _, n := range s.DocumentNames {
		if n == name {
			return true
		}
	}
	return false
}

// ContainsRequirement reports whether a requirement ID is in scope
func (s *Scope) ContainsRequirement(id string) bool {
	for _, r := range s.RequirementIDs {
		if r == id {
			return true
		}
	}
	return false
}

// Review is one peer or joint review with its participants, comments and
// scope. Reviews are snapshot-based and asynchronous; the workflow methods
// in workflow.go drive the state machine draft(open) -> closed(approved or
// rejected).
type Review struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Mode        Mode          `yaml:"mode"`
	Moderators  []Participant `yaml:"moderators"`
	Participants []Participant `yaml:"participants"`
	Comments    []*Comment    `yaml:"comments,omitempty"`
	Scope       Scope         `yaml:"scope"`
	DueDate     time.Time     `yaml:"due_date,omitempty"`
	Reviewed    bool          `yaml:"reviewed"` // peer review marked complete
	Closed      bool          `yaml:"closed"`
	Approved    bool          `yaml:"approved"`
	Baseline    string        `yaml:"baseline,omitempty"`
}

// New validates and creates a review. Peer reviews need at least one
// moderator and one reviewer; joint reviews additionally at least one
// approver.
func New(name string, mode Mode, moderators, participants []Participant, scope Scope, due time.Time) (*Review, error) {
	if name == "" {
		return nil, repository.NewError("NewReview").Entity("review", name).
			Context("review name is empty").Cause(repository.ErrInvalidOperation)
	}
	if len(moderators) == 0 {
		return nil, repository.NewError("NewReview").Entity("review", name).
			Context("a moderator is required").Cause(repository.ErrInvalidOperation)
	}
	hasReviewer := false
	hasApprover := false
	for _, p := range participants {
		switch p.Role {
		case RoleReviewer:
			hasReviewer = true
		case RoleApprover:
			hasApprover = true
		}
	}
	if !hasReviewer {
		return nil, repository.NewError("NewReview").Entity("review", name).
			Context("at least one reviewer is required").Cause(repository.ErrInvalidOperation)
	}
	if mode == ModeJoint && !hasApprover {
		return nil, repository.NewError("NewReview").Entity("review", name).
			Context("a joint review requires an approver").Cause(repository.ErrInvalidOperation)
	}

	return &Review{
		Name:         name,
		Mode:         mode,
		Moderators:   moderators,
		Participants: participants,
		Scope:        scope,
		DueDate:      due,
	}, nil
}

// AddComment threads a new unresolved comment and returns its generated ID
func (r *Review) AddComment(targetID, field, text, reviewer string) (*Comment, error) {
	if r.IsClosed(time.Now()) {
		return nil, repository.NewError("AddComment").Entity("review", r.Name).
			Context("review is closed").Cause(repository.ErrInvalidOperation)
	}
	comment := &Comment{
		ID:       uuid.New().String(),
		TargetID: targetID,
		Field:    field,
		Text:     text,
		Reviewer: reviewer,
	}
	r.Comments = append(r.Comments, comment)
	return comment, nil
}

// ResolveComment marks a comment resolved with a resolution note
func (r *Review) ResolveComment(commentID, resolution string) error {
	for _, c := range r.Comments {
		if c.ID == commentID {
			c.Resolved = true
			c.Resolution = resolution
			return nil
		}
	}
	return repository.NewError("ResolveComment").Entity("review", r.Name).
		Context(fmt.Sprintf("comment %s not found", commentID)).Cause(repository.ErrNotFound)
}

// UnresolvedComments returns the comments still open
func (r *Review) UnresolvedComments() []*Comment {
	open := make([]*Comment, 0)
	for _, c := range r.Comments {
		if !c.Resolved {
			open = append(open, c)
		}
	}
	return open
}

// IsClosed reports whether the review reads as closed: explicitly, or
// because its due date elapsed. The due-date check is a read-side predicate
// only; it never mutates the review.
func (r *Review) IsClosed(now time.Time) bool {
	if r.Closed {
		return true
	}
	if !r.DueDate.IsZero() && now.After(r.DueDate) {
		return true
	}
	return false
}
