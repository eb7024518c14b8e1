package review

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-safety/pkg/repository"
)

// MarkDone records that a reviewer finished their pass. Moderators and
// approvers also use it to signal completion of their part.
func (r *Review) MarkDone(email string) error {
	if r.Closed {
		return repository.NewError("MarkDone").Entity("review", r.Name).
			Context("review is closed").Cause(repository.ErrInvalidOperation)
	}
	for i := range r.Moderators {
		if r.Moderators[i].Email == email {
			r.Moderators[i].Done = true
			return nil
		}
	}
	for i := range r.Participants {
		if r.Participants[i].Email == email {
			r.Participants[i].Done = true
			return nil
		}
	}
	return repository.NewError("MarkDone").Entity("review", r.Name).
		Context(fmt.Sprintf("%s is not a participant", email)).Cause(repository.ErrNotFound)
}

// reviewersDone reports whether every reviewer marked their pass complete
func (r *Review) reviewersDone() bool {
	for _, p := range r.Participants {
		if p.Role == RoleReviewer && !p.Done {
			return false
		}
	}
	return true
}

// ReadyToClose reports whether the completion gates hold: every reviewer is
// done and every comment is resolved
func (r *Review) ReadyToClose() bool {
	return r.reviewersDone() && len(r.UnresolvedComments()) == 0
}

// Approve records an approver's sign-off on a joint review. It fails while
// any reviewer is pending or any comment is unresolved.
func (r *Review) Approve(email string) error {
	if r.Mode != ModeJoint {
		return repository.NewError("Approve").Entity("review", r.Name).
			Context("only joint reviews carry approvals").Cause(repository.ErrInvalidOperation)
	}
	if r.Closed {
		return repository.NewError("Approve").Entity("review", r.Name).
			Context("review is closed").Cause(repository.ErrInvalidOperation)
	}
	if !r.reviewersDone() {
		return repository.NewError("Approve").Entity("review", r.Name).
			Context("reviewers have not finished").Cause(repository.ErrInvalidOperation)
	}
	if open := r.UnresolvedComments(); len(open) > 0 {
		return repository.NewError("Approve").Entity("review", r.Name).
			Context(fmt.Sprintf("%d comments are unresolved", len(open))).Cause(repository.ErrInvalidOperation)
	}
	for i := range r.Participants {
		if r.Participants[i].Email == email && r.Participants[i].Role == RoleApprover {
			r.Participants[i].Done = true
			r.Participants[i].Approved = true
			return nil
		}
	}
	return repository.NewError("Approve").Entity("review", r.Name).
		Context(fmt.Sprintf("%s is not an approver", email)).Cause(repository.ErrNotFound)
}

// approversSigned reports whether every approver granted sign-off
func (r *Review) approversSigned() bool {
	for _, p := range r.Participants {
		if p.Role == RoleApprover && !p.Approved {
			return false
		}
	}
	return true
}

// ClosePeer closes a peer review after the completion gates. On success the
// review is marked Reviewed; requirements in scope may then advance to the
// peer-reviewed status.
func (r *Review) ClosePeer() error {
	if r.Mode != ModePeer {
		return repository.NewError("ClosePeer").Entity("review", r.Name).
			Context("not a peer review").Cause(repository.ErrInvalidOperation)
	}
	if r.Closed {
		return repository.NewError("ClosePeer").Entity("review", r.Name).
			Context("review already closed").Cause(repository.ErrInvalidOperation)
	}
	if !r.ReadyToClose() {
		return repository.NewError("ClosePeer").Entity("review", r.Name).
			Context("reviewers pending or comments unresolved").Cause(repository.ErrInvalidOperation)
	}
	r.Reviewed = true
	r.Closed = true
	return nil
}

// CloseJoint closes a joint review. Approval requires every approver's
// sign-off; the caller supplies the baseline name recorded on the review.
func (r *Review) CloseJoint(baseline string) error {
	if r.Mode != ModeJoint {
		return repository.NewError("CloseJoint").Entity("review", r.Name).
			Context("not a joint review").Cause(repository.ErrInvalidOperation)
	}
	if r.Closed {
		return repository.NewError("CloseJoint").Entity("review", r.Name).
			Context("review already closed").Cause(repository.ErrInvalidOperation)
	}
	if !r.ReadyToClose() {
		return repository.NewError("CloseJoint").Entity("review", r.Name).
			Context("reviewers pending or comments unresolved").Cause(repository.ErrInvalidOperation)
	}
	if !r.approversSigned() {
		return repository.NewError("CloseJoint").Entity("review", r.Name).
			Context("approval is missing").Cause(repository.ErrInvalidOperation)
	}
	r.Reviewed = true
	r.Closed = true
	r.Approved = true
	r.Baseline = baseline
	return nil
}

// Reopen invalidates a review after scoped content changed: done and
// approved flags reset, the review reopens and any approval is withdrawn.
// The baseline label, if one was taken, stays on record.
func (r *Review) Reopen() {
	r.Closed = false
	r.Approved = false
	r.Reviewed = false
	for i := range r.Moderators {
		r.Moderators[i].Done = false
	}
	for i := range r.Participants {
		r.Participants[i].Done = false
		r.Participants[i].Approved = false
	}
}

// ExtendDueDate pushes the due date out, reviving a review that lapsed
func (r *Review) ExtendDueDate(due time.Time) error {
	if r.Closed {
		return repository.NewError("ExtendDueDate").Entity("review", r.Name).
			Context("review is closed").Cause(repository.ErrInvalidOperation)
	}
	if !r.DueDate.IsZero() && due.Before(r.DueDate) {
		return repository.NewError("ExtendDueDate").Entity("review", r.Name).
			Context("new due date precedes the current one").Cause(repository.ErrInvalidOperation)
	}
	r.DueDate = due
	return nil
}
