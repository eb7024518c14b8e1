package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-safety/pkg/audit"
	"github.com/dd0wney/cluso-safety/pkg/logging"
	"github.com/dd0wney/cluso-safety/pkg/repository"
	"github.com/dd0wney/cluso-safety/pkg/requirements"
	"github.com/dd0wney/cluso-safety/pkg/review"
	"github.com/dd0wney/cluso-safety/pkg/risk"
)

// CreateReview opens a review over the given scope. Joint reviews gate on
// peer review: every scoped requirement must already be peer reviewed.
// Scoped requirements advance to in-review (peer) or pending-approval
// (joint) as the review opens.
func (m *Model) CreateReview(name string, mode review.Mode, moderators, participants []review.Participant, scope review.Scope, due time.Time) (*review.Review, error) {
	m.mu.Lock()
	if _, exists := m.reviews[name]; exists {
		m.mu.Unlock()
		return nil, repository.NewError("CreateReview").Entity("review", name).Cause(repository.ErrDuplicate)
	}
	m.mu.Unlock()

	if mode == review.ModeJoint {
		for _, reqID := range scope.RequirementIDs {
			req, err := m.reqs.Get(reqID)
			if err != nil {
				return nil, err
			}
			if req.Status != requirements.StatusPeerReviewed &&
				req.Status != requirements.StatusPendingApproval &&
				req.Status != requirements.StatusApproved {
				return nil, repository.NewError("CreateReview").Entity("review", name).
					Context(fmt.Sprintf("requirement %s is %q, joint review needs peer review first", reqID, req.Status)).
					Cause(repository.ErrInvalidOperation)
			}
		}
		for _, docName := range scope.DocumentNames {
			doc, err := m.repo.GetDocument(docName)
			if err != nil {
				return nil, err
			}
			if hd, ok := doc.(*risk.HaraDoc); ok {
				switch requirements.Status(hd.Status) {
				case requirements.StatusPeerReviewed, requirements.StatusPendingApproval, requirements.StatusApproved:
				default:
					return nil, repository.NewError("CreateReview").Entity("review", name).
						Context(fmt.Sprintf("document %q is %q, joint review needs peer review first", docName, hd.Status)).
						Cause(repository.ErrInvalidOperation)
				}
			}
		}
	}

	r, err := review.New(name, mode, moderators, participants, scope, due)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.reviews[name] = r
	m.reviewOrder = append(m.reviewOrder, name)
	m.mu.Unlock()

	candidate := requirements.StatusInReview
	if mode == review.ModeJoint {
		candidate = requirements.StatusPendingApproval
	}
	for _, reqID := range scope.RequirementIDs {
		m.reqs.ApplyReviewStatus(reqID, candidate)
	}
	m.applyDocumentStatus(scope.DocumentNames, candidate, false)

	m.recordReview(audit.ActionCreate, name, nil)
	return r, nil
}

// applyDocumentStatus mirrors the review state onto scoped analysis documents
func (m *Model) applyDocumentStatus(names []string, status requirements.Status, approved bool) {
	for _, name := range names {
		doc, err := m.repo.GetDocument(name)
		if err != nil {
			continue
		}
		if hd, ok := doc.(*risk.HaraDoc); ok {
			hd.Status = string(status)
			hd.Approved = approved
		}
	}
}

// GetReview returns a review by name
func (m *Model) GetReview(name string) (*review.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, exists := m.reviews[name]
	if !exists {
		return nil, repository.NewError("GetReview").Entity("review", name).Cause(repository.ErrNotFound)
	}
	return r, nil
}

// Reviews returns every review in creation order
func (m *Model) Reviews() []*review.Review {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]*review.Review, 0, len(m.reviewOrder))
	for _, name := range m.reviewOrder {
		results = append(results, m.reviews[name])
	}
	return results
}

// ClosePeerReview closes a peer review after its completion gates and
// advances every scoped requirement to peer reviewed
func (m *Model) ClosePeerReview(name string) error {
	r, err := m.GetReview(name)
	if err != nil {
		return err
	}
	if err := r.ClosePeer(); err != nil {
		m.recordReview(audit.ActionReview, name, err)
		return err
	}
	for _, reqID := range r.Scope.RequirementIDs {
		m.reqs.ApplyReviewStatus(reqID, requirements.StatusPeerReviewed)
	}
	m.applyDocumentStatus(r.Scope.DocumentNames, requirements.StatusPeerReviewed, false)
	m.recordReview(audit.ActionReview, name, nil)
	return nil
}

// CloseJointReview approves and closes a joint review, freezes the model
// into a new baseline named "v<N> - <label>", and advances every scoped
// requirement to approved
func (m *Model) CloseJointReview(name, label string) (*review.Baseline, error) {
	r, err := m.GetReview(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	baselineName := review.BaselineName(m.baselineSeq+1, label)
	m.mu.Unlock()

	if err := r.CloseJoint(baselineName); err != nil {
		m.recordReview(audit.ActionReview, name, err)
		return nil, err
	}

	baseline := review.Baseline{
		Name:     baselineName,
		Snapshot: m.BuildView(),
	}
	m.mu.Lock()
	m.baselineSeq++
	m.baselines = append(m.baselines, baseline)
	m.mu.Unlock()

	for _, reqID := range r.Scope.RequirementIDs {
		m.reqs.ApplyReviewStatus(reqID, requirements.StatusApproved)
	}
	m.applyDocumentStatus(r.Scope.DocumentNames, requirements.StatusApproved, true)

	m.log.Info("baseline created",
		logging.String("baseline", baselineName),
		logging.String("review", name))
	m.recordReview(audit.ActionBaseline, baselineName, nil)
	return &m.baselines[len(m.baselines)-1], nil
}

// reopenReviewsFor invalidates every review scoping the requirement:
// participant done and approved flags reset and the review reopens
func (m *Model) reopenReviewsFor(reqID string) {
	m.mu.RLock()
	affected := make([]*review.Review, 0)
	for _, name := range m.reviewOrder {
		r := m.reviews[name]
		if r.Scope.ContainsRequirement(reqID) {
			affected = append(affected, r)
		}
	}
	m.mu.RUnlock()

	for _, r := range affected {
		r.Reopen()
		m.applyDocumentStatus(r.Scope.DocumentNames, requirements.StatusInReview, false)
		m.log.Info("review reopened",
			logging.String("review", r.Name),
			logging.String("requirement", reqID))
		m.recordReview(audit.ActionUpdate, r.Name, nil)
	}
}

// Baselines returns every baseline in creation order
func (m *Model) Baselines() []review.Baseline {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]review.Baseline(nil), m.baselines...)
}

// CompareBaselines diffs two baselines by name
func (m *Model) CompareBaselines(oldName, newName string) (*review.Diff, error) {
	older, err := m.baseline(oldName)
	if err != nil {
		return nil, err
	}
	newer, err := m.baseline(newName)
	if err != nil {
		return nil, err
	}
	return review.Compare(older.Snapshot, newer.Snapshot), nil
}

// CompareWithBaseline diffs a baseline against the current model state
func (m *Model) CompareWithBaseline(name string) (*review.Diff, error) {
	baseline, err := m.baseline(name)
	if err != nil {
		return nil, err
	}
	return review.Compare(baseline.Snapshot, m.BuildView()), nil
}

// baseline fetches one baseline by name
func (m *Model) baseline(name string) (*review.Baseline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.baselines {
		if m.baselines[i].Name == name {
			return &m.baselines[i], nil
		}
	}
	return nil, repository.NewError("GetBaseline").Entity("baseline", name).Cause(repository.ErrNotFound)
}

// BuildView freezes the repository's elements and relationships into the
// flat record form the diff operates on. Property values render to strings
// so the view is self-contained.
func (m *Model) BuildView() *review.Snapshot {
	view := &review.Snapshot{}

	for _, element := range m.repo.AllElements() {
		record := review.ElementRecord{
			ID:   element.ID,
			Kind: string(element.Kind),
			Name: element.Name,
		}
		if len(element.Properties) > 0 {
			record.Fields = make(map[string]string, len(element.Properties))
			for key, value := range element.Properties {
				record.Fields[key] = renderValue(value)
			}
		}
		view.Elements = append(view.Elements, record)
	}

	for _, rel := range m.repo.AllRelationships() {
		view.Connections = append(view.Connections, review.ConnectionRecord{
			ID:         rel.ID,
			Stereotype: rel.Stereotype,
			FromID:     rel.FromID,
			ToID:       rel.ToID,
		})
	}
	return view
}

// renderValue flattens a typed property value for the diffable view
func renderValue(v repository.Value) string {
	switch v.Kind {
	case repository.ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case repository.ValueFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case repository.ValueBool:
		return strconv.FormatBool(v.Bool)
	case repository.ValueTime:
		return v.Time.UTC().Format(time.RFC3339)
	default:
		return v.Str
	}
}

// recordReview emits an audit event for a review operation
func (m *Model) recordReview(action audit.Action, name string, err error) {
	if m.trail == nil {
		return
	}
	user := m.repo.CurrentUser()
	event := &audit.Event{
		Author:      user.Name,
		AuthorEmail: user.Email,
		Action:      action,
		EntityKind:  audit.EntityReviewData,
		EntityID:    name,
		Status:      audit.StatusSuccess,
	}
	if err != nil {
		event.Status = audit.StatusFailure
		event.ErrorMessage = err.Error()
	}
	m.trail.Record(event)
}
