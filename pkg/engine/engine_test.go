package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-safety/pkg/audit"
	"github.com/dd0wney/cluso-safety/pkg/config"
	"github.com/dd0wney/cluso-safety/pkg/cyber"
	"github.com/dd0wney/cluso-safety/pkg/faulttree"
	"github.com/dd0wney/cluso-safety/pkg/fmea"
	"github.com/dd0wney/cluso-safety/pkg/reliability"
	"github.com/dd0wney/cluso-safety/pkg/repository"
	"github.com/dd0wney/cluso-safety/pkg/requirements"
	"github.com/dd0wney/cluso-safety/pkg/review"
	"github.com/dd0wney/cluso-safety/pkg/risk"
)

func newModel(t *testing.T) *Model {
	t.Helper()
	m, err := New(Config{User: repository.User{Name: "tester", Email: "tester@example.com"}})
	require.NoError(t, err)
	return m
}

// registerHara wires a malfunction, a safety goal, a HAZOP and one
// risk-assessment row referencing all three
func registerHara(t *testing.T, m *Model, s, c, e int) (*repository.Element, *repository.Element) {
	t.Helper()
	repo := m.Repository()

	malfunction, err := repo.CreateElement(repository.KindMalfunction, "Unintended braking", nil)
	require.NoError(t, err)
	goal, err := repo.CreateElement(repository.KindSafetyGoal, "Prevent unintended braking", nil)
	require.NoError(t, err)

	hazop := &risk.HazopDoc{Name: "HAZOP", Entries: []*risk.HazopEntry{{
		Function:       "Apply braking torque",
		Malfunction:    malfunction.Name,
		GuideWord:      "More",
		Hazard:         "Rear-end collision",
		SafetyRelevant: true,
	}}}
	require.NoError(t, repo.RegisterDocument(hazop))

	hara := &risk.HaraDoc{
		Name:   "HARA",
		Hazops: []string{hazop.Name},
		Entries: []*risk.HaraEntry{{
			Malfunction:     malfunction.Name,
			Hazard:          "Rear-end collision",
			Severity:        s,
			Controllability: c,
			Exposure:        e,
			SafetyGoalID:    goal.ID,
			SourceHazop:     hazop.Name,
		}},
	}
	require.NoError(t, repo.RegisterDocument(hara))
	return malfunction, goal
}

func goalProperty(t *testing.T, m *Model, goalID uint64, key string) string {
	t.Helper()
	element, err := m.Repository().GetElement(goalID)
	require.NoError(t, err)
	return element.Properties[key].Str
}

func TestDerivedGoalLevels(t *testing.T) {
	m := newModel(t)
	_, goal := registerHara(t, m, 3, 3, 4)

	cyberGoal, err := m.Repository().CreateElement(repository.KindCyberGoal, "Protect brake commands", nil)
	require.NoError(t, err)
	require.NoError(t, m.Repository().RegisterDocument(&cyber.RiskDoc{
		Name: "TARA",
		Entries: []*cyber.RiskEntry{{
			DamageScenario: "Forged braking command",
			ThreatScenario: "Spoofed CAN frame",
			AttackVector:   "Network",
			Feasibility:    "High",
			SafetyImpact:   cyber.ImpactSevere,
			GoalID:         cyberGoal.ID,
		}},
	}))

	report := m.Recompute()
	require.True(t, report.OK(), "recompute errors: %v", report.Errors)

	assert.Equal(t, risk.ASILD, report.GoalASILs[goal.ID])
	assert.Equal(t, "D", goalProperty(t, m, goal.ID, "asil"))
	assert.Equal(t, cyber.CAL("CAL4"), report.GoalCALs[cyberGoal.ID])
	assert.Equal(t, "CAL4", goalProperty(t, m, cyberGoal.ID, "cal"))

	// The accessors answer the same question
	assert.Equal(t, risk.ASILD, m.GoalASIL(goal.ID))
	assert.Equal(t, cyber.CAL("CAL4"), m.GoalCAL(cyberGoal.ID))
}

func TestTouchHaraRowRecomputesSynchronously(t *testing.T) {
	m := newModel(t)
	_, goal := registerHara(t, m, 3, 3, 4)
	m.Recompute()
	require.Equal(t, "D", goalProperty(t, m, goal.ID, "asil"))

	hara, err := m.Repository().GetDocument("HARA")
	require.NoError(t, err)
	hara.(*risk.HaraDoc).Entries[0].Exposure = 3

	m.TouchHaraRow("HARA")
	assert.Equal(t, "C", goalProperty(t, m, goal.ID, "asil"),
		"the derived ASIL must be fresh before TouchHaraRow returns")
}

func TestFmedaMetricsWriteBack(t *testing.T) {
	m := newModel(t)
	repo := m.Repository()

	analysis := &reliability.Analysis{
		Name: "ECU reliability",
		Components: []*reliability.Component{
			{Name: "MCU", Type: "IC", Quantity: 1, BaseFIT: 50},
		},
	}
	require.NoError(t, repo.RegisterDocument(analysis))

	require.NoError(t, m.AddMechanismLibrary(&fmea.MechanismLibrary{
		Name:       "Annex D",
		Mechanisms: []*fmea.DiagnosticMechanism{{Name: "Lockstep core", Coverage: 0.99}},
	}))
	fmeda := &fmea.FmedaDoc{
		Name:       "ECU FMEDA",
		TargetASIL: "D",
		Library:    "Annex D",
		Analysis:   analysis.Name,
		Entries: []*fmea.FmedaEntry{{
			FaultType:     fmea.FaultPermanent,
			ComponentFIT:  50,
			FaultFraction: 1.0,
			Mechanism:     "Lockstep core",
		}},
	}
	require.NoError(t, repo.RegisterDocument(fmeda))

	report := m.Recompute()
	require.True(t, report.OK(), "recompute errors: %v", report.Errors)

	assert.InDelta(t, 0.5, fmeda.Metrics.SPFM, 1e-9)
	assert.InDelta(t, 0.99, fmeda.Metrics.DC, 1e-9)
	assert.Equal(t, fmeda.Metrics.SPFM, analysis.SPFM, "metrics must land on the linked analysis")
	assert.Equal(t, fmeda.Metrics.DC, analysis.DC)
	assert.Empty(t, report.Warnings, "full lockstep coverage meets the D targets")
}

func TestFmedaMissingLibraryFailsTheDocument(t *testing.T) {
	m := newModel(t)
	fmeda := &fmea.FmedaDoc{Name: "orphan", Library: "no such library"}
	require.NoError(t, m.Repository().RegisterDocument(fmeda))

	report := m.Recompute()
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "orphan", report.Errors[0].Document)
	assert.ErrorIs(t, report.Errors[0].Err, repository.ErrReferential)
}

func TestTopEventBindingIsExclusive(t *testing.T) {
	m := newModel(t)
	first, err := m.NewFaultTree("FTA 1", "Top", faulttree.KindGateOR)
	require.NoError(t, err)
	_, err = m.NewFaultTree("FTA 2", "Top", faulttree.KindGateOR)
	require.NoError(t, err)

	require.NoError(t, m.BindTopEvent("Unintended braking", "FTA 1"))
	assert.Equal(t, "Unintended braking", first.Top().Malfunction)

	err = m.BindTopEvent("Unintended braking", "FTA 2")
	assert.ErrorIs(t, err, repository.ErrInvalidOperation)

	// Rebinding to the same tree is a no-op, not a conflict
	assert.NoError(t, m.BindTopEvent("Unintended braking", "FTA 1"))

	require.NoError(t, m.UnbindTopEvent("Unintended braking"))
	assert.Empty(t, first.Top().Malfunction)
	assert.NoError(t, m.BindTopEvent("Unintended braking", "FTA 2"))

	name, bound := m.BoundTree("Unintended braking")
	assert.True(t, bound)
	assert.Equal(t, "FTA 2", name)
}

func TestDeleteMalfunctionGuards(t *testing.T) {
	m := newModel(t)
	repo := m.Repository()
	malfunction, err := repo.CreateElement(repository.KindMalfunction, "Unintended braking", nil)
	require.NoError(t, err)

	fmeaDoc := &fmea.Doc{Name: "FMEA", Entries: []*fmea.Entry{{Malfunction: malfunction.Name}}}
	require.NoError(t, repo.RegisterDocument(fmeaDoc))

	err = m.DeleteMalfunction(malfunction.Name)
	assert.ErrorIs(t, err, repository.ErrInUse)

	fmeaDoc.Entries = nil
	_, err = m.NewFaultTree("FTA", "Top", faulttree.KindGateOR)
	require.NoError(t, err)
	require.NoError(t, m.BindTopEvent(malfunction.Name, "FTA"))

	err = m.DeleteMalfunction(malfunction.Name)
	assert.ErrorIs(t, err, repository.ErrInUse)

	require.NoError(t, m.UnbindTopEvent(malfunction.Name))
	require.NoError(t, m.DeleteMalfunction(malfunction.Name))

	_, err = repo.GetElement(malfunction.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEditRequirementReopensReviews(t *testing.T) {
	m := newModel(t)
	req, err := m.AddRequirement(requirements.Request{
		ID:   "FSR-1",
		Type: requirements.TypeFunctionalSafety,
		Text: "The ECU shall detect unintended actuation.",
		ASIL: risk.ASILD,
	})
	require.NoError(t, err)

	moderators := []review.Participant{{Name: "Dana", Email: "dana@example.com", Role: review.RoleModerator}}
	reviewers := []review.Participant{{Name: "Kim", Email: "kim@example.com", Role: review.RoleReviewer}}
	scope := review.Scope{RequirementIDs: []string{req.ID}}

	r, err := m.CreateReview("peer", review.ModePeer, moderators, reviewers, scope, time.Time{})
	require.NoError(t, err)
	require.NoError(t, r.MarkDone("kim@example.com"))
	require.NoError(t, m.ClosePeerReview("peer"))
	require.Equal(t, requirements.StatusPeerReviewed, req.Status)

	// The edit cascades synchronously: review reopened, status dropped
	require.NoError(t, m.EditRequirement(req.ID, "The ECU shall detect unintended actuation within 10 ms."))

	assert.False(t, r.Closed, "review scoping the requirement must reopen")
	assert.False(t, r.Reviewed)
	for _, p := range r.Participants {
		assert.False(t, p.Done, "participant sign-offs must reset")
	}
	assert.Equal(t, requirements.StatusInReview, req.Status)
}

func TestJointReviewRequiresPeerReview(t *testing.T) {
	m := newModel(t)
	req, err := m.AddRequirement(requirements.Request{
		ID:   "FSR-1",
		Type: requirements.TypeFunctionalSafety,
		Text: "x",
		ASIL: risk.ASILB,
	})
	require.NoError(t, err)

	moderators := []review.Participant{{Name: "Dana", Email: "dana@example.com", Role: review.RoleModerator}}
	participants := []review.Participant{
		{Name: "Kim", Email: "kim@example.com", Role: review.RoleReviewer},
		{Name: "Ravi", Email: "ravi@example.com", Role: review.RoleApprover},
	}
	scope := review.Scope{RequirementIDs: []string{req.ID}}

	_, err = m.CreateReview("joint", review.ModeJoint, moderators, participants, scope, time.Time{})
	assert.ErrorIs(t, err, repository.ErrInvalidOperation, "a draft requirement cannot enter a joint review")
}

func TestReviewMirrorsDocumentStatus(t *testing.T) {
	m := newModel(t)
	registerHara(t, m, 3, 3, 4)
	hara, err := m.Repository().GetDocument("HARA")
	require.NoError(t, err)
	doc := hara.(*risk.HaraDoc)

	moderators := []review.Participant{{Name: "Dana", Email: "dana@example.com", Role: review.RoleModerator}}
	reviewers := []review.Participant{{Name: "Kim", Email: "kim@example.com", Role: review.RoleReviewer}}
	scope := review.Scope{DocumentNames: []string{doc.Name}}

	// A joint review over an unreviewed document is rejected
	participants := []review.Participant{
		{Name: "Kim", Email: "kim@example.com", Role: review.RoleReviewer},
		{Name: "Ravi", Email: "ravi@example.com", Role: review.RoleApprover},
	}
	_, err = m.CreateReview("joint early", review.ModeJoint, moderators, participants, scope, time.Time{})
	assert.ErrorIs(t, err, repository.ErrInvalidOperation)

	peer, err := m.CreateReview("peer", review.ModePeer, moderators, reviewers, scope, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, string(requirements.StatusInReview), doc.Status)

	peer.MarkDone("kim@example.com")
	require.NoError(t, m.ClosePeerReview("peer"))
	assert.Equal(t, string(requirements.StatusPeerReviewed), doc.Status)

	joint, err := m.CreateReview("joint", review.ModeJoint, moderators, participants, scope, time.Time{})
	require.NoError(t, err)
	joint.MarkDone("kim@example.com")
	require.NoError(t, joint.Approve("ravi@example.com"))
	_, err = m.CloseJointReview("joint", "hara release")
	require.NoError(t, err)

	assert.Equal(t, string(requirements.StatusApproved), doc.Status)
	assert.True(t, doc.Approved)
}

func TestJointReviewProducesBaseline(t *testing.T) {
	m := newModel(t)
	repo := m.Repository()
	repo.CreateElement(repository.KindBlock, "Brake ECU", nil)

	req, err := m.AddRequirement(requirements.Request{
		ID:   "FSR-1",
		Type: requirements.TypeFunctionalSafety,
		Text: "x",
		ASIL: risk.ASILB,
	})
	require.NoError(t, err)

	moderators := []review.Participant{{Name: "Dana", Email: "dana@example.com", Role: review.RoleModerator}}
	reviewers := []review.Participant{{Name: "Kim", Email: "kim@example.com", Role: review.RoleReviewer}}
	scope := review.Scope{RequirementIDs: []string{req.ID}}

	peer, err := m.CreateReview("peer", review.ModePeer, moderators, reviewers, scope, time.Time{})
	require.NoError(t, err)
	peer.MarkDone("kim@example.com")
	require.NoError(t, m.ClosePeerReview("peer"))

	participants := []review.Participant{
		{Name: "Kim", Email: "kim@example.com", Role: review.RoleReviewer},
		{Name: "Ravi", Email: "ravi@example.com", Role: review.RoleApprover},
	}
	joint, err := m.CreateReview("joint", review.ModeJoint, moderators, participants, scope, time.Time{})
	require.NoError(t, err)
	joint.MarkDone("kim@example.com")
	require.NoError(t, joint.Approve("ravi@example.com"))

	baseline, err := m.CloseJointReview("joint", "brake release")
	require.NoError(t, err)
	assert.Equal(t, "v1 - brake release", baseline.Name)
	assert.Equal(t, requirements.StatusApproved, req.Status)
	require.Len(t, m.Baselines(), 1)

	// Changes after the freeze show up in the diff
	repo.CreateElement(repository.KindBlock, "Pressure sensor", nil)
	diff, err := m.CompareWithBaseline(baseline.Name)
	require.NoError(t, err)
	require.Len(t, diff.AddedElements, 1)
	assert.Equal(t, "Pressure sensor", diff.AddedElements[0].Name)
	assert.Empty(t, diff.RemovedElements)

	_, err = m.CompareWithBaseline("no such baseline")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetTablesRecomputesDerivedValues(t *testing.T) {
	m := newModel(t)
	_, goal := registerHara(t, m, 3, 3, 4)
	m.Recompute()
	require.Equal(t, "D", goalProperty(t, m, goal.ID, "asil"))

	tables := config.DefaultTables()
	for i := range tables.RiskGraph {
		row := &tables.RiskGraph[i]
		if row.Severity == 3 && row.Controllability == 3 && row.Exposure == 4 {
			row.ASIL = "C"
		}
	}
	report, err := m.SetTables(tables)
	require.NoError(t, err)
	require.True(t, report.OK())

	assert.Equal(t, "C", goalProperty(t, m, goal.ID, "asil"),
		"new tables must re-derive every goal ASIL")

	// Invalid tables never replace the active set
	_, err = m.SetTables(&config.Tables{})
	require.Error(t, err)
	assert.Equal(t, "C", m.Tables().LookupASIL(3, 3, 4))
}

func TestSaveLoadAnswersIdentically(t *testing.T) {
	trail := audit.NewTrail(audit.DefaultCapacity)
	m, err := New(Config{User: repository.User{Name: "tester"}, Trail: trail})
	require.NoError(t, err)
	repo := m.Repository()

	malfunction, goal := registerHara(t, m, 3, 3, 4)

	profile := reliability.NewMissionProfile("passenger car")
	profile.TauOn = 8000
	require.NoError(t, m.AddMissionProfile(profile))

	require.NoError(t, m.AddMechanismLibrary(&fmea.MechanismLibrary{
		Name:       "Annex D",
		Mechanisms: []*fmea.DiagnosticMechanism{{Name: "Lockstep core", Coverage: 0.99}},
	}))
	fmeda := &fmea.FmedaDoc{
		Name:       "FMEDA",
		TargetASIL: "D",
		Library:    "Annex D",
		Entries: []*fmea.FmedaEntry{{
			FaultType:     fmea.FaultPermanent,
			ComponentFIT:  50,
			FaultFraction: 1.0,
			Mechanism:     "Lockstep core",
		}},
	}
	require.NoError(t, repo.RegisterDocument(fmeda))

	tree, err := m.NewFaultTree("FTA", malfunction.Name, faulttree.KindGateOR)
	require.NoError(t, err)
	tree.Top().SafetyGoalID = goal.ID
	require.NoError(t, m.BindTopEvent(malfunction.Name, tree.Name))
	leaf, err := tree.AddBasicEvent("MCU fault", 20, reliability.FormulaExponential, 0)
	require.NoError(t, err)
	require.NoError(t, tree.AddChild(tree.TopID, leaf.ID))

	req, err := m.AddRequirement(requirements.Request{
		ID: "FSR-1", Type: requirements.TypeFunctionalSafety, Text: "x", ASIL: risk.ASILD,
	})
	require.NoError(t, err)
	m.Requirements().ApplyReviewStatus(req.ID, requirements.StatusPeerReviewed)

	report := m.Recompute()
	require.True(t, report.OK(), "recompute errors: %v", report.Errors)

	data, err := m.Save()
	require.NoError(t, err)

	loaded, err := Load(data, Config{User: repository.User{Name: "tester"}})
	require.NoError(t, err)

	// Computed values survive without a recompute
	doc, err := loaded.Repository().GetDocument(tree.Name)
	require.NoError(t, err)
	loadedTree := doc.(*faulttree.Tree)
	assert.Equal(t, tree.Top().Probability, loadedTree.Top().Probability)
	assert.Equal(t, goal.ID, loadedTree.Top().SafetyGoalID)

	doc, err = loaded.Repository().GetDocument(fmeda.Name)
	require.NoError(t, err)
	assert.Equal(t, fmeda.Metrics, doc.(*fmea.FmedaDoc).Metrics)

	assert.Equal(t, "D", goalProperty(t, loaded, goal.ID, "asil"))

	loadedReq, err := loaded.Requirements().Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, requirements.StatusPeerReviewed, loadedReq.Status)

	name, bound := loaded.BoundTree(malfunction.Name)
	assert.True(t, bound)
	assert.Equal(t, tree.Name, name)

	assert.Equal(t, "D", loaded.Tables().LookupASIL(3, 3, 4))
	assert.NotNil(t, loaded.Library("Annex D"))

	// A recompute on the loaded model lands on the same numbers
	require.True(t, loaded.Recompute().OK())
	assert.Equal(t, tree.Top().Probability, loadedTree.Top().Probability)
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := Load([]byte("version: ["), Config{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, repository.ErrNotFound))
}
