package engine

import (
	"fmt"

	"github.com/dd0wney/cluso-safety/pkg/config"
	"github.com/dd0wney/cluso-safety/pkg/cyber"
	"github.com/dd0wney/cluso-safety/pkg/faulttree"
	"github.com/dd0wney/cluso-safety/pkg/fmea"
	"github.com/dd0wney/cluso-safety/pkg/logging"
	"github.com/dd0wney/cluso-safety/pkg/reliability"
	"github.com/dd0wney/cluso-safety/pkg/repository"
	"github.com/dd0wney/cluso-safety/pkg/risk"
)

// DocumentError records a recompute failure scoped to one document. The
// document's derived fields keep their previous values; other documents
// commit normally.
type DocumentError struct {
	Document string
	Err      error
}

func (e DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Document, e.Err)
}

// DocumentWarning is a non-fatal recompute finding
type DocumentWarning struct {
	Document string
	Message  string
}

// RecomputeReport summarizes one full recompute pass
type RecomputeReport struct {
	Errors    []DocumentError
	Warnings  []DocumentWarning
	GoalASILs map[uint64]risk.ASIL
	GoalCALs  map[uint64]cyber.CAL
}

// OK reports whether the pass completed without document errors
func (r *RecomputeReport) OK() bool {
	return len(r.Errors) == 0
}

func (r *RecomputeReport) fail(doc string, err error) {
	r.Errors = append(r.Errors, DocumentError{Document: doc, Err: err})
}

func (r *RecomputeReport) warn(doc, msg string) {
	r.Warnings = append(r.Warnings, DocumentWarning{Document: doc, Message: msg})
}

// Recompute re-derives every computed field in the model in dependency
// order: reliability totals, FMEDA metrics with their reliability
// write-back, risk-assessment rows and safety-goal ASILs, cyber rows and
// goal CALs, then fault-tree probabilities against the active mission
// profile. Each document commits all-or-nothing: a row error leaves that
// whole document untouched and is reported, never panicked.
func (m *Model) Recompute() *RecomputeReport {
	m.mu.RLock()
	tables := m.tables
	tau := m.missionTau()
	libraries := m.libraries
	m.mu.RUnlock()

	report := &RecomputeReport{
		GoalASILs: make(map[uint64]risk.ASIL),
		GoalCALs:  make(map[uint64]cyber.CAL),
	}

	m.recomputeReliability(tables, report)
	m.recomputeFmeda(tables, libraries, report)
	m.recomputeHara(tables, report)
	m.recomputeCyber(tables, report)
	m.recomputeFaultTrees(tables, tau, report)

	if !report.OK() {
		m.log.Warn("recompute finished with document errors",
			logging.Int("errors", len(report.Errors)),
			logging.Int("warnings", len(report.Warnings)))
	}
	return report
}

// recomputeReliability refreshes every analysis document's total FIT
func (m *Model) recomputeReliability(tables *config.Tables, report *RecomputeReport) {
	for _, doc := range m.repo.DocumentsByKind("reliability") {
		analysis := doc.(*reliability.Analysis)
		analysis.Aggregate(tables)
	}
}

// recomputeFmeda refreshes FMEDA metrics and writes them back onto the
// linked reliability analysis
func (m *Model) recomputeFmeda(tables *config.Tables, libraries map[string]*fmea.MechanismLibrary, report *RecomputeReport) {
	for _, doc := range m.repo.DocumentsByKind("fmeda") {
		fd := doc.(*fmea.FmedaDoc)
		lib := libraries[fd.Library]
		if fd.Library != "" && lib == nil {
			report.fail(fd.Name, repository.NewError("Recompute").Document(fd.Name).
				Context(fmt.Sprintf("mechanism library %q is not registered", fd.Library)).
				Cause(repository.ErrReferential))
			continue
		}

		metrics := fd.Aggregate(lib)
		if !fd.MeetsTargets(lib, tables) {
			report.warn(fd.Name, fmt.Sprintf("metrics miss the %s targets (SPFM %.4g FIT, LPFM %.4g FIT, DC %.4f)",
				fd.TargetASIL, metrics.SPFM, metrics.LPFM, metrics.DC))
		}

		if fd.Analysis == "" {
			continue
		}
		linked, err := m.repo.GetDocument(fd.Analysis)
		if err != nil {
			report.fail(fd.Name, repository.NewError("Recompute").Document(fd.Name).
				Context(fmt.Sprintf("linked analysis %q is not registered", fd.Analysis)).
				Cause(repository.ErrReferential))
			continue
		}
		if analysis, ok := linked.(*reliability.Analysis); ok {
			analysis.SPFM = metrics.SPFM
			analysis.LPFM = metrics.LPFM
			analysis.DC = metrics.DC
		}
	}
}

// recomputeHara resolves every risk-assessment document and re-derives the
// safety-goal ASILs. Rows resolve into staged copies first; a document with
// any failing row keeps all its previous values.
func (m *Model) recomputeHara(tables *config.Tables, report *RecomputeReport) {
	var sotif risk.MultiDocLookup
	for _, kind := range []string{"fi2tc", "tc2fi"} {
		for _, doc := range m.repo.DocumentsByKind(kind) {
			sotif = append(sotif, doc.(*risk.SotifDoc))
		}
	}

	committed := make([]*risk.HaraDoc, 0)
	for _, doc := range m.repo.DocumentsByKind("hara") {
		hd := doc.(*risk.HaraDoc)

		staged := make([]risk.HaraEntry, len(hd.Entries))
		failed := false
		for i, entry := range hd.Entries {
			if err := hd.ValidateEntrySource(entry); err != nil {
				report.fail(hd.Name, err)
				failed = true
				break
			}
			staged[i] = *entry
			inherited, err := risk.ResolveEntry(&staged[i], tables, sotif)
			if err != nil {
				report.fail(hd.Name, repository.NewError("Recompute").Document(hd.Name).
					Context(fmt.Sprintf("row %d: %v", i, err)).Cause(repository.ErrInconsistentState))
				failed = true
				break
			}
			if inherited {
				report.warn(hd.Name, fmt.Sprintf("row %d: severity overwritten to %d by linked entry %q",
					i, staged[i].Severity, staged[i].SeverityRef))
			}
		}
		if failed {
			continue
		}
		for i := range staged {
			*hd.Entries[i] = staged[i]
		}
		committed = append(committed, hd)
	}

	goalIDs := make(map[uint64]struct{})
	for _, hd := range committed {
		for _, entry := range hd.Entries {
			if entry.SafetyGoalID != 0 {
				goalIDs[entry.SafetyGoalID] = struct{}{}
			}
		}
	}
	for goalID := range goalIDs {
		asil := risk.GoalASIL(goalID, committed)
		report.GoalASILs[goalID] = asil
		if err := m.writeGoalProperty(goalID, "asil", string(asil)); err != nil {
			report.fail("safety goals", err)
		}
	}
}

// recomputeCyber resolves every cyber risk document and re-derives the
// cybersecurity-goal CALs
func (m *Model) recomputeCyber(tables *config.Tables, report *RecomputeReport) {
	docs := make([]*cyber.RiskDoc, 0)
	for _, doc := range m.repo.DocumentsByKind("cyber_risk") {
		rd := doc.(*cyber.RiskDoc)
		rd.Resolve(tables)
		docs = append(docs, rd)
	}

	goalIDs := make(map[uint64]struct{})
	for _, rd := range docs {
		for _, entry := range rd.Entries {
			if entry.GoalID != 0 {
				goalIDs[entry.GoalID] = struct{}{}
			}
		}
	}
	for goalID := range goalIDs {
		cal := cyber.GoalCAL(goalID, docs)
		report.GoalCALs[goalID] = cal
		if err := m.writeGoalProperty(goalID, "cal", string(cal)); err != nil {
			report.fail("cybersecurity goals", err)
		}
	}
}

// recomputeFaultTrees evaluates and commits every tree against the mission
// exposure time, checking committed top probabilities against the PMHF
// targets of the bound goal's ASIL
func (m *Model) recomputeFaultTrees(tables *config.Tables, tau float64, report *RecomputeReport) {
	for _, doc := range m.repo.DocumentsByKind("fault_tree") {
		tree := doc.(*faulttree.Tree)

		eval, err := tree.Evaluate(tau)
		if err != nil {
			report.fail(tree.Name, err)
			continue
		}
		tree.Commit(eval)
		for _, w := range eval.Warnings {
			report.warn(tree.Name, w.Message)
		}

		goalID := tree.Top().SafetyGoalID
		if goalID == 0 {
			continue
		}
		asil, known := report.GoalASILs[goalID]
		if !known {
			continue
		}
		target, exists := tables.PMHFTargets[string(asil.Base())]
		if !exists {
			continue
		}
		if !tree.MeetsPMHFTarget(target, tau) {
			report.warn(tree.Name, fmt.Sprintf("top probability %.4g exceeds the %s PMHF target %.4g/h over %g h",
				tree.Top().Probability, asil.Base(), target, tau))
		}
	}
}

// writeGoalProperty updates one derived property on a goal element
func (m *Model) writeGoalProperty(goalID uint64, key, value string) error {
	element, err := m.repo.GetElement(goalID)
	if err != nil {
		return repository.NewError("Recompute").Element(goalID).
			Context("goal referenced by a risk row does not exist").
			Cause(repository.ErrReferential)
	}
	if element.Properties == nil {
		element.Properties = make(map[string]repository.Value)
	}
	element.Properties[key] = repository.StringValue(value)
	_, err = m.repo.UpdateElement(element.ID, element.Name, element.Properties)
	return err
}
