// Package engine wires the repository, the configuration tables and the
// analysis documents into one model, runs the staged recompute pass and
// drives the synchronous cross-document cascades.
package engine

import (
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-safety/pkg/audit"
	"github.com/dd0wney/cluso-safety/pkg/config"
	"github.com/dd0wney/cluso-safety/pkg/cyber"
	"github.com/dd0wney/cluso-safety/pkg/events"
	"github.com/dd0wney/cluso-safety/pkg/faulttree"
	"github.com/dd0wney/cluso-safety/pkg/fmea"
	"github.com/dd0wney/cluso-safety/pkg/logging"
	"github.com/dd0wney/cluso-safety/pkg/reliability"
	"github.com/dd0wney/cluso-safety/pkg/repository"
	"github.com/dd0wney/cluso-safety/pkg/requirements"
	"github.com/dd0wney/cluso-safety/pkg/review"
	"github.com/dd0wney/cluso-safety/pkg/risk"
)

// Model is one complete analysis model: entities and documents in the
// repository, requirements and reviews alongside it, and the policy tables
// every derivation reads. Models are independent instances; tests routinely
// hold several.
type Model struct {
	mu sync.RWMutex

	repo   *repository.Repository
	tables *config.Tables

	reqs *requirements.Registry

	reviews     map[string]*review.Review
	reviewOrder []string
	baselines   []review.Baseline
	baselineSeq int

	libraries    map[string]*fmea.MechanismLibrary
	libraryOrder []string

	profiles      map[string]*reliability.MissionProfile
	profileOrder  []string
	activeProfile string

	// bindings maps a malfunction to the fault tree whose top event models
	// it; one tree per malfunction
	bindings map[string]string

	bus   *events.Bus
	log   logging.Logger
	trail *audit.Trail
}

// Config holds construction options for a Model
type Config struct {
	User   repository.User
	Tables *config.Tables // nil selects the built-in defaults
	Logger logging.Logger // nil falls back to a nop logger
	Trail  *audit.Trail   // nil disables audit recording
}

// New creates an empty model and wires the cascade handlers
func New(cfg Config) (*Model, error) {
	tables := cfg.Tables
	if tables == nil {
		tables = config.DefaultTables()
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	m := &Model{
		repo: repository.New(repository.Config{
			User:   cfg.User,
			Trail:  cfg.Trail,
			Logger: log,
		}),
		tables:    tables,
		reqs:      requirements.NewRegistry(),
		reviews:   make(map[string]*review.Review),
		libraries: make(map[string]*fmea.MechanismLibrary),
		profiles:  make(map[string]*reliability.MissionProfile),
		bindings:  make(map[string]string),
		bus:       events.NewBus(),
		log:       log,
		trail:     cfg.Trail,
	}

	m.bus.Subscribe(events.TopicRequirementEdited, func(payload any) {
		if id, ok := payload.(string); ok {
			m.reopenReviewsFor(id)
		}
	})
	m.bus.Subscribe(events.TopicHaraRowChanged, func(any) {
		m.Recompute()
	})
	m.bus.Subscribe(events.TopicCyberRowChanged, func(any) {
		m.Recompute()
	})

	return m, nil
}

// Repository exposes the entity store for element, relationship and diagram
// operations
func (m *Model) Repository() *repository.Repository {
	return m.repo
}

// Requirements exposes the requirement registry
func (m *Model) Requirements() *requirements.Registry {
	return m.reqs
}

// Bus exposes the event bus for external observers
func (m *Model) Bus() *events.Bus {
	return m.bus
}

// Tables returns the active policy tables
func (m *Model) Tables() *config.Tables {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tables
}

// SetTables validates and swaps the policy tables, then recomputes every
// derived field so nothing stale survives the new numbers.
func (m *Model) SetTables(tables *config.Tables) (*RecomputeReport, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.tables = tables
	m.mu.Unlock()

	m.bus.Publish(events.TopicTablesReplaced, tables)
	return m.Recompute(), nil
}

// AddMissionProfile registers a mission profile under its name. The first
// profile becomes the active one.
func (m *Model) AddMissionProfile(profile *reliability.MissionProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[profile.Name]; exists {
		return repository.NewError("AddMissionProfile").Entity("mission profile", profile.Name).Cause(repository.ErrDuplicate)
	}
	m.profiles[profile.Name] = profile
	m.profileOrder = append(m.profileOrder, profile.Name)
	if m.activeProfile == "" {
		m.activeProfile = profile.Name
	}
	return nil
}

// SetActiveProfile selects the mission profile the recompute pass converts
// failure rates against
func (m *Model) SetActiveProfile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[name]; !exists {
		return repository.NewError("SetActiveProfile").Entity("mission profile", name).Cause(repository.ErrNotFound)
	}
	m.activeProfile = name
	return nil
}

// missionTau returns the active profile's exposure time, 1.0 when no
// profile is configured. Caller must hold the read lock.
func (m *Model) missionTau() float64 {
	if profile, exists := m.profiles[m.activeProfile]; exists {
		if tau := profile.Tau(); tau > 0 {
			return tau
		}
	}
	return 1.0
}

// AddMechanismLibrary registers a diagnostic mechanism library
func (m *Model) AddMechanismLibrary(lib *fmea.MechanismLibrary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.libraries[lib.Name]; exists {
		return repository.NewError("AddMechanismLibrary").Entity("mechanism library", lib.Name).Cause(repository.ErrDuplicate)
	}
	m.libraries[lib.Name] = lib
	m.libraryOrder = append(m.libraryOrder, lib.Name)
	return nil
}

// Library returns a mechanism library by name, or nil
func (m *Model) Library(name string) *fmea.MechanismLibrary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.libraries[name]
}

// NewFaultTree creates a fault tree and registers it as a document
func (m *Model) NewFaultTree(name, topName string, gate faulttree.NodeKind) (*faulttree.Tree, error) {
	tree := faulttree.NewTree(name, topName, gate)
	if err := m.repo.RegisterDocument(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// BindTopEvent binds a malfunction to a fault tree's top event. A
// malfunction tops at most one tree; a second bind is rejected until the
// first is released.
func (m *Model) BindTopEvent(malfunction, treeName string) error {
	tree, err := m.faultTree(treeName)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if bound, exists := m.bindings[malfunction]; exists && bound != treeName {
		return repository.NewError("BindTopEvent").Entity("malfunction", malfunction).
			Context(fmt.Sprintf("already bound to tree %q", bound)).Cause(repository.ErrInvalidOperation)
	}
	m.bindings[malfunction] = treeName
	tree.Top().Malfunction = malfunction
	return nil
}

// UnbindTopEvent releases a malfunction's top-event binding
func (m *Model) UnbindTopEvent(malfunction string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	treeName, exists := m.bindings[malfunction]
	if !exists {
		return repository.NewError("UnbindTopEvent").Entity("malfunction", malfunction).Cause(repository.ErrNotFound)
	}
	delete(m.bindings, malfunction)
	if doc, err := m.repo.GetDocument(treeName); err == nil {
		if tree, ok := doc.(*faulttree.Tree); ok {
			tree.Top().Malfunction = ""
		}
	}
	return nil
}

// BoundTree returns the fault tree a malfunction is bound to, if any
func (m *Model) BoundTree(malfunction string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	treeName, exists := m.bindings[malfunction]
	return treeName, exists
}

// faultTree fetches a registered fault-tree document by name
func (m *Model) faultTree(name string) (*faulttree.Tree, error) {
	doc, err := m.repo.GetDocument(name)
	if err != nil {
		return nil, err
	}
	tree, ok := doc.(*faulttree.Tree)
	if !ok {
		return nil, repository.NewError("GetFaultTree").Document(name).
			Context("document is not a fault tree").Cause(repository.ErrInvalidOperation)
	}
	return tree, nil
}

// DeleteMalfunction removes a malfunction element after checking nothing
// still references it: failure-mode rows, fault trees and the top-event
// binding all block the delete with ErrInUse.
func (m *Model) DeleteMalfunction(name string) error {
	for _, doc := range m.repo.AllDocuments() {
		switch d := doc.(type) {
		case *fmea.Doc:
			if d.ReferencesMalfunction(name) {
				return repository.NewError("DeleteMalfunction").Entity("malfunction", name).
					Context(fmt.Sprintf("referenced by failure-mode table %q", d.Name)).Cause(repository.ErrInUse)
			}
		case *fmea.FmedaDoc:
			if d.ReferencesMalfunction(name) {
				return repository.NewError("DeleteMalfunction").Entity("malfunction", name).
					Context(fmt.Sprintf("referenced by FMEDA %q", d.Name)).Cause(repository.ErrInUse)
			}
		case *faulttree.Tree:
			if d.ReferencesMalfunction(name) {
				return repository.NewError("DeleteMalfunction").Entity("malfunction", name).
					Context(fmt.Sprintf("referenced by fault tree %q", d.Name)).Cause(repository.ErrInUse)
			}
		}
	}
	m.mu.RLock()
	_, bound := m.bindings[name]
	m.mu.RUnlock()
	if bound {
		return repository.NewError("DeleteMalfunction").Entity("malfunction", name).
			Context("bound to a fault-tree top event").Cause(repository.ErrInUse)
	}

	element, err := m.repo.FindElementByName(repository.KindMalfunction, name)
	if err != nil {
		return err
	}
	if err := m.repo.DeleteElement(element.ID, true); err != nil {
		return err
	}
	m.bus.Publish(events.TopicElementDeleted, element.ID)
	return nil
}

// AddRequirement registers a requirement
func (m *Model) AddRequirement(req requirements.Request) (*requirements.Requirement, error) {
	return m.reqs.Add(req)
}

// EditRequirement changes a requirement's text. When the requirement had
// passed a review stage the edit cascades: reviews scoping it reopen and
// the status drops back to in review, synchronously.
func (m *Model) EditRequirement(id, text string) error {
	reopened, err := m.reqs.UpdateText(id, text)
	if err != nil {
		return err
	}
	if reopened {
		m.log.Info("requirement reopened by edit", logging.String("requirement", id))
		m.bus.Publish(events.TopicRequirementEdited, id)
	}
	return nil
}

// DecomposeRequirement splits a requirement per the configured ASIL
// decomposition schemes
func (m *Model) DecomposeRequirement(parentID string, pairIndex int) (*requirements.Requirement, *requirements.Requirement, error) {
	m.mu.RLock()
	tables := m.tables
	m.mu.RUnlock()
	return m.reqs.Decompose(parentID, pairIndex, tables)
}

// GoalASIL returns a safety goal's derived ASIL: the maximum over every
// risk-assessment row referencing it
func (m *Model) GoalASIL(goalID uint64) risk.ASIL {
	docs := make([]*risk.HaraDoc, 0)
	for _, doc := range m.repo.DocumentsByKind("hara") {
		docs = append(docs, doc.(*risk.HaraDoc))
	}
	return risk.GoalASIL(goalID, docs)
}

// GoalCAL returns a cybersecurity goal's derived CAL: the maximum over
// every cyber risk row linked to it
func (m *Model) GoalCAL(goalID uint64) cyber.CAL {
	docs := make([]*cyber.RiskDoc, 0)
	for _, doc := range m.repo.DocumentsByKind("cyber_risk") {
		docs = append(docs, doc.(*cyber.RiskDoc))
	}
	return cyber.GoalCAL(goalID, docs)
}

// TouchHaraRow signals that a risk-assessment row changed; derived goal
// ASILs recompute before the call returns
func (m *Model) TouchHaraRow(docName string) {
	m.bus.Publish(events.TopicHaraRowChanged, docName)
}

// TouchCyberRow signals that a cyber risk row changed; derived goal CALs
// recompute before the call returns
func (m *Model) TouchCyberRow(docName string) {
	m.bus.Publish(events.TopicCyberRowChanged, docName)
}
