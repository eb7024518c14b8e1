// Package snapshot serializes the whole model to YAML and restores it with
// identical identity, ordering and computed values. Documents are stored in
// typed sections; the registration order is kept separately so a round trip
// re-registers them in the original sequence.
package snapshot

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-safety/pkg/cyber"
	"github.com/dd0wney/cluso-safety/pkg/faulttree"
	"github.com/dd0wney/cluso-safety/pkg/fmea"
	"github.com/dd0wney/cluso-safety/pkg/reliability"
	"github.com/dd0wney/cluso-safety/pkg/repository"
	"github.com/dd0wney/cluso-safety/pkg/requirements"
	"github.com/dd0wney/cluso-safety/pkg/review"
	"github.com/dd0wney/cluso-safety/pkg/risk"

	"github.com/dd0wney/cluso-safety/pkg/config"
)

// FormatVersion guards against loading snapshots from incompatible layouts
const FormatVersion = 1

// DiagramState pairs a diagram with its drawn-record ID counter, which does
// not serialize with the diagram itself
type DiagramState struct {
	Diagram   *repository.Diagram `yaml:"diagram"`
	NextObjID uint64              `yaml:"next_obj_id"`
}

// Documents holds every analysis document, one section per family
type Documents struct {
	Reliability []*reliability.Analysis `yaml:"reliability,omitempty"`
	Hazops      []*risk.HazopDoc        `yaml:"hazops,omitempty"`
	Haras       []*risk.HaraDoc         `yaml:"haras,omitempty"`
	Sotif       []*risk.SotifDoc        `yaml:"sotif,omitempty"`
	Threats     []*cyber.ThreatDoc      `yaml:"threats,omitempty"`
	CyberRisks  []*cyber.RiskDoc        `yaml:"cyber_risks,omitempty"`
	Fmeas       []*fmea.Doc             `yaml:"fmeas,omitempty"`
	Fmedas      []*fmea.FmedaDoc        `yaml:"fmedas,omitempty"`
	FaultTrees  []*faulttree.Tree       `yaml:"fault_trees,omitempty"`
}

// State is the complete serialized model
type State struct {
	Version    int       `yaml:"version"`
	CapturedAt time.Time `yaml:"captured_at"`

	NextID        uint64                     `yaml:"next_id"`
	Elements      []*repository.Element      `yaml:"elements,omitempty"`
	Relationships []*repository.Relationship `yaml:"relationships,omitempty"`
	Diagrams      []DiagramState             `yaml:"diagrams,omitempty"`

	DocOrder  []string  `yaml:"doc_order,omitempty"`
	Documents Documents `yaml:"documents,omitempty"`

	Tables          *config.Tables                `yaml:"tables,omitempty"`
	Libraries       []*fmea.MechanismLibrary      `yaml:"libraries,omitempty"`
	MissionProfiles []*reliability.MissionProfile `yaml:"mission_profiles,omitempty"`
	ActiveProfile   string                        `yaml:"active_profile,omitempty"`

	Requirements []*requirements.Requirement `yaml:"requirements,omitempty"`
	Reviews      []*review.Review            `yaml:"reviews,omitempty"`
	Baselines    []review.Baseline           `yaml:"baselines,omitempty"`
	BaselineSeq  int                         `yaml:"baseline_seq,omitempty"`

	// TopEventBindings maps a malfunction name to the fault tree whose top
	// event it is bound to (single binding per malfunction)
	TopEventBindings map[string]string `yaml:"top_event_bindings,omitempty"`
}

// CaptureRepository copies the repository's entities and documents into a
// fresh state. The caller fills the non-repository sections afterwards.
func CaptureRepository(repo *repository.Repository) (*State, error) {
	state := &State{
		Version:    FormatVersion,
		CapturedAt: time.Now(),
		NextID:     repo.NextID(),
	}

	state.Elements = repo.AllElements()
	state.Relationships = repo.AllRelationships()
	for _, diagram := range repo.AllDiagrams() {
		state.Diagrams = append(state.Diagrams, DiagramState{
			Diagram:   diagram,
			NextObjID: diagram.ObjIDCounter(),
		})
	}

	for _, doc := range repo.AllDocuments() {
		state.DocOrder = append(state.DocOrder, doc.DocName())
		switch d := doc.(type) {
		case *reliability.Analysis:
			state.Documents.Reliability = append(state.Documents.Reliability, d)
		case *risk.HazopDoc:
			state.Documents.Hazops = append(state.Documents.Hazops, d)
		case *risk.HaraDoc:
			state.Documents.Haras = append(state.Documents.Haras, d)
		case *risk.SotifDoc:
			state.Documents.Sotif = append(state.Documents.Sotif, d)
		case *cyber.ThreatDoc:
			state.Documents.Threats = append(state.Documents.Threats, d)
		case *cyber.RiskDoc:
			state.Documents.CyberRisks = append(state.Documents.CyberRisks, d)
		case *fmea.Doc:
			state.Documents.Fmeas = append(state.Documents.Fmeas, d)
		case *fmea.FmedaDoc:
			state.Documents.Fmedas = append(state.Documents.Fmedas, d)
		case *faulttree.Tree:
			state.Documents.FaultTrees = append(state.Documents.FaultTrees, d)
		default:
			return nil, fmt.Errorf("capture: unknown document family %q for %q", doc.DocKind(), doc.DocName())
		}
	}
	return state, nil
}

// byName indexes every typed document section for ordered re-registration
func (d *Documents) byName() map[string]repository.Document {
	docs := make(map[string]repository.Document)
	for _, doc := range d.Reliability {
		docs[doc.DocName()] = doc
	}
	for _, doc := range d.Hazops {
		docs[doc.DocName()] = doc
	}
	for _, doc := range d.Haras {
		docs[doc.DocName()] = doc
	}
	for _, doc := range d.Sotif {
		docs[doc.DocName()] = doc
	}
	for _, doc := range d.Threats {
		docs[doc.DocName()] = doc
	}
	for _, doc := range d.CyberRisks {
		docs[doc.DocName()] = doc
	}
	for _, doc := range d.Fmeas {
		docs[doc.DocName()] = doc
	}
	for _, doc := range d.Fmedas {
		docs[doc.DocName()] = doc
	}
	for _, doc := range d.FaultTrees {
		docs[doc.DocName()] = doc
	}
	return docs
}

// RestoreRepository loads the state's entities and documents into an empty
// repository. Load order is elements, relationships, diagrams, then the ID
// counter, then documents in their original registration order. Fault trees
// get their node allocators re-seeded.
func (s *State) RestoreRepository(repo *repository.Repository) error {
	if s.Version != FormatVersion {
		return fmt.Errorf("restore: snapshot format %d, want %d", s.Version, FormatVersion)
	}

	for _, element := range s.Elements {
		if err := repo.RestoreElement(element); err != nil {
			return err
		}
	}
	for _, rel := range s.Relationships {
		if err := repo.RestoreRelationship(rel); err != nil {
			return err
		}
	}
	for _, ds := range s.Diagrams {
		if err := repo.RestoreDiagram(ds.Diagram, ds.NextObjID); err != nil {
			return err
		}
	}
	if err := repo.RestoreIDCounter(s.NextID); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	docs := s.Documents.byName()
	for _, name := range s.DocOrder {
		doc, exists := docs[name]
		if !exists {
			return fmt.Errorf("restore: document %q listed in order but missing from sections", name)
		}
		if err := repo.RegisterDocument(doc); err != nil {
			return err
		}
	}
	for _, tree := range s.Documents.FaultTrees {
		tree.RestoreIDCounter()
	}
	return nil
}

// RestoreRequirements loads the requirement section into a registry
func (s *State) RestoreRequirements(registry *requirements.Registry) error {
	for _, req := range s.Requirements {
		if err := registry.Restore(req); err != nil {
			return err
		}
	}
	return nil
}

// Encode serializes the state to YAML
func (s *State) Encode() ([]byte, error) {
	return yaml.Marshal(s)
}

// Decode parses a YAML snapshot
func Decode(data []byte) (*State, error) {
	state := &State{}
	if err := yaml.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if state.Version != FormatVersion {
		return nil, fmt.Errorf("decode snapshot: format %d, want %d", state.Version, FormatVersion)
	}
	return state, nil
}
