package engine

import (
	"github.com/dd0wney/cluso-safety/pkg/snapshot"
)

// Save serializes the whole model to YAML: repository entities and
// documents, policy tables, libraries, profiles, requirements, reviews,
// baselines and the top-event bindings. Computed values persist as-is, so
// a reload answers queries identically without a recompute.
func (m *Model) Save() ([]byte, error) {
	state, err := snapshot.CaptureRepository(m.repo)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	state.Tables = m.tables
	for _, name := range m.libraryOrder {
		state.Libraries = append(state.Libraries, m.libraries[name])
	}
	for _, name := range m.profileOrder {
		state.MissionProfiles = append(state.MissionProfiles, m.profiles[name])
	}
	state.ActiveProfile = m.activeProfile
	for _, name := range m.reviewOrder {
		state.Reviews = append(state.Reviews, m.reviews[name])
	}
	state.Baselines = append(state.Baselines, m.baselines...)
	state.BaselineSeq = m.baselineSeq
	if len(m.bindings) > 0 {
		state.TopEventBindings = make(map[string]string, len(m.bindings))
		for malfunction, treeName := range m.bindings {
			state.TopEventBindings[malfunction] = treeName
		}
	}
	m.mu.RUnlock()

	state.Requirements = m.reqs.All()
	return state.Encode()
}

// Load rebuilds a model from a YAML snapshot. The snapshot's tables win
// over any tables in the config.
func Load(data []byte, cfg Config) (*Model, error) {
	state, err := snapshot.Decode(data)
	if err != nil {
		return nil, err
	}
	if state.Tables != nil {
		cfg.Tables = state.Tables
	}

	m, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := state.RestoreRepository(m.repo); err != nil {
		return nil, err
	}
	if err := state.RestoreRequirements(m.reqs); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, lib := range state.Libraries {
		m.libraries[lib.Name] = lib
		m.libraryOrder = append(m.libraryOrder, lib.Name)
	}
	for _, profile := range state.MissionProfiles {
		m.profiles[profile.Name] = profile
		m.profileOrder = append(m.profileOrder, profile.Name)
	}
	m.activeProfile = state.ActiveProfile
	if m.activeProfile == "" && len(m.profileOrder) > 0 {
		m.activeProfile = m.profileOrder[0]
	}
	for _, r := range state.Reviews {
		m.reviews[r.Name] = r
		m.reviewOrder = append(m.reviewOrder, r.Name)
	}
	m.baselines = append(m.baselines, state.Baselines...)
	m.baselineSeq = state.BaselineSeq
	for malfunction, treeName := range state.TopEventBindings {
		m.bindings[malfunction] = treeName
	}

	return m, nil
}
