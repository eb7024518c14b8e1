package config

// DefaultTables returns the tables the tool ships with: the ISO 26262 risk
// graph and decomposition schemes, AEC/MIL qualification factors and the
// ISO 21434 risk and CAL matrices.
func DefaultTables() *Tables {
	return &Tables{
		QualificationFactors: map[string]float64{
			"AEC-Q200":      0.8,
			"IECQ":          0.9,
			"MIL-STD-883":   0.85,
			"MIL-PRF-38534": 0.85,
			"MIL-PRF-38535": 0.85,
			"Space":         0.75,
			"AEC-Q100":      1.0,
			"AEC-Q101":      1.0,
			"None":          1.0,
		},
		RiskGraph: defaultRiskGraph(),
		RiskLevelTable: map[string]map[string]string{
			"High": {
				"Severe":     "High",
				"Major":      "High",
				"Moderate":   "Medium",
				"Negligible": "Low",
			},
			"Medium": {
				"Severe":     "High",
				"Major":      "Medium",
				"Moderate":   "Low",
				"Negligible": "Low",
			},
			"Low": {
				"Severe":     "Medium",
				"Major":      "Low",
				"Moderate":   "Low",
				"Negligible": "Low",
			},
		},
		CALTable: map[string]map[string]string{
			"Physical-Local":   {"Severe": "CAL2", "Major": "CAL1", "Moderate": "CAL1"},
			"Adjacent Network": {"Severe": "CAL3", "Major": "CAL2", "Moderate": "CAL1"},
			"Network-Remote":   {"Severe": "CAL4", "Major": "CAL3", "Moderate": "CAL2"},
		},
		DecompositionSchemes: map[string][]DecompositionPair{
			"D": {
				{First: "B(D)", Second: "B(D)"},
				{First: "C(D)", Second: "QM(D)"},
				{First: "A(D)", Second: "C(D)"},
				{First: "B(D)", Second: "QM(D)"},
			},
			"C": {
				{First: "B(C)", Second: "A(C)"},
				{First: "C(C)", Second: "QM(C)"},
			},
			"B": {
				{First: "A(B)", Second: "A(B)"},
				{First: "B(B)", Second: "QM(B)"},
			},
			"A": {
				{First: "A(A)", Second: "QM(A)"},
			},
		},
		ASILTargets: map[string]MetricTargets{
			"D":  {SPFM: 0.99, LPFM: 0.90, DC: 0.99},
			"C":  {SPFM: 0.97, LPFM: 0.90, DC: 0.97},
			"B":  {SPFM: 0.90, LPFM: 0.60, DC: 0.90},
			"A":  {SPFM: 0.0, LPFM: 0.0, DC: 0.0},
			"QM": {SPFM: 0.0, LPFM: 0.0, DC: 0.0},
		},
		PMHFTargets: map[string]float64{
			"D": 1e-8,
			"C": 1e-7,
			"B": 1e-7,
			"A": 1e-6,
		},
	}
}

// defaultRiskGraph lists the ISO 26262 ASIL determination cells. Severity and
// controllability run 1-3, exposure 1-4; anything not listed is QM.
func defaultRiskGraph() []RiskGraphRow {
	cells := []struct {
		s, c, e int
		asil    string
	}{
		// Severity 1
		{1, 2, 4, "A"},
		{1, 3, 4, "B"},
		// Severity 2
		{2, 1, 4, "A"},
		{2, 2, 3, "A"}, {2, 2, 4, "B"},
		{2, 3, 2, "A"}, {2, 3, 3, "B"}, {2, 3, 4, "C"},
		// Severity 3
		{3, 1, 3, "A"}, {3, 1, 4, "B"},
		{3, 2, 2, "A"}, {3, 2, 3, "B"}, {3, 2, 4, "C"},
		{3, 3, 1, "A"}, {3, 3, 2, "B"}, {3, 3, 3, "C"}, {3, 3, 4, "D"},
	}

	rows := make([]RiskGraphRow, 0, 36)
	for s := 1; s <= 3; s++ {
		for c := 1; c <= 3; c++ {
			for e := 1; e <= 4; e++ {
				asil := "QM"
				for _, cell := range cells {
					if cell.s == s && cell.c == c && cell.e == e {
						asil = cell.asil
						break
					}
				}
				rows = append(rows, RiskGraphRow{Severity: s, Controllability: c, Exposure: e, ASIL: asil})
			}
		}
	}
	return rows
}
