package rag

import "fmt"

// Focus selects which equity angle an analysis query emphasizes.
type Focus string

const (
	FocusGeneral              Focus = "general"
	FocusVulnerableGroups     Focus = "vulnerable_groups"
	FocusSeverityOfImpact     Focus = "severity_of_impact"
	FocusMitigationStrategies Focus = "mitigation_strategies"
	// FocusCustom carries a caller-supplied description instead of a
	// canned one.
	FocusCustom Focus = "custom"
)

// FocusAreas lists the standard focus areas in pipeline order.
var FocusAreas = []Focus{FocusGeneral, FocusVulnerableGroups, FocusSeverityOfImpact, FocusMitigationStrategies}

var focusDescriptions = map[Focus]string{
	FocusGeneral:              "the overall equity implications, considering all relevant dimensions of the equity framework.",
	FocusVulnerableGroups:     "how vulnerable groups are affected or mentioned.",
	FocusSeverityOfImpact:     "the severity of the document's impacts on equity.",
	FocusMitigationStrategies: "strategies or solutions for equity concerns.",
}

// Description returns the analysis emphasis for the focus area.
func (f Focus) Description() string {
	if d, ok := focusDescriptions[f]; ok {
		return d
	}
	return "equity implications."
}

// ParseFocus validates a caller-supplied focus area name.
func ParseFocus(s string) (Focus, error) {
	switch Focus(s) {
	case FocusGeneral, FocusVulnerableGroups, FocusSeverityOfImpact, FocusMitigationStrategies, FocusCustom:
		return Focus(s), nil
	case "":
		return FocusGeneral, nil
	}
	return "", fmt.Errorf("unknown focus area %q", s)
}

// AnalysisQuery renders the generic analysis query for a focus description.
func AnalysisQuery(focusDescription string) string {
	return "Provide an equity analysis of this document, focusing on: " + focusDescription
}
