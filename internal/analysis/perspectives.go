package analysis

import "strings"

// Dimension names in report order.
var dimensions = []string{"recognitional", "procedural", "distributional", "structural"}

// Perspective is one stakeholder group with a group-level analysis angle
// plus one angle per equity dimension.
type Perspective struct {
	GroupName   string
	Description string
	Dimensions  map[string]string
}

// Key returns the group's snake_case identifier used in raw analysis keys.
func (p Perspective) Key() string {
	return strings.ToLower(strings.ReplaceAll(p.GroupName, " ", "_"))
}

// Perspectives are the stakeholder groups every report covers.
var Perspectives = []Perspective{
	{
		GroupName:   "Policy Makers",
		Description: "the overall equity implications from the perspective of federal and state policymakers, considering their regulatory responsibilities and influence on equity outcomes. This assessment could indicate how effectively equity measures are embedded in their processes, or if there might be systematic gaps in addressing social or racial disparities.",
		Dimensions: map[string]string{
			"recognitional":  "how the document suggests policy makers acknowledge how historical or systemic exclusion might impact decision-making access for marginalized groups. The analysis might highlight whether unique water justice needs appear to be adequately recognized.",
			"procedural":     "how the document examines indications of how agencies manage pollution control and public input, considering whether affected communities appear to meaningfully influence agenda-setting or enforcement priorities.",
			"distributional": "whether the document suggests funding and technical assistance are directed in a way that prioritizes equity impacts, or if there might be unaddressed distributional disparities.",
			"structural":     "how the document hints at perpetuating top-down oversight, and whether it could suggest a reallocation of decision-making power or reduction of structural barriers for historically excluded groups.",
		},
	},
	{
		GroupName:   "Residents",
		Description: "the overall equity implications from the perspective of ordinary residents, especially those in vulnerable communities, regarding their access to clean and affordable water. The assessment might indicate if community voices appear to be sufficiently represented in decisions affecting their health and well-being.",
		Dimensions: map[string]string{
			"recognitional":  "how the document suggests residents experience inequity when their specific circumstances—such as historic under-investment in infrastructure or exposure to legacy industrial sites—appear overlooked or undervalued in funding and policy priorities.",
			"procedural":     "how the document examines indications of meaningful resident engagement in public hearings and notice periods, and if marginalized populations might face capacity issues in effective participation.",
			"distributional": "whether the document suggests residents in distressed or rural communities might benefit less from environmental outcomes, or if they appear to pay higher rates for water services due to infrastructure underfunding or costly upgrades.",
			"structural":     "how the document hints at systemic obstacles for residents, particularly from minority and low-income groups, such as under-resourced water utilities, lack of representation in regulatory processes, and enduring legacies of exclusion from environmental policymaking.",
		},
	},
	{
		GroupName:   "Farmers/Business Owners",
		Description: "the overall equity implications from the perspective of farmers and business owners, particularly small operators, considering their roles as regulated entities and community members. The assessment could indicate if compliance costs or infrastructure funding might impose disproportionate economic hardship.",
		Dimensions: map[string]string{
			"recognitional":  "how the document suggests the Act primarily recognizes large industrial and municipal actors, and if distinct rural or small-operator needs might be missed in the broader regulatory structures.",
			"procedural":     "how the document assesses whether adequate input opportunities exist for small businesses and farmers through regulatory consultations and permit processes, or if resource constraints, lack of technical assistance, and geographic isolation might impede their meaningful participation.",
			"distributional": "whether the document suggests compliance costs (such as new filtration or runoff systems) might weigh heavier on small agricultural operations and small businesses—sometimes threatening economic viability, especially in distressed regions.",
			"structural":     "how the document hints at small operators generally lacking a seat at high-level regulatory tables; financial and information barriers could prevent them from accessing support or defending their interests.",
		},
	},
}
