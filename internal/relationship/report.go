package relationship

import "github.com/raold/second-brain-core/pkg/types"

// Report summarizes a batch of Relationship results: per-type and
// per-strength-bucket counts plus the strongest single relationship
// found, mirroring the upstream analyzer's insight surface.
type Report struct {
	TotalRelationships int                                `json:"total_relationships"`
	ByPrimaryType      map[string]int                      `json:"by_primary_type"`
	ByStrength         map[types.RelationshipStrength]int  `json:"by_strength"`
	TopComposite       *types.Relationship                 `json:"top_composite,omitempty"`
}

// BuildReport aggregates a slice of relationships into a Report.
func BuildReport(relationships []types.Relationship) Report {
	report := Report{
		ByPrimaryType: map[string]int{},
		ByStrength:    map[types.RelationshipStrength]int{},
	}
	if len(relationships) == 0 {
		return report
	}

	report.TotalRelationships = len(relationships)
	var top *types.Relationship
	for i, rel := range relationships {
		report.ByPrimaryType[rel.PrimaryRelationshipType]++
		report.ByStrength[rel.Strength]++
		if top == nil || rel.CompositeScore > top.CompositeScore {
			top = &relationships[i]
		}
	}
	report.TopComposite = top
	return report
}
