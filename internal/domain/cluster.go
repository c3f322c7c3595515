package domain

// ClusterMember is one feeling's contribution to a cluster, captured at
// clustering time so the consolidator never needs the live Feeling back.
type ClusterMember struct {
	FeelingID     int64   `json:"feeling_id"`
	SourceID      string  `json:"source_id"`
	Weight        float64 `json:"weight"` // decayed, context-weighted
	Valence       float64 `json:"valence"`
	Arousal       float64 `json:"arousal"`
	Similarity    float64 `json:"similarity"` // to the cluster centroid
	EnvironmentID string  `json:"environment_id,omitempty"`
	TriggerID     string  `json:"trigger_id,omitempty"`
}

// FeelingCluster is an ephemeral grouping of similar feelings. It lives
// only within one clustering pass and is never persisted.
type FeelingCluster struct {
	Centroid    string          `json:"centroid"` // representative content
	Members     []ClusterMember `json:"members"`
	TotalWeight float64         `json:"total_weight"`
	AvgValence  float64         `json:"avg_valence"`
	AvgArousal  float64         `json:"avg_arousal"`
	Coherence   float64         `json:"coherence"` // [0,1]
}

// MemberIDs returns the member feeling ids in cluster order.
func (c *FeelingCluster) MemberIDs() []int64 {
	ids := make([]int64, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.FeelingID
	}
	return ids
}
