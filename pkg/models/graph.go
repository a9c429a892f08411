package models

// NodeType represents the type of a knowledge graph node
type NodeType string

const (
	NodeCampaign    NodeType = "Campaign"
	NodeProduct     NodeType = "Product"
	NodePlatform    NodeType = "Platform"
	NodeScoutedPost NodeType = "ScoutedPost"
	NodeEngagement  NodeType = "Engagement"
	NodeStrategy    NodeType = "Strategy"
)

// KnowledgeGraphNode is a derived, read-mostly projection of a domain
// entity for the external graph store. IDs are derived from source entity
// ids so re-projection always overwrites the same nodes.
type KnowledgeGraphNode struct {
	ID    string                 `json:"id"`
	Type  NodeType               `json:"type"`
	Attrs map[string]interface{} `json:"attrs"`
}
