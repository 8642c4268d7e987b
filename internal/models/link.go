package models

import "gorm.io/gorm"

// Link is a directed causal edge from a parent (cause) node to a child
// (effect) node. Parallel edges between the same pair are distinguished
// by EdgeKey. The three estimates carry the analyst judgment:
// m1 source credibility, m2 causal weight, m3 analyst confidence.
type Link struct {
	gorm.Model
	LinkID   string `gorm:"uniqueIndex" json:"link_id"`
	ParentID string `gorm:"not null;uniqueIndex:idx_links_edge" json:"parent_id"`
	ChildID  string `gorm:"not null;uniqueIndex:idx_links_edge" json:"child_id"`

	M1 Estimate `gorm:"embedded;embeddedPrefix:m1_" json:"m1"`
	M2 Estimate `gorm:"embedded;embeddedPrefix:m2_" json:"m2"`
	M3 Estimate `gorm:"embedded;embeddedPrefix:m3_" json:"m3"`

	M1Memo string `json:"m1_memo,omitempty"`
	M2Memo string `json:"m2_memo,omitempty"`
	M3Memo string `json:"m3_memo,omitempty"`

	RefID   string `json:"ref_id,omitempty"`
	EdgeKey int    `gorm:"not null;uniqueIndex:idx_links_edge" json:"edge_key"`
}
