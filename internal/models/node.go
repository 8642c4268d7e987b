package models

import "gorm.io/gorm"

// Node is a causal factor in the model graph.
type Node struct {
	gorm.Model
	NodeID   string `gorm:"type:varchar(5);uniqueIndex" json:"node_id"`
	Name     string `json:"name"`
	Keywords string `json:"keywords"`
}
