package models

import (
	"gorm.io/gorm"
)

// Reference is the bibliographic source backing one or more causal links.
// Rows are created either directly or by importing RIS/BibTeX files.
type Reference struct {
	gorm.Model
	RefID           string `gorm:"uniqueIndex" json:"ref_id"`
	Title           string `gorm:"not null" json:"title"`
	Authors         string `json:"authors"`
	Year            string `json:"year"`
	PublicationType string `json:"publication_type"`
	Publisher       string `json:"publisher"`
	DOI             string `json:"doi"`
	URL             string `json:"url"`
	RawRIS          string `json:"raw_ris,omitempty"`
}
