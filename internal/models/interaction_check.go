package models

import "gorm.io/datatypes"

// InteractionCheck records one herb/drug interaction analysis.
type InteractionCheck struct {
	BaseModel

	HerbName       string         `gorm:"type:varchar(200);not null;index" json:"herb_name"`
	DrugName       string         `gorm:"type:varchar(200);not null;index" json:"drug_name"`
	Severity       string         `gorm:"type:varchar(20);not null" json:"severity"`
	Mechanism      string         `gorm:"type:text" json:"mechanism"`
	Recommendation string         `gorm:"type:text" json:"recommendation"`
	Provider       string         `gorm:"type:varchar(40)" json:"provider"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
}
