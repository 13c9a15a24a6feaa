package models

import (
	"strings"
	"time"
)

// Favorite is a user annotation keyed by herb identifier. The name, scientific
// name and category are a snapshot taken at favoriting time and are not
// re-synced when the dataset refreshes; the annotation outlives the record it
// points at.
type Favorite struct {
	HerbID         string    `gorm:"primaryKey;size:128" json:"herb_id"`
	EnglishName    string    `gorm:"type:varchar(200);not null" json:"english_name"`
	ScientificName string    `gorm:"type:varchar(200)" json:"scientific_name"`
	Category       string    `gorm:"type:varchar(100)" json:"category"`
	DateAdded      time.Time `gorm:"index" json:"date_added"`
	StarRating     int       `gorm:"not null;default:0" json:"star_rating"`
}

// TableName specifies the table name for GORM.
func (Favorite) TableName() string {
	return "favorites"
}

// Normalise trims identifier whitespace before persistence.
func (f *Favorite) Normalise() {
	f.HerbID = strings.TrimSpace(f.HerbID)
}
