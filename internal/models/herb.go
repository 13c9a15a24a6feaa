package models

// Nutrition holds the per-serving nutrition facts attached to a herb record.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbs"`
}

// Herb is an immutable herb record decoded from the remote dataset.
// It is not persisted; the in-memory collection is replaced wholesale on
// every successful fetch.
type Herb struct {
	ID             string            `json:"id"`
	EnglishName    string            `json:"english_name"`
	LocalNames     map[string]string `json:"local_names,omitempty"`
	ScientificName string            `json:"scientific_name"`
	Description    string            `json:"description"`
	Uses           []string          `json:"uses,omitempty"`
	Category       string            `json:"category"`
	Vitamins       []string          `json:"vitamins,omitempty"`
	Nutrition      Nutrition         `json:"nutrition"`
	Ailments       []string          `json:"ailments,omitempty"`
	Locations      []string          `json:"locations,omitempty"`
	Preparation    string            `json:"preparation,omitempty"`
	Dosage         string            `json:"dosage,omitempty"`
	Precautions    string            `json:"precautions,omitempty"`
	HoneyUsage     string            `json:"honey_usage,omitempty"`
	Continents     []string          `json:"continents,omitempty"`
	WikipediaURL   string            `json:"wikipedia_url,omitempty"`
}

// HasContinent reports whether the herb is recorded for the given continent code.
func (h *Herb) HasContinent(code string) bool {
	for _, c := range h.Continents {
		if c == code {
			return true
		}
	}
	return false
}
