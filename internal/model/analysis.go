package model

// CardAnalysis is the AI suggestion for a card's metadata based on its artwork.
type CardAnalysis struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Rarity      string   `json:"rarity"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
	Confidence  float64  `json:"confidence"`
}
