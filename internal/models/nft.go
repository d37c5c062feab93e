package models

// NFT represents a tokenized art piece listed in the storefront catalog.
// Each piece can carry a number of physical copies alongside the digital one.
type NFT struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Price          float64  `json:"price"`
	PhysicalPieces int      `json:"physicalPieces"`
	ImageURLs      []string `json:"imageUrls"`
	ArtistName     string   `json:"artistName,omitempty"`
}
