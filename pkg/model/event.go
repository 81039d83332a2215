package model

// Event is one race weekend of a season.
type Event struct {
	ID     int    `json:"id"`
	Season int    `json:"season"`
	Round  int    `json:"round"`
	Name   string `json:"name"`
}
