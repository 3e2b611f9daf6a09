package backend

import "github.com/angelmondragon/forkfinderz-realtime/pkg/types"

// Review is the subset of the backend review entity the watcher needs.
type Review struct {
	ID           int64           `json:"id"`
	RestaurantID int64           `json:"restaurantId"`
	UserID       int64           `json:"userId,omitempty"`
	Username     string          `json:"username,omitempty"`
	Rating       int             `json:"rating"`
	Comment      string          `json:"comment,omitempty"`
	CreatedAt    types.Timestamp `json:"createdAt"`
}

// Restaurant is the restaurant detail payload.
type Restaurant struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Address       string  `json:"address,omitempty"`
	CuisineType   string  `json:"cuisineType,omitempty"`
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
	Status        string  `json:"status,omitempty"`
}
