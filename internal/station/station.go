package station

import (
	"github.com/trntxt/trntxt/internal/models"
)

// StationFinder defines the interface for turning user input into stations
type StationFinder interface {
	Resolve(query string) []models.Station
	ResolveOne(query string) (models.Station, bool)
}
