package departure

import (
	"context"

	"github.com/trntxt/trntxt/internal/ldb"
	"github.com/trntxt/trntxt/internal/models"
)

type DepartureService interface {
	GetDepartures(ctx context.Context, route models.Route) (*models.DepartureBoard, error)
}

// Upstream is the live departure board service
type Upstream interface {
	GetDepartureBoard(ctx context.Context, req ldb.BoardRequest) (*ldb.Board, error)
	GetServiceDetails(ctx context.Context, serviceID string) (*ldb.ServiceDetails, error)
}

type StationNames interface {
	NameForCode(code string) (string, bool)
}
