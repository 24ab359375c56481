package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
	"github.com/trntxt/trntxt/internal/api"
	"github.com/trntxt/trntxt/internal/station"
)

type StationsHandler struct {
	stationFinder station.StationFinder
}

func NewStationsHandler(finder station.StationFinder) *StationsHandler {
	return &StationsHandler{
		stationFinder: finder,
	}
}

// HandleRequest answers ?q=<text> with the matching stations, best first.
// An optional limit caps the number returned.
func (h *StationsHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	params := request.QueryStringParameters

	query, ok := params["q"]
	if !ok {
		return api.Error("Missing q parameter", http.StatusBadRequest)
	}

	limit, err := api.ParseLimit(params, 0)
	if err != nil {
		return api.Error(err.Error(), http.StatusBadRequest)
	}

	stations := h.stationFinder.Resolve(query)
	if limit > 0 && len(stations) > limit {
		stations = stations[:limit]
	}

	log.Debug().
		Str("query", query).
		Int("station_count", len(stations)).
		Msg("Stations request")

	return api.Success(api.NewStationsResponse(stations))
}
