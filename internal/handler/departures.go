package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
	"github.com/trntxt/trntxt/internal/api"
	"github.com/trntxt/trntxt/internal/departure"
	"github.com/trntxt/trntxt/internal/models"
	"github.com/trntxt/trntxt/internal/station"
)

const (
	noAPIKeyMessage         = "Error: No API key set."
	departuresFailedMessage = "Error: Getting departures failed."
)

type DeparturesHandler struct {
	stationFinder    station.StationFinder
	departureService departure.DepartureService
}

func NewDeparturesHandler(finder station.StationFinder, service departure.DepartureService) *DeparturesHandler {
	return &DeparturesHandler{
		stationFinder:    finder,
		departureService: service,
	}
}

// HandleRequest answers ?from=<text>[&to=<text>] with the departure board
// between the best matching stations.
func (h *DeparturesHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	params := request.QueryStringParameters

	from, ok := params["from"]
	if !ok || from == "" {
		return api.Error("Missing from parameter", http.StatusBadRequest)
	}

	route, err := h.resolveRoute(from, params["to"])
	if err != nil {
		return api.Error(err.Error(), http.StatusNotFound)
	}

	board, err := h.departureService.GetDepartures(ctx, route)
	if err != nil {
		var configErr *departure.ConfigurationError
		if errors.As(err, &configErr) {
			log.Error().Err(err).Msg("Departures requested without an API key")
			return api.Error(noAPIKeyMessage, http.StatusInternalServerError)
		}
		log.Error().
			Err(err).
			Str("crs", route.From.Code).
			Msg("Getting departures failed")
		return api.Error(departuresFailedMessage, http.StatusBadGateway)
	}

	return api.Success(api.NewDeparturesResponse(board, departure.PageTitle(board)))
}

func (h *DeparturesHandler) resolveRoute(from, to string) (models.Route, error) {
	fromStation, ok := h.stationFinder.ResolveOne(from)
	if !ok {
		return models.Route{}, fmt.Errorf("No station found matching %q", from)
	}

	route := models.Route{From: fromStation}
	if to == "" {
		return route, nil
	}

	toStation, ok := h.stationFinder.ResolveOne(to)
	if !ok {
		return models.Route{}, fmt.Errorf("No station found matching %q", to)
	}
	route.To = &toStation
	return route, nil
}
