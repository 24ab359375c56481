package departure

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/trntxt/trntxt/internal/clock"
	"github.com/trntxt/trntxt/internal/ldb"
	"github.com/trntxt/trntxt/internal/models"
)

// secondPageOffset is how far ahead, in minutes, the second board call looks.
const secondPageOffset = 119

type Service struct {
	upstream             Upstream
	names                StationNames
	maxConcurrentDetails int
	numRows              int
}

var _ DepartureService = (*Service)(nil)

type Option func(*Service)

// WithMaxConcurrentDetails bounds the parallel service detail calls. 0 means unbounded.
func WithMaxConcurrentDetails(n int) Option {
	return func(s *Service) {
		s.maxConcurrentDetails = n
	}
}

// WithNumRows sets how many services each board call asks for
func WithNumRows(n int) Option {
	return func(s *Service) {
		s.numRows = n
	}
}

func NewService(upstream Upstream, names StationNames, opts ...Option) *Service {
	s := &Service{
		upstream: upstream,
		names:    names,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetDepartures assembles the departure board for route. When the route has
// a destination, only services that call there are kept and each carries its
// arrival time.
func (s *Service) GetDepartures(ctx context.Context, route models.Route) (*models.DepartureBoard, error) {
	req := ldb.BoardRequest{
		Crs:     route.From.Code,
		NumRows: s.numRows,
	}
	if route.HasDestination() {
		req.FilterCrs = route.To.Code
	}

	primary, err := s.upstream.GetDepartureBoard(ctx, req)
	if err != nil {
		return nil, wrapUpstreamError("getting departure board", err)
	}

	nextPage := req
	nextPage.TimeOffset = secondPageOffset
	secondary, err := s.upstream.GetDepartureBoard(ctx, nextPage)
	if err != nil {
		log.Warn().
			Err(err).
			Str("crs", req.Crs).
			Str("filter_crs", req.FilterCrs).
			Msg("Ignoring failed second page of departures")
		secondary = &ldb.Board{}
	}

	trains := toServices(primary.TrainServices, secondary.TrainServices)
	buses := toServices(primary.BusServices, secondary.BusServices)

	if route.HasDestination() {
		if err := s.addArrivals(ctx, *route.To, trains, buses); err != nil {
			return nil, err
		}
	}

	addDurations(trains)
	addDurations(buses)

	if route.HasDestination() {
		trains = withoutPhantoms(trains)
		buses = withoutPhantoms(buses)
	}

	board := &models.DepartureBoard{
		FromStation:   route.From,
		ToStation:     route.To,
		TrainServices: trains,
		BusServices:   buses,
	}
	for _, msg := range primary.NrccMessages {
		board.NrccMessages = append(board.NrccMessages, SanitizeNrccMessage(msg))
	}

	log.Debug().
		Str("crs", req.Crs).
		Str("filter_crs", req.FilterCrs).
		Int("train_count", len(board.TrainServices)).
		Int("bus_count", len(board.BusServices)).
		Msg("Assembled departure board")

	return board, nil
}

// PageTitle is the title shown above a board, e.g. "trntxt: KGX > CBG".
func PageTitle(board *models.DepartureBoard) string {
	title := "trntxt: " + board.FromStation.Code
	if board.ToStation != nil {
		title += " > " + board.ToStation.Code
	}
	return title
}

// addArrivals fetches every service's calling points concurrently and fills in
// its arrival at to. The first failed call aborts the lot.
func (s *Service) addArrivals(ctx context.Context, to models.Station, lists ...[]models.Service) error {
	var targets []*models.Service
	for _, list := range lists {
		for i := range list {
			targets = append(targets, &list[i])
		}
	}

	details := make([]*ldb.ServiceDetails, len(targets))

	p := pool.New().
		WithErrors().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	if s.maxConcurrentDetails > 0 {
		p = p.WithMaxGoroutines(s.maxConcurrentDetails)
	}

	for i, svc := range targets {
		i, serviceID := i, svc.ServiceID
		p.Go(func(ctx context.Context) error {
			d, err := s.upstream.GetServiceDetails(ctx, serviceID)
			if err != nil {
				return fmt.Errorf("service %s: %w", serviceID, err)
			}
			details[i] = d
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return wrapUpstreamError("getting service details", err)
	}

	for i, svc := range targets {
		s.applyArrival(svc, details[i], to)
	}
	return nil
}

// applyArrival takes the arrival from the first calling point at to, or
// failing that from the last calling point.
func (s *Service) applyArrival(svc *models.Service, details *ldb.ServiceDetails, to models.Station) {
	svc.CorrectStation = false
	if details == nil || len(details.SubsequentCallingPoints) == 0 {
		return
	}

	for _, cp := range details.SubsequentCallingPoints {
		if models.CanonicalCode(cp.Crs) == to.Code {
			svc.Sta = cp.St
			svc.Eta = cp.Et
			svc.ArrivalStation = s.stationName(to.Code, to.Name)
			svc.CorrectStation = true
			return
		}
	}

	last := details.SubsequentCallingPoints[len(details.SubsequentCallingPoints)-1]
	svc.Sta = last.St
	svc.Eta = last.Et
	svc.ArrivalStation = s.stationName(last.Crs, last.Name)
}

func (s *Service) stationName(code, fallback string) string {
	if s.names != nil {
		if name, ok := s.names.NameForCode(code); ok {
			return name
		}
	}
	return fallback
}

func toServices(pages ...[]ldb.Service) []models.Service {
	services := []models.Service{}
	for _, page := range pages {
		for _, raw := range page {
			services = append(services, models.Service{
				OriginStation:      models.Station{Name: raw.Origin.Name, Code: raw.Origin.Crs},
				DestinationStation: models.Station{Name: raw.Destination.Name, Code: raw.Destination.Crs},
				Std:                raw.Std,
				Etd:                raw.Etd,
				Platform:           raw.Platform,
				Operator:           raw.Operator,
				ServiceID:          raw.ServiceID,
			})
		}
	}
	return services
}

func addDurations(services []models.Service) {
	for i := range services {
		mins, ok := clock.Duration(services[i])
		if !ok {
			continue
		}
		services[i].DurationMinutes = &mins
		services[i].Duration, _ = clock.FormatDuration(mins)
	}
}

// withoutPhantoms drops services that never reach the requested destination
func withoutPhantoms(services []models.Service) []models.Service {
	kept := services[:0]
	for _, svc := range services {
		if svc.CorrectStation {
			kept = append(kept, svc)
		}
	}
	return kept
}

func wrapUpstreamError(message string, err error) error {
	if errors.Is(err, ldb.ErrMissingToken) {
		return NewConfigurationError("no API key set")
	}
	return NewUpstreamError(message, err)
}
