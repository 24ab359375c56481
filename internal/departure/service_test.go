package departure

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trntxt/trntxt/internal/ldb"
	"github.com/trntxt/trntxt/internal/models"
)

type mockUpstream struct {
	getDepartureBoardFunc func(ctx context.Context, req ldb.BoardRequest) (*ldb.Board, error)
	getServiceDetailsFunc func(ctx context.Context, serviceID string) (*ldb.ServiceDetails, error)

	mu       sync.Mutex
	requests []ldb.BoardRequest
}

func (m *mockUpstream) GetDepartureBoard(ctx context.Context, req ldb.BoardRequest) (*ldb.Board, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.getDepartureBoardFunc != nil {
		return m.getDepartureBoardFunc(ctx, req)
	}
	return &ldb.Board{}, nil
}

func (m *mockUpstream) GetServiceDetails(ctx context.Context, serviceID string) (*ldb.ServiceDetails, error) {
	if m.getServiceDetailsFunc != nil {
		return m.getServiceDetailsFunc(ctx, serviceID)
	}
	return &ldb.ServiceDetails{}, nil
}

type mapNames map[string]string

func (m mapNames) NameForCode(code string) (string, bool) {
	name, ok := m[code]
	return name, ok
}

var (
	kingsCross = models.Station{Name: "London Kings Cross", Code: "KGX"}
	cambridge  = models.Station{Name: "Cambridge", Code: "CBG"}

	testNames = mapNames{
		"KGX": "London Kings Cross",
		"CBG": "Cambridge",
		"ELY": "Ely",
		"KLN": "Kings Lynn",
	}
)

func rawService(id, std, etd string) ldb.Service {
	return ldb.Service{
		Origin:      ldb.Location{Name: "London Kings Cross", Crs: "KGX"},
		Destination: ldb.Location{Name: "Kings Lynn", Crs: "KLN"},
		Std:         std,
		Etd:         etd,
		Operator:    "Great Northern",
		ServiceID:   id,
	}
}

func serviceIDs(services []models.Service) []string {
	ids := make([]string, len(services))
	for i, s := range services {
		ids[i] = s.ServiceID
	}
	return ids
}

func pagedBoards(first, second *ldb.Board, secondErr error) func(ctx context.Context, req ldb.BoardRequest) (*ldb.Board, error) {
	return func(ctx context.Context, req ldb.BoardRequest) (*ldb.Board, error) {
		if req.TimeOffset == 0 {
			return first, nil
		}
		if secondErr != nil {
			return nil, secondErr
		}
		return second, nil
	}
}

func TestGetDepartures_NoDestination(t *testing.T) {
	platform := "9"
	first := rawService("svc-1", "10:02", "On time")
	first.Platform = &platform

	upstream := &mockUpstream{
		getDepartureBoardFunc: pagedBoards(
			&ldb.Board{
				NrccMessages:  []string{`<p>Delays at <a href="http://nationalrail.co.uk/x">Hitchin</a></p>`},
				TrainServices: []ldb.Service{first},
				BusServices:   []ldb.Service{rawService("bus-1", "10:30", "On time")},
			},
			&ldb.Board{
				TrainServices: []ldb.Service{rawService("svc-2", "12:01", "12:05")},
			},
			nil,
		),
		getServiceDetailsFunc: func(ctx context.Context, serviceID string) (*ldb.ServiceDetails, error) {
			t.Errorf("unexpected service details call for %s", serviceID)
			return nil, errors.New("unexpected")
		},
	}

	board, err := NewService(upstream, testNames).GetDepartures(context.Background(), models.Route{From: kingsCross})
	require.NoError(t, err)

	require.Len(t, upstream.requests, 2)
	assert.Equal(t, ldb.BoardRequest{Crs: "KGX"}, upstream.requests[0])
	assert.Equal(t, ldb.BoardRequest{Crs: "KGX", TimeOffset: 119}, upstream.requests[1])

	assert.Equal(t, kingsCross, board.FromStation)
	assert.Nil(t, board.ToStation)
	assert.Equal(t, []string{`Delays at <a href="https://www.nationalrail.co.uk/x">Hitchin</a>`}, board.NrccMessages)
	assert.Equal(t, []string{"svc-1", "svc-2"}, serviceIDs(board.TrainServices))
	assert.Equal(t, []string{"bus-1"}, serviceIDs(board.BusServices))

	svc := board.TrainServices[0]
	assert.Equal(t, models.Station{Name: "London Kings Cross", Code: "KGX"}, svc.OriginStation)
	assert.Equal(t, models.Station{Name: "Kings Lynn", Code: "KLN"}, svc.DestinationStation)
	require.NotNil(t, svc.Platform)
	assert.Equal(t, "9", *svc.Platform)
	assert.Nil(t, board.TrainServices[1].Platform)
	assert.Nil(t, svc.DurationMinutes)
	assert.Empty(t, svc.Duration)
	assert.False(t, svc.CorrectStation)
}

func TestGetDepartures_WithDestination(t *testing.T) {
	upstream := &mockUpstream{
		getDepartureBoardFunc: pagedBoards(
			&ldb.Board{TrainServices: []ldb.Service{
				rawService("svc-1", "10:02", "On time"),
				rawService("phantom", "10:10", "On time"),
			}},
			&ldb.Board{TrainServices: []ldb.Service{
				rawService("svc-2", "23:50", "23:55"),
			}},
			nil,
		),
		getServiceDetailsFunc: func(ctx context.Context, serviceID string) (*ldb.ServiceDetails, error) {
			switch serviceID {
			case "svc-1":
				return &ldb.ServiceDetails{SubsequentCallingPoints: []ldb.CallingPoint{
					{Name: "Finsbury Park", Crs: "FPK", St: "10:08", Et: "On time"},
					{Name: "Cambridge", Crs: "CBG", St: "10:55", Et: "11:07"},
					{Name: "Ely", Crs: "ELY", St: "11:12", Et: "On time"},
				}}, nil
			case "phantom":
				return &ldb.ServiceDetails{SubsequentCallingPoints: []ldb.CallingPoint{
					{Name: "Finsbury Park", Crs: "FPK", St: "10:16", Et: "On time"},
					{Name: "Ely Station", Crs: "ELY", St: "11:20", Et: "On time"},
				}}, nil
			case "svc-2":
				return &ldb.ServiceDetails{SubsequentCallingPoints: []ldb.CallingPoint{
					{Name: "Cambridge", Crs: "CBG", St: "00:40", Et: "On time"},
				}}, nil
			}
			return nil, errors.New("unknown service")
		},
	}

	to := cambridge
	board, err := NewService(upstream, testNames).GetDepartures(context.Background(), models.Route{From: kingsCross, To: &to})
	require.NoError(t, err)

	assert.Equal(t, "CBG", upstream.requests[0].FilterCrs)
	assert.Equal(t, "CBG", upstream.requests[1].FilterCrs)
	assert.Equal(t, 119, upstream.requests[1].TimeOffset)

	require.Equal(t, []string{"svc-1", "svc-2"}, serviceIDs(board.TrainServices))
	assert.NotNil(t, board.BusServices)
	assert.Empty(t, board.BusServices)

	first := board.TrainServices[0]
	assert.Equal(t, "10:55", first.Sta)
	assert.Equal(t, "11:07", first.Eta)
	assert.Equal(t, "Cambridge", first.ArrivalStation)
	assert.True(t, first.CorrectStation)
	require.NotNil(t, first.DurationMinutes)
	assert.Equal(t, 65, *first.DurationMinutes)
	assert.Equal(t, "1h 5m", first.Duration)

	overnight := board.TrainServices[1]
	require.NotNil(t, overnight.DurationMinutes)
	assert.Equal(t, 45, *overnight.DurationMinutes)
	assert.Equal(t, "45m", overnight.Duration)

	for _, svc := range board.TrainServices {
		assert.True(t, svc.CorrectStation)
	}
}

func TestApplyArrival(t *testing.T) {
	s := NewService(&mockUpstream{}, testNames)

	tests := []struct {
		name        string
		points      []ldb.CallingPoint
		wantSta     string
		wantEta     string
		wantStation string
		wantCorrect bool
	}{
		{
			name: "first match wins",
			points: []ldb.CallingPoint{
				{Name: "Cambridge", Crs: "CBG", St: "10:55", Et: "On time"},
				{Name: "Cambridge", Crs: "CBG", St: "11:30", Et: "On time"},
			},
			wantSta:     "10:55",
			wantEta:     "On time",
			wantStation: "Cambridge",
			wantCorrect: true,
		},
		{
			name: "falls back to last calling point",
			points: []ldb.CallingPoint{
				{Name: "Finsbury Park", Crs: "FPK", St: "10:08", Et: "On time"},
				{Name: "Ely Station", Crs: "ELY", St: "11:12", Et: "11:15"},
			},
			wantSta:     "11:12",
			wantEta:     "11:15",
			wantStation: "Ely",
			wantCorrect: false,
		},
		{
			name: "unknown code keeps upstream name",
			points: []ldb.CallingPoint{
				{Name: "Somewhere New", Crs: "SWN", St: "11:12", Et: "On time"},
			},
			wantSta:     "11:12",
			wantEta:     "On time",
			wantStation: "Somewhere New",
			wantCorrect: false,
		},
		{
			name:        "no calling points",
			points:      nil,
			wantCorrect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &models.Service{}
			s.applyArrival(svc, &ldb.ServiceDetails{SubsequentCallingPoints: tt.points}, cambridge)

			assert.Equal(t, tt.wantSta, svc.Sta)
			assert.Equal(t, tt.wantEta, svc.Eta)
			assert.Equal(t, tt.wantStation, svc.ArrivalStation)
			assert.Equal(t, tt.wantCorrect, svc.CorrectStation)
		})
	}
}

func TestGetDepartures_PrimaryFailure(t *testing.T) {
	upstreamErr := errors.New("connection refused")
	upstream := &mockUpstream{
		getDepartureBoardFunc: func(ctx context.Context, req ldb.BoardRequest) (*ldb.Board, error) {
			return nil, upstreamErr
		},
	}

	board, err := NewService(upstream, testNames).GetDepartures(context.Background(), models.Route{From: kingsCross})
	assert.Nil(t, board)

	var upstreamError *UpstreamError
	require.ErrorAs(t, err, &upstreamError)
	assert.ErrorIs(t, err, upstreamErr)
	assert.Len(t, upstream.requests, 1)
}

func TestGetDepartures_SecondaryFailureIsTolerated(t *testing.T) {
	upstream := &mockUpstream{
		getDepartureBoardFunc: pagedBoards(
			&ldb.Board{
				TrainServices: []ldb.Service{rawService("svc-1", "10:02", "On time")},
				BusServices:   []ldb.Service{rawService("bus-1", "10:30", "On time")},
			},
			nil,
			errors.New("timeout"),
		),
	}

	board, err := NewService(upstream, testNames).GetDepartures(context.Background(), models.Route{From: kingsCross})
	require.NoError(t, err)
	assert.Equal(t, []string{"svc-1"}, serviceIDs(board.TrainServices))
	assert.Equal(t, []string{"bus-1"}, serviceIDs(board.BusServices))
}

func TestGetDepartures_NoDeduplication(t *testing.T) {
	page := &ldb.Board{TrainServices: []ldb.Service{rawService("svc-1", "10:02", "On time")}}
	upstream := &mockUpstream{getDepartureBoardFunc: pagedBoards(page, page, nil)}

	board, err := NewService(upstream, testNames).GetDepartures(context.Background(), models.Route{From: kingsCross})
	require.NoError(t, err)
	assert.Equal(t, []string{"svc-1", "svc-1"}, serviceIDs(board.TrainServices))
}

func TestGetDepartures_DetailFailureAborts(t *testing.T) {
	detailErr := errors.New("service not found")
	upstream := &mockUpstream{
		getDepartureBoardFunc: pagedBoards(
			&ldb.Board{TrainServices: []ldb.Service{
				rawService("svc-1", "10:02", "On time"),
				rawService("svc-bad", "10:10", "On time"),
				rawService("svc-3", "10:20", "On time"),
			}},
			&ldb.Board{},
			nil,
		),
		getServiceDetailsFunc: func(ctx context.Context, serviceID string) (*ldb.ServiceDetails, error) {
			if serviceID == "svc-bad" {
				return nil, detailErr
			}
			return &ldb.ServiceDetails{SubsequentCallingPoints: []ldb.CallingPoint{
				{Name: "Cambridge", Crs: "CBG", St: "10:55", Et: "On time"},
			}}, nil
		},
	}

	to := cambridge
	board, err := NewService(upstream, testNames).GetDepartures(context.Background(), models.Route{From: kingsCross, To: &to})
	assert.Nil(t, board)

	var upstreamError *UpstreamError
	require.ErrorAs(t, err, &upstreamError)
	assert.ErrorIs(t, err, detailErr)
}

func TestGetDepartures_MissingToken(t *testing.T) {
	upstream := &mockUpstream{
		getDepartureBoardFunc: func(ctx context.Context, req ldb.BoardRequest) (*ldb.Board, error) {
			return nil, ldb.ErrMissingToken
		},
	}

	_, err := NewService(upstream, testNames).GetDepartures(context.Background(), models.Route{From: kingsCross})

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "no API key set", configErr.Error())
}

func TestGetDepartures_BusesGetArrivalsToo(t *testing.T) {
	upstream := &mockUpstream{
		getDepartureBoardFunc: pagedBoards(
			&ldb.Board{BusServices: []ldb.Service{
				rawService("bus-1", "10:30", "On time"),
				rawService("bus-2", "10:45", "On time"),
			}},
			&ldb.Board{},
			nil,
		),
		getServiceDetailsFunc: func(ctx context.Context, serviceID string) (*ldb.ServiceDetails, error) {
			crs := "CBG"
			if serviceID == "bus-2" {
				crs = "ELY"
			}
			return &ldb.ServiceDetails{SubsequentCallingPoints: []ldb.CallingPoint{
				{Crs: crs, St: "11:30", Et: "On time"},
			}}, nil
		},
	}

	to := cambridge
	board, err := NewService(upstream, testNames).GetDepartures(context.Background(), models.Route{From: kingsCross, To: &to})
	require.NoError(t, err)

	assert.Equal(t, []string{"bus-1"}, serviceIDs(board.BusServices))
	assert.Equal(t, "1h 0m", board.BusServices[0].Duration)
}

func TestGetDepartures_MaxConcurrentDetails(t *testing.T) {
	var services []ldb.Service
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		services = append(services, rawService(id, "10:00", "On time"))
	}

	var inFlight, peak int32
	upstream := &mockUpstream{
		getDepartureBoardFunc: pagedBoards(&ldb.Board{TrainServices: services}, &ldb.Board{}, nil),
		getServiceDetailsFunc: func(ctx context.Context, serviceID string) (*ldb.ServiceDetails, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return &ldb.ServiceDetails{SubsequentCallingPoints: []ldb.CallingPoint{
				{Crs: "CBG", St: "10:30", Et: "On time"},
			}}, nil
		},
	}

	to := cambridge
	board, err := NewService(upstream, testNames, WithMaxConcurrentDetails(2)).
		GetDepartures(context.Background(), models.Route{From: kingsCross, To: &to})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, serviceIDs(board.TrainServices))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestGetDepartures_NumRows(t *testing.T) {
	upstream := &mockUpstream{}

	_, err := NewService(upstream, testNames, WithNumRows(20)).GetDepartures(context.Background(), models.Route{From: kingsCross})
	require.NoError(t, err)

	for _, req := range upstream.requests {
		assert.Equal(t, 20, req.NumRows)
	}
}

func TestPageTitle(t *testing.T) {
	to := cambridge

	assert.Equal(t, "trntxt: KGX", PageTitle(&models.DepartureBoard{FromStation: kingsCross}))
	assert.Equal(t, "trntxt: KGX > CBG", PageTitle(&models.DepartureBoard{FromStation: kingsCross, ToStation: &to}))
}
