// Package ldb talks to the National Rail Live Departure Boards web service (LDBWS).
package ldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hooklift/gowsdl/soap"
	"github.com/rs/zerolog/log"
)

const (
	DefaultURL     = "https://lite.realtime.nationalrail.co.uk/OpenLDBWS/ldb12.asmx"
	DefaultNumRows = 10

	actionPrefix = "http://thalesgroup.com/RTTI/2012-01-13/ldb/"
)

// ErrMissingToken is returned by every call when no access token is configured.
var ErrMissingToken = errors.New("no LDBWS access token set")

type Options struct {
	URL        string
	Token      string
	NumRows    int
	Timeout    time.Duration
	HTTPClient soap.HTTPClient
}

// Client is a SOAP client for the two LDBWS operations trntxt needs
type Client struct {
	soap    *soap.Client
	token   string
	numRows int
}

func New(opts Options) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.NumRows == 0 {
		opts.NumRows = DefaultNumRows
	}

	var soapOpts []soap.Option
	if opts.HTTPClient != nil {
		soapOpts = append(soapOpts, soap.WithHTTPClient(opts.HTTPClient))
	} else if opts.Timeout > 0 {
		soapOpts = append(soapOpts, soap.WithTimeout(opts.Timeout))
	}

	sc := soap.NewClient(opts.URL, soapOpts...)
	sc.AddHeader(&accessToken{TokenValue: opts.Token})

	return &Client{
		soap:    sc,
		token:   opts.Token,
		numRows: opts.NumRows,
	}
}

// GetDepartureBoard fetches the departures from req.Crs
func (c *Client) GetDepartureBoard(ctx context.Context, req BoardRequest) (*Board, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}

	numRows := req.NumRows
	if numRows == 0 {
		numRows = c.numRows
	}

	request := &getDepartureBoardRequest{
		NumRows:    numRows,
		Crs:        req.Crs,
		FilterCrs:  req.FilterCrs,
		TimeOffset: req.TimeOffset,
	}
	if req.FilterCrs != "" {
		request.FilterType = "to"
	}

	log.Debug().
		Str("crs", req.Crs).
		Str("filter_crs", req.FilterCrs).
		Int("time_offset", req.TimeOffset).
		Msg("Requesting departure board")

	response := new(getDepartureBoardResponse)
	if err := c.soap.CallContext(ctx, actionPrefix+"GetDepartureBoard", request, response); err != nil {
		return nil, fmt.Errorf("GetDepartureBoard %s: %w", req.Crs, err)
	}

	return response.Result.toBoard(), nil
}

// GetServiceDetails fetches the calling points of a service found on a board
func (c *Client) GetServiceDetails(ctx context.Context, serviceID string) (*ServiceDetails, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}

	log.Trace().Str("service_id", serviceID).Msg("Requesting service details")

	response := new(getServiceDetailsResponse)
	request := &getServiceDetailsRequest{ServiceID: serviceID}
	if err := c.soap.CallContext(ctx, actionPrefix+"GetServiceDetails", request, response); err != nil {
		return nil, fmt.Errorf("GetServiceDetails %s: %w", serviceID, err)
	}

	return response.Result.toServiceDetails(), nil
}
