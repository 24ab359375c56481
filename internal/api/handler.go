package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/trntxt/trntxt/internal/models"
)

const errorPageTitle = "trntxt: ERROR"

type APIResponse struct {
	ResponseType string `json:"responseType"`
}

func (r APIResponse) GetResponseType() string {
	return r.ResponseType
}

type StationsResponse struct {
	APIResponse
	Stations []models.Station `json:"stations"`
}

// DeparturesResponse carries a board plus the codes and title used to render it
type DeparturesResponse struct {
	APIResponse
	PageTitle   string                 `json:"pageTitle"`
	FromStation string                 `json:"fromStation"`
	ToStation   string                 `json:"toStation,omitempty"`
	Departures  *models.DepartureBoard `json:"departures"`
}

type ErrorResponse struct {
	APIResponse
	PageTitle string `json:"pageTitle"`
	Error     string `json:"error"`
}

func NewStationsResponse(stations []models.Station) *StationsResponse {
	return &StationsResponse{
		APIResponse: APIResponse{ResponseType: "stations"},
		Stations:    stations,
	}
}

func NewDeparturesResponse(board *models.DepartureBoard, pageTitle string) *DeparturesResponse {
	resp := &DeparturesResponse{
		APIResponse: APIResponse{ResponseType: "departures"},
		PageTitle:   pageTitle,
		FromStation: board.FromStation.Code,
		Departures:  board,
	}
	if board.ToStation != nil {
		resp.ToStation = board.ToStation.Code
	}
	return resp
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		APIResponse: APIResponse{ResponseType: "error"},
		PageTitle:   errorPageTitle,
		Error:       message,
	}
}

// Response helpers
func Success(body interface{}) (events.APIGatewayProxyResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Error("Internal Server Error", http.StatusInternalServerError)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(jsonBody),
	}, nil
}

func Error(message string, statusCode int) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(NewErrorResponse(message))

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}, nil
}

// Parameter parsing helpers

// ParseLimit reads the optional "limit" parameter. A missing limit gives
// defaultLimit; anything that is not a positive integer is an InvalidParameterError.
func ParseLimit(params map[string]string, defaultLimit int) (int, error) {
	limitStr, ok := params["limit"]
	if !ok || limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		return 0, InvalidParameterError{Name: "limit", Value: limitStr}
	}
	return limit, nil
}

type InvalidParameterError struct {
	Name  string
	Value string
}

func (e InvalidParameterError) Error() string {
	return fmt.Sprintf("Invalid %s: %q", e.Name, e.Value)
}
