package models

// Service is a departing train or bus enriched with its arrival at the requested destination.
type Service struct {
	OriginStation      Station `json:"originStation"`
	DestinationStation Station `json:"destinationStation"`
	Std                string  `json:"std"`
	Etd                string  `json:"etd"`
	Platform           *string `json:"platform"`
	Operator           string  `json:"operator"`
	ServiceID          string  `json:"serviceID"`

	Sta            string `json:"sta,omitempty"`
	Eta            string `json:"eta,omitempty"`
	ArrivalStation string `json:"arrivalStation,omitempty"`
	CorrectStation bool   `json:"correctStation"`

	DurationMinutes *int   `json:"durationMinutes,omitempty"`
	Duration        string `json:"time,omitempty"`
}

// DepartureBoard is the merged board for a route.
type DepartureBoard struct {
	FromStation   Station   `json:"fromStation"`
	ToStation     *Station  `json:"toStation,omitempty"`
	NrccMessages  []string  `json:"nrccMessages,omitempty"`
	TrainServices []Service `json:"trainServices"`
	BusServices   []Service `json:"busServices"`
}

func (s Service) DepartureTimes() (scheduled, estimated string) {
	return s.Std, s.Etd
}

func (s Service) ArrivalTimes() (scheduled, estimated string) {
	return s.Sta, s.Eta
}
