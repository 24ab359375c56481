package ldb

import "encoding/xml"

// Location is a place named on a board, such as a service's origin.
type Location struct {
	Name string
	Crs  string
}

// Service is one departure as reported by the board call.
type Service struct {
	Origin      Location
	Destination Location
	Std         string
	Etd         string
	Platform    *string
	Operator    string
	ServiceID   string
}

// Board is the result of a single departure board call.
type Board struct {
	NrccMessages  []string
	TrainServices []Service
	BusServices   []Service
}

type CallingPoint struct {
	Name string
	Crs  string
	St   string
	Et   string
}

// ServiceDetails holds the calling points after the board station, in order.
type ServiceDetails struct {
	SubsequentCallingPoints []CallingPoint
}

// BoardRequest selects departures from Crs, optionally only those calling at FilterCrs.
type BoardRequest struct {
	Crs        string
	FilterCrs  string
	TimeOffset int
	NumRows    int
}

type accessToken struct {
	XMLName    xml.Name `xml:"http://thalesgroup.com/RTTI/2013-11-28/Token/types AccessToken"`
	TokenValue string   `xml:"TokenValue"`
}

type getDepartureBoardRequest struct {
	XMLName    xml.Name `xml:"http://thalesgroup.com/RTTI/2021-11-01/ldb/ GetDepartureBoardRequest"`
	NumRows    int      `xml:"numRows"`
	Crs        string   `xml:"crs"`
	FilterCrs  string   `xml:"filterCrs,omitempty"`
	FilterType string   `xml:"filterType,omitempty"`
	TimeOffset int      `xml:"timeOffset,omitempty"`
}

type getServiceDetailsRequest struct {
	XMLName   xml.Name `xml:"http://thalesgroup.com/RTTI/2021-11-01/ldb/ GetServiceDetailsRequest"`
	ServiceID string   `xml:"serviceID"`
}

type getDepartureBoardResponse struct {
	Result stationBoard `xml:"GetStationBoardResult"`
}

type getServiceDetailsResponse struct {
	Result serviceDetails `xml:"GetServiceDetailsResult"`
}

type stationBoard struct {
	NrccMessages  []string      `xml:"nrccMessages>message"`
	TrainServices []serviceItem `xml:"trainServices>service"`
	BusServices   []serviceItem `xml:"busServices>service"`
}

type serviceItem struct {
	Origin      []location `xml:"origin>location"`
	Destination []location `xml:"destination>location"`
	Std         string     `xml:"std"`
	Etd         string     `xml:"etd"`
	Platform    string     `xml:"platform"`
	Operator    string     `xml:"operator"`
	ServiceID   string     `xml:"serviceID"`
}

type location struct {
	LocationName string `xml:"locationName"`
	Crs          string `xml:"crs"`
}

type serviceDetails struct {
	SubsequentCallingPoints []callingPointList `xml:"subsequentCallingPoints>callingPointList"`
}

type callingPointList struct {
	CallingPoints []callingPoint `xml:"callingPoint"`
}

type callingPoint struct {
	LocationName string `xml:"locationName"`
	Crs          string `xml:"crs"`
	St           string `xml:"st"`
	Et           string `xml:"et"`
}

func (b stationBoard) toBoard() *Board {
	return &Board{
		NrccMessages:  b.NrccMessages,
		TrainServices: toServices(b.TrainServices),
		BusServices:   toServices(b.BusServices),
	}
}

func toServices(items []serviceItem) []Service {
	services := make([]Service, 0, len(items))
	for _, item := range items {
		s := Service{
			Origin:      firstLocation(item.Origin),
			Destination: firstLocation(item.Destination),
			Std:         item.Std,
			Etd:         item.Etd,
			Operator:    item.Operator,
			ServiceID:   item.ServiceID,
		}
		if item.Platform != "" {
			platform := item.Platform
			s.Platform = &platform
		}
		services = append(services, s)
	}
	return services
}

// firstLocation picks the first of possibly several origins or destinations
// (trains that split or join).
func firstLocation(locations []location) Location {
	if len(locations) == 0 {
		return Location{}
	}
	return Location{Name: locations[0].LocationName, Crs: locations[0].Crs}
}

func (d serviceDetails) toServiceDetails() *ServiceDetails {
	details := &ServiceDetails{SubsequentCallingPoints: []CallingPoint{}}
	if len(d.SubsequentCallingPoints) == 0 {
		return details
	}
	for _, cp := range d.SubsequentCallingPoints[0].CallingPoints {
		details.SubsequentCallingPoints = append(details.SubsequentCallingPoints, CallingPoint{
			Name: cp.LocationName,
			Crs:  cp.Crs,
			St:   cp.St,
			Et:   cp.Et,
		})
	}
	return details
}
