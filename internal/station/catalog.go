package station

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/trntxt/trntxt/internal/models"
	"golang.org/x/exp/slices"
)

type catalogEntry struct {
	station    models.Station
	normalized string
}

// Catalog is the immutable list of known stations. It is built once at
// startup and shared read-only between the resolver and the assembler.
type Catalog struct {
	entries []catalogEntry
}

// NewCatalog builds a catalog from stations, dropping any whose code is in ignore.
func NewCatalog(stations []models.Station, ignore []string) *Catalog {
	ignored := make([]string, len(ignore))
	for i, code := range ignore {
		ignored[i] = models.CanonicalCode(code)
	}

	entries := make([]catalogEntry, 0, len(stations))
	for _, s := range stations {
		s.Name = strings.TrimSpace(s.Name)
		s.Code = models.CanonicalCode(s.Code)
		if s.Code == "" || slices.Contains(ignored, s.Code) {
			continue
		}
		entries = append(entries, catalogEntry{
			station:    s,
			normalized: Normalize(s.Name),
		})
	}

	return &Catalog{entries: entries}
}

// stationRows feeds gocsv only the rows with exactly a name and a code.
type stationRows struct {
	reader  *csv.Reader
	skipped int
}

func (s *stationRows) Read() ([]string, error) {
	for {
		record, err := s.reader.Read()
		if err != nil {
			return nil, err
		}
		if len(record) == 2 {
			return record, nil
		}
		line, _ := s.reader.FieldPos(0)
		log.Debug().Int("line", line).Int("fields", len(record)).Msg("Skipping malformed station row")
		s.skipped++
	}
}

func (s *stationRows) ReadAll() ([][]string, error) {
	var records [][]string
	for {
		record, err := s.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

// LoadCatalog reads header-less "name,code" CSV rows. Rows with any other
// number of fields are skipped.
func LoadCatalog(r io.Reader, ignore []string) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows := &stationRows{reader: reader}
	var stations []models.Station
	if err := gocsv.UnmarshalCSVWithoutHeaders(rows, &stations); err != nil {
		return nil, fmt.Errorf("parsing station list: %w", err)
	}

	catalog := NewCatalog(stations, ignore)
	log.Debug().
		Int("rows", len(stations)).
		Int("skipped_rows", rows.skipped).
		Int("station_count", catalog.Len()).
		Msg("Loaded station catalog")

	return catalog, nil
}

// LoadIgnoreList reads a JSON array of CRS codes that should never be offered.
func LoadIgnoreList(r io.Reader) ([]string, error) {
	var codes []string
	if err := json.NewDecoder(r).Decode(&codes); err != nil {
		return nil, fmt.Errorf("decoding ignore list: %w", err)
	}
	return codes, nil
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// Stations returns a copy of the catalog in load order
func (c *Catalog) Stations() []models.Station {
	stations := make([]models.Station, len(c.entries))
	for i, e := range c.entries {
		stations[i] = e.station
	}
	return stations
}

// ByCode returns every station with the given CRS code, in catalog order.
func (c *Catalog) ByCode(code string) []models.Station {
	code = models.CanonicalCode(code)
	var matches []models.Station
	for _, e := range c.entries {
		if e.station.Code == code {
			matches = append(matches, e.station)
		}
	}
	return matches
}

// NameForCode returns the name of the first station with the given CRS code.
func (c *Catalog) NameForCode(code string) (string, bool) {
	code = models.CanonicalCode(code)
	for _, e := range c.entries {
		if e.station.Code == code {
			return e.station.Name, true
		}
	}
	return "", false
}
