package station

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/trntxt/trntxt/internal/cache"
	"github.com/trntxt/trntxt/pkg/http/client"
)

var errNoS3Source = errors.New("no S3 source configured")

// SourceOpener opens station data from a local path, an HTTP(S) URL or an s3:// URI
type SourceOpener struct {
	HTTP client.Interface
	S3   *cache.S3StationSource
}

func (o *SourceOpener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch {
	case cache.IsS3URI(location):
		if o.S3 == nil {
			return nil, errNoS3Source
		}
		return o.S3.Open(ctx, location)

	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		if o.HTTP == nil {
			o.HTTP = client.New(client.Options{})
		}
		resp, err := o.HTTP.Get(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", location, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching %s: unexpected status %d", location, resp.StatusCode)
		}
		return io.NopCloser(bytes.NewReader(resp.Body)), nil

	default:
		return os.Open(location)
	}
}

// LoadCatalogFrom loads the station list at stationsSource, skipping codes
// listed at ignoreSource. An empty ignoreSource means nothing is ignored.
func LoadCatalogFrom(ctx context.Context, opener *SourceOpener, stationsSource, ignoreSource string) (*Catalog, error) {
	var ignore []string
	if ignoreSource != "" {
		r, err := opener.Open(ctx, ignoreSource)
		if err != nil {
			return nil, fmt.Errorf("opening ignore list: %w", err)
		}
		ignore, err = LoadIgnoreList(r)
		closeSource(r, ignoreSource)
		if err != nil {
			return nil, err
		}
	}

	r, err := opener.Open(ctx, stationsSource)
	if err != nil {
		return nil, fmt.Errorf("opening station list: %w", err)
	}
	defer closeSource(r, stationsSource)

	catalog, err := LoadCatalog(r, ignore)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("source", stationsSource).
		Int("station_count", catalog.Len()).
		Int("ignored_codes", len(ignore)).
		Msg("Station catalog ready")

	return catalog, nil
}

func closeSource(r io.Closer, location string) {
	if err := r.Close(); err != nil {
		log.Error().Err(err).Str("source", location).Msg("Error closing station source")
	}
}
