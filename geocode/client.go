package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"fleetdesk/backend/configuration"
	"fleetdesk/backend/logging"
	"fleetdesk/backend/models"
)

var (
	ErrNoMatch      = errors.New("no match for address")
	ErrNoToken      = errors.New("geocoder token not configured")
	ErrUnauthorized = errors.New("geocoder rejected the token")
)

// Place is the best match for a forward geocoding query.
type Place struct {
	Coordinates models.Coordinates `json:"coordinates"`
	Name        string             `json:"placeName"`
}

// Client queries a Mapbox-compatible forward geocoding endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries uint64
	backoff    time.Duration
}

func New(opts configuration.GeocoderOptions) *Client {
	return &Client{
		baseURL:    strings.TrimRight(opts.URL, "/"),
		token:      opts.Token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxRetries: 2,
		backoff:    200 * time.Millisecond,
	}
}

type featureCollection struct {
	Features []struct {
		Center    []float64 `json:"center"`
		PlaceName string    `json:"place_name"`
	} `json:"features"`
}

// Forward resolves address to coordinates. token overrides the configured token when not empty.
// Server errors and rate limiting are retried with exponential backoff.
func (c *Client) Forward(ctx context.Context, token, address string) (Place, error) {
	if token == "" {
		token = c.token
	}
	if token == "" {
		return Place{}, ErrNoToken
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return Place{}, ErrNoMatch
	}

	endpoint := fmt.Sprintf("%s/%s.json?%s", c.baseURL, url.PathEscape(address), url.Values{
		"access_token": {token},
		"limit":        {"1"},
	}.Encode())

	var place Place
	op := func() error {
		p, err := c.fetch(ctx, endpoint)
		if err != nil {
			return err
		}
		place = p
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.backoff
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx))
	if err != nil {
		return Place{}, err
	}
	return place, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Place{}, backoff.Permanent(errors.Wrap(err, "create geocode request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Place{}, errors.Wrap(err, "geocode request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Place{}, backoff.Permanent(ErrUnauthorized)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return Place{}, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logging.FromContext(ctx).WithField("status", resp.StatusCode).Warnf("Geocoder error: %s", string(body))
		return Place{}, backoff.Permanent(fmt.Errorf("geocoder returned status %d", resp.StatusCode))
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return Place{}, backoff.Permanent(errors.Wrap(err, "decode geocode response"))
	}
	if len(fc.Features) == 0 || len(fc.Features[0].Center) < 2 {
		return Place{}, backoff.Permanent(ErrNoMatch)
	}

	f := fc.Features[0]
	coords := models.Coordinates{Longitude: f.Center[0], Latitude: f.Center[1]}
	if err := coords.Validate(); err != nil {
		return Place{}, backoff.Permanent(errors.Wrap(err, "geocoder returned invalid coordinates"))
	}
	return Place{Coordinates: coords, Name: f.PlaceName}, nil
}
