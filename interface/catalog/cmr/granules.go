package cmr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/oauth2"

	"github.com/airbusgeo/stac-ingester/service"
	"github.com/airbusgeo/stac-ingester/service/log"
	"github.com/airbusgeo/stac-ingester/stac"
)

// CMRQueryURL is the granule search endpoint of the NASA Common Metadata Repository
const CMRQueryURL = "https://cmr.earthdata.nasa.gov/search/granules.json"

// Client retrieves the granules from the CMR. It implements stac.GranuleCatalog
type Client struct {
	// URL of the granule search endpoint (default: CMRQueryURL)
	URL string
	// Token is an optional Earthdata Login bearer token
	Token      string
	HTTPClient *http.Client
}

type entry struct {
	ID        string     `json:"id"`
	TimeStart string     `json:"time_start"`
	TimeEnd   string     `json:"time_end"`
	Polygons  [][]string `json:"polygons"`
	Boxes     []string   `json:"boxes"`
	Links     []struct {
		Href  string `json:"href"`
		Title string `json:"title"`
		Rel   string `json:"rel"`
	} `json:"links"`
}

// Granule implements stac.GranuleCatalog
func (c *Client) Granule(ctx context.Context, id string) (*stac.Granule, error) {
	baseURL := c.URL
	if baseURL == "" {
		baseURL = CMRQueryURL
	}
	query := neturl.Values{"concept_id": {id}, "page_size": {"1"}}
	url := baseURL + "?" + query.Encode()
	log.Logger(ctx).Sugar().Debugf("CMR.Granule: %s", url)

	body, err := service.HTTPGetWithAuth(ctx, c.client(ctx), url, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("CMR.Granule: %w", err)
	}

	var resp struct {
		Feed struct {
			Entry []json.RawMessage `json:"entry"`
		} `json:"feed"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("CMR.Granule.Unmarshal: %w", err)
	}
	if len(resp.Feed.Entry) == 0 {
		return nil, fmt.Errorf("CMR.Granule: granule %s not found", id)
	}
	return parseEntry(resp.Feed.Entry[0])
}

func (c *Client) client(ctx context.Context) *http.Client {
	if c.Token == "" {
		return c.HTTPClient
	}
	if c.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Token, TokenType: "Bearer"}))
}

func parseEntry(raw json.RawMessage) (*stac.Granule, error) {
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("parseEntry: %w", err)
	}
	var properties map[string]any
	if err := json.Unmarshal(raw, &properties); err != nil {
		return nil, fmt.Errorf("parseEntry: %w", err)
	}
	for _, k := range []string{"links", "polygons", "boxes"} {
		delete(properties, k)
	}

	g := stac.Granule{ID: e.ID, Properties: properties}
	var err error
	if g.TimeStart, err = dateparse.ParseIn(e.TimeStart, time.UTC); err != nil {
		return nil, fmt.Errorf("parseEntry.time_start: %w", err)
	}
	if e.TimeEnd != "" {
		end, err := dateparse.ParseIn(e.TimeEnd, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parseEntry.time_end: %w", err)
		}
		g.TimeEnd = &end
	}

	for _, p := range e.Polygons {
		polygon := make([][][2]float64, 0, len(p))
		for _, r := range p {
			ring, err := parsePoints(r)
			if err != nil {
				return nil, fmt.Errorf("parseEntry.polygons: %w", err)
			}
			polygon = append(polygon, ring)
		}
		g.Polygons = append(g.Polygons, polygon)
	}
	for _, b := range e.Boxes {
		box, err := parsePoints(b)
		if err != nil || len(box) != 2 {
			return nil, fmt.Errorf("parseEntry.boxes: invalid box %q", b)
		}
		s, w, n, east := box[0][0], box[0][1], box[1][0], box[1][1]
		g.Polygons = append(g.Polygons, [][][2]float64{{{s, w}, {s, east}, {n, east}, {n, w}, {s, w}}})
	}

	for _, l := range e.Links {
		g.Links = append(g.Links, stac.GranuleLink{Href: l.Href, Title: l.Title, Rel: l.Rel})
	}
	return &g, nil
}

// parsePoints parses a list of space-separated coordinates into pairs
func parsePoints(s string) ([][2]float64, error) {
	fields := strings.Fields(s)
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("odd number of coordinates in %q", s)
	}
	points := make([][2]float64, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		a, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		b, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, err
		}
		points = append(points, [2]float64{a, b})
	}
	return points, nil
}
