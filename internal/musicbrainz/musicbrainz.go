// Package musicbrainz is a MusicBrainz Web API client with response caching
// and client-side rate limiting. It implements inference.MusicDatabase.
package musicbrainz

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"metaremote/internal/inference"
)

const (
	defaultAPIURL      = "https://musicbrainz.org/ws/2"
	defaultUserAgent   = "metaremote/1.0"
	defaultMinInterval = time.Second
	defaultCacheTTL    = time.Hour
)

// Client queries MusicBrainz. All network calls are serialized through one
// mutex so the configured minimum interval holds process-wide, even across
// concurrent inference requests. Successful responses are cached by query
// for the configured TTL; cache hits skip both the network and the wait.
type Client struct {
	httpClient  *http.Client
	apiURL      string
	userAgent   string
	minInterval time.Duration
	cacheTTL    time.Duration

	mu          sync.Mutex
	lastRequest time.Time
	cache       map[string]cacheEntry
}

type cacheEntry struct {
	body     []byte
	storedAt time.Time
}

// New creates a MusicBrainz client. Zero values select the defaults:
// 1 request per second, 1 hour cache TTL.
func New(userAgent string, minInterval, cacheTTL time.Duration) *Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if minInterval <= 0 {
		minInterval = defaultMinInterval
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		apiURL:      defaultAPIURL,
		userAgent:   userAgent,
		minInterval: minInterval,
		cacheTTL:    cacheTTL,
		cache:       make(map[string]cacheEntry),
	}
}

// SearchRecordings searches recordings by artist and title.
func (c *Client) SearchRecordings(ctx context.Context, artist, title string) ([]inference.Recording, error) {
	query := fmt.Sprintf("artist:%q AND recording:%q", artist, title)

	var resp recordingResponse
	if err := c.get(ctx, "recording", query, 5, &resp); err != nil {
		return nil, fmt.Errorf("musicbrainz recording search failed: %w", err)
	}

	results := make([]inference.Recording, 0, len(resp.Recordings))
	for _, rec := range resp.Recordings {
		out := inference.Recording{
			ID:    rec.ID,
			Title: rec.Title,
			Score: rec.Score,
		}
		for _, credit := range rec.ArtistCredit {
			out.Artists = append(out.Artists, inference.CreditedArtist{
				ID:   credit.Artist.ID,
				Name: creditName(credit),
			})
		}
		for _, rel := range rec.Releases {
			out.Releases = append(out.Releases, inference.ReleaseMatch{
				ID:    rel.ID,
				Title: rel.Title,
				Date:  rel.Date,
			})
		}
		results = append(results, out)
	}
	return results, nil
}

// SearchArtists searches artists by name, including their tags.
func (c *Client) SearchArtists(ctx context.Context, name string) ([]inference.ArtistMatch, error) {
	query := fmt.Sprintf("artist:%q", name)

	var resp artistResponse
	if err := c.get(ctx, "artist", query, 3, &resp); err != nil {
		return nil, fmt.Errorf("musicbrainz artist search failed: %w", err)
	}

	results := make([]inference.ArtistMatch, 0, len(resp.Artists))
	for _, a := range resp.Artists {
		out := inference.ArtistMatch{ID: a.ID, Name: a.Name}
		for _, tag := range a.Tags {
			out.Tags = append(out.Tags, inference.ArtistTag{Name: tag.Name, Count: tag.Count})
		}
		results = append(results, out)
	}
	return results, nil
}

// SearchReleases searches releases by artist and album title.
func (c *Client) SearchReleases(ctx context.Context, artist, album string) ([]inference.ReleaseMatch, error) {
	query := fmt.Sprintf("artist:%q AND release:%q", artist, album)

	var resp releaseResponse
	if err := c.get(ctx, "release", query, 5, &resp); err != nil {
		return nil, fmt.Errorf("musicbrainz release search failed: %w", err)
	}

	results := make([]inference.ReleaseMatch, 0, len(resp.Releases))
	for _, rel := range resp.Releases {
		results = append(results, inference.ReleaseMatch{
			ID:    rel.ID,
			Title: rel.Title,
			Date:  rel.Date,
		})
	}
	return results, nil
}

// SearchWorks searches works by title, extracting composer relationships.
func (c *Client) SearchWorks(ctx context.Context, title string) ([]inference.WorkMatch, error) {
	query := fmt.Sprintf("work:%q", title)

	var resp workResponse
	if err := c.get(ctx, "work", query, 5, &resp); err != nil {
		return nil, fmt.Errorf("musicbrainz work search failed: %w", err)
	}

	results := make([]inference.WorkMatch, 0, len(resp.Works))
	for _, w := range resp.Works {
		out := inference.WorkMatch{
			ID:             w.ID,
			Title:          w.Title,
			Disambiguation: w.Disambiguation,
		}
		for _, rel := range w.Relations {
			if rel.Type == "composer" && rel.Artist.Name != "" {
				out.Composers = append(out.Composers, inference.CreditedArtist{
					ID:   rel.Artist.ID,
					Name: rel.Artist.Name,
				})
			}
		}
		results = append(results, out)
	}
	return results, nil
}

// get performs one cached, rate-limited search against an entity endpoint
// and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, entity, query string, limit int, out any) error {
	key := cacheKey(entity, query)

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok && time.Since(entry.storedAt) < c.cacheTTL {
		c.mu.Unlock()
		return json.Unmarshal(entry.body, out)
	}

	// Rate limit: sleep out the remainder of the minimum interval while
	// holding the lock, so concurrent callers queue up behind it.
	if elapsed := time.Since(c.lastRequest); elapsed < c.minInterval {
		time.Sleep(c.minInterval - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	reqURL := fmt.Sprintf("%s/%s?query=%s&fmt=json&limit=%d", c.apiURL, entity, url.QueryEscape(query), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s search returned %d: %s", entity, resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", entity, err)
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{body: body, storedAt: time.Now()}
	c.mu.Unlock()

	return nil
}

func cacheKey(entity, query string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(entity+":"+query)))
}

// creditName prefers the credited name over the canonical artist name,
// matching how search results credit collaborations.
func creditName(credit artistCredit) string {
	if credit.Name != "" {
		return credit.Name
	}
	return credit.Artist.Name
}

// MusicBrainz API response types

type recordingResponse struct {
	Recordings []recording `json:"recordings"`
}

type recording struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Score        int            `json:"score"`
	ArtistCredit []artistCredit `json:"artist-credit"`
	Releases     []release      `json:"releases"`
}

type artistCredit struct {
	Name   string     `json:"name"`
	Artist artistInfo `json:"artist"`
}

type artistInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type release struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

type artistResponse struct {
	Artists []artistResult `json:"artists"`
}

type artistResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tags []tag  `json:"tags"`
}

type tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type releaseResponse struct {
	Releases []release `json:"releases"`
}

type workResponse struct {
	Works []work `json:"works"`
}

type work struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Disambiguation string     `json:"disambiguation"`
	Relations      []relation `json:"relations"`
}

type relation struct {
	Type   string     `json:"type"`
	Artist artistInfo `json:"artist"`
}
