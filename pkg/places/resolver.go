package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"
	photoMaxWidth  = "800"
)

var ErrPlacesAPI = errors.New("places api error")

type Config struct {
	APIKey    string
	BaseURL   string
	RateLimit float64
	Timeout   time.Duration
}

// Resolver finds a representative photo for a free-text place query using the
// Google Places web service.
type Resolver struct {
	HTTP    *http.Client
	APIKey  string
	BaseURL string
	Cache   PhotoCache
	Limiter *rate.Limiter
	logger  *zap.Logger
}

func NewResolver(cfg Config, cache PhotoCache, logger *zap.Logger) *Resolver {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}
	return &Resolver{
		HTTP:    &http.Client{Timeout: timeout},
		APIKey:  cfg.APIKey,
		BaseURL: baseURL,
		Cache:   cache,
		Limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With(zap.String("component", "places")),
	}
}

// GetPlacePhoto returns a photo URL for query near location. It falls back to
// a keyword-matched default icon when nothing is found and only fails on
// transport or API errors.
func (r *Resolver) GetPlacePhoto(ctx context.Context, query, location string) (string, error) {
	key := cacheKey(query, location)
	if r.Cache != nil {
		if cached, ok, err := r.Cache.Get(ctx, key); err != nil {
			r.logger.Warn("photo cache read failed", zap.String("query", query), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	photoURL, err := r.lookup(ctx, query, location)
	if err != nil {
		return "", err
	}
	if photoURL == "" {
		return DefaultPhoto(query), nil
	}

	if r.Cache != nil {
		if err := r.Cache.Set(ctx, key, photoURL); err != nil {
			r.logger.Warn("photo cache write failed", zap.String("query", query), zap.Error(err))
		}
	}
	return photoURL, nil
}

func (r *Resolver) lookup(ctx context.Context, query, location string) (string, error) {
	candidate, err := r.findPlace(ctx, query, location)
	if err != nil {
		return "", err
	}
	if candidate != nil {
		if len(candidate.Photos) > 0 {
			return r.photoURL(candidate.Photos[0].PhotoReference), nil
		}
		if candidate.PlaceID != "" {
			ref, err := r.placeDetailsPhoto(ctx, candidate.PlaceID)
			if err != nil {
				return "", err
			}
			if ref != "" {
				return r.photoURL(ref), nil
			}
		}
	}

	ref, err := r.textSearchPhoto(ctx, query, location)
	if err != nil {
		return "", err
	}
	if ref != "" {
		return r.photoURL(ref), nil
	}
	return "", nil
}

type photoRef struct {
	PhotoReference string `json:"photo_reference"`
}

type placeCandidate struct {
	PlaceID string     `json:"place_id"`
	Photos  []photoRef `json:"photos"`
}

func (r *Resolver) findPlace(ctx context.Context, query, location string) (*placeCandidate, error) {
	q := url.Values{}
	q.Set("input", joinNonEmpty(", ", query, location))
	q.Set("inputtype", "textquery")
	q.Set("fields", "place_id,photos")

	var payload struct {
		Status     string           `json:"status"`
		Candidates []placeCandidate `json:"candidates"`
	}
	found, err := r.get(ctx, "/findplacefromtext/json", q, &payload.Status, &payload)
	if err != nil || !found || len(payload.Candidates) == 0 {
		return nil, err
	}
	return &payload.Candidates[0], nil
}

func (r *Resolver) placeDetailsPhoto(ctx context.Context, placeID string) (string, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "photos")

	var payload struct {
		Status string `json:"status"`
		Result struct {
			Photos []photoRef `json:"photos"`
		} `json:"result"`
	}
	found, err := r.get(ctx, "/details/json", q, &payload.Status, &payload)
	if err != nil || !found || len(payload.Result.Photos) == 0 {
		return "", err
	}
	return payload.Result.Photos[0].PhotoReference, nil
}

func (r *Resolver) textSearchPhoto(ctx context.Context, query, location string) (string, error) {
	q := url.Values{}
	q.Set("query", joinNonEmpty(" ", query, location))
	q.Set("type", "photo")

	var payload struct {
		Status  string `json:"status"`
		Results []struct {
			Photos []photoRef `json:"photos"`
		} `json:"results"`
	}
	found, err := r.get(ctx, "/textsearch/json", q, &payload.Status, &payload)
	if err != nil || !found {
		return "", err
	}
	for _, res := range payload.Results {
		if len(res.Photos) > 0 && res.Photos[0].PhotoReference != "" {
			return res.Photos[0].PhotoReference, nil
		}
	}
	return "", nil
}

// get issues a GET against path and decodes into out. It reports found=false
// for ZERO_RESULTS and NOT_FOUND statuses.
func (r *Resolver) get(ctx context.Context, path string, q url.Values, status *string, out any) (bool, error) {
	if err := r.Limiter.Wait(ctx); err != nil {
		return false, err
	}

	q.Set("key", r.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return false, err
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("places http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return false, fmt.Errorf("%w: bad status %s on %s", ErrPlacesAPI, resp.Status, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("places decode: %w", err)
	}

	switch *status {
	case "OK":
		return true, nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return false, nil
	default:
		return false, fmt.Errorf("%w: status %s on %s", ErrPlacesAPI, *status, path)
	}
}

func (r *Resolver) photoURL(ref string) string {
	q := url.Values{}
	q.Set("maxwidth", photoMaxWidth)
	q.Set("photoreference", ref)
	q.Set("key", r.APIKey)
	return r.BaseURL + "/photo?" + q.Encode()
}

func cacheKey(query, location string) string {
	return strings.ToLower(strings.TrimSpace(query)) + "|" + strings.ToLower(strings.TrimSpace(location))
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
