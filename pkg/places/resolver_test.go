package places

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type placesStub struct {
	findPlace  string
	details    string
	textSearch string
	calls      atomic.Int32
	lastInput  atomic.Value
}

func (s *placesStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/findplacefromtext/json":
			s.lastInput.Store(r.URL.Query().Get("input"))
			_, _ = io.WriteString(w, s.findPlace)
		case "/details/json":
			_, _ = io.WriteString(w, s.details)
		case "/textsearch/json":
			_, _ = io.WriteString(w, s.textSearch)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestResolver(t *testing.T, stub *placesStub, cache PhotoCache) *Resolver {
	t.Helper()
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)
	return NewResolver(Config{APIKey: "test-key", BaseURL: srv.URL}, cache, zap.NewNop())
}

func TestResolver_UsesFindPlacePhoto(t *testing.T) {
	stub := &placesStub{
		findPlace: `{"status":"OK","candidates":[{"place_id":"p1","photos":[{"photo_reference":"ref-wawel"}]}]}`,
	}
	r := newTestResolver(t, stub, nil)

	got, err := r.GetPlacePhoto(context.Background(), "Wawel Castle", "Krakow, Poland")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/photo", u.Path)
	assert.Equal(t, "800", u.Query().Get("maxwidth"))
	assert.Equal(t, "ref-wawel", u.Query().Get("photoreference"))
	assert.Equal(t, "test-key", u.Query().Get("key"))
	assert.Equal(t, "Wawel Castle, Krakow, Poland", stub.lastInput.Load())
	assert.EqualValues(t, 1, stub.calls.Load())
}

func TestResolver_FallsBackToDetailsThenTextSearch(t *testing.T) {
	stub := &placesStub{
		findPlace:  `{"status":"OK","candidates":[{"place_id":"p1"}]}`,
		details:    `{"status":"OK","result":{}}`,
		textSearch: `{"status":"OK","results":[{"photos":[]},{"photos":[{"photo_reference":"ref-text"}]}]}`,
	}
	r := newTestResolver(t, stub, nil)

	got, err := r.GetPlacePhoto(context.Background(), "Cloth Hall", "Krakow")
	require.NoError(t, err)
	assert.Contains(t, got, "photoreference=ref-text")
	assert.EqualValues(t, 3, stub.calls.Load())
}

func TestResolver_DetailsPhoto(t *testing.T) {
	stub := &placesStub{
		findPlace: `{"status":"OK","candidates":[{"place_id":"p1"}]}`,
		details:   `{"status":"OK","result":{"photos":[{"photo_reference":"ref-details"}]}}`,
	}
	r := newTestResolver(t, stub, nil)

	got, err := r.GetPlacePhoto(context.Background(), "Cloth Hall", "Krakow")
	require.NoError(t, err)
	assert.Contains(t, got, "photoreference=ref-details")
}

func TestResolver_DefaultIconWhenNothingFound(t *testing.T) {
	stub := &placesStub{
		findPlace:  `{"status":"ZERO_RESULTS","candidates":[]}`,
		textSearch: `{"status":"ZERO_RESULTS","results":[]}`,
	}
	cache := NewMemoryPhotoCache(time.Hour, 10)
	defer cache.Close()
	r := newTestResolver(t, stub, cache)

	got, err := r.GetPlacePhoto(context.Background(), "Old castle ruins", "Poland")
	require.NoError(t, err)
	assert.Equal(t, iconBaseURL+"generic_business-71.png", got)

	_, ok, _ := cache.Get(context.Background(), cacheKey("Old castle ruins", "Poland"))
	assert.False(t, ok, "default icons are not cached")
}

func TestResolver_CachesResolvedPhotos(t *testing.T) {
	stub := &placesStub{
		findPlace: `{"status":"OK","candidates":[{"photos":[{"photo_reference":"ref"}]}]}`,
	}
	cache := NewMemoryPhotoCache(time.Hour, 10)
	defer cache.Close()
	r := newTestResolver(t, stub, cache)
	ctx := context.Background()

	first, err := r.GetPlacePhoto(ctx, "Main Square", "Krakow")
	require.NoError(t, err)
	second, err := r.GetPlacePhoto(ctx, "  main square ", "KRAKOW")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, stub.calls.Load())
}

func TestResolver_APIErrors(t *testing.T) {
	stub := &placesStub{findPlace: `{"status":"REQUEST_DENIED","error_message":"bad key"}`}
	r := newTestResolver(t, stub, nil)

	_, err := r.GetPlacePhoto(context.Background(), "Wawel", "Poland")
	assert.ErrorIs(t, err, ErrPlacesAPI)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	r = NewResolver(Config{APIKey: "k", BaseURL: srv.URL}, nil, zap.NewNop())
	_, err = r.GetPlacePhoto(context.Background(), "Wawel", "Poland")
	assert.ErrorIs(t, err, ErrPlacesAPI)
}

func TestResolver_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	r := NewResolver(Config{APIKey: "k", BaseURL: base, Timeout: time.Second}, nil, zap.NewNop())
	_, err := r.GetPlacePhoto(context.Background(), "Wawel", "Poland")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPlacesAPI)
}

func TestDefaultPhoto(t *testing.T) {
	cases := map[string]string{
		"Lunch at a local Restaurant": "restaurant-71.png",
		"Coffee at Cafe Camelot":      "cafe-71.png",
		"National Museum":             "museum-71.png",
		"St. Mary's Church":           "worship_general-71.png",
		"Planty Park walk":            "park-71.png",
		"Wawel Castle":                "generic_business-71.png",
		"Hotel Stary":                 "lodging-71.png",
		"Galeria shopping":            "shopping-71.png",
		"Something else entirely":     "generic_business-71.png",
	}
	for query, icon := range cases {
		assert.Equal(t, iconBaseURL+icon, DefaultPhoto(query), query)
	}
}
