package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"nicetravel/internal/models/response_models"
)

type EnrichmentPolicy string

const (
	// EnrichAbort fails the whole job on the first photo lookup error.
	EnrichAbort EnrichmentPolicy = "abort"
	// EnrichSkip leaves the failing item without a photo and records a warning.
	EnrichSkip EnrichmentPolicy = "skip"
)

type PhotoResolver interface {
	GetPlacePhoto(ctx context.Context, query, location string) (string, error)
}

var logisticsActivities = map[string]struct{}{
	"travel":   {},
	"check-in": {},
}

func isLogisticsActivity(activity string) bool {
	_, ok := logisticsActivities[strings.ToLower(strings.TrimSpace(activity))]
	return ok
}

type itineraryEnricher struct {
	photos PhotoResolver
	region string
	policy EnrichmentPolicy
	logger *zap.Logger
}

// enrich attaches image URLs in place and returns the warnings collected
// under EnrichSkip.
func (e *itineraryEnricher) enrich(ctx context.Context, content *response_models.GeneratedItineraryContent) ([]string, error) {
	var warnings []string

	resolve := func(query, location string, target *string) error {
		url, err := e.photos.GetPlacePhoto(ctx, query, location)
		if err == nil {
			*target = url
			return nil
		}
		if e.policy != EnrichSkip || ctx.Err() != nil {
			return fmt.Errorf("resolve photo for %q: %w", query, err)
		}
		e.logger.Warn("photo lookup failed, leaving item without image",
			zap.String("query", query),
			zap.String("location", location),
			zap.Error(err),
		)
		warnings = append(warnings, fmt.Sprintf("no photo for %q: %v", query, err))
		return nil
	}

	for pi := range content.Places {
		place := &content.Places[pi]
		location := e.location(place.Name)

		for di := range place.Days {
			day := &place.Days[di]
			for si := range day.Schedule {
				item := &day.Schedule[si]
				if isLogisticsActivity(item.Activity) {
					continue
				}
				if err := resolve(item.Activity, location, &item.ImageURL); err != nil {
					return nil, err
				}
			}
			for ri := range day.DiningRecommendations {
				rec := &day.DiningRecommendations[ri]
				if err := resolve(rec.Name, location, &rec.ImageURL); err != nil {
					return nil, err
				}
			}
		}
	}
	return warnings, nil
}

func (e *itineraryEnricher) location(placeName string) string {
	if e.region == "" {
		return placeName
	}
	return placeName + ", " + e.region
}
