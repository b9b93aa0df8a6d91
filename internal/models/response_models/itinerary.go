package response_models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// GeneratedItineraryContent is the document stored on a completed generation job.
type GeneratedItineraryContent struct {
	Version string           `json:"version"`
	Places  []ItineraryPlace `json:"places"`
}

type ItineraryPlace struct {
	Name string         `json:"name"`
	Days []ItineraryDay `json:"days"`
}

type ItineraryDay struct {
	Date                  string                 `json:"date"`
	Schedule              []ScheduleItem         `json:"schedule"`
	DiningRecommendations []DiningRecommendation `json:"dining_recommendations"`
}

type ScheduleItem struct {
	Time        string `json:"time"`
	Activity    string `json:"activity"`
	Address     string `json:"address"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

type DiningRecommendation struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

var ErrEmptyItinerary = errors.New("itinerary has no places")

// ParseItineraryContent accepts the model output either as raw JSON text or as
// an already decoded value.
func ParseItineraryContent(raw any) (*GeneratedItineraryContent, error) {
	var data []byte
	switch v := raw.(type) {
	case *GeneratedItineraryContent:
		if v == nil || len(v.Places) == 0 {
			return nil, ErrEmptyItinerary
		}
		return v, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode itinerary: %w", err)
		}
		data = encoded
	}

	var content GeneratedItineraryContent
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("decode itinerary: %w", err)
	}
	if len(content.Places) == 0 {
		return nil, ErrEmptyItinerary
	}
	return &content, nil
}
