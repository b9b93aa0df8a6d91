package services

import (
	"fmt"
	"strings"

	"nicetravel/internal/models/db_models"
	"nicetravel/pkg/utils"
)

const itinerarySystemPrompt = `You are a travel planning assistant that builds detailed day-by-day itineraries with concrete times, addresses and descriptions for activities and dining.

Respond with a single valid JSON object of exactly this shape:
{
  "version": "string",
  "places": [
    {
      "name": "string",
      "days": [
        {
          "date": "YYYY-MM-DD",
          "schedule": [
            {"time": "HH:MM", "activity": "string", "address": "string", "description": "string"}
          ],
          "dining_recommendations": [
            {"type": "breakfast|lunch|dinner", "name": "string", "address": "string", "description": "string"}
          ]
        }
      ]
    }
  ]
}
Use "Travel" as the activity name for transfers and "Check-in" for hotel check-ins.`

var itineraryInstructions = []string{
	"Specific times for each activity",
	"Full addresses for all locations",
	"Detailed descriptions of activities",
	"Dining recommendations for each day (breakfast, lunch, dinner)",
	"Travel time between activities",
	"Opening hours and the best time to visit",
	"Local cultural experiences and hidden gems",
	"Activities and restaurants suitable for the size of the group",
}

// BuildItineraryPrompt renders the user prompt for a plan. Optional fields
// that are empty are left out entirely.
func BuildItineraryPrompt(plan *db_models.Plan) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Please create a detailed travel itinerary for %d people.\n", plan.PeopleCount)
	if plan.StartDate != nil && plan.EndDate != nil {
		fmt.Fprintf(&sb, "Trip dates: %s to %s\n", utils.FormatDate(*plan.StartDate), utils.FormatDate(*plan.EndDate))
	}
	if prefs := strings.TrimSpace(plan.TravelPreferences); prefs != "" {
		fmt.Fprintf(&sb, "Travel preferences: %s\n", prefs)
	}
	if note := strings.TrimSpace(plan.Note); note != "" {
		fmt.Fprintf(&sb, "Additional notes: %s\n", note)
	}

	sb.WriteString("\nPlaces to visit:\n")
	for _, place := range plan.Places {
		fmt.Fprintf(&sb, "- %s (%s to %s)\n", place.Name, utils.FormatDate(place.StartDate), utils.FormatDate(place.EndDate))
		if note := strings.TrimSpace(place.Note); note != "" {
			fmt.Fprintf(&sb, "  Note: %s\n", note)
		}
	}

	sb.WriteString("\nPlease provide a day-by-day itinerary for each place, including:\n")
	for _, line := range itineraryInstructions {
		fmt.Fprintf(&sb, "- %s\n", line)
	}
	sb.WriteString("\nThe response must be JSON matching the specified schema.")

	return sb.String()
}
