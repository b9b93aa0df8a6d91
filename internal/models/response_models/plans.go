package response_models

type PlaceResponse struct {
	ID        string `json:"id"`
	PlanID    string `json:"plan_id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type PlanResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	StartDate         string          `json:"start_date,omitempty"`
	EndDate           string          `json:"end_date,omitempty"`
	PeopleCount       int             `json:"people_count"`
	Note              string          `json:"note,omitempty"`
	TravelPreferences string          `json:"travel_preferences,omitempty"`
	Status            string          `json:"status"`
	PlacesCount       int             `json:"places_count"`
	Places            []PlaceResponse `json:"places,omitempty"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}

type PlanListResponse struct {
	Plans  []PlanResponse `json:"plans"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type TravelPreferenceResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
