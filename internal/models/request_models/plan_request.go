package request_models

// PlanRequest is the body of plan create and update calls. Dates are YYYY-MM-DD.
type PlanRequest struct {
	Name              string `json:"name" binding:"required,min=1,max=100"`
	StartDate         string `json:"start_date" binding:"required"`
	EndDate           string `json:"end_date" binding:"required"`
	PeopleCount       int    `json:"people_count" binding:"required,min=1,max=99"`
	Note              string `json:"note" binding:"max=2500"`
	TravelPreferences string `json:"travel_preferences" binding:"max=2500"`
}

type PlaceRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=255"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Note      string `json:"note" binding:"max=2500"`
}

type ListPlansQuery struct {
	Sort   string `form:"sort"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
	Search string `form:"search"`
}
