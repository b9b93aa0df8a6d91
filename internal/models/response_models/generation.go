package response_models

type GenerationStartResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	EstimatedTime int    `json:"estimated_time"`
}

type GenerationStatusResponse struct {
	Status                 string `json:"status"`
	Progress               int    `json:"progress"`
	EstimatedTimeRemaining int    `json:"estimated_time_remaining"`
}

type GeneratedPlanResponse struct {
	ID        string                     `json:"id"`
	Content   *GeneratedItineraryContent `json:"content"`
	Warnings  []string                   `json:"warnings,omitempty"`
	CreatedAt string                     `json:"created_at"`
	UpdatedAt string                     `json:"updated_at"`
}
