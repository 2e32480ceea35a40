package statshandler

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
} // @name HealthResponse
