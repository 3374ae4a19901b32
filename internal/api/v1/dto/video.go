package dto

// VideoSubmitDTO is used for incoming YouTube processing requests
type VideoSubmitDTO struct {
	YouTubeURL   string  `json:"youtube_url" validate:"required,url"`
	SummaryRatio float64 `json:"summary_ratio"`
}

// VideoSubmitResponseDTO acknowledges a queued processing task
type VideoSubmitResponseDTO struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// VideoStatusResponseDTO is a polled task status snapshot
type VideoStatusResponseDTO struct {
	TaskID   string  `json:"task_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}
