package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// SubmitResult is the processing service's acknowledgement of a new task.
type SubmitResult struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// TaskStatus is a point-in-time view of a processing task, polled by
// the client at a fixed interval.
type TaskStatus struct {
	TaskID   string  `json:"task_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// ProcessingClient talks to the external transcription/summarization
// service.
type ProcessingClient interface {
	SubmitYouTube(ctx context.Context, youtubeURL string, summaryRatio float64) (*SubmitResult, error)
	GetStatus(ctx context.Context, taskID string) (*TaskStatus, error)
}

type processingClient struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewProcessingClient creates an HTTP client for the processing service.
func NewProcessingClient(baseURL string, timeout time.Duration, logger zerolog.Logger) ProcessingClient {
	return &processingClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("service", "ProcessingClient").Logger(),
	}
}

type youtubeRequest struct {
	YouTubeURL    string  `json:"youtube_url"`
	SummaryRatio  float64 `json:"summary_ratio"`
	DownloadVideo bool    `json:"download_video"`
}

func (c *processingClient) SubmitYouTube(ctx context.Context, youtubeURL string, summaryRatio float64) (*SubmitResult, error) {
	jsonBody, err := json.Marshal(youtubeRequest{YouTubeURL: youtubeURL, SummaryRatio: summaryRatio})
	if err != nil {
		return nil, fmt.Errorf("marshaling youtube request: %w", err)
	}

	url := fmt.Sprintf("%s/api/youtube", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request to processing service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("error_body", string(bodyBytes)).
			Msg("Processing service rejected youtube submission")
		return nil, fmt.Errorf("processing service returned status %d", resp.StatusCode)
	}

	var result SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding submit response: %w", err)
	}
	return &result, nil
}

func (c *processingClient) GetStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	url := fmt.Sprintf("%s/api/youtube/status/%s", c.baseURL, taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request to processing service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("processing service returned status %d", resp.StatusCode)
	}

	var status TaskStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding status response: %w", err)
	}
	return &status, nil
}
