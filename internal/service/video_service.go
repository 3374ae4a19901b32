package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ErrUsageLimitExceeded is returned when a submission would exceed the
// user's monthly quota.
var ErrUsageLimitExceeded = errors.New("usage_limit_exceeded")

// ErrUsageNotRecorded is returned when the job was submitted but the
// usage increment failed. The action must not pass as unmetered.
var ErrUsageNotRecorded = errors.New("usage_not_recorded")

// ErrTaskNotFound is returned when the processing service has no such task.
var ErrTaskNotFound = errors.New("task_not_found")

// VideoService gates video submissions behind the usage accountant.
type VideoService interface {
	Submit(ctx context.Context, userID, youtubeURL string, summaryRatio float64) (*SubmitResult, error)
	Status(ctx context.Context, taskID string) (*TaskStatus, error)
}

type videoService struct {
	usageSvc   UsageService
	processing ProcessingClient
	logger     zerolog.Logger
}

// NewVideoService creates a new VideoService with a scoped logger.
func NewVideoService(usageSvc UsageService, processing ProcessingClient, logger zerolog.Logger) VideoService {
	return &videoService{
		usageSvc:   usageSvc,
		processing: processing,
		logger:     logger.With().Str("service", "VideoService").Logger(),
	}
}

// Submit checks the quota against a freshly fetched usage view, hands
// the job to the processing service, then records the consumption.
func (s *videoService) Submit(ctx context.Context, userID, youtubeURL string, summaryRatio float64) (*SubmitResult, error) {
	info, err := s.usageSvc.GetUsage(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.usageSvc.CheckLimit(info) {
		return nil, ErrUsageLimitExceeded
	}

	result, err := s.processing.SubmitYouTube(ctx, youtubeURL, summaryRatio)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to submit video for processing")
		return nil, err
	}

	if !s.usageSvc.IncrementUsage(ctx, userID) {
		// The job is already running; surface the failure instead of
		// letting the action pass unmetered.
		s.logger.Error().Str("user_id", userID).Str("task_id", result.TaskID).Msg("Submitted video but failed to record usage")
		return nil, ErrUsageNotRecorded
	}
	return result, nil
}

func (s *videoService) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	status, err := s.processing.GetStatus(ctx, taskID)
	if err != nil {
		s.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to fetch task status")
		return nil, err
	}
	if status == nil {
		return nil, ErrTaskNotFound
	}
	return status, nil
}
