package upload

import (
	"context"

	"damage-inspector/pkg/models"
)

// Backend runs detections for the client
type Backend interface {
	DetectImage(ctx context.Context, file *models.SelectedFile) (*models.DetectionResult, error)
	DetectVideo(ctx context.Context, file *models.SelectedFile) (*models.VideoResult, error)
}
