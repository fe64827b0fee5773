package detection

import "damage-inspector/pkg/models"

const (
	imageEndpoint = "/api/detect"
	videoEndpoint = "/api/video"

	imageField = "image"
	videoField = "video"
)

// Wire shapes use pointers so that missing fields can be told apart from zeros.

type imageDetectResponse struct {
	ImageURL   *string           `json:"image_url"`
	Detections []detectionRecord `json:"detections"`
}

type detectionRecord struct {
	Class      *string             `json:"class"`
	Confidence *float64            `json:"confidence"`
	Severity   *float64            `json:"severity"`
	BBox       *models.BoundingBox `json:"bbox"`
}

type videoDetectResponse struct {
	VideoURL *string `json:"video_url"`
}
