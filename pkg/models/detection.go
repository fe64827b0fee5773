package models

// BoundingBox is an axis-aligned rectangle in source-image pixel coordinates
type BoundingBox struct {
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Area   float64 `json:"area"`
}

// Detection is one backend-reported damage finding
type Detection struct {
	Class      string       `json:"class"`
	Confidence float64      `json:"confidence"` // percent
	Severity   float64      `json:"severity"`   // 0-100
	BBox       *BoundingBox `json:"bbox"`
}

// DetectionResult is the image-mode response of the detection backend
type DetectionResult struct {
	ImageURL   string      `json:"image_url"`
	Detections []Detection `json:"detections"`
}

// VideoResult is the video-mode response; no per-detection data is modeled
type VideoResult struct {
	VideoURL string `json:"video_url"`
}
