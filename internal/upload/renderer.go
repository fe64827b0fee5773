package upload

import (
	"fmt"
	"strconv"

	"damage-inspector/pkg/models"
)

const (
	noticeNoDamage       = "No damage detected."
	noticeVideoProcessed = "Video processed — open the processed video to inspect detections."
)

func (c *UploadClient) renderImageResultLocked(result *models.DetectionResult) {
	c.page.ResultImage = Media{Visible: true, Source: result.ImageURL}
	c.page.Summary = Summarize(result.Detections)
}

func (c *UploadClient) renderVideoResultLocked(result *models.VideoResult) {
	c.page.ResultVideo = Media{Visible: true, Source: result.VideoURL, Autoplay: true}
	c.page.Summary = []SummaryItem{{Notice: noticeVideoProcessed}}
}

// Summarize builds one block per detection in the order received, or a
// single notice when there are none.
func Summarize(detections []models.Detection) []SummaryItem {
	if len(detections) == 0 {
		return []SummaryItem{{Notice: noticeNoDamage}}
	}

	items := make([]SummaryItem, 0, len(detections))
	for _, det := range detections {
		box := models.BoundingBox{}
		if det.BBox != nil {
			box = *det.BBox
		}
		items = append(items, SummaryItem{
			Title: "Damage Type: " + det.Class,
			Scores: []SummaryRow{
				{Label: "Confidence:", Value: formatNumber(det.Confidence) + "%"},
				{Label: "Severity Score:", Value: formatNumber(det.Severity) + " / 100"},
			},
			BoundingBox: []SummaryRow{
				{Label: "Coordinates:", Value: fmt.Sprintf("(%s, %s) → (%s, %s)",
					formatNumber(box.X1), formatNumber(box.Y1), formatNumber(box.X2), formatNumber(box.Y2))},
				{Label: "Size:", Value: fmt.Sprintf("%s × %s px", formatNumber(box.Width), formatNumber(box.Height))},
				{Label: "Area:", Value: formatNumber(box.Area) + " px²"},
			},
		})
	}
	return items
}

// formatNumber prints the shortest decimal form, so 92 stays "92" and 92.5
// stays "92.5".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
