package upload

import "damage-inspector/pkg/models"

// Preview is a local preview of the selected file
type Preview struct {
	Visible bool   `json:"visible"`
	Source  string `json:"source"`
}

// Media is a processed result element
type Media struct {
	Visible  bool   `json:"visible"`
	Source   string `json:"source"`
	Autoplay bool   `json:"autoplay"`
}

// Status is the busy indicator row
type Status struct {
	Visible bool   `json:"visible"`
	Text    string `json:"text"`
}

// SummaryRow is one labelled value inside a summary block
type SummaryRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SummaryItem is one entry of the summary list. Notice-only items carry a
// single line; detection blocks carry a title and two row groups.
type SummaryItem struct {
	Notice      string       `json:"notice,omitempty"`
	Title       string       `json:"title,omitempty"`
	Scores      []SummaryRow `json:"scores,omitempty"`
	BoundingBox []SummaryRow `json:"bounding_box,omitempty"`
}

// Lines flattens the item into display lines
func (s SummaryItem) Lines() []string {
	if s.Notice != "" {
		return []string{s.Notice}
	}
	lines := []string{s.Title}
	for _, row := range s.Scores {
		lines = append(lines, row.Label+" "+row.Value)
	}
	for _, row := range s.BoundingBox {
		lines = append(lines, row.Label+" "+row.Value)
	}
	return lines
}

// Page is the complete view state of an UploadClient
type Page struct {
	Selection    uint64        `json:"selection"`
	FileName     string        `json:"file_name"`
	Mode         models.Mode   `json:"mode"`
	DropActive   bool          `json:"drop_active"`
	Helper       string        `json:"helper"`
	ImagePreview Preview       `json:"image_preview"`
	VideoPreview Preview       `json:"video_preview"`
	ResultImage  Media         `json:"result_image"`
	ResultVideo  Media         `json:"result_video"`
	ImageAction  bool          `json:"image_action_enabled"`
	VideoAction  bool          `json:"video_action_enabled"`
	Status       Status        `json:"status"`
	Summary      []SummaryItem `json:"summary"`
}

// ActionEnabled reports whether the action for mode can be clicked
func (p *Page) ActionEnabled(mode models.Mode) bool {
	switch mode {
	case models.ModeImage:
		return p.ImageAction
	case models.ModeVideo:
		return p.VideoAction
	default:
		return false
	}
}

func (p *Page) clone() Page {
	cp := *p
	cp.Summary = append([]SummaryItem(nil), p.Summary...)
	return cp
}

// View displays an UploadClient. Methods are called with the client's lock
// held and must not call back into the client.
type View interface {
	// Render replaces the displayed state with page.
	Render(page Page)
	// Alert shows a notice the user has to acknowledge.
	Alert(message string)
	// Play starts playback of the processed video.
	Play()
}

// Picker is the file chooser the drop target opens
type Picker interface {
	// Reset forgets the last chosen path so choosing it again fires a change.
	Reset()
	Open()
}
