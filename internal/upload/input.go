package upload

import "damage-inspector/pkg/models"

const (
	KeyEnter = "Enter"
	KeySpace = " "
)

// InputHandler turns drop-target and picker events into a single
// "file chosen" callback carrying the first file.
type InputHandler struct {
	picker    Picker
	setActive func(bool)
	onChosen  func(*models.SelectedFile)
}

func (h *InputHandler) DragOver() {
	h.setActive(true)
}

func (h *InputHandler) DragLeave() {
	h.setActive(false)
}

func (h *InputHandler) Drop(files []*models.SelectedFile) {
	h.setActive(false)
	h.choose(files)
}

// Click opens the picker after clearing its stored value
func (h *InputHandler) Click() {
	if h.picker == nil {
		return
	}
	h.picker.Reset()
	h.picker.Open()
}

// KeyDown opens the picker for Enter and Space
func (h *InputHandler) KeyDown(key string) {
	if h.picker == nil {
		return
	}
	if key == KeyEnter || key == KeySpace {
		h.picker.Open()
	}
}

func (h *InputHandler) PickerChange(files []*models.SelectedFile) {
	h.choose(files)
}

func (h *InputHandler) choose(files []*models.SelectedFile) {
	if len(files) == 0 || files[0] == nil {
		return
	}
	h.onChosen(files[0])
}
