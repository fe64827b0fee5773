package terminal

import (
	"github.com/charmbracelet/huh"
	log "github.com/sirupsen/logrus"

	"damage-inspector/pkg/models"
)

// FilePicker is a terminal stand-in for the hidden file input behind the
// drop target. Choosing the same path twice without a Reset fires nothing.
type FilePicker struct {
	dir      string
	selected string
	prompt   func(dir string) (string, error)
	deliver  func([]*models.SelectedFile)
}

func NewFilePicker(dir string) *FilePicker {
	return &FilePicker{
		dir:    dir,
		prompt: promptForFile,
	}
}

// Bind sets where chosen files go, usually an InputHandler's PickerChange
func (p *FilePicker) Bind(deliver func([]*models.SelectedFile)) {
	p.deliver = deliver
}

func (p *FilePicker) Reset() {
	p.selected = ""
}

func (p *FilePicker) Open() {
	path, err := p.prompt(p.dir)
	if err != nil {
		log.WithError(err).Debug("[Picker] file picker closed")
		return
	}
	if path == "" || path == p.selected {
		return
	}
	p.selected = path

	file, err := LoadFile(path)
	if err != nil {
		log.WithError(err).Warn("[Picker] could not load chosen file")
		return
	}
	if p.deliver != nil {
		p.deliver([]*models.SelectedFile{file})
	}
}

func promptForFile(dir string) (string, error) {
	var path string
	err := huh.NewForm(huh.NewGroup(
		huh.NewFilePicker().
			Title("Choose an image or video").
			CurrentDirectory(dir).
			Picking(true).
			Value(&path),
	)).Run()
	return path, err
}
