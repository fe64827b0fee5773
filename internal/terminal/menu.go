package terminal

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
	log "github.com/sirupsen/logrus"

	"damage-inspector/internal/upload"
)

const (
	actionChoose = "choose"
	actionImage  = "image"
	actionVideo  = "video"
	actionQuit   = "quit"
)

// Menu is the interactive loop: pick a file, run whichever detection the
// page currently enables, repeat until the user quits.
type Menu struct {
	client *upload.UploadClient
	choose func(options []huh.Option[string]) (string, error)
}

func NewMenu(client *upload.UploadClient) *Menu {
	return &Menu{
		client: client,
		choose: promptForAction,
	}
}

// Options lists the actions the page allows right now. Disabled detections
// are left out instead of being shown greyed.
func (m *Menu) Options() []huh.Option[string] {
	page := m.client.Page()

	options := []huh.Option[string]{huh.NewOption("Choose file", actionChoose)}
	if page.ImageAction {
		options = append(options, huh.NewOption("Run Image Detection", actionImage))
	}
	if page.VideoAction {
		options = append(options, huh.NewOption("Run Video Detection", actionVideo))
	}
	return append(options, huh.NewOption("Quit", actionQuit))
}

func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		choice, err := m.choose(m.Options())
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case actionChoose:
			m.client.Input().Click()
		case actionImage:
			if err := m.client.DetectImage(ctx); err != nil {
				log.WithError(err).Debug("[Menu] image detection did not complete")
			}
		case actionVideo:
			if err := m.client.DetectVideo(ctx); err != nil {
				log.WithError(err).Debug("[Menu] video detection did not complete")
				continue
			}
			m.client.MediaReady()
		case actionQuit:
			return nil
		}
	}
}

func promptForAction(options []huh.Option[string]) (string, error) {
	var choice string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Damage inspector").
			Options(options...).
			Value(&choice),
	)).Run()
	return choice, err
}
