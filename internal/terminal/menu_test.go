package terminal

import (
	"bytes"
	"context"
	"testing"

	"damage-inspector/internal/upload"
	"damage-inspector/pkg/models"

	"github.com/charmbracelet/huh"
	"go.viam.com/test"
)

func optionValues(options []huh.Option[string]) []string {
	values := make([]string, 0, len(options))
	for _, o := range options {
		values = append(values, o.Value)
	}
	return values
}

func TestMenuOffersOnlyEnabledActions(t *testing.T) {
	picker := NewFilePicker(".")
	picker.prompt = func(string) (string, error) { return writeFile(t, "clip.mp4", "mp4"), nil }
	backend := &fakeBackend{
		video: func(context.Context, *models.SelectedFile) (*models.VideoResult, error) {
			return &models.VideoResult{VideoURL: "http://backend/v.mp4"}, nil
		},
	}
	view := NewView(WithOutput(&bytes.Buffer{}), withSpinnerFactory((&spinnerRecorder{}).factory))
	client := upload.New(view, backend, upload.WithPicker(picker))
	picker.Bind(client.Input().PickerChange)

	var offered [][]string
	script := []string{actionChoose, actionVideo, actionQuit}
	menu := NewMenu(client)
	menu.choose = func(options []huh.Option[string]) (string, error) {
		offered = append(offered, optionValues(options))
		next := script[0]
		script = script[1:]
		return next, nil
	}

	err := menu.Run(testContext(t))

	test.That(t, err, test.ShouldBeNil)
	test.That(t, offered, test.ShouldResemble, [][]string{
		{actionChoose, actionQuit},
		{actionChoose, actionVideo, actionQuit},
		{actionChoose, actionVideo, actionQuit},
	})
	test.That(t, client.Page().ResultVideo.Source, test.ShouldEqual, "http://backend/v.mp4")
}

func TestMenuAbortQuits(t *testing.T) {
	client, _ := newBatchClient(&fakeBackend{})
	menu := NewMenu(client)
	menu.choose = func([]huh.Option[string]) (string, error) { return "", huh.ErrUserAborted }

	test.That(t, menu.Run(testContext(t)), test.ShouldBeNil)
}

func TestPickerIgnoresSamePathUntilReset(t *testing.T) {
	path := writeFile(t, "a.jpg", "jpeg")
	var delivered int
	picker := NewFilePicker(".")
	picker.prompt = func(string) (string, error) { return path, nil }
	picker.Bind(func(files []*models.SelectedFile) { delivered += len(files) })

	picker.Open()
	picker.Open()
	test.That(t, delivered, test.ShouldEqual, 1)

	picker.Reset()
	picker.Open()
	test.That(t, delivered, test.ShouldEqual, 2)
}
