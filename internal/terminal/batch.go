package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	log "github.com/sirupsen/logrus"

	"damage-inspector/internal/detection"
	"damage-inspector/internal/upload"
	"damage-inspector/pkg/models"
)

// Saver stores processed media locally
type Saver interface {
	Save(ctx context.Context, mediaURL, dir string) (string, int64, error)
	StreamZipArchive(ctx context.Context, writer io.Writer, mediaURLs []string) (int, error)
}

// Batch feeds files through an UploadClient one at a time, the way a user
// would drop a file and press the enabled button.
type Batch struct {
	client    *upload.UploadClient
	out       io.Writer
	saver     Saver
	saveDir   string
	archive   string
	create    func(name string) (io.WriteCloser, error)
	keepGoing bool
	results   []string
}

type BatchOption func(*Batch)

// WithSaveDir downloads every processed result into dir
func WithSaveDir(saver Saver, dir string) BatchOption {
	return func(b *Batch) {
		b.saver = saver
		b.saveDir = dir
	}
}

// WithArchive bundles every processed result into one ZIP file at path
func WithArchive(saver Saver, path string) BatchOption {
	return func(b *Batch) {
		b.saver = saver
		b.archive = path
	}
}

func WithKeepGoing(keepGoing bool) BatchOption {
	return func(b *Batch) {
		b.keepGoing = keepGoing
	}
}

func WithBatchOutput(w io.Writer) BatchOption {
	return func(b *Batch) {
		b.out = w
	}
}

func NewBatch(client *upload.UploadClient, opts ...BatchOption) *Batch {
	b := &Batch{
		client: client,
		out:    os.Stdout,
		create: func(name string) (io.WriteCloser, error) { return os.Create(name) },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run processes paths in order. Without keep-going the first failure stops
// the batch; with it, failures are counted and reported at the end.
func (b *Batch) Run(ctx context.Context, paths []string) error {
	failed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.runOne(ctx, path); err != nil {
			log.WithError(err).WithField("file", path).Error("[Batch] file failed")
			if !b.keepGoing {
				return err
			}
			failed++
		}
	}

	if b.archive != "" && len(b.results) > 0 {
		if err := b.writeArchive(ctx); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func (b *Batch) runOne(ctx context.Context, path string) error {
	file, err := LoadFile(path)
	if err != nil {
		return err
	}

	b.client.Input().Drop([]*models.SelectedFile{file})

	switch b.client.Mode() {
	case models.ModeImage:
		err = b.client.DetectImage(ctx)
	case models.ModeVideo:
		err = b.client.DetectVideo(ctx)
		if err == nil {
			b.client.MediaReady()
		}
	default:
		return fmt.Errorf("%w: %s", detection.ErrUnsupportedFileType, file.Name)
	}
	if err != nil {
		return err
	}

	page := b.client.Page()
	mediaURL := page.ResultImage.Source
	if page.ResultVideo.Visible {
		mediaURL = page.ResultVideo.Source
	}
	if mediaURL == "" {
		return errors.New("detection finished without a processed result")
	}
	b.results = append(b.results, mediaURL)

	if b.saveDir != "" {
		target, n, err := b.saver.Save(ctx, mediaURL, b.saveDir)
		if err != nil {
			return err
		}
		pterm.Success.WithWriter(b.out).Printfln("Saved %s (%d bytes)", target, n)
	}
	return nil
}

func (b *Batch) writeArchive(ctx context.Context) error {
	f, err := b.create(b.archive)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	added, err := b.saver.StreamZipArchive(ctx, f, b.results)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write archive: %w", closeErr)
	}
	if err != nil {
		return err
	}
	pterm.Success.WithWriter(b.out).Printfln("Archived %d results to %s", added, b.archive)
	return nil
}

// Results returns the processed media URLs collected so far
func (b *Batch) Results() []string {
	return append([]string(nil), b.results...)
}
