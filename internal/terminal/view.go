package terminal

import (
	"io"
	"os"
	"reflect"

	"damage-inspector/internal/upload"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"
	log "github.com/sirupsen/logrus"
)

type progressSpinner interface {
	Stop() error
	Success(...any)
	Fail(...any)
	UpdateText(string)
}

type spinnerFactory func(string) (progressSpinner, error)

var defaultSpinnerFactory spinnerFactory = func(text string) (progressSpinner, error) {
	spinner, err := pterm.DefaultSpinner.
		WithRemoveWhenDone(true).
		WithText(text).
		Start()
	if err != nil {
		return nil, err
	}
	return spinner, nil
}

// View prints an upload page to a terminal. It only prints what changed
// between two renders, so it can be handed every snapshot.
type View struct {
	out      io.Writer
	spinners spinnerFactory
	spinner  progressSpinner
	last     upload.Page
	alerts   []string
}

type ViewOption func(*View)

func WithOutput(w io.Writer) ViewOption {
	return func(v *View) {
		v.out = w
	}
}

func withSpinnerFactory(factory spinnerFactory) ViewOption {
	return func(v *View) {
		v.spinners = factory
	}
}

func NewView(opts ...ViewOption) *View {
	v := &View{
		out:      os.Stdout,
		spinners: defaultSpinnerFactory,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *View) Render(page upload.Page) {
	prev := v.last
	v.last = page

	v.renderStatus(prev.Status, page.Status)

	if page.Helper != prev.Helper && page.Helper != "" {
		pterm.Info.WithWriter(v.out).Println(page.Helper)
	}
	if page.ResultImage.Visible && page.ResultImage.Source != prev.ResultImage.Source {
		pterm.Success.WithWriter(v.out).Println("Processed image: " + page.ResultImage.Source)
	}
	if page.ResultVideo.Visible && page.ResultVideo.Source != prev.ResultVideo.Source {
		pterm.Success.WithWriter(v.out).Println("Processed video: " + page.ResultVideo.Source)
	}
	if len(page.Summary) > 0 && !reflect.DeepEqual(page.Summary, prev.Summary) {
		v.renderSummary(page.Summary)
	}
}

func (v *View) renderStatus(prev, next upload.Status) {
	switch {
	case next.Visible && v.spinner != nil && next.Text != prev.Text:
		v.spinner.UpdateText(next.Text)
	case next.Visible && v.spinner == nil:
		spinner, err := v.spinners(next.Text)
		if err != nil {
			log.WithError(err).Debug("[Terminal] spinner unavailable")
			pterm.Info.WithWriter(v.out).Println(next.Text)
			return
		}
		v.spinner = spinner
	case !next.Visible && v.spinner != nil:
		_ = v.spinner.Stop() //nolint:errcheck
		v.spinner = nil
	}
}

func (v *View) renderSummary(items []upload.SummaryItem) {
	for _, item := range items {
		if item.Notice != "" {
			pterm.Info.WithWriter(v.out).Println(item.Notice)
			continue
		}
		_, _ = io.WriteString(v.out, SummaryTable(item)+"\n")
	}
}

// Alert prints a warning and remembers it for the caller
func (v *View) Alert(message string) {
	v.alerts = append(v.alerts, message)
	pterm.Warning.WithWriter(v.out).Println(message)
}

// Play has no player to start in a terminal; it points the user at the video.
func (v *View) Play() {
	if src := v.last.ResultVideo.Source; src != "" {
		pterm.Info.WithWriter(v.out).Println("Open the processed video to play it: " + src)
	}
}

// Alerts returns the notices shown so far
func (v *View) Alerts() []string {
	return append([]string(nil), v.alerts...)
}

// SummaryTable lays out one detection block as a two-column table
func SummaryTable(item upload.SummaryItem) string {
	t := table.NewWriter()
	t.SetTitle(item.Title)
	for _, row := range item.Scores {
		t.AppendRow(table.Row{row.Label, row.Value})
	}
	if len(item.Scores) > 0 && len(item.BoundingBox) > 0 {
		t.AppendSeparator()
	}
	for _, row := range item.BoundingBox {
		t.AppendRow(table.Row{row.Label, row.Value})
	}
	return t.Render()
}
