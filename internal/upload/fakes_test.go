package upload

import (
	"context"
	"sync"

	"damage-inspector/pkg/models"
)

type fakeView struct {
	mu      sync.Mutex
	renders []Page
	alerts  []string
	plays   int
}

func (v *fakeView) Render(page Page) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, page)
}

func (v *fakeView) Alert(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, message)
}

func (v *fakeView) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.plays++
}

func (v *fakeView) last() Page {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renders[len(v.renders)-1]
}

func (v *fakeView) alertCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.alerts)
}

type fakeBackend struct {
	mu         sync.Mutex
	imageCalls []*models.SelectedFile
	videoCalls []*models.SelectedFile
	image      func(ctx context.Context, file *models.SelectedFile) (*models.DetectionResult, error)
	video      func(ctx context.Context, file *models.SelectedFile) (*models.VideoResult, error)
}

func (b *fakeBackend) DetectImage(ctx context.Context, file *models.SelectedFile) (*models.DetectionResult, error) {
	b.mu.Lock()
	b.imageCalls = append(b.imageCalls, file)
	b.mu.Unlock()
	return b.image(ctx, file)
}

func (b *fakeBackend) DetectVideo(ctx context.Context, file *models.SelectedFile) (*models.VideoResult, error) {
	b.mu.Lock()
	b.videoCalls = append(b.videoCalls, file)
	b.mu.Unlock()
	return b.video(ctx, file)
}

type fakePicker struct {
	resets int
	opens  int
	calls  []string
}

func (p *fakePicker) Reset() {
	p.resets++
	p.calls = append(p.calls, "reset")
}

func (p *fakePicker) Open() {
	p.opens++
	p.calls = append(p.calls, "open")
}

func imageFile(name string) *models.SelectedFile {
	return &models.SelectedFile{Name: name, ContentType: "image/jpeg", Data: []byte("jpeg-bytes")}
}

func videoFile(name string) *models.SelectedFile {
	return &models.SelectedFile{Name: name, ContentType: "video/mp4", Data: []byte("mp4-bytes")}
}
