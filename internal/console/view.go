package console

import (
	"encoding/json"
	"sync"

	"damage-inspector/internal/upload"

	log "github.com/sirupsen/logrus"
)

// PageView pushes every change of a session's page to its SSE topic and
// queues alerts for the next page load.
type PageView struct {
	topic string
	hub   *Hub

	mu     sync.Mutex
	alerts []string
}

func NewPageView(topic string, hub *Hub) *PageView {
	return &PageView{
		topic: topic,
		hub:   hub,
	}
}

func (v *PageView) Render(page upload.Page) {
	v.publish("render", page)
}

// Alert queues a notice. It is shown once, on the next page load.
func (v *PageView) Alert(message string) {
	v.mu.Lock()
	v.alerts = append(v.alerts, message)
	v.mu.Unlock()

	v.publish("alert", map[string]string{"message": message})
}

func (v *PageView) Play() {
	v.publish("play", struct{}{})
}

// Alerts returns queued notices without clearing them
func (v *PageView) Alerts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.alerts...)
}

// TakeAlerts returns queued notices and clears them
func (v *PageView) TakeAlerts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	alerts := v.alerts
	v.alerts = nil
	return alerts
}

func (v *PageView) publish(eventType string, payload any) {
	if v.hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).WithField("event", eventType).Error("[Console] failed to encode event")
		return
	}
	v.hub.Publish(v.topic, Event{Type: eventType, Data: string(data)})
}
