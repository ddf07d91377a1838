package web

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/umlpreview/pkg/preview"
)

// Hub is the preview.Presenter of the web preview. It keeps the latest view
// and notifies connected pages.
type Hub struct {
	mu      sync.RWMutex
	view    preview.View
	streams *StreamManager
}

var _ preview.Presenter = (*Hub)(nil)

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{streams: NewStreamManager(logger)}
}

// Show implements preview.Presenter.
func (h *Hub) Show(v preview.View) error {
	h.mu.Lock()
	h.view = v
	h.mu.Unlock()

	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.streams.Broadcast(string(payload))
	return nil
}

// View returns the latest view.
func (h *Hub) View() preview.View {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.view
}

// Streams exposes the SSE fan-out.
func (h *Hub) Streams() *StreamManager {
	return h.streams
}
