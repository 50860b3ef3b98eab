package render

import (
	"log/slog"
	"sync"

	"github.com/pixil98/go-geoquest/internal/game"
)

// LogMap is a headless MapSurface that logs what it would draw. Centering
// moves a viewport of fixed span and reports it through OnMove, the way a
// map widget reports the end of a pan.
type LogMap struct {
	span float64

	mu       sync.Mutex
	viewport game.Bounds
	onMove   func(game.Bounds)
}

func NewLogMap(initial game.LatLng, span float64) *LogMap {
	return &LogMap{
		span:     span,
		viewport: game.BoundsAround(initial, span),
	}
}

// OnMove sets the function called when the viewport moves.
func (m *LogMap) OnMove(f func(game.Bounds)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMove = f
}

func (m *LogMap) AddMarker(mk Marker) MarkerHandle {
	slog.Info("map marker added", "id", mk.ID, "position", mk.Position, "popup", mk.Popup)
	return &logMarker{id: mk.ID}
}

func (m *LogMap) ShowSelf(ll game.LatLng, accuracy float64) {
	slog.Info("own position", "position", ll, "accuracy", accuracy)
}

func (m *LogMap) Center(ll game.LatLng) {
	m.mu.Lock()
	m.viewport = game.BoundsAround(ll, m.span)
	b, f := m.viewport, m.onMove
	m.mu.Unlock()

	if f != nil {
		f(b)
	}
}

func (m *LogMap) Viewport() game.Bounds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewport
}

type logMarker struct {
	id game.ID
}

func (l *logMarker) Update(mk Marker) {
	slog.Debug("map marker updated", "id", l.id, "position", mk.Position, "popup", mk.Popup)
}

func (l *logMarker) Remove() {
	slog.Info("map marker removed", "id", l.id)
}

// LogAR is a headless ARSurface.
type LogAR struct{}

func (LogAR) SetStream(url string) {
	slog.Info("camera stream", "url", url)
}

func (LogAR) AddElement(e Element) ElementHandle {
	slog.Info("ar element added", "id", e.ID, "name", e.Name, "hidden", e.Style.Hidden, "transform", e.Style.Transform())
	return logElement{id: e.ID}
}

type logElement struct {
	id game.ID
}

func (l logElement) Update(e Element) {
	slog.Debug("ar element updated", "id", l.id, "hidden", e.Style.Hidden, "transform", e.Style.Transform())
}

func (l logElement) Remove() {
	slog.Info("ar element removed", "id", l.id)
}

// LogPanel is a headless PanelSurface.
type LogPanel struct{}

func (LogPanel) SetHeader(text string) {
	slog.Info("player panel", "text", text)
}

func (LogPanel) AddItem(it PanelItem) PanelItemHandle {
	slog.Info("inventory item added", "id", it.ID, "text", it.Text)
	return logItem{id: it.ID}
}

type logItem struct {
	id game.ID
}

func (l logItem) Update(it PanelItem) {
	slog.Debug("inventory item updated", "id", l.id, "text", it.Text)
}

func (l logItem) Remove() {
	slog.Info("inventory item removed", "id", l.id)
}
