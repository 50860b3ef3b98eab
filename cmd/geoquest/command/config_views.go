package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-geoquest/internal/game"
	"github.com/pixil98/go-geoquest/internal/render"
	"github.com/pixil98/go-geoquest/internal/view"
)

const defaultMapSpan = 0.005

type ViewMode int

const (
	ViewModeMap ViewMode = iota
	ViewModeAR
)

func (vm *ViewMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "map":
		*vm = ViewModeMap
	case "ar":
		*vm = ViewModeAR
	default:
		return fmt.Errorf("unknown view mode: %s", text)
	}
	return nil
}

// ViewsConfig picks the view that drives the fetched area. The map and the AR
// view both set bounds, so only one of them runs.
type ViewsConfig struct {
	Mode          ViewMode    `json:"mode"`
	InitialCenter game.LatLng `json:"initial_center"`
	MapSpan       float64     `json:"map_span"`
	ARRadius      float64     `json:"ar_radius"`
	PopupTemplate string      `json:"popup_template"`
	IconPath      string      `json:"icon_path"`
	PanelWidth    int         `json:"panel_width"`
}

func (c *ViewsConfig) validate() error {
	el := errors.NewErrorList()

	if c.MapSpan < 0 {
		el.Add(fmt.Errorf("map_span must not be negative"))
	}
	if c.ARRadius < 0 {
		el.Add(fmt.Errorf("ar_radius must not be negative"))
	}
	if c.PanelWidth < 0 {
		el.Add(fmt.Errorf("panel_width must not be negative"))
	}
	if c.PopupTemplate != "" {
		_, err := render.ParseTemplate(c.PopupTemplate)
		el.Add(err)
	}
	if c.InitialCenter.Lat < -90 || c.InitialCenter.Lat > 90 || c.InitialCenter.Lng < -180 || c.InitialCenter.Lng > 180 {
		el.Add(fmt.Errorf("initial_center is out of range"))
	}

	return el.Err()
}

// views holds what buildViews registered.
type views struct {
	panel  *render.Panel
	camera bool
}

func (c *ViewsConfig) buildViews(store render.Store, sensors render.Sensors, registry *view.Registry) (*views, error) {
	v := &views{}

	var panelOpts []render.PanelOpt
	if c.PanelWidth > 0 {
		panelOpts = append(panelOpts, render.WithWidth(c.PanelWidth))
	}
	v.panel = render.NewPanel(render.LogPanel{}, store, panelOpts...)
	registry.Register(v.panel)

	switch c.Mode {
	case ViewModeAR:
		var opts []render.CamViewOpt
		if c.ARRadius > 0 {
			opts = append(opts, render.WithARRadius(c.ARRadius))
		}
		if c.IconPath != "" {
			opts = append(opts, render.WithARIconPath(c.IconPath))
		}
		registry.Register(render.NewCamView(render.LogAR{}, store, sensors, opts...))
		v.camera = true

	default:
		var opts []render.MapViewOpt
		if c.PopupTemplate != "" {
			tmpl, err := render.ParseTemplate(c.PopupTemplate)
			if err != nil {
				return nil, fmt.Errorf("parsing popup_template: %w", err)
			}
			opts = append(opts, render.WithPopupTemplate(tmpl))
		}
		if c.IconPath != "" {
			opts = append(opts, render.WithIconPath(c.IconPath))
		}

		span := c.MapSpan
		if span == 0 {
			span = defaultMapSpan
		}
		surface := render.NewLogMap(c.InitialCenter, span)
		mv, err := render.NewMapView(surface, store, sensors, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating map view: %w", err)
		}
		surface.OnMove(mv.OnViewportChanged)
		registry.Register(mv)
		mv.SyncViewport()
	}

	return v, nil
}
