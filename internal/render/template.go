package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pixil98/go-geoquest/internal/game"
)

// DefaultPopupTemplate describes an object in a map marker popup.
const DefaultPopupTemplate = `{{ .Name | default .ID }}` +
	`{{ if .Collectible }} (collectible){{ end }}` +
	`{{ if .Talkable }} (talks){{ end }}` +
	`{{ if gt .Distance 0.0 }}, {{ printf "%.0f" .Distance }} m away{{ end }}`

// templateFuncs provides utility functions for templates.
var templateFuncs = sprig.TxtFuncMap()

// PopupData is the data available to popup templates.
type PopupData struct {
	ID          string
	Kind        string
	Name        string
	Image       string
	Distance    float64
	Collectible bool
	Talkable    bool
	// Extra holds the object's other backend attributes, e.g. {{ .Extra.level }}.
	Extra       map[string]any
}

func newPopupData(o *game.Object, own *game.LatLng) PopupData {
	d := PopupData{
		ID:    o.ID.String(),
		Kind:  string(o.Kind),
		Name:  o.Name,
		Image: o.Image,
		Extra: o.Extras.Values(),
	}
	if own != nil {
		d.Distance = game.Distance(*own, o.LatLng())
	}
	if o.Item != nil {
		d.Collectible = o.Item.Collectible
	}
	if o.NPC != nil {
		d.Talkable = o.NPC.Talkable
	}
	return d
}

// ParseTemplate compiles a template with the template helper functions.
func ParseTemplate(tmplStr string) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return tmpl, nil
}

// ExpandTemplate executes tmpl with the provided data.
func ExpandTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}
