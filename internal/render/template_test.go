package render

import (
	"testing"

	"github.com/pixil98/go-geoquest/internal/game"
	"github.com/pixil98/go-testutil"
)

func TestExpandTemplate(t *testing.T) {
	tests := map[string]struct {
		tmpl   string
		data   any
		exp    string
		expErr string
	}{
		"default popup for an item": {
			tmpl: DefaultPopupTemplate,
			data: PopupData{ID: "1", Name: "lamp", Collectible: true},
			exp:  "lamp (collectible)",
		},
		"default popup falls back to the id": {
			tmpl: DefaultPopupTemplate,
			data: PopupData{ID: "7", Talkable: true, Distance: 12.4},
			exp:  "7 (talks), 12 m away",
		},
		"sprig functions": {
			tmpl: `{{ .Name | upper }}`,
			data: PopupData{Name: "lamp"},
			exp:  "LAMP",
		},
		"extra attributes": {
			tmpl: `{{ .Name }}{{ with .Extra.level }} (level {{ . }}){{ end }}`,
			data: PopupData{Name: "troll", Extra: map[string]any{"level": 3.0}},
			exp:  "troll (level 3)",
		},
		"missing field": {
			tmpl:   `{{ .Nope }}`,
			data:   PopupData{},
			expErr: "executing template",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tmpl, err := ParseTemplate(tt.tmpl)
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}

			got, err := ExpandTemplate(tmpl, tt.data)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "output", got, tt.exp)
		})
	}
}

func TestParseTemplate_Invalid(t *testing.T) {
	_, err := ParseTemplate(`{{ .Name `)
	testutil.AssertErrorContains(t, err, "parsing template")
}

func TestNewPopupData(t *testing.T) {
	own := game.LatLng{}
	o := &game.Object{
		ID:        "3",
		Kind:      game.KindNPC,
		Name:      "hermit",
		NPC:       &game.NPCData{Talkable: true},
		Longitude: 0.001,
		Extras:    game.Extras{"mood": []byte(`"grumpy"`)},
	}

	d := newPopupData(o, &own)

	testutil.AssertEqual(t, "talkable", d.Talkable, true)
	testutil.AssertEqual(t, "extra", d.Extra, map[string]any{"mood": "grumpy"})
	testutil.AssertEqual(t, "kind", d.Kind, "gameobject_npc")
	if !near(d.Distance, 111.19) {
		t.Errorf("distance = %f, expected about 111.19", d.Distance)
	}

	d = newPopupData(o, nil)
	testutil.AssertEqual(t, "no distance without a fix", d.Distance, 0.0)
}
