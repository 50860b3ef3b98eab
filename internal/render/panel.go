package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pixil98/go-geoquest/internal/game"
)

// PanelItem is an inventory line in the player panel.
type PanelItem struct {
	ID   game.ID
	Text string
}

type PanelItemHandle interface {
	Update(it PanelItem)
	Remove()
}

// PanelSurface shows the player's details.
type PanelSurface interface {
	SetHeader(text string)
	AddItem(it PanelItem) PanelItemHandle
}

// Panel shows who is logged in, which world they are in and what they carry.
type Panel struct {
	surface PanelSurface
	store   Store
	width   int

	mu     sync.Mutex
	worlds map[game.ID]string
	header string
	items  *Reconciler[PanelItemHandle]
}

type PanelOpt func(*Panel)

func WithWidth(width int) PanelOpt {
	return func(p *Panel) {
		p.width = width
	}
}

func NewPanel(surface PanelSurface, store Store, opts ...PanelOpt) *Panel {
	p := &Panel{
		surface: surface,
		store:   store,
		width:   DefaultWidth,
		worlds:  map[game.ID]string{},
	}
	for _, opt := range opts {
		opt(p)
	}

	p.items = NewReconciler[PanelItemHandle](panelRenderer{p}, WithVisibility[PanelItemHandle](func(*game.Object) bool { return true }))
	return p
}

// SetWorlds provides the names shown for world ids.
func (p *Panel) SetWorlds(worlds []game.World) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range worlds {
		p.worlds[w.ID] = w.Name
	}
}

func (p *Panel) OnObjectsChanged() {
	p.mu.Lock()
	defer p.mu.Unlock()

	objs := p.store.Objects()
	self, ok := objs[p.store.PlayerID()]
	if !ok {
		p.setHeader("Not logged in.")
		p.items.Reconcile(nil)
		return
	}

	p.setHeader(p.describe(self))

	inventory := map[game.ID]*game.Object{}
	if self.Player != nil {
		for _, id := range self.Player.Inventory {
			if o, ok := objs[id]; ok {
				inventory[id] = o
				continue
			}
			inventory[id] = &game.Object{ID: id, Kind: game.KindItem}
		}
	}
	p.items.Reconcile(inventory)
}

func (p *Panel) describe(self *game.Object) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", DisplayName(self.Name))

	world := "none"
	if self.World != "" {
		world = self.World.String()
		if name, ok := p.worlds[self.World]; ok {
			world = name
		}
	}
	fmt.Fprintf(&sb, "World: %s\n", world)

	n := 0
	if self.Player != nil {
		n = len(self.Player.Inventory)
	}
	fmt.Fprintf(&sb, "Carrying %d item(s).", n)
	return Wrap(sb.String(), p.width)
}

func (p *Panel) setHeader(text string) {
	if text == p.header {
		return
	}
	p.header = text
	p.surface.SetHeader(text)
}

func (p *Panel) item(o *game.Object) PanelItem {
	text := o.ID.String()
	if o.Name != "" {
		text = DisplayName(o.Name)
	}
	return PanelItem{ID: o.ID, Text: Wrap(text, p.width)}
}

// panelRenderer is only used with Panel.mu held.
type panelRenderer struct {
	p *Panel
}

func (r panelRenderer) Create(o *game.Object) PanelItemHandle {
	return r.p.surface.AddItem(r.p.item(o))
}

func (r panelRenderer) Update(h PanelItemHandle, o *game.Object) {
	h.Update(r.p.item(o))
}

func (r panelRenderer) Remove(h PanelItemHandle) {
	h.Remove()
}
