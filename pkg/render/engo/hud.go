// pkg/render/engo/hud.go
package engo

import (
	"fmt"
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
)

const (
	hudMargin     = 10
	hudLineHeight = 18
)

// HUDStatus is what the heads-up display reports
type HUDStatus struct {
	Step        uint64
	Bodies      int
	Contacts    int
	Highlighted int
	Iterations  int
	Paused      bool
	Diverged    bool
	Debug       bool
}

// hudLines formats a status into display lines
func hudLines(status HUDStatus) []string {
	lines := []string{
		fmt.Sprintf("step %d", status.Step),
		fmt.Sprintf("bodies %d  contacts %d", status.Bodies, status.Contacts),
		fmt.Sprintf("in range %d", status.Highlighted),
		fmt.Sprintf("iterations %d", status.Iterations),
	}
	if status.Paused {
		lines = append(lines, "PAUSED")
	}
	if status.Diverged {
		lines = append(lines, "DIVERGED - press R to reset")
	}
	if status.Debug {
		lines = append(lines, "debug overlay on")
	}
	return lines
}

// HUDSystem draws simulation status as text in the top-left corner
type HUDSystem struct {
	renderSystem *common.RenderSystem
	font         *common.Font
	lines        []*sprite
	status       HUDStatus
}

// NewHUDSystem creates a HUD drawing with font. A nil font disables text.
func NewHUDSystem(rs *common.RenderSystem, font *common.Font) *HUDSystem {
	return &HUDSystem{renderSystem: rs, font: font}
}

// Priority makes the HUD update after the simulation system
func (hud *HUDSystem) Priority() int {
	return 1
}

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(basic ecs.BasicEntity) {}

// SetStatus sets the status shown on the next update
func (hud *HUDSystem) SetStatus(status HUDStatus) {
	hud.status = status
}

// Update redraws the HUD text
func (hud *HUDSystem) Update(dt float32) {
	if hud.font == nil {
		return
	}

	text := hudLines(hud.status)
	for len(hud.lines) < len(text) {
		s := newSprite(common.Text{Font: hud.font}, color.White, hudLayer)
		s.SpaceComponent.Position = engo.Point{
			X: hudMargin,
			Y: float32(hudMargin + hudLineHeight*len(hud.lines)),
		}
		hud.lines = append(hud.lines, s)
		hud.renderSystem.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
	}

	for i, s := range hud.lines {
		if i >= len(text) {
			s.RenderComponent.Hidden = true
			continue
		}
		s.RenderComponent.Hidden = false
		s.RenderComponent.Drawable = common.Text{Font: hud.font, Text: text[i]}
	}
}
