// Package panels provides UI panels for the application.
package panels

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"flow-mask/internal/app"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	container *container.AppTabs

	Masks  *MaskPanel
	Export *ExportPanel
}

// NewSidePanel creates a new side panel.
func NewSidePanel(s *app.Session) *SidePanel {
	sp := &SidePanel{
		Masks:  NewMaskPanel(s),
		Export: NewExportPanel(s),
	}
	sp.container = container.NewAppTabs(
		container.NewTabItem("Masks", sp.Masks.Container()),
		container.NewTabItem("Export", container.NewVScroll(sp.Export.Container())),
	)
	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// Close releases the panels' subscriptions.
func (sp *SidePanel) Close() {
	sp.Masks.Close()
	sp.Export.Close()
}
