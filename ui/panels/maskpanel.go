package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"flow-mask/internal/app"
	"flow-mask/internal/brush"
	"flow-mask/internal/mask"
	"flow-mask/internal/scene"
	"flow-mask/pkg/colorutil"
)

const (
	targetMaskLabel   = "Mask"
	targetVectorLabel = "Vector"
	modePaintLabel    = "Paint"
	modeEraseLabel    = "Erase"
)

// MaskPanel lists the mask layers and holds the brush controls.
type MaskPanel struct {
	session   *app.Session
	container fyne.CanvasObject

	layers   []*mask.Layer
	selected string
	list     *widget.List

	nameEntry    *widget.Entry
	visibleCheck *widget.Check
	opacity      *widget.Slider
	colorSelect  *widget.Select

	targetRadio   *widget.RadioGroup
	modeRadio     *widget.RadioGroup
	sizeSlider    *widget.Slider
	sizeLabel     *widget.Label
	outlineSelect *widget.Select

	// syncing suppresses widget callbacks while the panel mirrors the manager.
	syncing bool
	cancel  []func()
}

// NewMaskPanel creates the mask panel and subscribes it to layer changes.
func NewMaskPanel(s *app.Session) *MaskPanel {
	mp := &MaskPanel{session: s}

	mp.list = widget.NewList(
		func() int { return len(mp.layers) },
		func() fyne.CanvasObject {
			swatch := fynecanvas.NewRectangle(colorutil.Transparent)
			swatch.SetMinSize(fyne.NewSize(14, 14))
			return container.NewHBox(swatch, widget.NewLabel("Mask"))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id >= len(mp.layers) {
				return
			}
			// Top of the stack is listed first.
			l := mp.layers[len(mp.layers)-1-id]
			row := obj.(*fyne.Container)
			swatch := row.Objects[0].(*fynecanvas.Rectangle)
			swatch.FillColor = l.Color
			swatch.Refresh()
			name := l.Name
			if !l.Visible {
				name += " (hidden)"
			}
			row.Objects[1].(*widget.Label).SetText(name)
		},
	)
	mp.list.OnSelected = func(id widget.ListItemID) {
		if mp.syncing || id >= len(mp.layers) {
			return
		}
		layerID := mp.layers[len(mp.layers)-1-id].ID
		s.Do(func() { s.Masks.SetActive(layerID) })
	}

	mp.nameEntry = widget.NewEntry()
	mp.nameEntry.OnSubmitted = func(name string) {
		s.Do(func() { s.Masks.Rename(mp.selected, name) })
	}
	mp.visibleCheck = widget.NewCheck("Visible", func(on bool) {
		if !mp.syncing {
			s.Do(func() { s.Masks.SetVisible(mp.selected, on) })
		}
	})
	mp.opacity = widget.NewSlider(0, 100)
	mp.opacity.OnChanged = func(v float64) {
		if !mp.syncing {
			s.Do(func() { s.Masks.SetOpacity(mp.selected, v/100) })
		}
	}
	mp.colorSelect = widget.NewSelect(paletteNames(), func(hex string) {
		if mp.syncing {
			return
		}
		c, err := colorutil.ParseHex(hex)
		if err != nil {
			return
		}
		s.Do(func() {
			s.Masks.Recolor(mp.selected, c)
			s.Masks.SetColor(c)
			s.Brush.SetColor(c)
		})
	})

	addBtn := widget.NewButton("Add", func() {
		var err error
		s.Do(func() { _, err = s.Masks.AddLayer("") })
		if err != nil {
			s.Host.Logger().Warn("cannot add mask", "err", err)
		}
	})
	removeBtn := widget.NewButton("Remove", func() {
		var err error
		s.Do(func() { err = s.Masks.RemoveLayer(mp.selected) })
		if err != nil {
			s.Host.Logger().Warn("cannot remove mask", "err", err)
		}
	})
	upBtn := widget.NewButton("Up", func() { s.Do(func() { s.Masks.Reorder(mp.selected, 1) }) })
	downBtn := widget.NewButton("Down", func() { s.Do(func() { s.Masks.Reorder(mp.selected, -1) }) })
	clearBtn := widget.NewButton("Clear", func() { s.Do(func() { s.Masks.Clear(mp.selected) }) })
	showAll := widget.NewButton("Show All", func() { s.Do(func() { s.Masks.SetAllVisible(true) }) })
	hideAll := widget.NewButton("Hide All", func() { s.Do(func() { s.Masks.SetAllVisible(false) }) })

	mp.targetRadio = widget.NewRadioGroup([]string{targetMaskLabel, targetVectorLabel}, func(v string) {
		if v == targetVectorLabel {
			s.SetTarget(app.TargetVector)
		} else {
			s.SetTarget(app.TargetMask)
		}
	})
	mp.targetRadio.Horizontal = true
	mp.targetRadio.SetSelected(targetMaskLabel)

	mp.modeRadio = widget.NewRadioGroup([]string{modePaintLabel, modeEraseLabel}, func(v string) {
		mode := brush.ModePaint
		if v == modeEraseLabel {
			mode = brush.ModeErase
		}
		s.Do(func() { s.Brush.SetMode(mode) })
	})
	mp.modeRadio.Horizontal = true
	mp.modeRadio.SetSelected(modePaintLabel)

	bc := s.Brush.Config()
	mp.sizeLabel = widget.NewLabel("")
	mp.sizeSlider = widget.NewSlider(bc.MinSize, bc.MaxSize)
	mp.sizeSlider.SetValue(bc.Size)
	mp.sizeSlider.OnChanged = func(v float64) {
		if !mp.syncing {
			s.Do(func() { s.Brush.SetSize(v) })
		}
	}
	mp.setSizeLabel(bc.Size)

	mp.outlineSelect = widget.NewSelect([]string{
		brush.OutlineSolid.String(), brush.OutlineDashed.String(),
		brush.OutlineDotted.String(), brush.OutlineNone.String(),
	}, func(v string) {
		s.Do(func() {
			s.Brush.SetOutline(brush.ParseOutline(v), s.Brush.Config().Secondary)
			s.Host.RequestRender()
		})
	})
	mp.outlineSelect.SetSelected(bc.Outline.String())

	mp.container = container.NewBorder(
		container.NewVBox(
			container.NewGridWithColumns(3, addBtn, removeBtn, clearBtn),
			container.NewGridWithColumns(4, upBtn, downBtn, showAll, hideAll),
		),
		container.NewVBox(
			widget.NewCard("Selected Mask", "", container.NewVBox(
				mp.nameEntry,
				mp.visibleCheck,
				widget.NewLabel("Display opacity:"),
				mp.opacity,
				widget.NewForm(widget.NewFormItem("Color", mp.colorSelect)),
			)),
			widget.NewCard("Brush", "", container.NewVBox(
				widget.NewForm(
					widget.NewFormItem("Target", mp.targetRadio),
					widget.NewFormItem("Mode", mp.modeRadio),
					widget.NewFormItem("Outline", mp.outlineSelect),
				),
				mp.sizeLabel,
				mp.sizeSlider,
			)),
		),
		nil, nil,
		mp.list,
	)

	bus := s.Host.Bus()
	mp.cancel = append(mp.cancel,
		scene.Subscribe(bus, mask.LayersChanged, func(mask.LayersEvent) { mp.Sync() }),
		scene.Subscribe(bus, brush.BrushSizeChanged, func(size float64) {
			mp.syncing = true
			mp.sizeSlider.SetValue(size)
			mp.syncing = false
			mp.setSizeLabel(size)
		}),
	)
	mp.Sync()
	return mp
}

// Container returns the panel container.
func (mp *MaskPanel) Container() fyne.CanvasObject {
	return mp.container
}

// Sync mirrors the manager's layers and active layer into the widgets.
func (mp *MaskPanel) Sync() {
	mp.syncing = true
	defer func() { mp.syncing = false }()

	mp.layers = mp.session.Masks.Layers()
	mp.list.Refresh()

	active, ok := mp.session.Masks.Active()
	if !ok {
		mp.selected = ""
		mp.list.UnselectAll()
		mp.nameEntry.SetText("")
		return
	}
	mp.selected = active.ID
	for i, l := range mp.layers {
		if l.ID == active.ID {
			mp.list.Select(len(mp.layers) - 1 - i)
			break
		}
	}
	mp.nameEntry.SetText(active.Name)
	mp.visibleCheck.SetChecked(active.Visible)
	mp.opacity.SetValue(active.Opacity * 100)
	mp.colorSelect.SetSelected(colorutil.Hex(active.Color))
}

// Close drops the panel's bus subscriptions.
func (mp *MaskPanel) Close() {
	for _, c := range mp.cancel {
		c()
	}
	mp.cancel = nil
}

func (mp *MaskPanel) setSizeLabel(size float64) {
	mp.sizeLabel.SetText(fmt.Sprintf("Brush size: %.0f px", size))
}

func paletteNames() []string {
	names := make([]string, 0, len(colorutil.Palette))
	for _, c := range colorutil.Palette {
		names = append(names, colorutil.Hex(c))
	}
	return names
}
