package panels

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"flow-mask/internal/app"
	"flow-mask/internal/export"
	"flow-mask/internal/scene"
)

// ExportPanel edits the crop settings and saves export variants.
type ExportPanel struct {
	session   *app.Session
	container fyne.CanvasObject

	optionSelect *widget.Select
	scaleSlider  *widget.Slider
	scaleLabel   *widget.Label
	dirEntry     *widget.Entry
	blurLabel    *widget.Label
	statusLabel  *widget.Label

	cancel []func()
}

// NewExportPanel creates the export panel.
func NewExportPanel(s *app.Session) *ExportPanel {
	ep := &ExportPanel{session: s}
	cfg := s.Exporter.Config()

	padding := newIntEntry(cfg.Padding, func(v int) { s.UpdateExport(export.Update{Padding: export.Int(v)}) })
	margin := newIntEntry(cfg.Margin, func(v int) { s.UpdateExport(export.Update{Margin: export.Int(v)}) })
	dims := newIntEntry(cfg.ResizeDimensions, func(v int) {
		s.UpdateExport(export.Update{ResizeDimensions: export.Int(v)})
	})
	resize := widget.NewCheck("Resize mask", func(on bool) {
		s.UpdateExport(export.Update{ResizeMask: export.Bool(on)})
	})
	resize.SetChecked(cfg.ResizeMask)
	keep := widget.NewCheck("Keep proportion", func(on bool) {
		s.UpdateExport(export.Update{ResizeKeepProportion: export.Bool(on)})
	})
	keep.SetChecked(cfg.ResizeKeepProportion)
	bw := widget.NewCheck("Black and white", func(on bool) {
		s.UpdateExport(export.Update{BW: export.Bool(on)})
	})
	bw.SetChecked(cfg.BW)

	ep.blurLabel = widget.NewLabel("")
	blur := widget.NewSlider(0, 100)
	blur.SetValue(float64(cfg.BlurMask))
	blur.OnChanged = func(v float64) {
		c := s.UpdateExport(export.Update{BlurMask: export.Int(int(v))})
		ep.setBlurLabel(c.BlurMask)
	}
	ep.setBlurLabel(cfg.BlurMask)

	labels := make([]string, 0, len(export.Options()))
	for _, o := range export.Options() {
		labels = append(labels, o.Label())
	}
	ep.optionSelect = widget.NewSelect(labels, nil)
	ep.optionSelect.SetSelected(export.SaveCroppedMask.Label())

	ep.scaleLabel = widget.NewLabel("")
	ep.scaleSlider = widget.NewSlider(1, export.MaxScale)
	ep.scaleSlider.Step = 1
	ep.scaleSlider.SetValue(float64(s.Saver.Scale()))
	ep.scaleSlider.OnChanged = func(v float64) { s.Saver.SetScale(int(v)) }
	ep.setScaleLabel(s.Saver.Scale())

	ep.dirEntry = widget.NewEntry()
	ep.dirEntry.SetText(s.Saver.Dir())
	ep.dirEntry.SetPlaceHolder("Output directory")
	ep.dirEntry.OnChanged = func(dir string) { s.Saver.SetDir(strings.TrimSpace(dir)) }

	ep.statusLabel = widget.NewLabel("")
	ep.statusLabel.Wrapping = fyne.TextWrapWord

	saveBtn := widget.NewButton("Save", ep.save)
	saveBtn.Importance = widget.HighImportance

	ep.container = container.NewVBox(
		widget.NewCard("Crop", "", container.NewVBox(
			widget.NewForm(
				widget.NewFormItem("Padding", padding),
				widget.NewFormItem("Margin", margin),
				widget.NewFormItem("Size", dims),
			),
			resize,
			keep,
			bw,
			ep.blurLabel,
			blur,
		)),
		widget.NewCard("Save", "", container.NewVBox(
			ep.optionSelect,
			ep.scaleLabel,
			ep.scaleSlider,
			ep.dirEntry,
			saveBtn,
			ep.statusLabel,
		)),
	)

	bus := s.Host.Bus()
	ep.cancel = append(ep.cancel,
		scene.Subscribe(bus, export.ScaleChanged, ep.setScaleLabel),
		scene.Subscribe(bus, export.SaveCompleted, ep.showResult),
	)
	return ep
}

// Container returns the panel container.
func (ep *ExportPanel) Container() fyne.CanvasObject {
	return ep.container
}

// Selected returns the save option picked in the panel.
func (ep *ExportPanel) Selected() export.SaveOption {
	o, err := export.ParseOption(ep.optionSelect.Selected)
	if err != nil {
		return export.SaveCroppedMask
	}
	return o
}

// Select picks the option the Save button writes.
func (ep *ExportPanel) Select(o export.SaveOption) {
	ep.optionSelect.SetSelected(o.Label())
}

// save writes the selected option. Results arrive through showResult.
func (ep *ExportPanel) save() {
	_, _ = ep.session.Save(ep.Selected())
}

// Close drops the panel's bus subscriptions.
func (ep *ExportPanel) Close() {
	for _, c := range ep.cancel {
		c()
	}
	ep.cancel = nil
}

func (ep *ExportPanel) showResult(r export.SaveResult) {
	switch {
	case errors.Is(r.Err, export.ErrPrecondition):
		ep.statusLabel.SetText(fmt.Sprintf("Nothing to save: %v", r.Err))
	case r.Err != nil:
		ep.statusLabel.SetText(fmt.Sprintf("Save failed: %v", r.Err))
	case len(r.Paths) == 1:
		ep.statusLabel.SetText("Saved " + filepath.Base(r.Paths[0]))
	default:
		ep.statusLabel.SetText(fmt.Sprintf("Saved %d files to %s", len(r.Paths), ep.session.Saver.Dir()))
	}
}

func (ep *ExportPanel) setScaleLabel(scale int) {
	ep.scaleLabel.SetText(fmt.Sprintf("Canvas scale: %dx", scale))
}

func (ep *ExportPanel) setBlurLabel(blur int) {
	ep.blurLabel.SetText(fmt.Sprintf("Blur: %d", blur))
}
