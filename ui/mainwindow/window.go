// Package mainwindow provides the main application window.
package mainwindow

import (
	"errors"
	"fmt"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/log"

	"flow-mask/internal/app"
	"flow-mask/internal/export"
	pimage "flow-mask/internal/image"
	"flow-mask/internal/scene"
	"flow-mask/internal/version"
	"flow-mask/ui/canvas"
	"flow-mask/ui/panels"
	"flow-mask/ui/prefs"
)

const appTitle = "Flow Mask"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app     fyne.App
	session *app.Session
	prefs   *prefs.Prefs
	log     *log.Logger

	canvas    *canvas.MaskCanvas
	sidePanel *panels.SidePanel
	split     *container.Split
	statusBar *widget.Label
	drawCheck *widget.Check

	cancel []func()
}

// New creates the main window around a session.
func New(fyneApp fyne.App, s *app.Session, p *prefs.Prefs, logger *log.Logger) *MainWindow {
	mw := &MainWindow{
		Window:  fyneApp.NewWindow(appTitle),
		app:     fyneApp,
		session: s,
		prefs:   p,
		log:     logger.WithPrefix("window"),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()
	mw.SetOnClosed(mw.onClosed)
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.New(mw.session)
	mw.sidePanel = panels.NewSidePanel(mw.session)
	if o, err := export.ParseOption(mw.prefs.String(prefs.KeySaveOption)); err == nil {
		mw.sidePanel.Export.Select(o)
	}
	mw.statusBar = widget.NewLabel("Open an image to start masking")

	canvasArea := container.NewBorder(mw.createToolbar(), nil, nil, nil, mw.canvas)

	mw.split = container.NewHSplit(mw.sidePanel.Container(), canvasArea)
	mw.split.SetOffset(mw.prefs.FloatWithFallback(prefs.KeySplitOffset, 0.25))

	mw.SetContent(container.NewBorder(nil, container.NewPadded(mw.statusBar), nil, nil, mw.split))
	mw.Resize(fyne.NewSize(
		float32(mw.prefs.FloatWithFallback(prefs.KeyWindowW, 1200)),
		float32(mw.prefs.FloatWithFallback(prefs.KeyWindowH, 800)),
	))
}

// createToolbar creates the toolbar with history, zoom and drawing controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	mw.drawCheck = widget.NewCheck("Draw (D)", func(on bool) {
		// SetChecked from DrawingModeChanged lands here with the mode already set.
		if on == mw.session.Host.DrawingMode() {
			return
		}
		mw.edit(func() { mw.session.Host.SetDrawingMode(on) })
	})

	return container.NewHBox(
		widget.NewButton("Open", mw.onOpenImage),
		widget.NewSeparator(),
		widget.NewButton("Undo", mw.onUndo),
		widget.NewButton("Redo", mw.onRedo),
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		widget.NewButton("-", func() { mw.edit(mw.session.Host.ZoomOut) }),
		widget.NewButton("+", func() { mw.edit(mw.session.Host.ZoomIn) }),
		widget.NewButton("Fit", func() { mw.edit(mw.session.Host.ResetView) }),
		widget.NewSeparator(),
		mw.drawCheck,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	quit := fyne.NewMenuItem("Quit", mw.app.Quit)
	quit.IsQuit = true
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItem("Watch Render Folder...", mw.onWatchFolder),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save", mw.onSave),
		fyne.NewMenuItem("Choose Output Folder...", mw.onChooseOutput),
		fyne.NewMenuItemSeparator(),
		quit,
	)

	var exportItems []*fyne.MenuItem
	for _, o := range export.Options() {
		exportItems = append(exportItems, fyne.NewMenuItem(o.Label(), func() { mw.save(o) }))
	}
	exportMenu := fyne.NewMenu("Export", exportItems...)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.onUndo),
		fyne.NewMenuItem("Redo", mw.onRedo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Add Mask", func() {
			var err error
			mw.edit(func() { _, err = mw.session.Masks.AddLayer("") })
			if err != nil {
				mw.updateStatus(err.Error())
			}
		}),
		fyne.NewMenuItem("Clear Active Mask", func() {
			mw.edit(func() {
				if l, ok := mw.session.Masks.Active(); ok {
					mw.session.Masks.Clear(l.ID)
				}
			})
		}),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", func() { mw.edit(mw.session.Host.ZoomIn) }),
		fyne.NewMenuItem("Zoom Out", func() { mw.edit(mw.session.Host.ZoomOut) }),
		fyne.NewMenuItem("Fit to Window", func() { mw.edit(mw.session.Host.ResetView) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Show All Masks", func() { mw.edit(func() { mw.session.Masks.SetAllVisible(true) }) }),
		fyne.NewMenuItem("Hide All Masks", func() { mw.edit(func() { mw.session.Masks.SetAllVisible(false) }) }),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, exportMenu, helpMenu))
}

// setupShortcuts makes Ctrl+S and Ctrl+O work outside the canvas. Undo and
// redo stay canvas-scoped and arrive through the host's key routing.
func (mw *MainWindow) setupShortcuts() {
	c := mw.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { mw.onSave() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { mw.onOpenImage() })
}

func (mw *MainWindow) setupEventHandlers() {
	bus := mw.session.Host.Bus()
	mw.cancel = append(mw.cancel,
		scene.Subscribe(bus, scene.ImageLoaded, func(ev scene.ImageEvent) {
			// Loads hold the edit lock and SetTitle waits for the main thread.
			go mw.SetTitle(appTitle + " - " + filepath.Base(ev.Source))
			mw.updateStatus(fmt.Sprintf("Loaded %s (%dx%d)", filepath.Base(ev.Source), ev.Width, ev.Height))
			mw.session.Host.SetDrawingMode(true)
		}),
		scene.Subscribe(bus, scene.DrawingModeChanged, func(on bool) {
			mw.drawCheck.SetChecked(on)
		}),
		scene.Subscribe(bus, export.SaveCompleted, func(r export.SaveResult) {
			switch {
			case errors.Is(r.Err, export.ErrPrecondition):
				mw.updateStatus(fmt.Sprintf("%s: %v", r.Option.Label(), r.Err))
			case r.Err != nil:
				mw.updateStatus(fmt.Sprintf("%s failed: %v", r.Option.Label(), r.Err))
			default:
				mw.updateStatus(fmt.Sprintf("%s: saved %d file(s)", r.Option.Label(), len(r.Paths)))
			}
		}),
	)
}

// edit runs fn under the session's edit lock.
func (mw *MainWindow) edit(fn func()) {
	mw.session.Do(fn)
}

func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// OpenImage loads path as the base image and remembers it.
func (mw *MainWindow) OpenImage(path string) error {
	if err := mw.session.LoadImage(path); err != nil {
		return err
	}
	mw.prefs.SetString(prefs.KeyLastImage, path)
	mw.saveLastDir(path)
	return nil
}

// RestoreLastImage reopens the image from the previous run, if it still loads.
func (mw *MainWindow) RestoreLastImage() {
	path := mw.prefs.String(prefs.KeyLastImage)
	if path == "" {
		return
	}
	if err := mw.session.LoadImage(path); err != nil {
		mw.log.Warn("cannot restore last image", "path", path, "err", err)
	}
}

func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		if err := mw.OpenImage(reader.URI().Path()); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(pimage.Extensions))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onWatchFolder() {
	fd := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		if err := mw.session.WatchRenders(dir.Path()); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Watching " + dir.Path())
	}, mw.Window)
	fd.Show()
}

func (mw *MainWindow) onChooseOutput() {
	fd := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		mw.session.Saver.SetDir(dir.Path())
		mw.updateStatus("Saving to " + dir.Path())
	}, mw.Window)
	fd.Show()
}

func (mw *MainWindow) onSave() {
	o := mw.sidePanel.Export.Selected()
	mw.prefs.SetString(prefs.KeySaveOption, string(o))
	mw.save(o)
}

func (mw *MainWindow) save(o export.SaveOption) {
	if _, err := mw.session.Save(o); err != nil && !errors.Is(err, export.ErrPrecondition) {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onUndo() {
	var ok bool
	mw.edit(func() { ok = mw.session.History.Undo() })
	if !ok {
		mw.updateStatus("Nothing to undo")
	}
}

func (mw *MainWindow) onRedo() {
	var ok bool
	mw.edit(func() { ok = mw.session.History.Redo() })
	if !ok {
		mw.updateStatus("Nothing to redo")
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		version.String()+"\n\nPaint masks over rendered images and export them\nas cropped, resized and blurred alpha assets.",
		mw.Window)
}

func (mw *MainWindow) onClosed() {
	for _, c := range mw.cancel {
		c()
	}
	mw.sidePanel.Close()

	size := mw.Canvas().Size()
	mw.prefs.SetFloat(prefs.KeyWindowW, float64(size.Width))
	mw.prefs.SetFloat(prefs.KeyWindowH, float64(size.Height))
	mw.prefs.SetFloat(prefs.KeySplitOffset, mw.split.Offset)
	if err := mw.prefs.Save(); err != nil {
		mw.log.Warn("cannot save preferences", "path", mw.prefs.Path(), "err", err)
	}
}
