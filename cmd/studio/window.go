package main

import (
	"apparel-studio/config"
	"apparel-studio/core"
	"apparel-studio/editor"
	"apparel-studio/export"
	"apparel-studio/shade"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
)

const prefKeyLastDir = "lastDir"

var viewLabels = []string{"Front", "Back", "Left Arm", "Right Arm"}

// studio is the desktop editor window around a single design session.
type studio struct {
	fyne.Window
	app      fyne.App
	cfg      *config.Config
	registry *editor.Registry
	pipeline *export.Pipeline

	session     *editor.Session
	unsubscribe func()

	canvas    *garmentCanvas
	views     *widget.RadioGroup
	grid      *widget.Check
	scale     *widget.Slider
	rotation  *widget.Slider
	opacity   *widget.Slider
	layerName *widget.Label
	quantity  *widget.Entry
	statusBar *widget.Label
	selection []fyne.Disableable
	syncing   bool
}

func newStudio(fyneApp fyne.App, cfg *config.Config, reg *editor.Registry, p *export.Pipeline) *studio {
	st := &studio{
		Window:   fyneApp.NewWindow("Apparel Studio"),
		app:      fyneApp,
		cfg:      cfg,
		registry: reg,
		pipeline: p,
		canvas:   newGarmentCanvas(cfg.Canvas.Width, cfg.Canvas.Height),
	}
	st.SetContent(container.NewBorder(nil, st.statusLine(), nil, st.sidePanel(), st.canvas))
	st.createMenus()
	st.Canvas().SetOnTypedKey(st.onKey)
	st.SetOnClosed(st.detach)
	st.bind(reg.Create())
	return st
}

// bind makes s the edited session and mirrors its state into the controls.
func (st *studio) bind(s *editor.Session) {
	st.detach()
	st.session = s
	st.canvas.setSession(s)
	st.unsubscribe = s.OnChange(func(snap editor.Snapshot) {
		st.sync(snap)
		st.canvas.redraw()
	})
	st.sync(s.Snapshot())
}

func (st *studio) detach() {
	if st.unsubscribe != nil {
		st.unsubscribe()
		st.unsubscribe = nil
	}
	if st.session != nil {
		_ = st.registry.Delete(st.session.ID())
		st.session = nil
	}
}

func (st *studio) sync(snap editor.Snapshot) {
	st.syncing = true
	defer func() { st.syncing = false }()

	st.views.SetSelected(viewLabels[viewIndex(snap.ActiveView)])
	st.grid.SetChecked(snap.GridVisible)

	selected, ok := selectedElement(snap)
	for _, w := range st.selection {
		if ok {
			w.Enable()
		} else {
			w.Disable()
		}
	}
	if !ok {
		st.layerName.SetText("No layer selected")
		return
	}
	st.layerName.SetText(selected.Name)
	st.scale.SetValue(selected.Transform.Scale)
	st.rotation.SetValue(selected.Transform.Rotation)
	st.opacity.SetValue(selected.Transform.Opacity)
}

func selectedElement(snap editor.Snapshot) (editor.Element, bool) {
	if snap.SelectedID == "" {
		return editor.Element{}, false
	}
	for _, e := range snap.Elements(snap.ActiveView) {
		if e.ID == snap.SelectedID {
			return e, true
		}
	}
	return editor.Element{}, false
}

func viewIndex(v core.View) int {
	for i, candidate := range core.Views {
		if candidate == v {
			return i
		}
	}
	return 0
}

func (st *studio) statusLine() fyne.CanvasObject {
	st.statusBar = widget.NewLabel("Ready")
	return st.statusBar
}

func (st *studio) updateStatus(text string) {
	st.statusBar.SetText(text)
}

func (st *studio) sidePanel() fyne.CanvasObject {
	st.views = widget.NewRadioGroup(viewLabels, func(label string) {
		if st.syncing || st.session == nil {
			return
		}
		for i, l := range viewLabels {
			if l == label {
				st.session.SetView(core.Views[i])
			}
		}
	})
	st.views.Horizontal = true
	st.views.Required = true

	st.grid = widget.NewCheck("Show grid", func(on bool) {
		if !st.syncing && st.session != nil {
			st.session.SetGridVisible(on)
		}
	})

	st.layerName = widget.NewLabel("No layer selected")
	st.scale = st.slider(0.1, editor.MaxScale, 0.01, func(v float64) { st.session.SetScale(v) })
	st.rotation = st.slider(0, 359, 1, func(v float64) { st.session.SetRotation(v) })
	st.opacity = st.slider(0, 1, 0.01, func(v float64) { st.session.SetOpacity(v) })
	reset := widget.NewButton("Reset", func() { st.session.ResetSelected() })
	remove := widget.NewButton("Remove", func() { st.session.RemoveSelected() })
	st.selection = []fyne.Disableable{st.scale, st.rotation, st.opacity, reset, remove}

	st.quantity = widget.NewEntry()
	st.quantity.SetText("1")

	return container.NewVBox(
		widget.NewLabelWithStyle("View", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		st.views,
		st.grid,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Colour", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		st.paletteGrid(),
		widget.NewButton("Custom colour...", st.onCustomColor),
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Layer", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewButton("Add image...", st.onUpload),
		st.layerName,
		widget.NewForm(
			widget.NewFormItem("Scale", st.scale),
			widget.NewFormItem("Rotation", st.rotation),
			widget.NewFormItem("Opacity", st.opacity),
		),
		container.NewGridWithColumns(2, reset, remove),
		widget.NewSeparator(),
		widget.NewForm(widget.NewFormItem("Quantity", st.quantity)),
		widget.NewButton("Download view...", st.onDownload),
		widget.NewButton("Export all views...", st.onExport),
	)
}

func (st *studio) slider(lo, hi, step float64, apply func(float64)) *widget.Slider {
	s := widget.NewSlider(lo, hi)
	s.Step = step
	s.OnChanged = func(v float64) {
		if !st.syncing && st.session != nil {
			apply(v)
		}
	}
	return s
}

func (st *studio) paletteGrid() fyne.CanvasObject {
	var swatches []fyne.CanvasObject
	for _, sw := range st.cfg.Canvas.Palette {
		c, err := shade.ParseHex(sw.Hex)
		if err != nil {
			continue
		}
		btn := widget.NewButton("", func() {
			st.session.SetColor(c)
			st.updateStatus("Colour: " + sw.Name)
		})
		btn.Importance = widget.LowImportance
		rect := fynecanvas.NewRectangle(c)
		rect.StrokeColor = color.Gray{Y: 0x99}
		rect.StrokeWidth = 1
		rect.SetMinSize(fyne.NewSize(28, 28))
		swatches = append(swatches, container.NewStack(rect, btn))
	}
	return container.NewGridWithColumns(6, swatches...)
}

func (st *studio) onCustomColor() {
	picker := dialog.NewColorPicker("Garment colour", "Pick a base colour", func(c color.Color) {
		st.session.SetColor(color.RGBAModel.Convert(c).(color.RGBA))
	}, st.Window)
	picker.Advanced = true
	picker.Show()
}

func (st *studio) onKey(ev *fyne.KeyEvent) {
	if st.session == nil {
		return
	}
	switch ev.Name {
	case fyne.KeyDelete, fyne.KeyBackspace:
		st.session.RemoveSelected()
	case fyne.KeyEscape:
		st.session.PointerLeave()
	}
}

func (st *studio) createMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Design", func() { st.bind(st.registry.Create()) }),
		fyne.NewMenuItem("Open Draft...", st.onOpenDraft),
		fyne.NewMenuItem("Save Draft As...", st.onSaveDraft),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Add Image...", st.onUpload),
		fyne.NewMenuItem("Download View...", st.onDownload),
		fyne.NewMenuItem("Export All Views...", st.onExport),
	)
	st.SetMainMenu(fyne.NewMainMenu(fileMenu))
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (st *studio) getLastDir() fyne.ListableURI {
	path := st.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

func (st *studio) saveLastDir(path string) {
	st.app.Preferences().SetString(prefKeyLastDir, filepath.Dir(path))
}

func (st *studio) onUpload() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		defer reader.Close()
		st.saveLastDir(reader.URI().Path())

		data, err := io.ReadAll(io.LimitReader(reader, st.cfg.MaxUploadBytes+1))
		if err != nil {
			dialog.ShowError(err, st.Window)
			return
		}
		if int64(len(data)) > st.cfg.MaxUploadBytes {
			dialog.ShowError(fmt.Errorf("%s is larger than %d bytes", reader.URI().Name(), st.cfg.MaxUploadBytes), st.Window)
			return
		}
		if _, err := st.session.AddUpload(data, reader.URI().Name()); err != nil {
			dialog.ShowError(err, st.Window)
			return
		}
		st.updateStatus("Added " + reader.URI().Name())
	}, st.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}))
	if loc := st.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (st *studio) onDownload() {
	d, err := st.pipeline.DownloadCurrentView(context.Background(), st.session)
	if err != nil {
		dialog.ShowError(err, st.Window)
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()
		if _, err := writer.Write(d.Data); err != nil {
			dialog.ShowError(err, st.Window)
			return
		}
		st.saveLastDir(writer.URI().Path())
		st.updateStatus("Saved " + writer.URI().Name())
	}, st.Window)
	fd.SetFileName(d.Filename)
	if loc := st.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (st *studio) order() export.Order {
	order := export.Order{Quantity: 1}
	if _, err := fmt.Sscan(strings.TrimSpace(st.quantity.Text), &order.Quantity); err != nil || order.Quantity < 1 {
		order.Quantity = 1
	}
	return order
}

func (st *studio) onExport() {
	fd := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		b, err := st.pipeline.ExportAll(context.Background(), st.session, st.order())
		if err != nil {
			dialog.ShowError(err, st.Window)
			return
		}
		if err := writeBundle(dir.Path(), b); err != nil {
			dialog.ShowError(err, st.Window)
			return
		}
		st.app.Preferences().SetString(prefKeyLastDir, dir.Path())
		st.updateStatus(fmt.Sprintf("Exported %d views, total %d", len(b.Views), b.Metadata.TotalPrice))
	}, st.Window)
	if loc := st.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// writeBundle stores one PNG per view plus the order metadata in dir.
func writeBundle(dir string, b *export.Bundle) error {
	for _, v := range b.Views {
		name := filepath.Join(dir, fmt.Sprintf("custom-garment-%s-design.png", v))
		if err := os.WriteFile(name, b.Images[v], 0o644); err != nil {
			return err
		}
	}
	meta, err := json.MarshalIndent(b.Metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "order.json"), meta, 0o644)
}

func (st *studio) onSaveDraft() {
	data, err := json.Marshal(st.session.Draft())
	if err != nil {
		dialog.ShowError(err, st.Window)
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()
		if _, err := writer.Write(data); err != nil {
			dialog.ShowError(err, st.Window)
			return
		}
		st.saveLastDir(writer.URI().Path())
		st.updateStatus("Draft saved")
	}, st.Window)
	fd.SetFileName("design.json")
	fd.Show()
}

func (st *studio) onOpenDraft() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		defer reader.Close()

		var d editor.DraftPayload
		if err := json.NewDecoder(reader).Decode(&d); err != nil {
			dialog.ShowError(fmt.Errorf("invalid draft: %w", err), st.Window)
			return
		}
		s, err := st.registry.Restore(d)
		if err != nil {
			dialog.ShowError(err, st.Window)
			return
		}
		st.bind(s)
		st.saveLastDir(reader.URI().Path())
		logrus.WithField("session_id", s.ID()).Info("Draft restored")
		st.updateStatus("Opened " + reader.URI().Name())
	}, st.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	if loc := st.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}
