//go:build gui

package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"drumpad/pad"
	"drumpad/trigger"
)

const columns = 4

type padView struct {
	button *widget.Button
	slider *widget.Slider
	status *widget.Label
}

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	status  *widget.Label
	views   map[string]*padView // main thread only
	onReady func()
}

func NewApp(onReady func()) *App {
	return &App{onReady: onReady, views: make(map[string]*padView)}
}

func Run(a *App) error {
	a.fyneApp = app.NewWithID("io.drumpad.gui")
	a.fyneApp.Settings().SetTheme(&darkTheme{})

	if desk, ok := a.fyneApp.(desktop.App); ok {
		menu := fyne.NewMenu("drumpad",
			fyne.NewMenuItem("Quit", func() {
				a.fyneApp.Quit()
			}),
		)
		desk.SetSystemTrayMenu(menu)
	}

	a.window = a.fyneApp.NewWindow("drumpad")
	a.status = widget.NewLabel("Loading...")
	a.window.SetContent(a.status)
	a.window.Resize(fyne.NewSize(640, 360))
	a.window.SetMaster()

	go a.onReady()

	a.window.ShowAndRun()
	return nil
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		fyne.Do(a.fyneApp.Quit)
	}
}

func newPadView(p *pad.Pad) *padView {
	v := &padView{
		button: widget.NewButton(label(p.Snapshot()), p.Press),
		slider: widget.NewSlider(0, 1),
		status: widget.NewLabel(""),
	}
	v.slider.Step = 0.01
	v.slider.SetValue(p.Gain())
	v.slider.OnChanged = p.SetGain
	return v
}

func label(s pad.Snapshot) string {
	return fmt.Sprintf("%s  [%s]", s.ID, s.Key)
}

func (v *padView) update(s pad.Snapshot) {
	if s.Enabled {
		v.button.Enable()
	} else {
		v.button.Disable()
	}
	switch s.State {
	case pad.Failed:
		v.status.SetText("error: " + s.Err)
	case pad.Ready:
		v.status.SetText(fmt.Sprintf("gain %.2f", s.Gain))
	default:
		v.status.SetText(s.State.String() + "...")
	}
	if v.slider.Value != s.Gain {
		v.slider.SetValue(s.Gain)
	}
}

// Attach builds one button and gain slider per pad. Typed keys go to the
// board's surface when typing is set.
func (a *App) Attach(b *pad.Board, typing bool) {
	fyne.DoAndWait(func() {
		cells := make([]fyne.CanvasObject, 0, len(b.Pads()))
		for _, p := range b.Pads() {
			v := newPadView(p)
			v.update(p.Snapshot())
			a.views[p.ID()] = v
			cells = append(cells, container.NewVBox(v.button, v.slider, v.status))
		}
		grid := container.NewGridWithColumns(columns, cells...)
		a.window.SetContent(container.NewBorder(nil, a.status, nil, nil, grid))

		if typing {
			surface := b.Surface()
			a.window.Canvas().SetOnTypedRune(func(r rune) {
				surface.DispatchRune(r)
			})
			a.window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
				if ev.Name == fyne.KeySpace {
					surface.Dispatch(trigger.KeyEvent{Code: "Space"})
				}
			})
		}
	})
}

func (a *App) PadChanged(s pad.Snapshot) {
	fyne.Do(func() {
		if v, ok := a.views[s.ID]; ok {
			v.update(s)
		}
	})
}

func (a *App) Status(text string) {
	fyne.Do(func() {
		a.status.SetText(text)
	})
}
