package viz

import (
	"bytes"
	"image/color"
	"image/gif"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

type fakeController struct {
	paused  atomic.Bool
	stopped atomic.Bool
	done    chan struct{}
	err     error
}

func newFakeController() *fakeController {
	return &fakeController{done: make(chan struct{})}
}

func (f *fakeController) SetPaused(p bool)      { f.paused.Store(p) }
func (f *fakeController) Paused() bool          { return f.paused.Load() }
func (f *fakeController) Stop()                 { f.stopped.Store(true) }
func (f *fakeController) Done() <-chan struct{} { return f.done }
func (f *fakeController) Err() error            { return f.err }

func twoBodies(step int64, x float64) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Step: step,
		Time: float64(step) * 0.01,
		Bodies: []snapshot.BodyView{
			{ID: 0, Pos: r2.Vec{X: -x}, Vel: r2.Vec{Y: 0.5}, Mass: 1, Radius: 0.05},
			{ID: 1, Pos: r2.Vec{X: x}, Vel: r2.Vec{Y: -0.5}, Mass: 1, Radius: 0.05},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestCanvasSetAndUnset(t *testing.T) {
	c := NewCanvas(4, 2)
	pw, ph := c.PixelSize()
	assert.Equal(t, 8, pw)
	assert.Equal(t, 8, ph)

	c.Set(0, 0, 1)
	c.Set(1, 3, 1)
	assert.Equal(t, rune(0x2800|0x1|0x80), c.Grid[0][0])
	assert.True(t, c.Lit(1, 3))
	assert.Equal(t, 1, c.Ink[0][0])

	c.Unset(0, 0)
	assert.False(t, c.Lit(0, 0))
	assert.True(t, c.Lit(1, 3))

	// out of range writes are ignored
	c.Set(-1, 0, 0)
	c.Set(100, 100, 0)
	c.Clear()
	assert.Equal(t, strings.Repeat(strings.Repeat(string(rune(blank)), 4)+"\n", 2), c.String())
}

func TestCanvasDisc(t *testing.T) {
	c := NewCanvas(10, 5)
	c.Disc(10, 10, 2, 3)
	assert.True(t, c.Lit(10, 10))
	assert.True(t, c.Lit(12, 10))
	assert.True(t, c.Lit(10, 8))
	assert.False(t, c.Lit(12, 12))

	c.Clear()
	c.Disc(4, 4, 0, 0)
	assert.True(t, c.Lit(4, 4))
	assert.False(t, c.Lit(5, 4))
}

func TestCanvasRenderKeepsGeometry(t *testing.T) {
	c := NewCanvas(6, 3)
	c.DrawLine(0, 0, 11, 11, 0)
	plain := c.String()
	assert.Equal(t, plain, c.Render(nil))

	colored := c.Render(newStyles(ThemeOcean).bodies)
	assert.Equal(t, 3, strings.Count(colored, "\n"))
}

func TestCameraFitAndProject(t *testing.T) {
	cam := NewCamera()
	cam.Fit(r2.Vec{X: -1, Y: -1}, r2.Vec{X: 1, Y: 1}, 100, 100)
	assert.InDelta(t, 1.2, cam.HalfWidth, 1e-12)

	x, y := cam.Project(r2.Vec{}, 100, 100)
	assert.Equal(t, 50, x)
	assert.Equal(t, 50, y)

	// +y is up on screen
	_, yUp := cam.Project(r2.Vec{Y: 1}, 100, 100)
	assert.Less(t, yUp, 50)

	// later fits ease towards the target
	cam.Fit(r2.Vec{X: 9, Y: -1}, r2.Vec{X: 11, Y: 1}, 100, 100)
	assert.Greater(t, cam.Center.X, 0.0)
	assert.Less(t, cam.Center.X, 10.0)
}

func TestCameraZoomStopsFollowing(t *testing.T) {
	cam := NewCamera()
	cam.Zoom(0.5)
	assert.False(t, cam.Follow)
	assert.InDelta(t, 0.5, cam.HalfWidth, 1e-12)

	cam.Follow = true
	cam.Pan(1, 0)
	assert.False(t, cam.Follow)
	assert.InDelta(t, 0.5, cam.Center.X, 1e-12)
}

func TestThemes(t *testing.T) {
	assert.Equal(t, ThemeOcean, GetTheme("ocean"))
	assert.Equal(t, Themes[0], GetTheme("missing"))
	assert.Equal(t, Themes[1], NextTheme(Themes[0].Name))
	assert.Equal(t, Themes[0], NextTheme(Themes[len(Themes)-1].Name))
	assert.Len(t, ThemeNames(), len(Themes))
}

func TestModelRendersLatestSnapshot(t *testing.T) {
	pub := snapshot.NewPublisher(twoBodies(0, 1))
	ctrl := newFakeController()
	m := NewModel(ctrl, pub, Options{Name: "binary", Params: dynamo.DefaultParams()})

	m, cmd := update(t, m, TickMsg(time.Now()))
	assert.NotNil(t, cmd)
	require.Len(t, m.energy, 1)
	assert.Equal(t, "RUNNING", m.Status())

	// same step again is not recorded twice
	m, _ = update(t, m, TickMsg(time.Now()))
	assert.Len(t, m.energy, 1)

	pub.Publish(twoBodies(1, 1.01))
	m, _ = update(t, m, TickMsg(time.Now()))
	assert.Len(t, m.energy, 2)
	assert.Len(t, m.trails[0], 2)

	view := m.View()
	assert.Contains(t, view, "BINARY")
	assert.Contains(t, view, "RUNNING")
	assert.Contains(t, view, "Bodies")
}

func TestModelPrunesRemovedBodies(t *testing.T) {
	pub := snapshot.NewPublisher(twoBodies(0, 1))
	m := NewModel(newFakeController(), pub, Options{Params: dynamo.DefaultParams()})
	m, _ = update(t, m, TickMsg(time.Now()))
	require.Len(t, m.trails, 2)

	one := twoBodies(1, 1)
	one.Bodies = one.Bodies[1:]
	pub.Publish(one)
	m, _ = update(t, m, TickMsg(time.Now()))
	assert.Len(t, m.trails, 1)
	assert.Contains(t, m.trails, dynamo.Handle(1))
}

func TestModelKeys(t *testing.T) {
	pub := snapshot.NewPublisher(twoBodies(0, 1))
	ctrl := newFakeController()
	m := NewModel(ctrl, pub, Options{})

	m, _ = update(t, m, key(" "))
	assert.True(t, ctrl.Paused())
	assert.Equal(t, "PAUSED", m.Status())
	m, _ = update(t, m, key(" "))
	assert.False(t, ctrl.Paused())

	theme := m.theme.Name
	m, _ = update(t, m, key("t"))
	assert.NotEqual(t, theme, m.theme.Name)

	m, _ = update(t, m, key("+"))
	assert.False(t, m.camera.Follow)
	m, _ = update(t, m, key("f"))
	assert.True(t, m.camera.Follow)

	m, _ = update(t, m, key("p"))
	assert.False(t, m.showTrails)

	_, cmd := update(t, m, key("q"))
	assert.True(t, ctrl.stopped.Load())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModelShowsFault(t *testing.T) {
	last := twoBodies(3, 1)
	pub := snapshot.NewPublisher(last)
	ctrl := newFakeController()
	m := NewModel(ctrl, pub, Options{})
	m, _ = update(t, m, TickMsg(time.Now()))

	pub.Publish(last.WithStatus(dynamo.Faulted))
	ctrl.err = &dynamo.NumericalInstabilityError{Step: 4, Body: 0, Quantity: "position"}
	close(ctrl.done)

	msg := waitDone(ctrl)()
	m, cmd := update(t, m, msg)
	assert.Nil(t, cmd)
	assert.Equal(t, "FAULTED", m.Status())
	assert.Len(t, m.energy, 1)
	assert.Contains(t, m.View(), "FAULTED")

	// pausing a finished run is a no-op
	m, _ = update(t, m, key(" "))
	assert.False(t, ctrl.Paused())
}

func TestRecorderEncodesFrames(t *testing.T) {
	c := NewCanvas(8, 4)
	c.Disc(8, 8, 2, 1)

	rec := NewRecorder(ThemeCyberpunk)
	var empty bytes.Buffer
	assert.Error(t, rec.Encode(&empty))

	rec.Capture(c)
	rec.Capture(c)
	assert.Equal(t, 2, rec.Len())

	var buf bytes.Buffer
	require.NoError(t, rec.Encode(&buf))
	anim, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	assert.Len(t, anim.Image, 2)
	assert.Equal(t, 16*dotW, anim.Image[0].Bounds().Dx())
}

func TestPickerSelectsAndEditsPreset(t *testing.T) {
	var m tea.Model = newPicker()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p := m.(picker)
	require.Equal(t, stageConfig, p.stage)
	assert.Equal(t, config.ListPresets()[0], p.cfg.Name)

	// edit dt
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	for range len(m.(picker).editBuf) {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	}
	for _, r := range "0.002" {
		m, _ = m.Update(key(string(r)))
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 0.002, m.(picker).cfg.Dt)

	// cycle the evaluator
	for range 6 {
		m, _ = m.Update(key("j"))
	}
	before := m.(picker).cfg.Evaluator
	m, _ = m.Update(key("l"))
	assert.NotEqual(t, before, m.(picker).cfg.Evaluator)

	m, cmd := m.Update(key("s"))
	require.NotNil(t, cmd)
	assert.Same(t, m.(picker).cfg, m.(picker).chosen)
}

func TestPickerRejectsInvalidConfig(t *testing.T) {
	var m tea.Model = newPicker()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.(picker).cfg.Dt = -1

	m, cmd := m.Update(key("s"))
	assert.Nil(t, cmd)
	assert.Nil(t, m.(picker).chosen)
	assert.NotEmpty(t, m.(picker).err)
}

func TestThemeBodyColor(t *testing.T) {
	c := ThemeCyberpunk.BodyColor(0)
	assert.Equal(t, color.RGBA{0xff, 0x00, 0xff, 0xff}, c)
	assert.Equal(t, c, ThemeCyberpunk.BodyColor(len(ThemeCyberpunk.Bodies)))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, Theme{}.BodyColor(3))
}
