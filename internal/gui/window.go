package gui

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/snapshot"
	"github.com/san-kum/gravsim/internal/viz"
)

const (
	screenW, screenH = 1280, 720
	telemetryLen     = 400
	// minDiscPx keeps light bodies visible when zoomed out
	minDiscPx = 1.5
)

var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColFault   = rl.NewColor(255, 68, 68, 255)
)

// Window is a raylib presenter. Like the terminal view it only reads the
// publisher and talks to the runner through a viz.Controller.
type Window struct {
	ctrl viz.Controller
	pub  *snapshot.Publisher
	opts viz.Options

	theme  viz.Theme
	camera *viz.Camera

	snap      *snapshot.Snapshot
	lastStep  int64
	telemetry []float64
}

func NewWindow(ctrl viz.Controller, pub *snapshot.Publisher, opts viz.Options) *Window {
	return &Window{
		ctrl:      ctrl,
		pub:       pub,
		opts:      opts,
		theme:     viz.GetTheme(opts.Theme),
		camera:    viz.NewCamera(),
		lastStep:  -1,
		telemetry: make([]float64, 0, telemetryLen),
	}
}

// Run opens the window and blocks until it is closed. Closing the window
// stops the runner.
func Run(ctrl viz.Controller, pub *snapshot.Publisher, opts viz.Options) {
	rl.InitWindow(screenW, screenH, "gravsim")
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
	defer rl.CloseWindow()

	w := NewWindow(ctrl, pub, opts)
	defer ctrl.Stop()
	for !rl.WindowShouldClose() {
		if !w.Update() {
			return
		}
		w.Draw()
	}
}

// Update handles input and pulls the latest snapshot. It returns false
// when the user asked to quit.
func (w *Window) Update() bool {
	if rl.IsKeyPressed(rl.KeyQ) || rl.IsKeyPressed(rl.KeyEscape) {
		return false
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		w.ctrl.SetPaused(!w.ctrl.Paused())
	}
	if rl.IsKeyPressed(rl.KeyT) {
		w.theme = viz.NextTheme(w.theme.Name)
	}
	if rl.IsKeyPressed(rl.KeyF) {
		w.camera.Follow = !w.camera.Follow
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		w.camera.Zoom(math.Pow(0.9, float64(wheel)))
	}
	if rl.IsMouseButtonDown(rl.MouseLeftButton) {
		d := rl.GetMouseDelta()
		w.camera.Pan(-2*float64(d.X)/screenW, 2*float64(d.Y)/screenW)
	}

	snap := w.pub.Latest()
	if snap == w.snap {
		return true
	}
	w.snap = snap
	if snap.Step != w.lastStep {
		w.lastStep = snap.Step
		e := metrics.TotalEnergy(snap.All(), w.opts.Params.G, w.opts.Params.Softening)
		w.telemetry = append(w.telemetry, e)
		if len(w.telemetry) > telemetryLen {
			w.telemetry = w.telemetry[1:]
		}
	}
	if w.camera.Follow && snap.Len() > 0 {
		lo, hi := snap.Bounds()
		w.camera.Fit(lo, hi, screenW, screenH)
	}
	return true
}

// Draw renders bodies in world space through a 2D camera. World y points
// up, so it is negated on the way in.
func (w *Window) Draw() {
	rl.BeginDrawing()
	defer rl.EndDrawing()
	rl.ClearBackground(ColBg)
	if w.snap == nil {
		return
	}

	zoom := float32(w.camera.Scale(screenW))
	cam := rl.Camera2D{
		Offset: rl.NewVector2(screenW/2, screenH/2),
		Target: rl.NewVector2(float32(w.camera.Center.X), float32(-w.camera.Center.Y)),
		Zoom:   zoom,
	}
	rl.BeginMode2D(cam)
	inst := w.snap.Instances()
	for i := 0; i+2 < len(inst); i += 3 {
		r := max(inst[i+2], minDiscPx/zoom)
		c := w.theme.BodyColor(int(w.snap.Bodies[i/3].ID))
		rl.DrawCircleV(rl.NewVector2(inst[i], -inst[i+1]), r, rl.NewColor(c.R, c.G, c.B, c.A))
	}
	rl.EndMode2D()

	w.drawHUD()
}

func (w *Window) drawHUD() {
	name := w.opts.Name
	if name == "" {
		name = "gravsim"
	}
	rl.DrawText("gravsim", 30, 30, 24, ColSelect)
	rl.DrawText(":: "+name, 140, 34, 16, ColText)

	status, col := "RUNNING", ColSelect
	switch {
	case w.snap.Status == dynamo.Faulted:
		status, col = "FAULTED", ColFault
	case w.ctrl.Paused():
		status, col = "PAUSED", ColTextDim
	}
	rl.DrawText(status, screenW-130, 30, 16, col)

	rl.DrawText(fmt.Sprintf("step %d  t %.3f  bodies %d", w.snap.Step, w.snap.Time, w.snap.Len()), 30, 64, 14, ColText)
	w.drawTelemetry()

	rl.DrawText("[SPACE] PAUSE  [F] FOLLOW  [T] THEME  [WHEEL] ZOOM  [Q] QUIT", 700, screenH-40, 14, ColTextDim)
	rl.DrawText(fmt.Sprintf("%d FPS", rl.GetFPS()), 30, screenH-40, 14, ColTextDim)
}

// drawTelemetry plots total energy as a normalised line strip.
func (w *Window) drawTelemetry() {
	if len(w.telemetry) < 2 {
		return
	}
	rectX, rectY := 30, screenH-120
	width, height := 400, 60

	minVal, maxVal := w.telemetry[0], w.telemetry[0]
	for _, v := range w.telemetry {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	points := make([]rl.Vector2, len(w.telemetry))
	for i, val := range w.telemetry {
		px := float32(rectX) + float32(i)/float32(len(w.telemetry))*float32(width)
		norm := (val - minVal) / (maxVal - minVal)
		py := float32(rectY+height) - float32(norm)*float32(height)
		points[i] = rl.NewVector2(px, py)
	}
	rl.DrawLineStrip(points, ColAccent)
	rl.DrawText(fmt.Sprintf("E: %.4e", w.telemetry[len(w.telemetry)-1]), int32(rectX+width+10), int32(rectY+height-10), 14, ColText)
}
