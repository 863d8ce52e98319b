package main

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/loader"
	"github.com/Carmen-Shannon/oxy-view/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-view/engine/probe"
	"github.com/Carmen-Shannon/oxy-view/engine/reflow"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/Carmen-Shannon/oxy-view/engine/selector"
	"github.com/Carmen-Shannon/oxy-view/engine/session"
	"github.com/Carmen-Shannon/oxy-view/engine/viewer"
	"github.com/Carmen-Shannon/oxy-view/engine/window"
	"github.com/Carmen-Shannon/oxy-view/internal/config"
	"github.com/Carmen-Shannon/oxy-view/internal/metrics"
	"github.com/Carmen-Shannon/oxy-view/internal/statusapi"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	// mainTurntableSpeed is the main camera's auto-rotation in radians per second.
	mainTurntableSpeed = 0.3

	tileMargin = 12
	tileGap    = 8

	minWindowWidth  = 320
	minWindowHeight = 240

	mainSurfaceKey    = 0
	previewSurfaceKey = 10
)

var backgroundColor = mgl32.Vec4{0.12, 0.12, 0.14, 1}

type viewFlags struct {
	width       int
	height      int
	title       string
	tickRate    float64
	frameLimit  float64
	previewSize int
	margin      float64
	statusAddr  string
	declarative string
	profile     bool
}

var vflags viewFlags

func newViewCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [asset]",
		Short: "Open the viewer window (default command)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initial := ""
			if len(args) == 1 {
				initial = args[0]
			}
			return runView(*cfg, *log, initial)
		},
	}
	f := cmd.Flags()
	f.IntVar(&vflags.width, "width", 0, "Window width in pixels")
	f.IntVar(&vflags.height, "height", 0, "Window height in pixels")
	f.StringVar(&vflags.title, "title", "", "Window title prefix")
	f.Float64Var(&vflags.tickRate, "tick-rate", 0, "Animation ticks per second")
	f.Float64Var(&vflags.frameLimit, "frame-limit", 0, "Render frame cap (0 = uncapped)")
	f.IntVar(&vflags.previewSize, "preview-size", 0, "Preview tile edge in pixels")
	f.Float64Var(&vflags.margin, "margin", 0, "Framing margin, clamped to [1.3, 1.7]")
	f.StringVar(&vflags.statusAddr, "status-addr", "", "Listen address of the status API (empty disables it)")
	f.StringVar(&vflags.declarative, "declarative", "", "Comma-separated assets shown through the declarative viewer")
	f.BoolVar(&vflags.profile, "profile", false, "Log frame statistics every second")
	return cmd
}

// applyViewFlags copies explicitly set view flags onto cfg.
func applyViewFlags(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if set("width") {
		cfg.Width = vflags.width
	}
	if set("height") {
		cfg.Height = vflags.height
	}
	if set("title") {
		cfg.Title = vflags.title
	}
	if set("tick-rate") {
		cfg.TickRate = vflags.tickRate
	}
	if set("frame-limit") {
		cfg.FrameLimit = vflags.frameLimit
	}
	if set("preview-size") {
		cfg.PreviewSize = vflags.previewSize
	}
	if set("margin") {
		cfg.Margin = vflags.margin
	}
	if set("status-addr") {
		cfg.StatusAddr = vflags.statusAddr
	}
	if set("declarative") {
		cfg.Declarative = splitCSV(vflags.declarative)
	}
	if set("profile") {
		cfg.Profile = vflags.profile
	}
}

// tileLayout places the i-th preview tile along the bottom edge of the window.
func tileLayout(i, size int) func(width, height int) renderer.Rect {
	return func(width, height int) renderer.Rect {
		return renderer.Rect{
			X: tileMargin + i*(size+tileGap),
			Y: height - size - tileMargin,
			W: size,
			H: size,
		}
	}
}

// hitTile returns the index of the preview tile under (x, y), or -1.
func hitTile(x, y, count, size, width, height int) int {
	for i := 0; i < count; i++ {
		r := tileLayout(i, size)(width, height)
		if x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H {
			return i
		}
	}
	return -1
}

func runView(cfg config.Config, log zerolog.Logger, initial string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rec metrics.Recorder
	margin := float32(cfg.Margin)

	win := window.NewWindow(
		window.WithTitle(cfg.Title),
		window.WithSize(cfg.Width, cfg.Height),
		window.WithSizeLimits(minWindowWidth, cfg.PreviewSize+2*tileMargin+minWindowHeight, 3840, 2160),
	)
	rend := renderer.NewRenderer(renderer.BackendTypeWGPU, win, renderer.WithMSAA(renderer.MSAA4x), renderer.WithClearColor(backgroundColor))
	ldr := loader.NewLoader(loader.BackendTypeGLTF, loader.WithUploader(rend))

	mainCam := camera.NewCamera(camera.WithController(camera.NewController(
		camera.WithTurntableSpeed(mainTurntableSpeed),
	)))
	mainSession := session.New("main",
		session.WithStatusListener(func(status string) { win.SetTitle(cfg.Title + " | " + status) }),
		session.WithDisposeListener(rec.ObserveDisposed),
	)
	reflowCtl := reflow.New(win, mainCam, mainSession, reflow.WithResizer(rend), reflow.WithMargin(margin))

	shared := []orchestrator.OrchestratorOption{orchestrator.WithObserver(rec), orchestrator.WithMargin(margin)}
	if !cfg.SkipProbe {
		shared = append(shared, orchestrator.WithProber(probe.NewProber(probe.WithTimeout(cfg.ProbeTimeout()))))
	}
	mainOrch := orchestrator.New(mainSession, ldr, mainCam, append(shared, orchestrator.WithReflower(reflowCtl))...)

	previews := make([]*selector.Preview, 0, len(cfg.Models))
	for _, name := range cfg.Models {
		previews = append(previews, selector.NewPreview(name, ldr, shared...))
	}

	elements := make(map[string]*viewer.SceneElement, len(cfg.Declarative))
	selOpts := []selector.SelectorOption{
		selector.WithRefFunc(refFunc(cfg)),
		selector.WithObserver(rec),
		selector.WithPreviews(previews...),
	}
	for _, name := range cfg.Declarative {
		el := viewer.NewSceneElement("declarative:"+name, ldr, camera.NewCamera(camera.WithController(camera.NewController(
			camera.WithTurntableSpeed(mainTurntableSpeed),
		))), margin)
		elements[name] = el
		selOpts = append(selOpts, selector.WithDeclarative(name, viewer.New(el, viewer.WithTimeout(cfg.DeclarativeTimeout()))))
	}
	if initial != "" {
		selOpts = append(selOpts, selector.WithActive(initial))
	} else {
		selOpts = append(selOpts, selector.WithActive(cfg.DefaultModel))
	}

	mainSurface := engine.Surface{Session: mainSession, Camera: mainCam}
	var eng engine.Engine
	var sel *selector.Selector

	// The main slot shows whichever backend the selector made visible.
	showSurface := func(string) {
		if v := sel.Visible(); v != nil {
			if el, ok := v.Element().(*viewer.SceneElement); ok {
				eng.AddSurface(mainSurfaceKey, engine.Surface{Session: el.Session(), Camera: el.Camera()})
				return
			}
		}
		eng.AddSurface(mainSurfaceKey, mainSurface)
	}
	selOpts = append(selOpts, selector.WithChangeListener(showSurface))
	sel = selector.New(cfg.Models, mainOrch, selOpts...)

	pool := worker.NewDynamicWorkerPool(runtime.NumCPU(), 64, time.Second)
	engOpts := []engine.EngineBuilderOption{
		engine.WithWindow(win),
		engine.WithRenderer(rend),
		engine.WithWorkerPool(pool),
		engine.WithTickRate(cfg.TickRate),
		engine.WithRenderFrameLimit(cfg.FrameLimit),
		engine.WithProfiling(cfg.Profile),
		engine.WithSurface(mainSurfaceKey, mainSurface),
		engine.WithResizeHandler(reflowCtl.Handle),
		engine.WithResizeHandler(func(width, height int) {
			if width <= 0 || height <= 0 {
				return
			}
			for _, el := range elements {
				el.Camera().SetAspect(float32(width) / float32(height))
			}
		}),
	}
	if len(previews) > 1 {
		for i, p := range previews {
			p.Camera().SetAspect(1)
			engOpts = append(engOpts, engine.WithSurface(previewSurfaceKey+i, engine.Surface{
				Session: p.Session(),
				Camera:  p.Camera(),
				Layout:  tileLayout(i, cfg.PreviewSize),
			}))
		}
	}
	eng = engine.NewEngine(engOpts...)

	show := func(name string) {
		if _, declarative := elements[name]; !declarative {
			eng.AddSurface(mainSurfaceKey, mainSurface)
		}
		go func() {
			if err := sel.Show(ctx, name); err != nil {
				log.Warn().Err(err).Str("asset", name).Msg("show failed")
			}
		}()
	}

	win.SetKeyDownCallback(func(keyCode uint32) {
		key := int(keyCode)
		if key == common.KeyR {
			mainCam.Controller().ResetTurntable()
			if v := sel.Visible(); v != nil {
				v.ResetTurntable()
			}
			return
		}
		if name, ok := sel.Key(key); ok {
			show(name)
		}
	})
	if len(previews) > 1 {
		win.SetClickCallback(func(x, y int32) {
			i := hitTile(int(x), int(y), len(previews), cfg.PreviewSize, win.Width(), win.Height())
			if name, ok := sel.Click(i); ok {
				show(name)
			}
		})
	}

	if cfg.StatusAddr != "" {
		srv := statusapi.NewServer(cfg.StatusAddr, statusapi.NewSelectorService(ctx, sel, mainOrch))
		go func() {
			log.Info().Str("addr", cfg.StatusAddr).Msg("status API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("status API stopped")
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	reflowCtl.Start()
	for _, el := range elements {
		el.Camera().SetAspect(float32(win.Width()) / float32(win.Height()))
	}
	show(sel.Initial())
	if len(previews) > 1 {
		go selector.LoadPreviews(ctx, pool, refFunc(cfg), previews...)
	}

	eng.Run()

	cancel()
	mainSession.Teardown()
	for _, p := range previews {
		p.Session().Teardown()
	}
	for _, el := range elements {
		el.Close()
	}
	return nil
}
