package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/liuran001/MusicPreview-Go/music/artwork"
	"github.com/liuran001/MusicPreview-Go/music/audio"
	"github.com/liuran001/MusicPreview-Go/music/catalog"
	"github.com/liuran001/MusicPreview-Go/music/catalog/plugins"
	"github.com/liuran001/MusicPreview-Go/music/config"
	"github.com/liuran001/MusicPreview-Go/music/controller"
	"github.com/liuran001/MusicPreview-Go/music/download"
	logpkg "github.com/liuran001/MusicPreview-Go/music/logger"
	"github.com/liuran001/MusicPreview-Go/music/tui"
	"github.com/liuran001/MusicPreview-Go/music/worker"

	_ "github.com/liuran001/MusicPreview-Go/plugins/deezer"
)

// App wires all application dependencies.
type App struct {
	Config     *config.Config
	Logger     *logpkg.Logger
	Pool       *worker.Pool
	Loop       *controller.Loop
	Catalog    catalog.Catalog
	Downloader *download.Service
	Device     *audio.MP3Device
	Session    *controller.Session
	Artwork    *artwork.Renderer
	Build      BuildInfo

	bridge   *tui.Bridge
	changes  chan struct{}
	stopLoop context.CancelFunc
	loopDone chan error
}

// BuildInfo provides build-time metadata.
type BuildInfo struct {
	RuntimeVer string
	BinVersion string
	CommitSHA  string
	BuildTime  string
	BuildArch  string
}

// Options selects how the application is assembled.
type Options struct {
	ConfigPath string
	// Console mirrors logs to stderr. Leave it off while the terminal UI owns the screen.
	Console bool
	// Catalog overrides the configured catalog plugin.
	Catalog string
	// OpenOutput replaces the sound card backend.
	OpenOutput func(sampleRate int) (audio.Output, error)
}

// New builds the application container.
func New(ctx context.Context, opts Options, build BuildInfo) (*App, error) {
	conf, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(opts.Catalog); name != "" {
		conf.Set("Catalog", name)
	}

	log, err := logpkg.New(logpkg.Options{
		Level:     conf.GetString("LogLevel"),
		Format:    conf.GetString("LogFormat"),
		AddSource: conf.GetBool("LogSource"),
		Dir:       conf.GetString("LogDir"),
		Console:   opts.Console,
	})
	if err != nil {
		return nil, err
	}

	catalogName := strings.TrimSpace(conf.GetString("Catalog"))
	if catalogName == "" {
		catalogName = "deezer"
	}
	cat, err := plugins.Build(catalogName, conf, log)
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	for _, name := range conf.PluginNames() {
		if _, ok := plugins.Get(name); !ok {
			log.Warn("plugin section has no registered catalog", "plugin", name)
		}
	}

	downloader := download.NewService(download.ServiceOptions{
		Timeout:          conf.GetSeconds("DownloadTimeout", 30*time.Second),
		MaxSize:          int64(conf.GetInt("PreviewMaxSizeMB")) * 1024 * 1024,
		RetryMax:         conf.GetInt("RetryMax"),
		ProgressInterval: conf.GetMillis("AudioStatusIntervalMs", 250*time.Millisecond),
	})

	device, err := audio.NewDevice(audio.Options{
		SampleRate:     conf.GetInt("AudioSampleRate"),
		StatusInterval: conf.GetMillis("AudioStatusIntervalMs", 250*time.Millisecond),
		Fetcher:        downloader,
		Logger:         log.With("component", "audio"),
		OpenOutput:     opts.OpenOutput,
	})
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("init audio: %w", err)
	}

	a := &App{
		Config:     conf,
		Logger:     log,
		Pool:       worker.New(conf.GetInt("WorkerPoolSize")),
		Loop:       controller.NewLoop(),
		Catalog:    cat,
		Downloader: downloader,
		Device:     device,
		Build:      build,
		bridge:     &tui.Bridge{},
		changes:    make(chan struct{}, 1),
	}

	session, err := controller.New(ctx, controller.Options{
		Catalog:     cat,
		Device:      device,
		Dispatcher:  a.Loop,
		Executor:    a.Pool,
		Logger:      log.With("component", "controller"),
		Debounce:    conf.GetMillis("SearchDebounceMs", controller.DefaultDebounce),
		SearchLimit: conf.GetInt("SearchLimit"),
		OnChange:    a.notify,
	})
	if err != nil {
		a.Pool.StopNow()
		_ = log.Close()
		return nil, fmt.Errorf("init session: %w", err)
	}
	a.Session = session
	a.Pool.SetLogger(log.With("component", "worker"))

	loopCtx, cancel := context.WithCancel(context.Background())
	a.stopLoop = cancel
	a.loopDone = make(chan error, 1)
	go func() { a.loopDone <- a.Loop.Run(loopCtx) }()

	if conf.GetBool("EnableArtwork") {
		a.Artwork = artwork.NewRenderer(downloader, conf.GetInt("ArtworkWidth"), log.With("component", "artwork"))
	}

	log.Info("application ready",
		"catalog", cat.Name(),
		"version", build.BinVersion,
		"commit", build.CommitSHA,
		"workers", a.Pool.Size(),
	)
	return a, nil
}

func (a *App) notify() {
	a.bridge.Notify()
	select {
	case a.changes <- struct{}{}:
	default:
	}
}

// RunTUI runs the terminal interface until the user quits or ctx is done.
func (a *App) RunTUI(ctx context.Context) error {
	model := tui.NewModel(tui.Options{
		Session:  a.Session,
		Bridge:   a.bridge,
		Artwork:  a.Artwork,
		SeekStep: a.Config.GetMillis("SeekStepMs", 5*time.Second),
		Logger:   a.Logger.With("component", "tui"),
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	a.bridge.Attach(program)
	defer a.bridge.Attach(nil)

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// RunHeadless searches for query, prints the results and previews the first track for playFor.
func (a *App) RunHeadless(ctx context.Context, query string, playFor time.Duration, out io.Writer) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("headless mode needs a query")
	}

	a.Session.SetQuery(query)
	state, err := a.waitFor(ctx, func(v controller.ViewState) bool {
		return v.LastResult.Op == "search"
	})
	if err != nil {
		return err
	}
	if !state.LastResult.OK() {
		return fmt.Errorf("search: %s", state.LastResult)
	}
	if len(state.Results) == 0 {
		fmt.Fprintf(out, "Aucun résultat pour %q\n", query)
		return nil
	}
	for i, track := range state.Results {
		fmt.Fprintf(out, "%2d. %s - %s\n", i+1, track.Title, track.Artist.Name)
	}

	first := state.Results[0]
	a.Session.SelectTrack(first.ID)
	state, err = a.waitFor(ctx, func(v controller.ViewState) bool {
		return v.LastResult.Op == "detail"
	})
	if err != nil {
		return err
	}
	if !state.LastResult.OK() || state.Selected == nil {
		return fmt.Errorf("detail: %s", state.LastResult)
	}

	detail := state.Selected
	fmt.Fprintf(out, "\nTITRE : %s\nArtiste : %s\nAlbum : %s\nDurée : %d secondes\n",
		detail.Title, detail.Artist.Name, detail.Album.Title, detail.DurationSeconds())
	if !detail.HasPreview() || playFor <= 0 {
		return nil
	}

	a.Session.Play()
	state, err = a.waitFor(ctx, func(v controller.ViewState) bool {
		return v.Playback.Status == controller.StatusPlaying || v.Playback.Status == controller.StatusFailed
	})
	if err != nil {
		return err
	}
	if state.Playback.Status == controller.StatusFailed {
		return fmt.Errorf("play: %s", state.LastResult)
	}

	timer := time.NewTimer(playFor)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	final := a.Session.State().Playback
	fmt.Fprintf(out, "Lecture : %d / %d ms\n", final.PositionMillis, final.DurationMillis)
	a.Session.Stop()
	return nil
}

func (a *App) waitFor(ctx context.Context, cond func(controller.ViewState) bool) (controller.ViewState, error) {
	for {
		state := a.Session.State()
		if cond(state) {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-a.changes:
		}
	}
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Session != nil {
		if err := a.Session.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, fmt.Errorf("close session: %w", err))
		}
	}
	if a.Loop != nil {
		a.Loop.Stop()
		select {
		case <-a.loopDone:
		case <-ctx.Done():
			a.stopLoop()
		}
	}
	if a.Pool != nil {
		if err := a.Pool.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}
	if a.Logger != nil {
		a.Logger.Info("application stopped")
		if err := a.Logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
