package main

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"epdpanel/internal/config"
	"epdpanel/internal/epd"
	"epdpanel/internal/render"
	"epdpanel/internal/web"
)

type cliFlags struct {
	configPath string
	listen     string
	once       bool
	dryRun     bool
	demo       bool
	clear      bool
}

func parseFlags() cliFlags {
	var f cliFlags
	pflag.StringVar(&f.configPath, "config", "/etc/epdpanel/config.yaml", "path to config file")
	pflag.StringVar(&f.listen, "listen", "", "HTTP listen address (overrides config if set)")
	pflag.BoolVar(&f.once, "once", false, "run one capture+display cycle and exit")
	pflag.BoolVar(&f.dryRun, "dry-run", false, "log panel traffic instead of touching hardware")
	pflag.BoolVar(&f.demo, "demo", false, "show the built-in demo banner instead of capturing")
	pflag.BoolVar(&f.clear, "clear", false, "clear the panel to white and exit")
	pflag.Parse()
	return f
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "epdpanel:", err)
		os.Exit(1)
	}
}

func run() error {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	log, err := newLogger(conf.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("epdpanel starting",
		zap.String("config", flags.configPath),
		zap.String("mode", conf.Mode),
		zap.String("refresh", conf.RefreshCron),
		zap.Bool("once", flags.once),
		zap.Bool("dry_run", flags.dryRun),
	)

	tr, closeTransport, err := openTransport(conf, flags.dryRun, log)
	if err != nil {
		return err
	}
	defer closeTransport()

	panel := epd.New(tr, &epd.Opts{
		BusyTimeout:  conf.BusyTimeout.Std(),
		PollInterval: conf.PollInterval.Std(),
		Logger:       log.Named("epd"),
	})
	defer panel.Close()

	mode := epd.Binary
	if conf.Mode == "gray2" {
		mode = epd.Gray2
	}

	if flags.clear {
		return clearPanel(panel, mode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	d := &daemon{
		conf:  conf,
		flags: flags,
		log:   log,
		panel: panel,
		mode:  mode,
		srv:   web.NewServer(log.Named("web")),
	}

	if flags.once || flags.demo {
		return d.cycle(ctx)
	}

	httpSrv := &http.Server{Addr: conf.Listen, Handler: d.srv.Handler()}
	go func() {
		log.Info("status server listening", zap.String("listen", conf.Listen))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("status server failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	return d.loop(ctx)
}

// openTransport picks the hardware SPI transport or, for --dry-run, a
// logging stand-in.
func openTransport(conf *config.Config, dryRun bool, log *zap.Logger) (epd.Transport, func(), error) {
	if dryRun {
		return epd.NewVirtual(log.Named("virtual")), func() {}, nil
	}
	spiTr, err := epd.OpenSPI(epd.SPIOpts{
		Port:     conf.SPI,
		SpeedHz:  conf.SPIHz,
		DCPin:    conf.Pins.DC,
		ResetPin: conf.Pins.Reset,
		BusyPin:  conf.Pins.Busy,
		PowerPin: conf.Pins.Power,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open SPI transport: %w", err)
	}
	return spiTr, func() { _ = spiTr.Close() }, nil
}

func clearPanel(panel *epd.Panel, mode epd.ColorMode) error {
	if err := panel.PowerOn(mode); err != nil {
		return err
	}
	if err := drawWhite(panel, mode); err != nil {
		return err
	}
	if err := panel.Display(epd.Full); err != nil {
		return err
	}
	return panel.Close()
}

func drawWhite(panel *epd.Panel, mode epd.ColorMode) error {
	switch mode {
	case epd.Gray2:
		s, err := panel.BeginGray2()
		if err != nil {
			return err
		}
		s.Clear(epd.White)
	default:
		s, err := panel.BeginBinary()
		if err != nil {
			return err
		}
		s.Clear(image1bit.On)
	}
	return nil
}

type daemon struct {
	conf  *config.Config
	flags cliFlags
	log   *zap.Logger
	panel *epd.Panel
	mode  epd.ColorMode
	srv   *web.Server

	cycles  int
	lastErr string
}

// loop runs an immediate first cycle, then lets cron drive the rest until
// the context is canceled. Panel access stays on this goroutine; cron only
// signals.
func (d *daemon) loop(ctx context.Context) error {
	trigger := make(chan struct{}, 1)

	c := cron.New()
	if _, err := c.AddFunc(d.conf.RefreshCron, func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", d.conf.RefreshCron, err)
	}
	c.Start()
	defer c.Stop()

	if err := d.cycle(ctx); err != nil {
		d.log.Error("initial cycle failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			if err := d.cycle(ctx); err != nil {
				d.log.Error("cycle failed", zap.Error(err))
			}
		}
	}
}

// cycle renders one frame and pushes it to the panel, then puts the panel
// back to deep sleep so it is never left powered between refreshes.
func (d *daemon) cycle(ctx context.Context) error {
	frame, err := d.renderFrame(ctx)
	if err != nil {
		d.log.Warn("capture failed, showing banner", zap.Error(err))
		frame = render.Banner(epd.Width, epd.Height, []string{
			"capture failed",
			err.Error(),
			time.Now().Format(time.RFC3339),
		})
	}

	refresh := epd.Fast
	if d.conf.FullRefreshEvery <= 1 || d.cycles%d.conf.FullRefreshEvery == 0 {
		refresh = epd.Full
	}
	d.cycles++

	err = d.push(frame, refresh)
	d.publish(frame, refresh, err)
	if err != nil {
		return err
	}

	d.log.Info("panel refreshed",
		zap.Stringer("mode", d.mode),
		zap.Stringer("refresh", refresh),
		zap.Int("cycles", d.cycles),
	)
	return nil
}

func (d *daemon) renderFrame(ctx context.Context) (image.Image, error) {
	if d.flags.demo || d.conf.Capture.URL == "" {
		return render.Banner(epd.Width, epd.Height, []string{
			"epdpanel",
			fmt.Sprintf("%dx%d %s", epd.Width, epd.Height, d.mode),
			time.Now().Format("2006-01-02 15:04"),
		}), nil
	}

	shot, err := render.Capture(ctx, render.CaptureOptions{
		URL:     d.conf.Capture.URL,
		Width:   d.conf.Capture.Width,
		Height:  d.conf.Capture.Height,
		Timeout: d.conf.Capture.Timeout.Std(),
	})
	if err != nil {
		return nil, err
	}
	return render.Prepare(shot, epd.Width, epd.Height), nil
}

func (d *daemon) push(frame image.Image, refresh epd.RefreshMode) error {
	if err := d.panel.PowerOn(d.mode); err != nil {
		return fmt.Errorf("power on: %w", err)
	}

	switch d.mode {
	case epd.Gray2:
		s, err := d.panel.BeginGray2()
		if err != nil {
			return err
		}
		render.DrawTo(s, frame)
	default:
		s, err := d.panel.BeginBinary()
		if err != nil {
			return err
		}
		render.DrawTo(s, frame)
	}

	if err := d.panel.Display(refresh); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	if err := d.panel.Sleep(); err != nil {
		return fmt.Errorf("sleep: %w", err)
	}
	return nil
}

func (d *daemon) publish(frame image.Image, refresh epd.RefreshMode, err error) {
	if err != nil {
		d.lastErr = err.Error()
	} else {
		d.lastErr = ""
	}
	now := time.Now()
	_, awake := d.panel.AwakeFor()
	d.srv.SetFrame(frame)
	d.srv.SetStatus(web.Status{
		Mode:        d.mode.String(),
		Refresh:     refresh.String(),
		Cycles:      d.cycles,
		LastRefresh: &now,
		LastError:   d.lastErr,
		Sleeping:    !awake,
	})
}
