package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"campuscal/internal/calendar"
	"campuscal/internal/capture"
	"campuscal/internal/config"
	"campuscal/internal/layout"
	appLog "campuscal/internal/log"
	"campuscal/internal/source"
	"campuscal/internal/textview"
	"campuscal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	print      bool
	width      int
	view       string
	date       string
	capture    string
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("campuscal starting",
		"listen", conf.Listen,
		"source", conf.Source.Kind,
		"week_start", conf.WeekStart,
		"retry_cron", conf.RetryCron,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	session, loc := newSession(conf)
	if err := frame(ctx, session, flags.view, flags.date); err != nil {
		appLog.Error("invalid -view/-date", err)
		os.Exit(2)
	}

	switch {
	case flags.print:
		session.Sync(ctx)
		fmt.Print(textview.Render(session.Render(), flags.width))
	case flags.capture != "":
		err = runCapture(ctx, conf, session, loc, flags.capture)
	default:
		err = runServe(ctx, conf, session, loc)
	}
	if err != nil {
		appLog.Error("campuscal failed", err)
		os.Exit(1)
	}
	appLog.Info("campuscal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/campuscal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.print, "print", false, "Print the calendar to the terminal and exit")
	flag.IntVar(&cfg.width, "width", textview.DefaultWidth, "Terminal width for -print")
	flag.StringVar(&cfg.view, "view", "", "Initial view: day, week, month or year")
	flag.StringVar(&cfg.date, "date", "", "Initial date (YYYY-MM-DD)")
	flag.StringVar(&cfg.capture, "capture", "", "Write a PNG snapshot of the calendar page to this path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()
	return cfg
}

func newSession(conf *config.Config) (*calendar.Session, *time.Location) {
	loc, err := conf.Location()
	if err != nil {
		appLog.Error("timezone unavailable, using host zone", err)
	}
	now := func() time.Time { return time.Now().In(loc) }

	src, srcErr := source.New(conf.Source, conf.FetchTimeout(), loc)

	opts := layout.Options{
		WindowStartHour: conf.DayWindow.StartHour,
		WindowEndHour:   conf.DayWindow.EndHour,
		MinHeight:       conf.MinEventHeight,
		FirstWeekday:    conf.FirstWeekday(),
		MonthCellCap:    conf.MonthCellCap,
		YearNotableCap:  conf.YearNotableCap,
	}
	sopts := calendar.Options{
		Now:          now,
		Layout:       opts,
		Source:       src,
		SourceErr:    srcErr,
		FetchTimeout: conf.FetchTimeout(),
	}
	if conf.SeedSamples {
		sopts.Seed = calendar.SampleEvents(now())
	}
	return calendar.NewSession(sopts), loc
}

// frame applies the -date and -view flags. The date goes first so that a
// switch to month view normalises against the requested month.
func frame(ctx context.Context, s *calendar.Session, view, date string) error {
	if date != "" {
		if _, err := s.Navigate(ctx, calendar.Command{Action: calendar.ActionView, View: "day"}); err != nil {
			return err
		}
		if _, err := s.Navigate(ctx, calendar.Command{Action: calendar.ActionDay, Date: date}); err != nil {
			return err
		}
		if view == "" {
			view = "month"
		}
	}
	if view != "" {
		if _, err := s.Navigate(ctx, calendar.Command{Action: calendar.ActionView, View: view}); err != nil {
			return err
		}
	}
	return nil
}

func runServe(ctx context.Context, conf *config.Config, session *calendar.Session, loc *time.Location) error {
	go session.Sync(ctx)

	// Years that failed to load are retried on the cron schedule; loaded
	// years are never requested again.
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(conf.RetryCron, func() {
		if outcomes := session.Sync(ctx); len(outcomes) > 0 {
			appLog.Info("retry sync finished", "years", len(outcomes))
		}
	}); err != nil {
		return fmt.Errorf("retry_cron %q: %w", conf.RetryCron, err)
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return err
	}
	appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
	return web.NewServer(conf, session, loc).Serve(ctx, ln)
}

// runCapture serves the page on a loopback port just long enough for the
// headless browser to snapshot it.
func runCapture(ctx context.Context, conf *config.Config, session *calendar.Session, loc *time.Location, out string) error {
	session.Sync(ctx)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	srvCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	// Capture talks to its own loopback server; no credentials needed.
	local := *conf
	local.BasicAuth = nil
	go func() { done <- web.NewServer(&local, session, loc).Serve(srvCtx, ln) }()

	err = capture.CalendarPNG(ctx, capture.Options{
		URL:        "http://" + ln.Addr().String() + "/calendar",
		OutputPath: out,
		Width:      conf.Capture.Width,
		Height:     conf.Capture.Height,
		Timeout:    time.Duration(conf.Capture.TimeoutSec) * time.Second,
	})
	stop()
	if serveErr := <-done; serveErr != nil && !errors.Is(serveErr, net.ErrClosed) {
		appLog.Error("capture server stopped with error", serveErr)
	}
	return err
}
