// Package source picks the live event source at startup.
package source

import (
	"fmt"
	"strings"
	"time"

	"campuscal/internal/caldav"
	"campuscal/internal/config"
	"campuscal/internal/ics"
	"campuscal/internal/loader"
	appLog "campuscal/internal/log"
)

// New builds the source cfg asks for. A source that cannot be built yields
// loader.NullSource together with an error wrapping
// loader.ErrSourceUnavailable; the caller keeps running on local events.
// Kind "none" is a deliberate offline setup and returns no error.
func New(cfg config.SourceConfig, timeout time.Duration, loc *time.Location) (loader.Source, error) {
	switch cfg.Kind {
	case config.SourceICS:
		if cfg.URL == "" {
			return unavailable("ics source has no url")
		}
		f := ics.NewFetcher(cfg.CacheDir, timeout)
		if cfg.Username != "" {
			f.WithBasicAuth(cfg.Username, cfg.Password)
		}
		appLog.Info("source: ics", "per_year", strings.Contains(cfg.URL, ics.YearPlaceholder))
		return ics.NewYearSource(f, cfg.URL, loc), nil

	case config.SourceCalDAV:
		src, err := caldav.New(caldav.Config{
			Endpoint:     cfg.URL,
			Username:     cfg.Username,
			Password:     cfg.Password,
			CalendarPath: cfg.CalendarPath,
			Timeout:      timeout,
		}, loc)
		if err != nil {
			return unavailable(err.Error())
		}
		appLog.Info("source: caldav", "calendar_path", cfg.CalendarPath)
		return src, nil

	case config.SourceNone, "":
		appLog.Info("source: none configured, local events only")
		return loader.NullSource{}, nil

	default:
		return unavailable(fmt.Sprintf("unknown source kind %q", cfg.Kind))
	}
}

func unavailable(reason string) (loader.Source, error) {
	return loader.NullSource{}, fmt.Errorf("%w: %s", loader.ErrSourceUnavailable, reason)
}
