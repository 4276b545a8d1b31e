package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/scitags/genetlinkd/types"
)

const FamilyIDKey string = "id"

var logLevelMap = map[string]slog.Level{
	"trace": types.LevelTrace,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func logReplacements(groups []string, a slog.Attr) slog.Attr {
	// Remove time.
	if a.Key == slog.TimeKey && len(groups) == 0 && !logTimeFlag {
		return slog.Attr{}
	}

	// Remove the directory from the source's filename.
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		source.File = filepath.Base(source.File)
	}

	// Family ids read better in hex, the same way the kernel prints them
	if a.Key == FamilyIDKey {
		// slog turns every unsigned integer into a uint64
		if id, ok := a.Value.Any().(uint64); ok {
			return slog.Attr{Key: a.Key, Value: slog.StringValue(fmt.Sprintf("%#x", id))}
		}
	}

	// Label the levels we add on top of slog's
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			return slog.Attr{Key: a.Key, Value: slog.StringValue(types.LevelName(lvl))}
		}
	}

	return a
}
