package badgercache

import (
	"fmt"
	"log/slog"
	"strings"
)

// slogAdapter routes badger's printf-style logging to slog. Badger logs
// routine compaction and flush activity at info, so that is demoted to debug.
type slogAdapter struct {
	log *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...any) {
	a.log.Error(msg(format, args), "component", "badger")
}

func (a slogAdapter) Warningf(format string, args ...any) {
	a.log.Warn(msg(format, args), "component", "badger")
}

func (a slogAdapter) Infof(format string, args ...any) {
	a.log.Debug(msg(format, args), "component", "badger")
}

func (a slogAdapter) Debugf(format string, args ...any) {
	a.log.Debug(msg(format, args), "component", "badger")
}

func msg(format string, args []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
