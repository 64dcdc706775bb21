package log

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	charmlog "github.com/charmbracelet/log"

	"elfstat/internal/logging"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
	closer      *logging.LoggerCloser
)

// Setup installs the charmbracelet logger as the slog default handler.
// Only the first call has an effect.
func Setup(debug bool) {
	initOnce.Do(func() {
		closer = logging.NewLogger()
		if debug {
			closer.SetLevel(charmlog.DebugLevel)
		}
		if debug || logging.IsDebug() {
			closer.SetReportCaller(true)
		}

		slog.SetDefault(slog.New(closer.Logger))
		initialized.Store(true)
	})
}

func Initialized() bool {
	return initialized.Load()
}

// Close releases the log file, if any. Later calls are no-ops.
func Close() error {
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("Panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
