// Package report sends errors to Sentry. Every function is a no-op until Setup
// has been called with a DSN.
package report

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
)

// Setup initialises the Sentry client. An empty dsn leaves reporting disabled.
func Setup(dsn, env, version string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          "transitpal@" + version,
		AttachStacktrace: true,
	}); err != nil {
		return false, fmt.Errorf("initialising sentry: %w", err)
	}
	ConfigureScope(env, version)
	return true, nil
}

// ConfigureScope sets global tags describing the runtime and host.
func ConfigureScope(env, version string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("env", env)
		scope.SetTag("app_version", version)
		scope.SetTag("go_version", runtime.Version())
		scope.SetTag("goarch", runtime.GOARCH)
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": getHostname(),
		})
	})
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// Flush waits up to two seconds for buffered events to be delivered.
func Flush() {
	sentry.Flush(2 * time.Second)
}

// ReportError reports err with the given level, sentry.LevelError by default.
func ReportError(err error, levels ...sentry.Level) {
	if err == nil {
		return
	}

	level := sentry.LevelError
	if len(levels) > 0 {
		level = levels[0]
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		sentry.CaptureException(err)
	})
}

// Options carries optional data attached to a report.
type Options struct {
	ExtraContext map[string]interface{}
	Tags         map[string]string
	Level        sentry.Level
}

func ReportErrorWithOptions(err error, opts Options) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		if opts.ExtraContext != nil {
			scope.SetContext("extra", opts.ExtraContext)
		}
		for k, v := range opts.Tags {
			scope.SetTag(k, v)
		}
		if opts.Level != "" {
			scope.SetLevel(opts.Level)
		}
		sentry.CaptureException(err)
	})
}

// RecoveredPanic reports a value recovered from a panic in the named component.
func RecoveredPanic(component string, r any) {
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", r)
	}
	ReportErrorWithOptions(err, Options{
		Tags:  map[string]string{"component": component},
		Level: sentry.LevelFatal,
	})
}
