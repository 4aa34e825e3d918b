package report_test

import (
	"errors"
	"testing"

	"github.com/danpilch/transitpal/internal/report"
)

func TestSetup(t *testing.T) {
	t.Run("empty DSN disables reporting", func(t *testing.T) {
		enabled, err := report.Setup("", "test", "dev")
		if err != nil {
			t.Fatalf("Setup returned error: %v", err)
		}
		if enabled {
			t.Fatal("Setup enabled reporting without a DSN")
		}
	})

	t.Run("valid DSN", func(t *testing.T) {
		enabled, err := report.Setup("https://public@sentry.example.com/1", "test", "dev")
		if err != nil {
			t.Fatalf("Setup returned error: %v", err)
		}
		if !enabled {
			t.Fatal("Setup did not enable reporting")
		}
		report.ReportError(errors.New("boom"))
		report.RecoveredPanic("test", "string panic")
		report.Flush()
	})

	t.Run("invalid DSN", func(t *testing.T) {
		if _, err := report.Setup("not a dsn", "test", "dev"); err == nil {
			t.Fatal("Setup accepted an invalid DSN")
		}
	})
}

func TestReportError_NilIsIgnored(t *testing.T) {
	report.ReportError(nil)
	report.ReportErrorWithOptions(nil, report.Options{Tags: map[string]string{"a": "b"}})
}
