package notify

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gregdel/pushover"
	"github.com/sirupsen/logrus"
)

type fakeAPI struct {
	failures int
	sent     []*pushover.Message
	attempts int
}

func (f *fakeAPI) send(msg *pushover.Message) (*pushover.Response, error) {
	f.attempts++
	if f.attempts <= f.failures {
		return nil, errors.New("temporary failure")
	}
	f.sent = append(f.sent, msg)
	return &pushover.Response{Status: 1, ID: "req"}, nil
}

func newTestNotifier(api *fakeAPI) *Notifier {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Notifier{
		send:       api.send,
		newBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
		logger:     logger,
	}
}

func TestSendWithPriority_RetriesThenSucceeds(t *testing.T) {
	api := &fakeAPI{failures: 2}
	n := newTestNotifier(api)

	if err := n.SendWithPriority("t", "m", PriorityHigh); err != nil {
		t.Fatalf("SendWithPriority: %v", err)
	}
	if api.attempts != 3 || len(api.sent) != 1 {
		t.Fatalf("attempts = %d sent = %d", api.attempts, len(api.sent))
	}
	if api.sent[0].Priority != PriorityHigh || api.sent[0].Title != "t" {
		t.Fatalf("message = %+v", api.sent[0])
	}
}

func TestSendWithPriority_GivesUp(t *testing.T) {
	api := &fakeAPI{failures: 100}
	n := newTestNotifier(api)

	err := n.Send("t", "m")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if api.attempts != maxRetries+1 {
		t.Fatalf("attempts = %d, want %d", api.attempts, maxRetries+1)
	}
}

func TestSendFullFailureAndRecovered(t *testing.T) {
	api := &fakeAPI{}
	n := newTestNotifier(api)

	if err := n.SendFullFailure("train: timeout; bus: 502"); err != nil {
		t.Fatalf("SendFullFailure: %v", err)
	}
	if err := n.SendRecovered(90 * time.Second); err != nil {
		t.Fatalf("SendRecovered: %v", err)
	}

	if len(api.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(api.sent))
	}
	failure, recovered := api.sent[0], api.sent[1]
	if failure.Priority != PriorityHigh || !strings.Contains(failure.Message, "bus: 502") {
		t.Fatalf("failure message = %+v", failure)
	}
	if recovered.Priority != PriorityNormal || !strings.Contains(recovered.Message, "1m30s") {
		t.Fatalf("recovered message = %+v", recovered)
	}
}
