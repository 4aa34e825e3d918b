package notify

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gregdel/pushover"
	"github.com/sirupsen/logrus"
)

const (
	PriorityNormal = 0
	PriorityHigh   = 1
)

const maxRetries = 3

type Notifier struct {
	send       func(*pushover.Message) (*pushover.Response, error)
	newBackOff func() backoff.BackOff
	logger     *logrus.Logger
}

func NewNotifier(token, userKey string, logger *logrus.Logger) *Notifier {
	app := pushover.New(token)
	recipient := pushover.NewRecipient(userKey)
	return &Notifier{
		send: func(msg *pushover.Message) (*pushover.Response, error) {
			return app.SendMessage(msg, recipient)
		},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 15 * time.Second
			return b
		},
		logger: logger,
	}
}

func (n *Notifier) Send(title, message string) error {
	return n.SendWithPriority(title, message, PriorityNormal)
}

// SendWithPriority sends one message, retrying failed attempts with
// exponential backoff.
func (n *Notifier) SendWithPriority(title, message string, priority int) error {
	msg := pushover.NewMessageWithTitle(message, title)
	msg.Priority = priority

	var resp *pushover.Response
	op := func() error {
		var err error
		resp, err = n.send(msg)
		return err
	}
	onRetry := func(err error, wait time.Duration) {
		n.logger.WithFields(logrus.Fields{
			"title": title,
			"error": err,
			"wait":  wait,
		}).Warn("pushover send failed, retrying")
	}

	if err := backoff.RetryNotify(op, backoff.WithMaxRetries(n.newBackOff(), maxRetries), onRetry); err != nil {
		return fmt.Errorf("sending pushover notification: %w", err)
	}

	fields := logrus.Fields{"title": title}
	if resp != nil {
		fields["status"] = resp.Status
		fields["request_id"] = resp.ID
	}
	n.logger.WithFields(fields).Debug("notification sent")

	return nil
}

func (n *Notifier) SendFullFailure(message string) error {
	title := "Transit Data Unavailable"
	body := "No source could be refreshed and there is no data to show."
	if message != "" {
		body = fmt.Sprintf("%s\n%s", body, message)
	}
	return n.SendWithPriority(title, body, PriorityHigh)
}

func (n *Notifier) SendRecovered(downFor time.Duration) error {
	title := "Transit Data Restored"
	body := "All sources are refreshing again."
	if downFor > 0 {
		body = fmt.Sprintf("All sources are refreshing again after %s.", downFor.Round(time.Second))
	}
	return n.Send(title, body)
}
