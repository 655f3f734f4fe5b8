// Package notify delivers notes emails through a shoutrrr service URL.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// ErrNotConfigured is returned when no delivery URL is configured
var ErrNotConfigured = errors.New("email delivery is not configured")

// Message is an outgoing email
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ShoutrrrSender sends through a single shoutrrr URL, typically smtp://
type ShoutrrrSender struct {
	sender *router.ServiceRouter
	scheme string
}

// NewShoutrrrSender validates serviceURL and builds the sender
func NewShoutrrrSender(serviceURL string, timeout time.Duration) (*ShoutrrrSender, error) {
	if strings.TrimSpace(serviceURL) == "" {
		return nil, ErrNotConfigured
	}
	parsed, err := url.Parse(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid notify URL: %w", redact(err, serviceURL))
	}
	sender, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid notify URL: %w", redact(err, serviceURL))
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &ShoutrrrSender{sender: sender, scheme: parsed.Scheme}, nil
}

// Send implements Sender. Recipients override the URL's toaddresses for smtp.
func (s *ShoutrrrSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := stypes.Params{}
	if msg.Subject != "" {
		params.SetTitle(msg.Subject)
	}
	if s.scheme == "smtp" && len(msg.To) > 0 {
		params["toaddresses"] = strings.Join(msg.To, ",")
	}

	for _, err := range s.sender.Send(msg.Body, &params) {
		if err != nil {
			return fmt.Errorf("email delivery failed: %w", err)
		}
	}
	return nil
}

// Disabled is the sender used when no URL is configured
type Disabled struct{}

// Send implements Sender
func (Disabled) Send(context.Context, Message) error { return ErrNotConfigured }

// New returns a shoutrrr sender, or Disabled when serviceURL is empty
func New(serviceURL string, timeout time.Duration) (Sender, error) {
	if strings.TrimSpace(serviceURL) == "" {
		return Disabled{}, nil
	}
	return NewShoutrrrSender(serviceURL, timeout)
}

// redact keeps credentials in the service URL out of error messages
func redact(err error, serviceURL string) error {
	parsed, perr := url.Parse(serviceURL)
	if perr != nil || parsed.User == nil {
		return err
	}
	if pass, ok := parsed.User.Password(); ok && pass != "" {
		return errors.New(strings.ReplaceAll(err.Error(), pass, "***"))
	}
	return err
}
