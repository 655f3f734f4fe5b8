// Package console fires cues on a lighting console over OSC.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hypebeast/go-osc/osc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInvalidCue is returned for cue numbers the console cannot address
var ErrInvalidCue = errors.New("invalid cue number")

// Recaller fires a cue on a console
type Recaller interface {
	FireCue(ctx context.Context, cue string) error
}

// OSCConsole sends Eos style OSC commands over UDP
type OSCConsole struct {
	client  *osc.Client
	cueList int
	logger  *zap.Logger
}

// NewOSCConsole creates a console client for host:port firing cues in cueList
func NewOSCConsole(host string, port, cueList int, log *zap.Logger) *OSCConsole {
	if cueList <= 0 {
		cueList = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OSCConsole{
		client:  osc.NewClient(host, port),
		cueList: cueList,
		logger:  log.Named("console"),
	}
}

// CueAddress is the OSC address that fires cue in list
func CueAddress(list int, cue string) (string, error) {
	cue = strings.TrimSpace(cue)
	d, err := decimal.NewFromString(cue)
	if err != nil || d.Sign() <= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCue, cue)
	}
	return fmt.Sprintf("/eos/cue/%d/%s/fire", list, d.String()), nil
}

// FireCue implements Recaller
func (c *OSCConsole) FireCue(ctx context.Context, cue string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	address, err := CueAddress(c.cueList, cue)
	if err != nil {
		return err
	}
	if err := c.client.Send(osc.NewMessage(address)); err != nil {
		return fmt.Errorf("send %s: %w", address, err)
	}
	c.logger.Info("cue fired", zap.String("address", address))
	return nil
}
