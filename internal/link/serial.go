// internal/link/serial.go
package link

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/goburrow/serial"
)

// Opener opens one endpoint. ONE attempt per call; retries belong to the Manager.
type Opener func(ctx context.Context, endpoint string) (io.ReadCloser, error)

// SerialConfig is the link-specific framing config.
type SerialConfig struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string // N, E or O
	ReadTimeout time.Duration
}

// SerialOpener returns an Opener backed by goburrow/serial.
func SerialOpener(cfg SerialConfig) Opener {
	return func(ctx context.Context, endpoint string) (io.ReadCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if endpoint == "" {
			return nil, errors.New("link serial: endpoint required")
		}

		p, err := serial.Open(&serial.Config{
			Address:  endpoint,
			BaudRate: cfg.BaudRate,
			DataBits: cfg.DataBits,
			StopBits: cfg.StopBits,
			Parity:   cfg.Parity,
			Timeout:  cfg.ReadTimeout,
		})
		if err != nil {
			return nil, err
		}
		return &serialPort{port: p}, nil
	}
}

// serialPort hides read timeouts: an idle device is not a dead link.
type serialPort struct {
	port   io.ReadCloser
	closed atomic.Bool
}

func (p *serialPort) Read(b []byte) (int, error) {
	for {
		if p.closed.Load() {
			return 0, io.EOF
		}
		n, err := p.port.Read(b)
		if errors.Is(err, serial.ErrTimeout) {
			if n > 0 {
				return n, nil
			}
			continue
		}
		if err != nil && p.closed.Load() {
			return n, io.EOF
		}
		return n, err
	}
}

func (p *serialPort) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.port.Close()
}
