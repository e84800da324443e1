package transport

import (
	"io"

	"github.com/JamesPrial/mcp-fleet/pkg/config"
	"github.com/JamesPrial/mcp-fleet/pkg/errors"
)

// New creates the transport named by cfg.Type. in and out are used by
// the stdio transport only.
func New(cfg *config.TransportSettings, in io.Reader, out io.Writer) (Transport, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrCodeConfiguration, "transport configuration cannot be nil")
	}
	switch cfg.Type {
	case config.TransportStdio, "":
		return NewStdioTransport(in, out), nil
	case config.TransportHTTP:
		return NewHTTPTransport(cfg), nil
	default:
		return nil, errors.Newf(errors.ErrCodeConfiguration, "unsupported transport type: %s", cfg.Type)
	}
}
