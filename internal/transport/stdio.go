package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JamesPrial/mcp-fleet/pkg/errors"
	"github.com/JamesPrial/mcp-fleet/pkg/logging"
)

// maxLineBytes bounds a single line-delimited message
const maxLineBytes = 10 * 1024 * 1024

// StdioTransport serves line-delimited JSON-RPC over a reader/writer pair,
// normally stdin and stdout
type StdioTransport struct {
	in      io.Reader
	out     io.Writer
	writeMu sync.Mutex
	running atomic.Bool
	logger  *slog.Logger
	metrics *logging.MetricsCollector
}

// NewStdioTransport creates a stdio transport reading requests from in and
// writing responses to out
func NewStdioTransport(in io.Reader, out io.Writer) *StdioTransport {
	return &StdioTransport{
		in:      in,
		out:     out,
		logger:  logging.GetGlobalLogger("transport.stdio"),
		metrics: logging.GetGlobalMetricsCollector(),
	}
}

// Start reads requests until input ends, ctx is canceled or Stop is called
func (t *StdioTransport) Start(ctx context.Context, handler RequestHandler) error {
	t.running.Store(true)
	defer t.running.Store(false)

	t.logger.InfoContext(ctx, "StdIO transport starting",
		slog.String("transport", t.Name()),
	)

	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for t.running.Load() && scanner.Scan() {
		select {
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "StdIO transport context cancelled")
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		t.handleLine(ctx, handler, line)
	}

	if err := scanner.Err(); err != nil {
		t.logger.ErrorContext(ctx, "Error reading from stdin",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("error reading from stdin: %w", err)
	}

	t.logger.InfoContext(ctx, "StdIO transport stopped")
	return nil
}

func (t *StdioTransport) handleLine(ctx context.Context, handler RequestHandler, line string) {
	requestCtx := logging.NewRequestContext(ctx, "HandleStdIORequest")

	req, err := ParseRequest([]byte(line))
	if err != nil {
		t.logger.WarnContext(requestCtx, "Failed to parse JSON-RPC request",
			slog.String("error", err.Error()),
		)
		t.sendResponse(requestCtx, NewParseError())
		return
	}

	t.logger.DebugContext(requestCtx, "Processing JSON-RPC request",
		slog.String("method", req.Method),
		slog.Any("id", req.ID),
	)

	startTime := time.Now()
	resp := handler(requestCtx, req)
	duration := time.Since(startTime)
	t.metrics.RecordRequest(t.Name(), req.Method, duration, responseError(resp))

	if resp == nil {
		return
	}
	if resp.Error != nil {
		t.logger.WarnContext(requestCtx, "Request completed with error",
			slog.String("method", req.Method),
			slog.Any("id", req.ID),
			slog.Duration("duration", duration),
			slog.String("error", resp.Error.Message),
		)
	} else {
		t.logger.DebugContext(requestCtx, "Request completed successfully",
			slog.String("method", req.Method),
			slog.Any("id", req.ID),
			slog.Duration("duration", duration),
		)
	}

	t.sendResponse(requestCtx, resp)
}

// Stop makes Start return after the line being processed
func (t *StdioTransport) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "StdIO transport stopping")
	t.running.Store(false)
	return nil
}

// Name returns the name of the transport
func (t *StdioTransport) Name() string {
	return "stdio"
}

// sendResponse writes one response line
func (t *StdioTransport) sendResponse(ctx context.Context, resp *JSONRPCResponse) {
	respBytes, err := json.Marshal(resp)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to marshal response",
			slog.Any("response_id", resp.ID),
			slog.String("error", err.Error()),
		)
		marshalErr := errors.Wrap(err, errors.ErrCodeTransportMarshal, "Failed to serialize response")
		respBytes, err = json.Marshal(ToJSONRPCResponse(resp.ID, marshalErr))
		if err != nil {
			respBytes, _ = json.Marshal(CreateFallbackErrorResponse(resp.ID, "Critical serialization error"))
		}
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := fmt.Fprintln(t.out, string(respBytes)); err != nil {
		t.logger.ErrorContext(ctx, "Failed to write response",
			slog.String("error", err.Error()),
		)
	}
}

// responseError turns a JSON-RPC error into an error for metrics labels
func responseError(resp *JSONRPCResponse) error {
	if resp == nil || resp.Error == nil {
		return nil
	}
	return fmt.Errorf("%d: %s", resp.Error.Code, resp.Error.Message)
}
