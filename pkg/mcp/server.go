// Package mcp exposes storepilot's read-side views to MCP clients over
// newline-delimited JSON-RPC 2.0 on stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/storepilot/storepilot/pkg/models"
	"github.com/storepilot/storepilot/pkg/orders"
	"github.com/storepilot/storepilot/pkg/policy"
	"github.com/storepilot/storepilot/pkg/tracker"
)

// CacheStatter reports cache statistics. *cache.Cache implements it.
type CacheStatter interface {
	Stats(ctx context.Context) (models.CacheStats, error)
}

// BudgetStatter reports token budget usage. *budget.Enforcer implements it.
type BudgetStatter interface {
	Status(ctx context.Context, task string) ([]models.BudgetStatus, error)
}

// Deps are the views a Server can answer from. Nil fields disable the
// matching tools' data; the tools then say so instead of failing.
type Deps struct {
	Tracker    tracker.Tracker
	Cache      CacheStatter
	Budget     BudgetStatter
	Engine     *policy.Engine
	Decisions  *policy.DecisionLog
	Orders     orders.Source
	BaseBid    float64
	BaseBudget float64
}

// Server answers MCP requests.
type Server struct {
	deps    Deps
	version string
	log     *zap.Logger
	now     func() time.Time
}

// New creates a Server. A nil logger discards output.
func New(deps Deps, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{deps: deps, version: version, log: logger.Named("mcp"), now: time.Now}
}

// Run reads one request per line from r and writes responses to w.
// It returns when r is exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.write(w, fail(nil, CodeParseError, "parse error"))
			continue
		}
		if resp := s.dispatch(ctx, &req); resp != nil {
			s.write(w, resp)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	s.log.Debug("request", zap.String("method", req.Method))
	switch req.Method {
	case "initialize":
		return reply(req.ID, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "storepilot", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		})
	case "notifications/initialized":
		return nil
	case "tools/list":
		return reply(req.ID, ToolsListResult{Tools: tools})
	case "tools/call":
		var params ToolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return fail(req.ID, CodeInvalidParams, "invalid params")
		}
		h, ok := handlers[params.Name]
		if !ok {
			return reply(req.ID, errorResult("unknown tool: "+params.Name))
		}
		return reply(req.ID, h(ctx, s, params.Arguments))
	default:
		return fail(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) write(w io.Writer, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("marshal response", zap.Error(err))
		return
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		s.log.Error("write response", zap.Error(err))
	}
}
