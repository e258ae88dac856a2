// FILE: src/internal/server/http.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"rsslogfeed/src/internal/config"
	"rsslogfeed/src/internal/core"
	"rsslogfeed/src/internal/feed"
	"rsslogfeed/src/internal/netlimit"
	"rsslogfeed/src/internal/store"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fastjson"
)

const (
	feedPath      = "/feed/logs"
	ingestPrefix  = "/log/"
	healthPath    = "/healthz"
	maxIngestBody = 1 << 20 // 1 MB
)

// Server is the HTTP surface: log ingestion and the syndication feed.
// It owns no record state; the store and renderer are injected.
type Server struct {
	port     int
	st       *store.Store
	renderer *feed.Renderer
	limiter  *netlimit.Limiter
	logger   *log.Logger
	server   *fasthttp.Server
	parsers  fastjson.ParserPool
	wg       sync.WaitGroup

	// Statistics
	totalRequests   atomic.Uint64
	invalidRequests atomic.Uint64
	startTime       time.Time
}

// New creates the HTTP server
func New(cfg config.ServerConfig, st *store.Store, renderer *feed.Renderer, limiter *netlimit.Limiter, logger *log.Logger) *Server {
	return &Server{
		port:      cfg.Port,
		st:        st,
		renderer:  renderer,
		limiter:   limiter,
		logger:    logger,
		startTime: time.Now(),
	}
}

func (s *Server) Start() error {
	s.server = &fasthttp.Server{
		Handler:            s.requestHandler,
		MaxRequestBodySize: maxIngestBody,
		CloseOnShutdown:    true,
	}

	addr := fmt.Sprintf(":%d", s.port)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("msg", "HTTP server starting",
			"component", "http_server",
			"port", s.port)

		if err := s.server.ListenAndServe(addr); err != nil {
			s.logger.Error("msg", "HTTP server failed",
				"component", "http_server",
				"port", s.port,
				"error", err)
		}
	}()

	return nil
}

func (s *Server) Stop() {
	s.logger.Info("msg", "Stopping HTTP server")

	if s.server != nil {
		if err := s.server.Shutdown(); err != nil {
			s.logger.Error("msg", "Error shutting down HTTP server",
				"component", "http_server",
				"error", err)
		}
	}

	s.wg.Wait()
	s.logger.Info("msg", "HTTP server stopped")
}

func (s *Server) requestHandler(ctx *fasthttp.RequestCtx) {
	s.totalRequests.Add(1)

	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case method == fasthttp.MethodGet && path == feedPath:
		s.handleFeed(ctx)
	case method == fasthttp.MethodPost && len(path) > len(ingestPrefix) &&
		path[:len(ingestPrefix)] == ingestPrefix:
		s.handleIngest(ctx, path[len(ingestPrefix):])
	case method == fasthttp.MethodGet && path == healthPath:
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{
			"error": "Not Found",
			"hint":  fmt.Sprintf("POST logs to %s<level>, read the feed at %s", ingestPrefix, feedPath),
		})
	}
}

// handleFeed serves the RSS rendering of the queried record view
func (s *Server) handleFeed(ctx *fasthttp.RequestCtx) {
	var records []core.LogRecord

	if ctx.QueryArgs().Has("level") {
		value := string(ctx.QueryArgs().Peek("level"))
		level, err := core.ParseLevel(value)
		if err != nil {
			s.invalidRequests.Add(1)
			s.logger.Error("msg", "Invalid feed level requested",
				"component", "http_server",
				"level", value)
			respondInvalidLevel(ctx, err)
			return
		}
		records = s.st.QueryLevel(level)
	} else {
		records = s.st.Query()
	}

	doc, err := s.renderer.Render(records)
	if err != nil {
		s.logger.Error("msg", "Feed rendering failed",
			"component", "http_server",
			"error", err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetContentType("text/plain")
		ctx.SetBodyString("feed rendering failed")
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(feed.ContentType)
	ctx.SetBody(doc)
}

// handleIngest validates the level and payload, then appends the record
func (s *Server) handleIngest(ctx *fasthttp.RequestCtx, levelName string) {
	level, err := core.ParseLevel(levelName)
	if err != nil {
		s.invalidRequests.Add(1)
		s.logger.Error("msg", "Invalid log level",
			"component", "http_server",
			"level", levelName)
		respondInvalidLevel(ctx, err)
		return
	}

	remoteAddr := ctx.RemoteAddr().String()
	if !s.limiter.Allow(remoteAddr) {
		ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
		ctx.SetContentType("text/plain")
		ctx.SetBodyString("Rate limit exceeded")
		return
	}

	payload, err := s.parsePayload(ctx.PostBody())
	if err != nil {
		s.invalidRequests.Add(1)
		s.logger.Error("msg", "Malformed ingest payload",
			"component", "http_server",
			"remote_addr", remoteAddr,
			"error", err)
		respondMalformed(ctx, err)
		return
	}

	client := ctx.RemoteIP().String()
	if payload.client != "" {
		client = fmt.Sprintf("%s (%s)", payload.client, client)
	}

	s.st.Append(core.LogRecord{
		Level:   level,
		Client:  client,
		Message: payload.message,
		Extra:   payload.extra,
	})

	ctx.SetStatusCode(fasthttp.StatusOK)
}

type ingestPayload struct {
	message string
	client  string
	extra   map[string]any
}

// MalformedPayloadError reports a body that cannot be shaped into a
// record. It never reaches the store.
type MalformedPayloadError struct {
	Reason string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// parsePayload accepts either a JSON object (optional message and client
// strings, remaining keys become extra data) or any other body, which is
// taken verbatim as the message.
func (s *Server) parsePayload(body []byte) (ingestPayload, error) {
	parser := s.parsers.Get()
	defer s.parsers.Put(parser)

	v, err := parser.ParseBytes(body)
	if err != nil || v.Type() != fastjson.TypeObject {
		// Raw text body
		return ingestPayload{message: string(body)}, nil
	}

	obj, err := v.Object()
	if err != nil {
		return ingestPayload{}, &MalformedPayloadError{Reason: "invalid JSON object", Err: err}
	}

	var payload ingestPayload
	payload.extra = make(map[string]any)

	var visitErr error
	obj.Visit(func(key []byte, val *fastjson.Value) {
		if visitErr != nil {
			return
		}

		switch string(key) {
		case "message":
			str, err := stringField(val)
			if err != nil {
				visitErr = &MalformedPayloadError{Reason: "`message` must be a string", Err: err}
				return
			}
			payload.message = str
		case "client":
			str, err := stringField(val)
			if err != nil {
				visitErr = &MalformedPayloadError{Reason: "`client` must be a string", Err: err}
				return
			}
			payload.client = str
		default:
			payload.extra[string(key)] = convertValue(val)
		}
	})

	if visitErr != nil {
		return ingestPayload{}, visitErr
	}

	if err := core.ValidateExtra(payload.extra); err != nil {
		return ingestPayload{}, &MalformedPayloadError{Reason: "extra data exceeds limits", Err: err}
	}

	if len(payload.extra) == 0 {
		payload.extra = nil
	}

	return payload, nil
}

func stringField(v *fastjson.Value) (string, error) {
	if v.Type() == fastjson.TypeNull {
		return "", nil
	}
	b, err := v.StringBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// convertValue maps a parsed JSON value onto the record's extra union
func convertValue(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b)
	case fastjson.TypeNumber:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeObject:
		obj, _ := v.Object()
		m := make(map[string]any)
		obj.Visit(func(key []byte, val *fastjson.Value) {
			m[string(key)] = convertValue(val)
		})
		return m
	case fastjson.TypeArray:
		arr, _ := v.Array()
		out := make([]any, 0, len(arr))
		for _, item := range arr {
			out = append(out, convertValue(item))
		}
		return out
	default:
		return nil
	}
}

func respondInvalidLevel(ctx *fasthttp.RequestCtx, err error) {
	ctx.SetStatusCode(fasthttp.StatusBadRequest)
	ctx.SetContentType("text/plain")
	ctx.SetBodyString(err.Error())
}

func respondMalformed(ctx *fasthttp.RequestCtx, err error) {
	var exception string
	var malformed *MalformedPayloadError
	if errors.As(err, &malformed) && malformed.Err != nil {
		exception = malformed.Err.Error()
	} else {
		exception = err.Error()
	}

	ctx.SetStatusCode(fasthttp.StatusBadRequest)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(map[string]string{
		"error":     "Invalid request body. If payload is JSON, `message` must be a string",
		"trace":     string(debug.Stack()),
		"exception": exception,
	})
}

// ServerStats contains statistics about the HTTP surface
type ServerStats struct {
	TotalRequests   uint64
	InvalidRequests uint64
	StartTime       time.Time
	NetLimit        map[string]any
}

// GetStats returns server statistics
func (s *Server) GetStats() ServerStats {
	return ServerStats{
		TotalRequests:   s.totalRequests.Load(),
		InvalidRequests: s.invalidRequests.Load(),
		StartTime:       s.startTime,
		NetLimit:        s.limiter.GetStats(),
	}
}
