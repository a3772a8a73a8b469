package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"docsqa/internal/domain"
)

const maxQueryBody = 1 << 20

// Answerer is the question-answering pipeline behind POST /query.
type Answerer interface {
	AnswerQuery(ctx context.Context, query string) (domain.RagResponse, error)
}

// IndexInfo describes the loaded index for GET /stats.
type IndexInfo interface {
	Meta() domain.IndexMeta
	Len() int
}

// QueryShape selects how the POST /query body carries the question.
type QueryShape string

const (
	ShapeObject QueryShape = "object" // {"query": "..."}
	ShapeString QueryShape = "string" // "..."
	ShapeAuto   QueryShape = "auto"   // either
)

// Handler holds the dependencies for HTTP handlers.
type Handler struct {
	answerer Answerer
	index    IndexInfo
	shape    QueryShape
	timeout  time.Duration
	log      *slog.Logger
}

// NewHandler creates a Handler. A zero timeout disables the per-request deadline.
func NewHandler(answerer Answerer, index IndexInfo, shape QueryShape, timeout time.Duration, log *slog.Logger) *Handler {
	return &Handler{
		answerer: answerer,
		index:    index,
		shape:    shape,
		timeout:  timeout,
		log:      log,
	}
}

type queryRequest struct {
	Query *string `json:"query"`
}

type queryResponse struct {
	Answer          string                  `json:"answer"`
	SourceDocuments []domain.SourceDocument `json:"source_documents"`
	Sources         []string                `json:"sources"`
}

type errorBody struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type statsResponse struct {
	Entries        int       `json:"entries"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	SchemaVersion  int       `json:"schema_version"`
	BuiltAt        time.Time `json:"built_at"`
}

// HandleQuery handles POST /query requests.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxQueryBody))
	if err != nil {
		h.sendError(w, r, fmt.Errorf("%w: read body: %v", domain.ErrInvalidArgument, err))
		return
	}

	query, err := h.decodeQuery(body)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp, err := h.answerer.AnswerQuery(ctx, query)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	sources := resp.SourceDocuments
	if sources == nil {
		sources = []domain.SourceDocument{}
	}
	sendJSON(w, http.StatusOK, queryResponse{
		Answer:          resp.Answer,
		SourceDocuments: sources,
		Sources:         resp.UniqueSources(),
	})
}

// decodeQuery extracts the question according to the configured shape.
func (h *Handler) decodeQuery(body []byte) (string, error) {
	shape := h.shape
	if shape == ShapeAuto {
		shape = ShapeObject
		if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '"' {
			shape = ShapeString
		}
	}

	switch shape {
	case ShapeString:
		var q string
		if err := json.Unmarshal(body, &q); err != nil {
			return "", fmt.Errorf("%w: body must be a JSON string: %v", domain.ErrInvalidArgument, err)
		}
		return q, nil
	default:
		var req queryRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return "", fmt.Errorf("%w: body must be {\"query\": string}: %v", domain.ErrInvalidArgument, err)
		}
		if req.Query == nil {
			return "", fmt.Errorf("%w: missing \"query\" field", domain.ErrInvalidArgument)
		}
		return *req.Query, nil
	}
}

// HandleHealth handles GET /health requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleStats handles GET /stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	meta := h.index.Meta()
	sendJSON(w, http.StatusOK, statsResponse{
		Entries:        h.index.Len(),
		EmbeddingModel: meta.EmbeddingModel,
		Dimension:      meta.Dimension,
		ChunkSize:      meta.ChunkSize,
		ChunkOverlap:   meta.ChunkOverlap,
		SchemaVersion:  meta.SchemaVersion,
		BuiltAt:        meta.BuiltAt,
	})
}

// StatusFor maps a failure to its HTTP status.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindEmbedding, domain.KindGeneration:
		return http.StatusBadGateway
	case domain.KindRetrieval:
		if errors.Is(err, domain.ErrIndexNotFound) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindIngestion {
		kind = domain.KindInternal
	}
	status := StatusFor(err)

	h.log.Warn("query failed",
		"kind", kind,
		"status", status,
		"error", err,
		"request_id", RequestID(r.Context()))

	sendJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: err.Error()}})
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
