package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsqa/internal/domain"
	"docsqa/internal/logger"
)

type stubAnswerer struct {
	resp    domain.RagResponse
	err     error
	gotQ    string
	gotDead bool
}

func (s *stubAnswerer) AnswerQuery(ctx context.Context, query string) (domain.RagResponse, error) {
	s.gotQ = query
	_, s.gotDead = ctx.Deadline()
	if s.err != nil {
		return domain.RagResponse{}, s.err
	}
	return s.resp, nil
}

type stubIndex struct{}

func (stubIndex) Meta() domain.IndexMeta {
	return domain.IndexMeta{
		SchemaVersion:  1,
		EmbeddingModel: "hash-384",
		Dimension:      384,
		ChunkSize:      1000,
		ChunkOverlap:   200,
		BuiltAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (stubIndex) Len() int { return 42 }

func newTestRouter(a Answerer, shape QueryShape) http.Handler {
	h := NewHandler(a, stubIndex{}, shape, time.Minute, logger.Discard())
	return NewRouter(h, logger.Discard())
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func answered() *stubAnswerer {
	return &stubAnswerer{resp: domain.RagResponse{
		Answer: "Run make install.",
		SourceDocuments: []domain.SourceDocument{
			{Text: "make install builds it", SourcePath: "docs/install.md", Score: 0.9},
			{Text: "see also make test", SourcePath: "docs/dev.md", Score: 0.7},
			{Text: "prerequisites", SourcePath: "docs/install.md", Score: 0.5},
		},
	}}
}

func TestHandleQuery_ObjectShape(t *testing.T) {
	a := answered()
	rec := post(t, newTestRouter(a, ShapeObject), `{"query": "How do I install it?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "How do I install it?", a.gotQ)
	assert.True(t, a.gotDead, "request should carry a deadline")

	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Run make install.", resp.Answer)
	assert.Len(t, resp.SourceDocuments, 3)
	assert.Equal(t, "docs/install.md", resp.SourceDocuments[0].SourcePath)
	assert.Equal(t, []string{"docs/install.md", "docs/dev.md"}, resp.Sources)
}

func TestHandleQuery_StringShape(t *testing.T) {
	a := answered()
	rec := post(t, newTestRouter(a, ShapeString), `"How do I install it?"`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "How do I install it?", a.gotQ)
}

func TestHandleQuery_StringShapeRejectsObject(t *testing.T) {
	rec := post(t, newTestRouter(answered(), ShapeString), `{"query": "x"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.KindInvalidArgument, decodeError(t, rec).Kind)
}

func TestHandleQuery_AutoShape(t *testing.T) {
	for _, body := range []string{`{"query": "what is it?"}`, `  "what is it?"`} {
		a := answered()
		rec := post(t, newTestRouter(a, ShapeAuto), body)
		require.Equal(t, http.StatusOK, rec.Code, body)
		assert.Equal(t, "what is it?", a.gotQ)
	}
}

func TestHandleQuery_EmptySources(t *testing.T) {
	a := &stubAnswerer{resp: domain.RagResponse{Answer: "The documentation does not cover this."}}
	rec := post(t, newTestRouter(a, ShapeObject), `{"query": "unrelated"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source_documents":[]`)
	assert.Contains(t, rec.Body.String(), `"sources":[]`)
}

func TestHandleQuery_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `query=install`},
		{"missing field", `{"question": "install"}`},
		{"wrong type", `{"query": 7}`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := answered()
			rec := post(t, newTestRouter(a, ShapeObject), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, domain.KindInvalidArgument, decodeError(t, rec).Kind)
			assert.Empty(t, a.gotQ, "pipeline must not run")
		})
	}
}

func TestHandleQuery_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   domain.Kind
	}{
		{"blank query", fmt.Errorf("%w: query must not be empty", domain.ErrInvalidArgument), http.StatusBadRequest, domain.KindInvalidArgument},
		{"embedding", fmt.Errorf("%w: connection refused", domain.ErrEmbedding), http.StatusBadGateway, domain.KindEmbedding},
		{"no index", fmt.Errorf("%w: .rag/index.db", domain.ErrIndexNotFound), http.StatusServiceUnavailable, domain.KindRetrieval},
		{"persistence", fmt.Errorf("%w: corrupt entry", domain.ErrPersistence), http.StatusInternalServerError, domain.KindRetrieval},
		{"generation", fmt.Errorf("%w: llama3: 429", domain.ErrGeneration), http.StatusBadGateway, domain.KindGeneration},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, domain.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, newTestRouter(&stubAnswerer{err: tt.err}, ShapeObject), `{"query": "q"}`)

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestHandleQuery_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	rec := httptest.NewRecorder()
	newTestRouter(answered(), ShapeObject).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	h := newTestRouter(answered(), ShapeObject)

	rec := post(t, h, `{"query": "q"}`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	newTestRouter(answered(), ShapeObject).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleStats(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	newTestRouter(answered(), ShapeObject).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 42, stats.Entries)
	assert.Equal(t, "hash-384", stats.EmbeddingModel)
	assert.Equal(t, 384, stats.Dimension)
}

func TestQueryRejectsGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	rec := httptest.NewRecorder()
	newTestRouter(answered(), ShapeObject).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
