package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"stateflow.dev/stateflow/internal/api/middleware"
	"stateflow.dev/stateflow/internal/api/openapi"
	"stateflow.dev/stateflow/internal/domain"
	"stateflow.dev/stateflow/internal/governance/audit"
	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
	"stateflow.dev/stateflow/internal/pkg/logger"
	"stateflow.dev/stateflow/internal/pkg/retry"
	"stateflow.dev/stateflow/internal/repository/memstore"
	"stateflow.dev/stateflow/internal/stateio"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

type apiHarness struct {
	t      *testing.T
	router *gin.Engine
}

func newTestRouter(t *testing.T, deps ServerDeps) *gin.Engine {
	t.Helper()
	doc, err := openapi.GetSwagger()
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.ErrorHandler(), middleware.ActorIdentity(middleware.JWTConfig{}))
	api := router.Group("/api/v1")
	api.Use(middleware.MustOpenAPIValidator(doc, "/api/v1"))
	NewServer(deps).RegisterRoutes(api)
	return router
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	coord := stateio.New(memstore.New())
	return &apiHarness{t: t, router: newTestRouter(t, ServerDeps{Engine: coord})}
}

func (h *apiHarness) do(method, path, body string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.ActorIDHeader, "alice")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (h *apiHarness) createTerm(label string) domain.TermWithUsage {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/v1/io-terms", `{"label":"`+label+`"}`)
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.TermWithUsage](h.t, w)
}

func (h *apiHarness) createState(name string) State {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/v1/states", `{"project_id":"p1","name":"`+name+`"}`)
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[State](h.t, w)
}

func TestIOTerms_CreateGetList(t *testing.T) {
	h := newAPIHarness(t)

	created := h.createTerm("  Order  ")
	assert.Equal(t, "Order", created.Label)
	assert.Equal(t, "alice", created.CreatedBy)
	assert.Equal(t, 0, created.UsageCount)

	w := h.do(http.MethodGet, "/api/v1/io-terms/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[domain.TermWithUsage](t, w).ID)

	h.createTerm("Invoice")
	w = h.do(http.MethodGet, "/api/v1/io-terms?search=ORD&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[IOTermList](t, w)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Order", list.Items[0].Label)

	w = h.do(http.MethodGet, "/api/v1/io-terms?search=nothing", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
}

func TestIOTerms_DuplicateLabelIsConflict(t *testing.T) {
	h := newAPIHarness(t)
	h.createTerm("Order")

	w := h.do(http.MethodPost, "/api/v1/io-terms", `{"label":"ORDER"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode[middleware.ErrorResponse](t, w)
	assert.Equal(t, apperrors.CodeIOTermLabelExists, body.Code)
}

func TestIOTerms_BlankLabelIsValidationError(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(http.MethodPost, "/api/v1/io-terms", `{"label":"   "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeValidationFailed, decode[middleware.ErrorResponse](t, w).Code)
}

func TestIOTerms_UnknownIDIsNotFound(t *testing.T) {
	h := newAPIHarness(t)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/v1/io-terms/missing", ""},
		{http.MethodGet, "/api/v1/io-terms/missing/usage", ""},
		{http.MethodPut, "/api/v1/io-terms/missing", `{"label":"x"}`},
	} {
		w := h.do(tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, apperrors.CodeIOTermNotFound, decode[middleware.ErrorResponse](t, w).Code)
	}
}

func TestStates_SyncRelabelCascade(t *testing.T) {
	h := newAPIHarness(t)
	a, b := h.createTerm("Order"), h.createTerm("Invoice")
	s1, s2 := h.createState("Review"), h.createState("Ship")

	w := h.do(http.MethodPut, "/api/v1/states/"+s1.ID+"/io-terms",
		`{"input_term_ids":["`+b.ID+`","`+a.ID+`","`+b.ID+`"],"output_term_ids":["`+a.ID+`"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	state := decode[State](t, w)
	assert.Equal(t, "Invoice, Order", state.InputSummary)
	assert.Equal(t, "Order", state.OutputSummary)
	assert.Equal(t, domain.SourceTerms, state.InputSource)
	require.Len(t, state.InputTerms, 2)
	assert.Equal(t, b.ID, state.InputTerms[0].ID)

	w = h.do(http.MethodPut, "/api/v1/states/"+s2.ID+"/io-terms", `{"input_term_ids":["`+a.ID+`"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/api/v1/io-terms/"+a.ID+"/usage", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[IOTermUsage](t, w).UsageCount)

	w = h.do(http.MethodPut, "/api/v1/io-terms/"+a.ID, `{"label":"Purchase Order"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(http.MethodGet, "/api/v1/states/"+s1.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	state = decode[State](t, w)
	assert.Equal(t, "Invoice, Purchase Order", state.InputSummary)
	assert.Equal(t, "Purchase Order", state.OutputSummary)

	w = h.do(http.MethodGet, "/api/v1/states/"+s2.ID, "")
	assert.Equal(t, "Purchase Order", decode[State](t, w).InputSummary)
}

func TestStates_SyncMissingTerms(t *testing.T) {
	h := newAPIHarness(t)
	a := h.createTerm("Order")
	s := h.createState("Review")

	w := h.do(http.MethodPut, "/api/v1/states/"+s.ID+"/io-terms", `{"input_term_ids":["`+a.ID+`"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodPut, "/api/v1/states/"+s.ID+"/io-terms", `{"input_term_ids":["nonexistent","`+a.ID+`"]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Code   string `json:"code"`
		Params struct {
			IDs []string `json:"ids"`
		} `json:"params"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeIOTermsNotFound, body.Code)
	assert.Equal(t, []string{"nonexistent"}, body.Params.IDs)

	w = h.do(http.MethodGet, "/api/v1/states/"+s.ID, "")
	assert.Equal(t, "Order", decode[State](t, w).InputSummary)
}

func TestStates_SyncEmptyListClears(t *testing.T) {
	h := newAPIHarness(t)
	a := h.createTerm("Order")
	s := h.createState("Review")

	h.do(http.MethodPut, "/api/v1/states/"+s.ID+"/io-terms", `{"input_term_ids":["`+a.ID+`"],"output_term_ids":["`+a.ID+`"]}`)
	w := h.do(http.MethodPut, "/api/v1/states/"+s.ID+"/io-terms", `{"input_term_ids":[]}`)
	require.Equal(t, http.StatusOK, w.Code)

	state := decode[State](t, w)
	assert.Equal(t, "", state.InputSummary)
	assert.Empty(t, state.InputTerms)
	assert.Equal(t, "Order", state.OutputSummary)
}

func TestStates_SyncUnknownState(t *testing.T) {
	h := newAPIHarness(t)
	a := h.createTerm("Order")

	w := h.do(http.MethodPut, "/api/v1/states/missing/io-terms", `{"input_term_ids":["`+a.ID+`"]}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeStateNotFound, decode[middleware.ErrorResponse](t, w).Code)
}

func TestStates_CreateUpdateFreeText(t *testing.T) {
	h := newAPIHarness(t)
	a := h.createTerm("Order")

	w := h.do(http.MethodPost, "/api/v1/states",
		`{"project_id":"p1","name":"Review","input_summary":"typed","output_term_ids":["`+a.ID+`"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	state := decode[State](t, w)
	assert.Equal(t, "typed", state.InputSummary)
	assert.Equal(t, domain.SourceText, state.InputSource)
	assert.Equal(t, "Order", state.OutputSummary)
	assert.NotNil(t, state.InputTerms)

	w = h.do(http.MethodPut, "/api/v1/states/"+state.ID, `{"output_summary":"hand written"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	state = decode[State](t, w)
	assert.Equal(t, "hand written", state.OutputSummary)
	assert.Equal(t, domain.SourceText, state.OutputSource)
	assert.Empty(t, state.OutputTerms)

	w = h.do(http.MethodPost, "/api/v1/states", `{"project_id":"p1","name":"Review"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.CodeStateNameExists, decode[middleware.ErrorResponse](t, w).Code)
}

func TestStates_Recalculate(t *testing.T) {
	h := newAPIHarness(t)
	s := h.createState("Review")

	w := h.do(http.MethodPost, "/api/v1/states/recalculate", `{"state_ids":["`+s.ID+`","missing",""]}`)
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
}

func TestRequestValidation(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(http.MethodPost, "/api/v1/io-terms", `{"label":"x","extra":true}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeOpenAPIRequestInvalid, decode[middleware.ErrorResponse](t, w).Code)

	w = h.do(http.MethodGet, "/api/v1/io-terms?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	h := newAPIHarness(t)
	w := h.do(http.MethodGet, "/api/v1/health/live", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	down := newTestRouter(t, ServerDeps{
		Engine: stateio.New(memstore.New()),
		Ready:  func(context.Context) error { return errors.New("db down") },
	})
	rec := httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

var errTransient = errors.New("serialization failure")

// flakyEngine fails the first n CreateTerm calls with a transient error.
type flakyEngine struct {
	Engine
	failures int
	calls    int
}

func (f *flakyEngine) CreateTerm(ctx context.Context, label, description, actorID string) (domain.TermWithUsage, error) {
	f.calls++
	if f.calls <= f.failures {
		return domain.TermWithUsage{}, apperrors.ErrStorage(errTransient)
	}
	return f.Engine.CreateTerm(ctx, label, description, actorID)
}

func TestMutationsRetryTransientFailures(t *testing.T) {
	engine := &flakyEngine{Engine: stateio.New(memstore.New()), failures: 2}
	router := newTestRouter(t, ServerDeps{
		Engine:    engine,
		Retry:     retry.Policy{InitialInterval: time.Millisecond, MaxElapsed: time.Second},
		Transient: func(err error) bool { return errors.Is(err, errTransient) },
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/io-terms", bytes.NewBufferString(`{"label":"Order"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 3, engine.calls)
	assert.Equal(t, "anonymous", decode[domain.TermWithUsage](t, w).CreatedBy)
}

func TestMutationsWithoutClassifierDoNotRetry(t *testing.T) {
	engine := &flakyEngine{Engine: stateio.New(memstore.New()), failures: 1}
	router := newTestRouter(t, ServerDeps{Engine: engine})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/io-terms", bytes.NewBufferString(`{"label":"Order"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperrors.CodeStorageFailure, decode[middleware.ErrorResponse](t, w).Code)
	assert.Equal(t, 1, engine.calls)
}

func TestMutationsWriteAuditRecords(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := newTestRouter(t, ServerDeps{
		Engine: stateio.New(memstore.New()),
		Audit:  audit.NewLogger(zap.New(core)),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/io-terms", bytes.NewBufferString(`{"label":"Order"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorIDHeader, "alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	term := decode[domain.TermWithUsage](t, w)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/io-terms", bytes.NewBufferString(`{"label":"order"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusConflict, w.Code)

	entries := logs.FilterLoggerName("audit").All()
	require.Len(t, entries, 1, "failed mutations are not audited")
	fields := entries[0].ContextMap()
	assert.Equal(t, "io_term.create", fields["action"])
	assert.Equal(t, term.ID, fields["resource_id"])
	assert.Equal(t, "alice", fields["actor"])
	assert.NotEmpty(t, fields["request_id"])
}
