package routers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/haierkeys/contract-version-service/internal/app"
	"github.com/haierkeys/contract-version-service/internal/dao"
	"github.com/haierkeys/contract-version-service/internal/domain"
	"github.com/haierkeys/contract-version-service/internal/dto"
	"github.com/haierkeys/contract-version-service/pkg/code"
	"github.com/haierkeys/contract-version-service/pkg/validator"

	"github.com/bytedance/sonic"
	"github.com/creasty/defaults"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	textA  = "The parties agree to keep all information exchanged under this agreement confidential."
	textB  = "Payment is due within thirty days of the invoice date."
	textB2 = "Payment is due within sixty days of the invoice date, without set-off."
	textC  = "This agreement is governed by the laws of the State of Delaware."
	textD  = "Either party may terminate this agreement with ninety days written notice."
)

type envelope struct {
	Code    int             `json:"code"`
	Status  bool            `json:"status"`
	Data    json.RawMessage `json:"data"`
	TraceID string          `json:"traceId"`
}

func init() {
	gin.SetMode(gin.TestMode)
	binding.Validator = validator.NewCustomValidator()
}

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	dir := t.TempDir()

	cfg := &app.AppConfig{}
	require.NoError(t, defaults.Set(cfg))
	cfg.Database.Path = filepath.Join(dir, "contracts.sqlite3")
	cfg.Storage.SavePath = filepath.Join(dir, "archive")
	cfg.Server.IngestRateLimit = 0

	db, err := dao.NewDBEngineWithConfig(cfg.GetDatabaseConfig(), nil)
	require.NoError(t, err)

	a, err := app.NewApp(cfg, zap.NewNop(), db)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})
	return a
}

func do(t *testing.T, r http.Handler, method, target string, body any) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := sonic.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env envelope
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func ingestBody(content string, clauses ...domain.ExtractedClause) map[string]any {
	return map[string]any{
		"filename": "MSA.pdf",
		"content":  base64.StdEncoding.EncodeToString([]byte(content)),
		"clauses":  clauses,
	}
}

func TestContractRoutes(t *testing.T) {
	a := newTestApp(t)
	r := NewRouter(a, nil)

	// v1
	env := do(t, r, "POST", "/api/contract/ingest", ingestBody("%PDF one",
		domain.ExtractedClause{Identifier: "A", Text: textA},
		domain.ExtractedClause{Identifier: "B", Text: textB},
		domain.ExtractedClause{Identifier: "C", Text: textC},
	))
	require.True(t, env.Status, string(env.Data))
	var res dto.IngestResponse
	require.NoError(t, sonic.Unmarshal(env.Data, &res))
	assert.Equal(t, "created", res.Outcome)
	assert.EqualValues(t, 1, res.Version)
	require.NotNil(t, res.Contract)
	id := res.Contract.ID

	// v2 through filename identity
	env = do(t, r, "POST", "/api/contract/ingest", ingestBody("%PDF two",
		domain.ExtractedClause{Identifier: "A", Text: textA},
		domain.ExtractedClause{Identifier: "B", Text: textB2},
		domain.ExtractedClause{Identifier: "D", Text: textD},
	))
	require.True(t, env.Status, string(env.Data))
	require.NoError(t, sonic.Unmarshal(env.Data, &res))
	assert.Equal(t, "versioned", res.Outcome)
	assert.EqualValues(t, 2, res.Version)

	// same bytes again
	env = do(t, r, "POST", "/api/contract/ingest", ingestBody("%PDF two",
		domain.ExtractedClause{Identifier: "A", Text: textA},
	))
	require.NoError(t, sonic.Unmarshal(env.Data, &res))
	assert.Equal(t, "duplicate", res.Outcome)

	var contract dto.ContractDTO
	env = do(t, r, "GET", "/api/contract?id="+itoa(id), nil)
	require.NoError(t, sonic.Unmarshal(env.Data, &contract))
	assert.EqualValues(t, 2, contract.CurrentVersion)

	var list struct {
		List  []dto.ContractDTO `json:"list"`
		Pager struct {
			TotalRows int `json:"totalRows"`
		} `json:"pager"`
	}
	env = do(t, r, "GET", "/api/contracts?page=1&pageSize=10", nil)
	require.NoError(t, sonic.Unmarshal(env.Data, &list))
	assert.Len(t, list.List, 1)
	assert.Equal(t, 1, list.Pager.TotalRows)

	var history []domain.VersionMetadata
	env = do(t, r, "GET", "/api/contract/history?id="+itoa(id), nil)
	require.NoError(t, sonic.Unmarshal(env.Data, &history))
	require.Len(t, history, 2)
	assert.ElementsMatch(t, []string{"B", "C", "D"}, history[1].ChangedClauses)

	var snap dto.SnapshotResponse
	env = do(t, r, "GET", "/api/contract/clauses?id="+itoa(id)+"&version=1", nil)
	require.NoError(t, sonic.Unmarshal(env.Data, &snap))
	require.Len(t, snap.Clauses, 3)
	assert.Equal(t, textC, snap.Clauses[2].Content)

	env = do(t, r, "GET", "/api/contract/clauses?id="+itoa(id), nil)
	require.NoError(t, sonic.Unmarshal(env.Data, &snap))
	assert.EqualValues(t, 2, snap.Version)
	require.Len(t, snap.Clauses, 3)
	assert.Equal(t, textB2, snap.Clauses[1].Content)

	var diff dto.DiffResponse
	env = do(t, r, "GET", "/api/contract/diff?id="+itoa(id)+"&from=1&to=2", nil)
	require.NoError(t, sonic.Unmarshal(env.Data, &diff))
	require.Len(t, diff.Modified, 1)
	assert.Equal(t, "B", diff.Modified[0].Identifier)
	assert.NotEmpty(t, diff.Modified[0].Patch)
	assert.Len(t, diff.Added, 1)
	assert.Len(t, diff.Deleted, 1)

	var candidates []domain.MatchCandidate
	env = do(t, r, "GET", "/api/contract/matches?filename=MSA.pdf", nil)
	require.NoError(t, sonic.Unmarshal(env.Data, &candidates))
	require.Len(t, candidates, 1)
	assert.Equal(t, id, candidates[0].ContractID)
}

func TestContractRoutes_Errors(t *testing.T) {
	a := newTestApp(t)
	r := NewRouter(a, nil)

	env := do(t, r, "GET", "/api/contract?id=99", nil)
	assert.Equal(t, code.ErrorContractNotFound.Code(), env.Code)
	assert.False(t, env.Status)
	assert.NotEmpty(t, env.TraceID)

	env = do(t, r, "GET", "/api/contract", nil)
	assert.Equal(t, code.ErrorInvalidParams.Code(), env.Code)

	env = do(t, r, "GET", "/api/contract/matches?hash=nothex", nil)
	assert.Equal(t, code.ErrorInvalidParams.Code(), env.Code)

	env = do(t, r, "POST", "/api/contract/ingest", map[string]any{
		"filename": "x.pdf",
		"content":  "!!!",
		"clauses":  []domain.ExtractedClause{{Identifier: "A", Text: textA}},
	})
	assert.Equal(t, code.ErrorInvalidParams.Code(), env.Code)

	env = do(t, r, "POST", "/api/contract/ingest", ingestBody("%PDF dup ids",
		domain.ExtractedClause{Identifier: "A", Text: textA},
		domain.ExtractedClause{Identifier: "A", Text: textB},
	))
	assert.Equal(t, code.ErrorInvalidClauseSet.Code(), env.Code)

	env = do(t, r, "GET", "/api/nowhere", nil)
	assert.Equal(t, code.ErrorNotFound.Code(), env.Code)

	env = do(t, r, "GET", "/api/health", nil)
	assert.True(t, env.Status)
}

func TestContractRoutes_Archive(t *testing.T) {
	a := newTestApp(t)
	r := NewRouter(a, nil)

	env := do(t, r, "POST", "/api/contract/ingest", ingestBody("%PDF archived",
		domain.ExtractedClause{Identifier: "A", Text: textA},
	))
	require.True(t, env.Status, string(env.Data))
	var res dto.IngestResponse
	require.NoError(t, sonic.Unmarshal(env.Data, &res))

	var w *httptest.ResponseRecorder
	require.Eventually(t, func() bool {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/api/contract/archive?hash="+res.Hash, nil))
		return w.Header().Get("Content-Type") == "application/octet-stream"
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "%PDF archived", w.Body.String())

	env = do(t, r, "GET", "/api/contract/archive?hash="+strings.Repeat("0", 64), nil)
	assert.Equal(t, code.ErrorArchiveNotFound.Code(), env.Code)

	env = do(t, r, "GET", "/api/contract/archive?hash=nothex", nil)
	assert.Equal(t, code.ErrorInvalidParams.Code(), env.Code)
}

func TestPrivateRouter_Metrics(t *testing.T) {
	a := newTestApp(t)
	r := NewRouter(a, nil)
	do(t, r, "POST", "/api/contract/ingest", ingestBody("%PDF metrics",
		domain.ExtractedClause{Identifier: "A", Text: textA},
	))

	private := NewPrivateRouterWithLogger("release", a.Registry, zap.NewNop())
	w := httptest.NewRecorder()
	private.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `contract_version_ingest_total{outcome="created"} 1`), w.Body.String())

	w = httptest.NewRecorder()
	private.ServeHTTP(w, httptest.NewRequest("GET", "/debug/pprof/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngestRateLimit(t *testing.T) {
	a := newTestApp(t)
	a.Config().Server.IngestRateLimit = 0.001
	a.Config().Server.IngestRateBurst = 1
	r := NewRouter(a, nil)

	env := do(t, r, "POST", "/api/contract/ingest", ingestBody("%PDF limited",
		domain.ExtractedClause{Identifier: "A", Text: textA},
	))
	assert.True(t, env.Status)

	env = do(t, r, "POST", "/api/contract/ingest", ingestBody("%PDF limited 2",
		domain.ExtractedClause{Identifier: "A", Text: textA},
	))
	assert.Equal(t, code.ErrorTooManyRequest.Code(), env.Code)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
