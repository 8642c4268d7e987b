package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"dtbase_go_backend/internal/api"
	"dtbase_go_backend/internal/database"
	"dtbase_go_backend/internal/services"
	"dtbase_go_backend/internal/utils/broker"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	db, err := database.Open(":memory:")
	require.NoError(t, err)

	logger := zerolog.New(os.Stderr)
	eventBroker := broker.NewBroker()
	modelService, err := services.NewModelService(services.NewModelStoreDB(db), eventBroker, logger)
	require.NoError(t, err)
	importService := services.NewReferenceImportService(modelService, logger)
	quantifyService := services.NewQuantifyService(modelService, 100)
	exportService := services.NewExportService(modelService, ":memory:", logger)

	r := gin.New()
	api.SetupRoutes(r, modelService, importService, quantifyService, exportService)
	return r
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "analyst1"})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesRequireAuth(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nodes", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNodeLifecycle(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/nodes", gin.H{"node_id": "org", "name": "Organizational factors"})
	require.Equal(t, http.StatusCreated, w.Code)

	// Duplicate creation conflicts.
	w = doJSON(t, r, http.MethodPost, "/api/nodes", gin.H{"node_id": "org"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/nodes/org", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Organizational factors")

	w = doJSON(t, r, http.MethodDelete, "/api/nodes/org", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/nodes/org", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLinkAndQuantifyFlow(t *testing.T) {
	r := newTestRouter(t)

	for _, node := range []gin.H{{"node_id": "org"}, {"node_id": "err"}} {
		w := doJSON(t, r, http.MethodPost, "/api/nodes", node)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	est := func(v float64) gin.H { return gin.H{"type": "UNIFORM", "a": v, "b": v} }
	w := doJSON(t, r, http.MethodPost, "/api/links", gin.H{
		"link_id": "l1", "parent_id": "org", "child_id": "err",
		"m1": est(0.8), "m2": est(0.6), "m3": est(0.9),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/quantify", gin.H{"target_node": "err", "method": "ARITHMETIC"})
	require.Equal(t, http.StatusOK, w.Code)

	var result services.QuantifyResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.InDelta(t, 0.6, result.ConditionalProbabilities["org"], 1e-9)
	require.Len(t, result.CPT, 1)
}

func TestImportAndValidateRIS(t *testing.T) {
	r := newTestRouter(t)

	ris := "TY  - JOUR\nT1  - Organizational factors in major accident causation\nAU  - Reason, James\nPY  - 1997\nER  -\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "tutorial.ris")
	require.NoError(t, err)
	_, err = fw.Write([]byte(ris))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("ref_ids", `["reason1997"]`))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/references/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearerToken(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"imported":1`)

	w = doJSON(t, r, http.MethodGet, "/api/references/reason1997", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Reason, James")

	// Validation endpoint flags a malformed file without storing anything.
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	fw, err = mw.CreateFormFile("file", "broken.ris")
	require.NoError(t, err)
	_, err = fw.Write([]byte("TY  - JOUR\nT1  - missing terminator\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req = httptest.NewRequest(http.MethodPost, "/api/references/validate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearerToken(t))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"valid":false`))
}
