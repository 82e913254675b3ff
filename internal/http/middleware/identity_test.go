package middleware

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIdentity_SetsUserIDAndSkipsPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	src := &stubIdentity{id: "user_1_abc"}
	r := gin.New()
	r.Use(Identity(src, "/health"))
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "[%s]", UserID(c)) })

	if w := serve(r, http.MethodGet, "/me", nil); w.Body.String() != "user_1_abc" {
		t.Fatalf("expected identifier in context, got %q", w.Body.String())
	}
	if w := serve(r, http.MethodGet, "/health", nil); w.Body.String() != "[]" {
		t.Fatalf("skipped path must not resolve identity, got %q", w.Body.String())
	}
	if src.calls != 1 {
		t.Fatalf("identity resolved %d times; want 1", src.calls)
	}
}

func TestIdentity_StorageFailureIs503(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_ = captureLogger(t)
	r := gin.New()
	r.Use(RequestID(), Identity(&stubIdentity{err: errBoom}))
	r.GET("/me", func(c *gin.Context) { t.Fatalf("handler must not run") })

	w := serve(r, http.MethodGet, "/me", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["code"] != "storage_unavailable" || body["request_id"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestUserID_MissingOrWrongType(t *testing.T) {
	c, _ := gin.CreateTestContext(nil)
	if UserID(c) != "" {
		t.Fatalf("expected empty user id")
	}
	c.Set(UserIDKey, 42)
	if UserID(c) != "" {
		t.Fatalf("non-string user id must read as empty")
	}
}
