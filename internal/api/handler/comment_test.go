package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/folio_comments/config"
	"github.com/qs3c/folio_comments/internal/api/middleware"
	"github.com/qs3c/folio_comments/internal/model"
	"github.com/qs3c/folio_comments/internal/model/dto"
	"github.com/qs3c/folio_comments/internal/pkg/cache"
	"github.com/qs3c/folio_comments/internal/pkg/jwt"
	"github.com/qs3c/folio_comments/internal/pkg/response"
	"github.com/qs3c/folio_comments/internal/pkg/validate"
	"github.com/qs3c/folio_comments/internal/repository"
	"github.com/qs3c/folio_comments/internal/service"
	"github.com/qs3c/folio_comments/internal/testutil"
)

const (
	testJWTSecret  = "test-secret-key-for-handlers"
	testAdminEmail = "owner@blog.dev"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validate.Register(); err != nil {
		panic(err)
	}
}

// testContext 本地测试上下文
type testContext struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func setupCommentHandler(t *testing.T) *testContext {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{}
	cfg.JWT.Secret = testJWTSecret
	cfg.Site.AdminEmail = testAdminEmail
	cfg.ApplyDefaults()

	threadCache, err := cache.NewThreadCache(cfg.Site.ThreadCacheSize, cfg.Site.ThreadCacheDuration())
	require.NoError(t, err)
	invalidator := service.NewCacheInvalidator(threadCache, nil, nil, nil, time.Second)

	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	h := NewCommentHandler(
		service.NewCommentService(commentRepo, reactionRepo, threadCache, invalidator, cfg),
		service.NewReactionService(commentRepo, reactionRepo, invalidator, cfg),
	)

	router := gin.New()
	comments := router.Group("/api/comments")
	comments.GET("", middleware.OptionalAuth(cfg.JWT), h.List)
	authed := comments.Group("", middleware.Auth(cfg.JWT))
	authed.POST("", h.Create)
	authed.DELETE("", h.Delete)
	authed.DELETE("/:id", h.Delete)
	authed.POST("/react", h.React)

	return &testContext{DB: db, Router: router}
}

func (tc *testContext) do(t *testing.T, method, path string, body interface{}, identity *model.Identity) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if identity != nil {
		token, err := jwt.GenerateToken(identity, testJWTSecret, 1)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	tc.Router.ServeHTTP(w, req)
	return w
}

type listBody struct {
	Comments []*dto.CommentItem `json:"comments"`
}

type commentBody struct {
	Success bool             `json:"success"`
	Comment *dto.CommentItem `json:"comment"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCommentHandler_CreateAndList(t *testing.T) {
	tc := setupCommentHandler(t)
	author := testutil.TestIdentity()

	w := tc.do(t, "POST", "/api/comments", gin.H{"postSlug": "hello-world", "parentId": nil, "content": "Hello *there*"}, author)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decode[commentBody](t, w).Comment
	require.NotNil(t, created)
	assert.Equal(t, "Hello *there*", created.Content)
	assert.Contains(t, created.ContentHTML, "<em>there</em>")
	assert.Equal(t, author.ID, created.Author.ID)

	w = tc.do(t, "POST", "/api/comments", gin.H{"postSlug": "hello-world", "parentId": created.ID, "content": "A reply"}, author)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = tc.do(t, "GET", "/api/comments?slug=hello-world", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	list := decode[listBody](t, w)
	require.Len(t, list.Comments, 1)
	assert.Equal(t, created.ID, list.Comments[0].ID)
	require.Len(t, list.Comments[0].Replies, 1)
	assert.Equal(t, "A reply", list.Comments[0].Replies[0].Content)
}

func TestCommentHandler_List_EmailNotExposed(t *testing.T) {
	tc := setupCommentHandler(t)
	author := testutil.TestIdentity(testutil.WithIdentityEmail("secret@example.com"))
	testutil.TestComment(t, tc.DB, author, "hello-world", "hi")

	w := tc.do(t, "GET", "/api/comments?slug=hello-world", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret@example.com")
}

func TestCommentHandler_List_EmptyArray(t *testing.T) {
	tc := setupCommentHandler(t)

	w := tc.do(t, "GET", "/api/comments?slug=nothing-here", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"comments":[]}`, w.Body.String())
}

func TestCommentHandler_List_InvalidSlug(t *testing.T) {
	tc := setupCommentHandler(t)

	w := tc.do(t, "GET", "/api/comments", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode[response.ErrorBody](t, w).Error)
}

func TestCommentHandler_List_ViewerHasReacted(t *testing.T) {
	tc := setupCommentHandler(t)
	author := testutil.TestIdentity()
	viewer := testutil.TestIdentity()
	comment := testutil.TestComment(t, tc.DB, author, "hello-world", "hi")
	testutil.TestReaction(t, tc.DB, comment.ID, viewer.ID)

	anon := decode[listBody](t, tc.do(t, "GET", "/api/comments?slug=hello-world", nil, nil))
	require.Len(t, anon.Comments, 1)
	assert.False(t, anon.Comments[0].ViewerHasReacted)
	assert.Equal(t, int64(1), anon.Comments[0].ReactionsCount)

	mine := decode[listBody](t, tc.do(t, "GET", "/api/comments?slug=hello-world", nil, viewer))
	require.Len(t, mine.Comments, 1)
	assert.True(t, mine.Comments[0].ViewerHasReacted)
}

func TestCommentHandler_Create_Errors(t *testing.T) {
	tc := setupCommentHandler(t)
	author := testutil.TestIdentity()
	other := testutil.TestComment(t, tc.DB, author, "other-post", "x")

	tests := []struct {
		name     string
		body     interface{}
		identity *model.Identity
		status   int
	}{
		{"anonymous", gin.H{"postSlug": "hello-world", "content": "hi"}, nil, http.StatusUnauthorized},
		{"missing slug", gin.H{"content": "hi"}, author, http.StatusBadRequest},
		{"bad slug", gin.H{"postSlug": "../etc", "content": "hi"}, author, http.StatusBadRequest},
		{"empty content", gin.H{"postSlug": "hello-world", "content": ""}, author, http.StatusBadRequest},
		{"blank content", gin.H{"postSlug": "hello-world", "content": "   "}, author, http.StatusBadRequest},
		{"unknown parent", gin.H{"postSlug": "hello-world", "parentId": "missing", "content": "hi"}, author, http.StatusBadRequest},
		{"parent on other post", gin.H{"postSlug": "hello-world", "parentId": other.ID, "content": "hi"}, author, http.StatusBadRequest},
		{"malformed json", "not-an-object", author, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tc.do(t, "POST", "/api/comments", tt.body, tt.identity)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decode[response.ErrorBody](t, w).Error)
		})
	}
}

func TestCommentHandler_Delete(t *testing.T) {
	author := testutil.TestIdentity()
	admin := testutil.TestIdentity(testutil.WithIdentityEmail("Owner@Blog.dev"))
	stranger := testutil.TestIdentity()

	tests := []struct {
		name     string
		identity *model.Identity
		byBody   bool
		status   int
	}{
		{"author by path", author, false, http.StatusOK},
		{"author by body", author, true, http.StatusOK},
		{"admin", admin, false, http.StatusOK},
		{"stranger", stranger, false, http.StatusForbidden},
		{"anonymous", nil, false, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := setupCommentHandler(t)
			comment := testutil.TestComment(t, tc.DB, author, "project-widget", "bye")

			var w *httptest.ResponseRecorder
			if tt.byBody {
				w = tc.do(t, "DELETE", "/api/comments", gin.H{"commentId": comment.ID}, tt.identity)
			} else {
				w = tc.do(t, "DELETE", "/api/comments/"+comment.ID, nil, tt.identity)
			}

			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				assert.NotEmpty(t, decode[response.ErrorBody](t, w).Error)
				return
			}

			body := decode[commentBody](t, w)
			assert.True(t, body.Success)
			assert.Equal(t, comment.ID, body.Comment.ID)
			assert.Equal(t, "project-widget", body.Comment.PostSlug)
		})
	}
}

func TestCommentHandler_Delete_NotFound(t *testing.T) {
	tc := setupCommentHandler(t)

	w := tc.do(t, "DELETE", "/api/comments/missing", nil, testutil.TestIdentity())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommentHandler_Delete_MissingBodyID(t *testing.T) {
	tc := setupCommentHandler(t)

	w := tc.do(t, "DELETE", "/api/comments", gin.H{}, testutil.TestIdentity())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "commentId is required", decode[response.ErrorBody](t, w).Error)
}

func TestCommentHandler_Delete_InvalidatesCache(t *testing.T) {
	tc := setupCommentHandler(t)
	author := testutil.TestIdentity()
	comment := testutil.TestComment(t, tc.DB, author, "hello-world", "bye")

	// Warm the thread cache
	before := decode[listBody](t, tc.do(t, "GET", "/api/comments?slug=hello-world", nil, nil))
	require.Len(t, before.Comments, 1)

	w := tc.do(t, "DELETE", "/api/comments/"+comment.ID, nil, author)
	require.Equal(t, http.StatusOK, w.Code)

	after := decode[listBody](t, tc.do(t, "GET", "/api/comments?slug=hello-world", nil, nil))
	assert.Empty(t, after.Comments)
}

func TestCommentHandler_React(t *testing.T) {
	tc := setupCommentHandler(t)
	author := testutil.TestIdentity()
	viewer := testutil.TestIdentity()
	comment := testutil.TestComment(t, tc.DB, author, "hello-world", "like me")

	for i := 0; i < 2; i++ {
		w := tc.do(t, "POST", "/api/comments/react", gin.H{"commentId": comment.ID, "type": "LIKE"}, viewer)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decode[commentBody](t, w)
		assert.True(t, body.Success)
		assert.Equal(t, int64(1), body.Comment.ReactionsCount)
		assert.True(t, body.Comment.ViewerHasReacted)
	}

	w := tc.do(t, "POST", "/api/comments/react", gin.H{"commentId": comment.ID, "type": "UNLIKE"}, viewer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), decode[commentBody](t, w).Comment.ReactionsCount)
}

func TestCommentHandler_React_Errors(t *testing.T) {
	tc := setupCommentHandler(t)
	author := testutil.TestIdentity()
	comment := testutil.TestComment(t, tc.DB, author, "hello-world", "x")

	tests := []struct {
		name     string
		body     interface{}
		identity *model.Identity
		status   int
	}{
		{"anonymous", gin.H{"commentId": comment.ID, "type": "LIKE"}, nil, http.StatusUnauthorized},
		{"invalid type", gin.H{"commentId": comment.ID, "type": "LOVE"}, author, http.StatusBadRequest},
		{"lowercase type", gin.H{"commentId": comment.ID, "type": "like"}, author, http.StatusBadRequest},
		{"missing comment id", gin.H{"type": "LIKE"}, author, http.StatusBadRequest},
		{"unknown comment", gin.H{"commentId": "missing", "type": "LIKE"}, author, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tc.do(t, "POST", "/api/comments/react", tt.body, tt.identity)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decode[response.ErrorBody](t, w).Error)
		})
	}
}

func TestCommentHandler_StorageFailure(t *testing.T) {
	tc := setupCommentHandler(t)

	sqlDB, err := tc.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := tc.do(t, "GET", "/api/comments?slug=hello-world", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// Internal detail is not leaked
	assert.Equal(t, "something went wrong", decode[response.ErrorBody](t, w).Error)
}
