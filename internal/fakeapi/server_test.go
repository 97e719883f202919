package fakeapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, method, url, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func TestServer_Login(t *testing.T) {
	_, ts := Start(t)

	status, body := do(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{"username": "ayse", "password": SeedUserPassword})
	require.Equal(t, http.StatusOK, status)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "USER", out["roleName"])
	assert.NotEmpty(t, out["token"])

	status, body = do(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{"username": "ayse", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, string(body), "Invalid username or password")
}

func TestServer_AdminLoginRejectsUsers(t *testing.T) {
	_, ts := Start(t)

	status, _ := do(t, http.MethodPost, ts.URL+"/api/auth/admin/login", "", map[string]string{"username": "ayse", "password": SeedUserPassword})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, http.MethodPost, ts.URL+"/api/auth/admin/login", "", map[string]string{"username": "admin", "password": SeedAdminPassword})
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_ToggleLike(t *testing.T) {
	s, ts := Start(t)
	token := s.Token("ayse")

	status, body := do(t, http.MethodPatch, ts.URL+"/api/like/post/1/toggle", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"postId":1,"liked":true,"message":"Post liked"}`, string(body))
	assert.Equal(t, 3, s.LikeCount(SeedPostChannels))

	status, _ = do(t, http.MethodPatch, ts.URL+"/api/like/post/1/toggle", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestServer_PostOmitsSavedFlag(t *testing.T) {
	s, ts := Start(t)

	_, body := do(t, http.MethodGet, ts.URL+"/api/posts/3", s.Token("ayse"), nil)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.NotContains(t, out, "savedByCurrentUser")

	_, body = do(t, http.MethodGet, ts.URL+"/api/saved-posts/post/3/status", s.Token("ayse"), nil)
	assert.Equal(t, "true", string(body))
}

func TestServer_FailureInjection(t *testing.T) {
	s, ts := Start(t)

	s.FailNextWith("/api/posts/1", http.StatusBadRequest, "custom failure")
	status, body := do(t, http.MethodGet, ts.URL+"/api/posts/1", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "custom failure")

	status, _ = do(t, http.MethodGet, ts.URL+"/api/posts/1", "", nil)
	assert.Equal(t, http.StatusOK, status, "failures are consumed once")

	// fresh connection so the transport cannot replay the GET
	s.DropNext("/api/posts/1")
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	_, err := client.Get(ts.URL + "/api/posts/1")
	assert.Error(t, err)
}

func TestServer_CallsAndHook(t *testing.T) {
	s, ts := Start(t)

	var mu sync.Mutex
	var seen []string
	s.SetHook(func(method, path string) {
		mu.Lock()
		seen = append(seen, method+" "+path)
		mu.Unlock()
	})

	do(t, http.MethodPost, ts.URL+"/api/posts/views", s.Token("ayse"), map[string]any{"postIds": []int64{1, 2}})
	calls := s.Calls(http.MethodPost, "/api/posts/views")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"postIds":[1,2]}`, string(calls[0].Body))
	mu.Lock()
	assert.Equal(t, []string{"POST /api/posts/views"}, seen)
	mu.Unlock()
	assert.Equal(t, 1, s.Views(SeedPostChannels))

	do(t, http.MethodPost, ts.URL+"/api/posts/views", s.Token("ayse"), map[string]any{"postIds": []int64{1}})
	assert.Equal(t, 1, s.Views(SeedPostChannels), "a viewer is counted once")

	s.ResetCalls()
	assert.Empty(t, s.Calls("", "/"))
}

func TestServer_CommentTree(t *testing.T) {
	_, ts := Start(t)

	_, body := do(t, http.MethodGet, ts.URL+"/api/comments/post/1", "", nil)
	var tree []map[string]any
	require.NoError(t, json.Unmarshal(body, &tree))
	require.Len(t, tree, 2)
	replies := tree[0]["replies"].([]any)
	require.Len(t, replies, 1)
	assert.EqualValues(t, SeedCommentRoot, replies[0].(map[string]any)["parentCommentId"])
}

func TestServer_AdminUsersPage(t *testing.T) {
	s, ts := Start(t)
	s.AddUsers("user", 25)
	token := s.Token("admin")

	_, body := do(t, http.MethodGet, ts.URL+"/api/admin/users?page=1&size=10", token, nil)
	var page map[string]any
	require.NoError(t, json.Unmarshal(body, &page))
	assert.EqualValues(t, 28, page["totalElements"])
	assert.EqualValues(t, 3, page["totalPages"])
	assert.Equal(t, false, page["first"])
	assert.Equal(t, false, page["last"])
	assert.Len(t, page["content"], 10)

	_, body = do(t, http.MethodGet, ts.URL+"/api/admin/users?q=MEHMET", token, nil)
	require.NoError(t, json.Unmarshal(body, &page))
	assert.EqualValues(t, 1, page["totalElements"])

	status, _ := do(t, http.MethodGet, ts.URL+"/api/admin/users", s.Token("ayse"), nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestServer_BindingRejectsBlankFields(t *testing.T) {
	s, ts := Start(t)
	token := s.Token("ayse")

	tests := []struct {
		name string
		path string
		body any
		want string
	}{
		{"blank post title", "/api/posts", map[string]any{"title": "   ", "content": "body"}, "Title and content are required"},
		{"missing post content", "/api/posts", map[string]any{"title": "t"}, "Title and content are required"},
		{"blank comment", "/api/comments", map[string]any{"postId": 1, "content": " \n"}, "Comment content is required"},
		{"register without email", "/api/auth/register", map[string]any{"username": "z", "password": "pw"}, "A valid username, email and password are required"},
		{"register with bad email", "/api/auth/register", map[string]any{"username": "z", "email": "nope", "password": "pw"}, "A valid username, email and password are required"},
		{"login without password", "/api/auth/login", map[string]any{"username": "ayse"}, "username and password are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, http.MethodPost, ts.URL+tt.path, token, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, string(body), tt.want)
		})
	}
}
