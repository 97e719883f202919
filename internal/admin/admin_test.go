package admin

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damoang/blok-client/internal/common"
	"github.com/damoang/blok-client/internal/domain"
	"github.com/damoang/blok-client/internal/fakeapi"
	"github.com/damoang/blok-client/pkg/apiclient"
)

type tokenAuth struct{ token string }

func (a *tokenAuth) Authenticated() bool { return a.token != "" }
func (a *tokenAuth) Token() string       { return a.token }

func setup(t *testing.T, username string) (*fakeapi.Server, *apiclient.Client, *tokenAuth) {
	t.Helper()
	srv, ts := fakeapi.Start(t)
	auth := &tokenAuth{}
	if username != "" {
		auth.token = srv.Token(username)
	}
	api := apiclient.New(apiclient.Config{BaseURL: ts.URL}, auth, zerolog.Nop())
	return srv, api, auth
}

func usernames(users []domain.AdminUser) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func TestUsers_LoadAndSearch(t *testing.T) {
	_, api, auth := setup(t, "admin")
	users := NewUsers(api, auth, 10, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, users.Load(ctx))
	assert.Equal(t, []string{"mehmet", "ayse", "admin"}, usernames(users.Items()))
	assert.Equal(t, int64(3), users.Info().TotalElements)

	require.NoError(t, users.Search(ctx, "ays"))
	assert.Equal(t, []string{"ayse"}, usernames(users.Items()))
}

func TestUsers_DeleteUser(t *testing.T) {
	srv, api, auth := setup(t, "admin")
	users := NewUsers(api, auth, 10, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, users.Load(ctx))

	var target int64
	for _, u := range users.Items() {
		if u.Username == "mehmet" {
			target = u.ID
		}
	}
	require.NotZero(t, target)

	require.NoError(t, users.DeleteUser(ctx, target))
	assert.Equal(t, []string{"ayse", "admin"}, usernames(users.Items()))
	assert.Equal(t, int64(2), users.Info().TotalElements)
	assert.Len(t, srv.Calls("DELETE", "/api/admin/users/"), 1)
}

func TestUsers_DeleteUnknownKeepsPage(t *testing.T) {
	_, api, auth := setup(t, "admin")
	users := NewUsers(api, auth, 10, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, users.Load(ctx))

	err := users.DeleteUser(ctx, 999)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Len(t, users.Items(), 3)
}

func TestUsers_DeleteRequiresSession(t *testing.T) {
	srv, api, auth := setup(t, "")
	users := NewUsers(api, auth, 10, zerolog.Nop())

	err := users.DeleteUser(context.Background(), 2)
	assert.ErrorIs(t, err, common.ErrNotPermitted)
	assert.Empty(t, srv.Calls("DELETE", "/api/admin/users/"))
}

func TestUsers_NonAdminForbidden(t *testing.T) {
	_, api, auth := setup(t, "ayse")
	users := NewUsers(api, auth, 10, zerolog.Nop())

	assert.ErrorIs(t, users.Load(context.Background()), common.ErrForbidden)
	assert.Empty(t, users.Items())
}

func TestPosts_Search(t *testing.T) {
	_, api, _ := setup(t, "admin")
	posts := NewPosts(api, 2, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, posts.Load(ctx))
	info := posts.Info()
	assert.Equal(t, int64(3), info.TotalElements)
	assert.Equal(t, 2, info.TotalPages)
	assert.Len(t, posts.Items(), 2)

	require.NoError(t, posts.Search(ctx, "pagination"))
	require.Len(t, posts.Items(), 1)
	assert.Equal(t, "REST pagination", posts.Items()[0].Title)
	assert.Equal(t, "mehmet", posts.Items()[0].AuthorUsername)
}

func TestCatalog_Categories(t *testing.T) {
	srv, api, auth := setup(t, "admin")
	catalog := NewCatalog(api, auth)
	ctx := context.Background()

	list, err := catalog.LoadCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Go", list[0].Name)

	created, err := catalog.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Databases", Description: "SQL and friends"})
	require.NoError(t, err)
	assert.Equal(t, "Databases", created.Name)
	assert.NotZero(t, created.ID)

	names := []string{}
	for _, c := range catalog.Categories() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Databases", "Go", "Web"}, names)
	assert.Len(t, srv.Calls("POST", "/api/categories"), 1)
}

func TestCatalog_CreateDuplicateKeepsList(t *testing.T) {
	_, api, auth := setup(t, "admin")
	catalog := NewCatalog(api, auth)
	ctx := context.Background()
	_, err := catalog.LoadCategories(ctx)
	require.NoError(t, err)

	_, err = catalog.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "go"})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Category already exists", appErr.Message)
	assert.Len(t, catalog.Categories(), 2)
}

func TestCatalog_CreateRequiresSession(t *testing.T) {
	srv, api, auth := setup(t, "")
	catalog := NewCatalog(api, auth)

	_, err := catalog.CreateCategory(context.Background(), domain.CreateCategoryRequest{Name: "X"})
	assert.ErrorIs(t, err, common.ErrNotPermitted)
	assert.Empty(t, srv.Calls("POST", "/api/categories"))
}

func TestCatalog_Tags(t *testing.T) {
	_, api, auth := setup(t, "")
	catalog := NewCatalog(api, auth)

	tags, err := catalog.LoadTags(context.Background())
	require.NoError(t, err)
	names := []string{}
	for _, tg := range tags {
		names = append(names, tg.Name)
	}
	assert.Equal(t, []string{"go", "concurrency", "api", "news"}, names)
	assert.Equal(t, tags, catalog.Tags())
}
