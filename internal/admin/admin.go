// Package admin wraps the admin list screens: users, posts and the
// category/tag catalogue. The server enforces the ADMIN role.
package admin

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/damoang/blok-client/internal/common"
	"github.com/damoang/blok-client/internal/domain"
	"github.com/damoang/blok-client/internal/mapper"
	"github.com/damoang/blok-client/internal/pagination"
	"github.com/damoang/blok-client/pkg/apiclient"
)

const (
	pathUsers      = "/api/admin/users"
	pathPosts      = "/api/admin/posts"
	pathCategories = "/api/posts/categories"
	pathNewCat     = "/api/categories"
	pathTags       = "/api/posts/tags"
)

// Authenticator reports whether a session token is present
type Authenticator interface {
	Authenticated() bool
}

func requireSession(auth Authenticator) *common.AppError {
	if auth == nil || !auth.Authenticated() {
		return common.NotPermitted()
	}
	return nil
}

// Users 관리자 사용자 목록
type Users struct {
	*pagination.Pager[domain.AdminUser]
	api  *apiclient.Client
	auth Authenticator
	log  zerolog.Logger
}

// NewUsers 생성자
func NewUsers(api *apiclient.Client, auth Authenticator, pageSize int, log zerolog.Logger) *Users {
	return &Users{
		Pager: pagination.New(pagination.HTTPFetcher(api, pathUsers, mapper.MapAdminUser), pageSize, "", log),
		api:   api,
		auth:  auth,
		log:   log,
	}
}

// DeleteUser 삭제 확인 후 현재 페이지에서 제거
func (u *Users) DeleteUser(ctx context.Context, id int64) error {
	if appErr := requireSession(u.auth); appErr != nil {
		return appErr
	}
	resp := u.api.Delete(ctx, pathUsers+"/"+strconv.FormatInt(id, 10))
	if appErr := common.FromResponse(resp); appErr != nil {
		return appErr
	}
	if resp.Status != http.StatusOK && resp.Status != http.StatusNoContent {
		return common.ClassifyResponse(resp.Status, resp.Text())
	}
	u.RemoveWhere(func(x domain.AdminUser) bool { return x.ID == id })
	u.log.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

// Posts 관리자 게시글 목록
type Posts struct {
	*pagination.Pager[domain.AdminPost]
}

// NewPosts 생성자
func NewPosts(api *apiclient.Client, pageSize int, log zerolog.Logger) *Posts {
	return &Posts{Pager: pagination.New(pagination.HTTPFetcher(api, pathPosts, mapper.MapAdminPost), pageSize, "", log)}
}

// Catalog 카테고리/태그
type Catalog struct {
	mu         sync.RWMutex
	categories []domain.Category
	tags       []domain.Tag

	api  *apiclient.Client
	auth Authenticator
}

// NewCatalog 생성자
func NewCatalog(api *apiclient.Client, auth Authenticator) *Catalog {
	return &Catalog{api: api, auth: auth}
}

// LoadCategories 카테고리 목록 조회
func (c *Catalog) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	resp := c.api.Get(ctx, pathCategories)
	if appErr := common.FromResponse(resp); appErr != nil {
		return nil, appErr
	}
	recs := mapper.DecodeRecords(resp.Body)
	list := make([]domain.Category, 0, len(recs))
	for _, rec := range recs {
		list = append(list, mapper.MapCategory(rec))
	}
	c.mu.Lock()
	c.categories = list
	c.mu.Unlock()
	return c.Categories(), nil
}

// CreateCategory 생성 확인 후 목록 앞에 추가
func (c *Catalog) CreateCategory(ctx context.Context, req domain.CreateCategoryRequest) (*domain.Category, error) {
	if appErr := requireSession(c.auth); appErr != nil {
		return nil, appErr
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if appErr := common.ValidateRequest(&req); appErr != nil {
		return nil, appErr
	}
	resp := c.api.Post(ctx, pathNewCat, req)
	if appErr := common.FromResponse(resp); appErr != nil {
		return nil, appErr
	}
	if !resp.HasData() {
		return nil, common.ClassifyResponse(resp.Status, apiclient.ParseError)
	}
	cat := mapper.MapCategory(mapper.DecodeRecord(resp.Body))
	c.mu.Lock()
	c.categories = append([]domain.Category{cat}, c.categories...)
	c.mu.Unlock()
	return &cat, nil
}

// Categories 보관 중인 카테고리 복사본
func (c *Catalog) Categories() []domain.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Category{}, c.categories...)
}

// LoadTags 태그 목록 조회
func (c *Catalog) LoadTags(ctx context.Context) ([]domain.Tag, error) {
	resp := c.api.Get(ctx, pathTags)
	if appErr := common.FromResponse(resp); appErr != nil {
		return nil, appErr
	}
	recs := mapper.DecodeRecords(resp.Body)
	list := make([]domain.Tag, 0, len(recs))
	for _, rec := range recs {
		list = append(list, mapper.MapTag(rec))
	}
	c.mu.Lock()
	c.tags = list
	c.mu.Unlock()
	return append([]domain.Tag{}, list...), nil
}

// Tags 보관 중인 태그 복사본
func (c *Catalog) Tags() []domain.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Tag{}, c.tags...)
}
