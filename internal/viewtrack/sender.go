package viewtrack

import (
	"context"

	"github.com/damoang/blok-client/internal/common"
	"github.com/damoang/blok-client/internal/domain"
	"github.com/damoang/blok-client/pkg/apiclient"
)

const pathViews = "/api/posts/views"

// APISender POST /api/posts/views
type APISender struct {
	api *apiclient.Client
}

// NewAPISender 생성자
func NewAPISender(api *apiclient.Client) *APISender {
	return &APISender{api: api}
}

func (s *APISender) RecordViews(ctx context.Context, postIDs []int64) error {
	resp := s.api.Post(ctx, pathViews, domain.PostViewsRequest{PostIDs: postIDs})
	if appErr := common.FromResponse(resp); appErr != nil {
		return appErr
	}
	return nil
}
