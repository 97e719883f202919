package common

import (
	"regexp"
	"strings"

	"github.com/damoang/blok-client/internal/domain"
)

// 게시글 작성 제한
const (
	MaxTitleLength   = 100
	MaxContentLength = 1000
	MaxTags          = 10
)

// httpLink matches absolute http(s) URLs in free text
var httpLink = regexp.MustCompile(`https?://[^\s<>"']+`)

// Links returns the http(s) URLs found in content, in order
func Links(content string) []string {
	return httpLink.FindAllString(content, -1)
}

// ValidatePostDraft 전송 전 게시글 초안 정리 및 검증.
// Title, content and summary are trimmed; tag names are trimmed,
// lowercased and deduplicated before the validate tags are checked.
func ValidatePostDraft(req domain.CreatePostRequest) (domain.CreatePostRequest, *AppError) {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.Summary = strings.TrimSpace(req.Summary)
	req.CoverImageURL = strings.TrimSpace(req.CoverImageURL)

	tags := make([]string, 0, len(req.TagNames))
	seen := make(map[string]bool, len(req.TagNames))
	for _, name := range req.TagNames {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tags = append(tags, name)
	}
	req.TagNames = tags

	if appErr := ValidateRequest(&req); appErr != nil {
		return req, appErr
	}
	return req, nil
}
