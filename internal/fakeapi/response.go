package fakeapi

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// errorResponse Spring 스타일 에러 본문 {message, status}
func errorResponse(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":  status,
		"message": message,
	})
}

// pageResponse Spring Page JSON
func pageResponse[T any](items []T, page, size int) gin.H {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	total := len(items)
	totalPages := (total + size - 1) / size

	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	content := items[start:end]

	return gin.H{
		"content":          content,
		"number":           page,
		"size":             size,
		"totalElements":    total,
		"totalPages":       totalPages,
		"numberOfElements": len(content),
		"first":            page == 0,
		"last":             totalPages == 0 || page >= totalPages-1,
		"empty":            len(content) == 0,
	}
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
