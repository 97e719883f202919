package fakeapi

import "github.com/gin-gonic/gin"

func (s *Server) routes(r *gin.Engine) {
	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/login", s.login)
	auth.POST("/admin/login", s.adminLogin)
	auth.POST("/register", s.register)
	auth.POST("/forgot-password", s.forgotPassword)

	usr := api.Group("/user")
	usr.GET("/profile", requireAuth(s.getProfile))
	usr.PUT("/profile", requireAuth(s.updateProfile))
	usr.POST("/:id/profile-image", requireAuth(s.uploadProfileImage))

	posts := api.Group("/posts")
	posts.GET("", s.listPosts)
	posts.POST("", requireAuth(s.createPost))
	posts.GET("/me", requireAuth(s.myPosts))
	posts.GET("/top-liked", s.topLiked)
	posts.GET("/categories", s.listCategories)
	posts.GET("/tags", s.listTags)
	posts.GET("/:id", s.getPost)
	posts.DELETE("/posts/delete/:id", requireAuth(s.deletePost))
	posts.POST("/upload-image", requireAuth(s.upload))
	posts.POST("/upload-media", requireAuth(s.upload))
	posts.POST("/views", requireAuth(s.recordViews))

	like := api.Group("/like")
	like.PATCH("/post/:id/toggle", requireAuth(s.togglePostLike))
	like.PATCH("/comment/:id/toggle", requireAuth(s.toggleCommentLike))
	like.GET("/my-liked-posts", requireAuth(s.likedPosts))

	saved := api.Group("/saved-posts")
	saved.PATCH("/post/:id/toggle", requireAuth(s.toggleSave))
	saved.GET("/post/:id/status", requireAuth(s.saveStatus))
	saved.GET("/my-saved-posts", requireAuth(s.savedPosts))

	comments := api.Group("/comments")
	comments.GET("/post/:id", s.listComments)
	comments.POST("", requireAuth(s.createComment))
	comments.DELETE("/delete/comment/:id", requireAuth(s.deleteComment))
	comments.GET("/user-posts", requireAuth(s.commentedPosts))

	api.POST("/categories", s.requireAdmin(s.createCategory))

	admin := api.Group("/admin")
	admin.GET("/users", s.requireAdmin(s.adminUsers))
	admin.GET("/posts", s.requireAdmin(s.adminPosts))
	admin.DELETE("/users/:id", s.requireAdmin(s.adminDeleteUser))
}
