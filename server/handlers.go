package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sunshen/weblog/mail"
	"github.com/sunshen/weblog/model"
	"github.com/sunshen/weblog/server/middlewares"
	"github.com/sunshen/weblog/service"
	"github.com/sunshen/weblog/token"
	"github.com/sunshen/weblog/utils"
	. "github.com/sunshen/weblog/utils/log"
	"gorm.io/gorm"
)

// Server bundles the shared dependencies every handler needs. The HTTP layer
// stays thin: parse, delegate to service, translate errors.
type Server struct {
	DB         *gorm.DB
	Tokens     *token.Service
	Mail       *mail.Service
	ReadStatus *utils.RedisStatusStore
}

// RegisterRoutes attaches every route onto the router. Authenticated routes
// run behind the session middleware; permission bits are enforced per route
// the same way the service layer enforces them, so a denial never reaches
// storage.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router.POST("/register", s.register)
	router.POST("/login", s.login)
	router.POST("/password-reset-request", s.requestPasswordReset)
	router.POST("/password-reset", s.resetPassword)

	router.GET("/users/:name", s.userPage)
	router.GET("/users/:name/blogs", s.userBlogs)
	router.GET("/tags/:name/blogs", s.taggedBlogs)
	router.GET("/blogs/:id", s.getBlog)
	router.GET("/blogs/:id/comments", middlewares.OptionalAuth(s.DB), s.blogComments)

	authed := router.Group("/", middlewares.Auth(s.DB))
	{
		authed.POST("/confirm/:token", s.confirm)
		authed.POST("/resend-confirmation", s.resendConfirmation)
		authed.PUT("/profile", s.updateProfile)
		authed.PUT("/email", s.changeEmail)
		authed.PUT("/password", s.changePassword)
		authed.DELETE("/account", s.deleteAccount)

		authed.POST("/blogs", s.createBlog)
		authed.PUT("/blogs/:id", s.updateBlog)
		authed.DELETE("/blogs/:id", s.deleteBlog)

		authed.POST("/blogs/:id/comments", s.createComment)

		authed.POST("/follow/:id", s.follow)
		authed.DELETE("/follow/:id", s.unfollow)
		authed.GET("/feed", s.feed)
		authed.POST("/feed/read", s.markFeedRead)
	}

	admin := router.Group("/admin", middlewares.Auth(s.DB), middlewares.RequirePermission(model.PermissionAdminister))
	{
		admin.PUT("/users/:id/profile", s.adminUpdateProfile)
		admin.DELETE("/users/:id", s.adminDeleteUser)
	}

	moderate := router.Group("/moderate", middlewares.Auth(s.DB), middlewares.RequirePermission(model.PermissionModerate))
	{
		moderate.PUT("/comments/:id/disabled", s.setCommentDisabled)
	}
}

// abortWithServiceError maps service failures onto the error taxonomy:
// validation gets 400 with the field, denial gets 403, missing records get
// 404, everything else is a 500.
func abortWithServiceError(c *gin.Context, err error) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"field": validation.Field, "msg": validation.Reason})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"msg": "insufficient permission"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"msg": "not found"})
	default:
		Log.Error("internal error: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
	}
}

// userJSON is the public view of a user. The password hash never leaves the
// process.
func userJSON(u *model.User) gin.H {
	return gin.H{
		"id":          u.Id,
		"name":        u.Name,
		"role":        u.Role.Name,
		"confirmed":   u.Confirmed,
		"avatar_hash": u.AvatarHash,
		"age":         u.Age,
		"gender":      u.Gender,
		"location":    u.Location,
		"about_me":    u.AboutMe,
		"created_at":  u.CreatedAt,
		"last_seen":   u.LastSeenAt,
	}
}

func blogJSON(b *model.Blog) gin.H {
	tags := []string{}
	for _, t := range b.Tags {
		tags = append(tags, t.Name)
	}
	return gin.H{
		"id":         b.Id,
		"title":      b.Title,
		"body":       b.Body,
		"body_html":  b.BodyHTML,
		"author":     b.Author.Name,
		"tags":       tags,
		"cursor":     b.Cursor,
		"created_at": b.CreatedAt,
	}
}

func commentJSON(cm *model.Comment) gin.H {
	return gin.H{
		"id":          cm.Id,
		"body":        cm.Body,
		"author_name": cm.AuthorName,
		"disabled":    cm.Disabled,
		"created_at":  cm.CreatedAt,
	}
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	user, err := service.RegisterUser(s.DB, req.Name, req.Email, req.Password)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	if tok, err := s.Tokens.Generate(user.Id, token.PurposeConfirmUser); err == nil {
		s.Mail.SendConfirmation(user, user.Email, tok)
	} else {
		Log.Error("fail to generate confirmation token: ", err)
	}

	c.JSON(http.StatusCreated, userJSON(user))
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	user, err := service.Authenticate(s.DB, req.Email, req.Password)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	session, err := middlewares.NewSessionToken(user.Id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": session, "user": userJSON(user)})
}

func (s *Server) confirm(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)

	ok, err := service.ConfirmUser(s.DB, s.Tokens, user, c.Param("token"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if !ok {
		// Deliberately nonspecific: expiry, forgery and identity mismatch
		// are indistinguishable to the caller.
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid or expired confirmation link"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"confirmed": true})
}

func (s *Server) resendConfirmation(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)
	if user.Confirmed {
		c.JSON(http.StatusOK, gin.H{"confirmed": true})
		return
	}
	tok, err := s.Tokens.Generate(user.Id, token.PurposeConfirmUser)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	s.Mail.SendConfirmation(user, user.Email, tok)
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

func (s *Server) requestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	// Always answer 200 so the endpoint can't be used to probe for accounts.
	if user, err := service.GetUserByEmail(s.DB, req.Email); err == nil {
		if tok, err := s.Tokens.Generate(user.Id, token.PurposeResetPassword); err == nil {
			s.Mail.SendPasswordReset(user, tok)
		}
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

func (s *Server) resetPassword(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	ok, err := service.ResetPassword(s.DB, s.Tokens, req.Email, req.Token, req.Password)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid or expired reset link"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

func (s *Server) userPage(c *gin.Context) {
	user, err := service.GetUserByName(s.DB, c.Param("name"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userJSON(user))
}

func (s *Server) updateProfile(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)

	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	if err := service.UpdateProfile(s.DB, user, req); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userJSON(user))
}

func (s *Server) adminUpdateProfile(c *gin.Context) {
	admin, _ := middlewares.CurrentUser(c)

	var req service.AdminProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	target, err := service.AdminUpdateProfile(s.DB, admin, c.Param("id"), req)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userJSON(target))
}

func (s *Server) changeEmail(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)

	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	if err := service.ChangeEmail(s.DB, user, req.Email); err != nil {
		abortWithServiceError(c, err)
		return
	}

	// The new address must be proven all over again.
	if tok, err := s.Tokens.Generate(user.Id, token.PurposeConfirmUser); err == nil {
		s.Mail.SendConfirmation(user, user.Email, tok)
	}
	c.JSON(http.StatusOK, userJSON(user))
}

func (s *Server) changePassword(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)

	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	if err := service.ChangePassword(s.DB, user, req.OldPassword, req.NewPassword); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (s *Server) deleteAccount(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)
	if err := service.DeleteUser(s.DB, user.Id); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) adminDeleteUser(c *gin.Context) {
	if err := service.DeleteUser(s.DB, c.Param("id")); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) createBlog(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)

	var req struct {
		Title string `json:"title" binding:"required"`
		Body  string `json:"body"`
		Tags  string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	blog, err := service.CreateBlog(s.DB, user, req.Title, req.Body, req.Tags)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, blogJSON(blog))
}

func (s *Server) updateBlog(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)

	var req struct {
		Title string `json:"title" binding:"required"`
		Body  string `json:"body"`
		Tags  string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	blog, err := service.UpdateBlog(s.DB, user, c.Param("id"), req.Title, req.Body, req.Tags)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, blogJSON(blog))
}

func (s *Server) deleteBlog(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)
	if err := service.DeleteBlog(s.DB, user, c.Param("id")); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) getBlog(c *gin.Context) {
	blog, err := service.GetBlog(s.DB, c.Param("id"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, blogJSON(blog))
}

func (s *Server) userBlogs(c *gin.Context) {
	user, err := service.GetUserByName(s.DB, c.Param("name"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	blogs, err := service.UserBlogs(s.DB, user.Id, intQuery(c, "limit"), intQuery(c, "offset"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, blogListJSON(blogs))
}

func (s *Server) taggedBlogs(c *gin.Context) {
	blogs, err := service.TaggedBlogs(s.DB, c.Param("name"), intQuery(c, "limit"), intQuery(c, "offset"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, blogListJSON(blogs))
}

func (s *Server) createComment(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)

	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	comment, err := service.CreateComment(s.DB, user, c.Param("id"), req.Body)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commentJSON(comment))
}

func (s *Server) blogComments(c *gin.Context) {
	viewer, _ := middlewares.CurrentUser(c)
	comments, err := service.BlogComments(s.DB, viewer, c.Param("id"), intQuery(c, "limit"), intQuery(c, "offset"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	out := []gin.H{}
	for _, comment := range comments {
		out = append(out, commentJSON(comment))
	}
	c.JSON(http.StatusOK, gin.H{"comments": out})
}

func (s *Server) setCommentDisabled(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)

	var req struct {
		Disabled *bool `json:"disabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	if err := service.SetCommentDisabled(s.DB, user, c.Param("id"), *req.Disabled); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disabled": *req.Disabled})
}

func (s *Server) follow(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)
	if err := service.Follow(s.DB, user, c.Param("id")); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": true})
}

func (s *Server) unfollow(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)
	if err := service.Unfollow(s.DB, user, c.Param("id")); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false})
}

// feed returns blogs by followed authors, newest first, each annotated with
// the viewer's read mark. Redis being unreachable degrades to everything
// unread rather than failing the request.
func (s *Server) feed(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)

	blogs, err := service.FollowedBlogs(s.DB, user.Id, intQuery(c, "limit"), intQueryDefault(c, "cursor", -1))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	blogIds := make([]string, 0, len(blogs))
	for _, b := range blogs {
		blogIds = append(blogIds, b.Id)
	}
	read := make([]bool, len(blogs))
	if s.ReadStatus != nil {
		if status, err := s.ReadStatus.GetBlogsReadStatus(blogIds, user.Id); err == nil {
			read = status
		} else {
			Log.Warn("fail to read blog read status: ", err)
		}
	}

	out := []gin.H{}
	for idx, b := range blogs {
		entry := blogJSON(b)
		entry["read"] = read[idx]
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"blogs": out})
}

func (s *Server) markFeedRead(c *gin.Context) {
	user, _ := middlewares.CurrentUser(c)

	var req struct {
		BlogIds []string `json:"blog_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	if s.ReadStatus != nil {
		if err := s.ReadStatus.SetBlogsReadStatus(req.BlogIds, user.Id, true); err != nil {
			Log.Warn("fail to mark blogs read: ", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"marked": len(req.BlogIds)})
}

func blogListJSON(blogs []*model.Blog) gin.H {
	out := []gin.H{}
	for _, b := range blogs {
		out = append(out, blogJSON(b))
	}
	return gin.H{"blogs": out}
}

func intQuery(c *gin.Context, name string) int {
	return intQueryDefault(c, name, 0)
}

func intQueryDefault(c *gin.Context, name string, fallback int) int {
	val := c.Query(name)
	if val == "" {
		return fallback
	}
	parsed := 0
	for _, ch := range val {
		if ch < '0' || ch > '9' {
			return fallback
		}
		parsed = parsed*10 + int(ch-'0')
	}
	return parsed
}
