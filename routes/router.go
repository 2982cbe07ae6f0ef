package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cppla/bbsforum/config"
	"github.com/cppla/bbsforum/controllers"
	"github.com/cppla/bbsforum/middleware"
	"github.com/cppla/bbsforum/repository"
	"github.com/cppla/bbsforum/services"
	"github.com/cppla/bbsforum/utils"
)

const (
	captchaTTL    = 5 * time.Minute
	statsCacheTTL = 30 * time.Second
)

// SetupRouter wires repositories, services, middlewares and controllers.
func SetupRouter(cfg config.AppConfig, db *gorm.DB, cache utils.Cache, mailer utils.Mailer) (*gin.Engine, error) {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := utils.NewLocalFileStore(cfg.UploadDir, cfg.UploadMaxBytes)
	if err != nil {
		return nil, err
	}

	memberRepo := repository.NewMemberRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	tx := repository.NewTransactor(db)

	jwtManager := utils.NewJWTManager(cfg.JWTSecret)
	tokens := utils.NewTokenStore(cache)

	memberService := services.NewMemberService(memberRepo, tx, mailer, tokens, services.MemberConfig{
		EmailAuthTTL:   cfg.EmailAuthTTL,
		VerifyURL:      cfg.OAuthRedirectBase + "/api/v1/auth/verify-email",
		AdminUsernames: cfg.AdminUsernames,
	})
	authService := services.NewAuthService(memberRepo, jwtManager, tokens, services.AuthConfig{
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		RememberMeTTL: cfg.RememberMeTTL,
	})
	postService := services.NewPostService(postRepo, commentRepo, attachmentRepo, memberRepo, tx, cache, cfg.ViewCountTTL)
	commentService := services.NewCommentService(commentRepo, postRepo, memberRepo, tx)
	attachmentService := services.NewAttachmentService(attachmentRepo, postRepo, memberRepo, tx, store)
	statsService := services.NewStatsService(statsRepo, cache, statsCacheTTL)

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl := utils.NewRollingFileLogger(cfg, cfg.GinPath)
	r.Use(utils.Ginzap(gl))
	r.Use(utils.RecoveryWithZap(gl))
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Session(strings.HasPrefix(cfg.OAuthRedirectBase, "https://")))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.NewAuth(jwtManager, tokens)
	limit := middleware.RateLimit(cfg.RateLimitPerMinute)

	authController := controllers.NewAuthController(memberService, authService, utils.NewCaptcha(cache, captchaTTL), cfg.RegisterCaptchaEnabled, cfg.FrontendBaseURL)
	oauthController := controllers.NewOAuthController(cfg, memberService, authService, utils.NewStateStore(cache))
	memberController := controllers.NewMemberController(memberService, postService, commentService)
	postController := controllers.NewPostController(postService)
	commentController := controllers.NewCommentController(commentService)
	attachmentController := controllers.NewAttachmentController(attachmentService, cfg.UploadMaxBytes)
	statsController := controllers.NewStatsController(statsService)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(limit)
	authGroup.POST("/join", authController.Join)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/refresh", authController.Refresh)
	authGroup.POST("/logout", auth.Required(), authController.Logout)
	authGroup.GET("/verify-email", authController.VerifyEmail)
	authGroup.POST("/verify-email/resend", authController.ResendVerification)
	authGroup.POST("/password/reset", authController.ResetPassword)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.GET("/oauth/:provider/login", oauthController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", oauthController.OAuthCallback)

	// Public reads
	api.GET("/stats", statsController.GetStats)
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/notices", postController.ListNotices)
	api.GET("/posts/:id", postController.GetPost)
	api.GET("/posts/:id/comments", commentController.ListComments)
	api.GET("/posts/:id/attachments", attachmentController.ListAttachments)
	api.GET("/attachments/:id/download", attachmentController.Download)
	api.GET("/members/:id", memberController.Get)
	api.GET("/members/:id/posts", memberController.Posts)
	api.GET("/members/:id/comments", memberController.Comments)

	protected := api.Group("")
	protected.Use(auth.Required(), limit)
	protected.GET("/members", auth.AdminRequired(), memberController.List)
	protected.GET("/members/me", memberController.Me)
	protected.PATCH("/members/me", memberController.UpdateMe)
	protected.PUT("/members/me/password", memberController.ChangePassword)
	protected.DELETE("/members/me", memberController.Withdraw)
	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.DELETE("/posts", postController.DeletePosts)
	protected.POST("/posts/:id/comments", commentController.CreateComment)
	protected.PUT("/comments/:id", commentController.UpdateComment)
	protected.DELETE("/comments/:id", commentController.DeleteComment)
	protected.DELETE("/comments", commentController.DeleteComments)
	protected.POST("/posts/:id/attachments", attachmentController.UploadAttachments)
	protected.DELETE("/attachments/:id", attachmentController.DeleteAttachment)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r, nil
}
