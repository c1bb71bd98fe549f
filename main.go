package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"mongo-user-service/authentication"
	"mongo-user-service/logging"
	"mongo-user-service/mailer"
	"mongo-user-service/users"
	"mongo-user-service/verification"
	"mongo-user-service/version"
)

func main() {
	cfg := LoadConfig()

	log := logging.NewLogger(cfg.AppEnv).Sugar()
	defer log.Sync()

	ctx := context.Background()

	mongoClient, err := connectMongo(ctx, cfg)
	if err != nil {
		log.Fatalw("could not connect to MongoDB", "url", cfg.DatabaseURL, "error", err)
	}
	log.Infow("connected to MongoDB", "database", cfg.DatabaseName)

	if err := ensureIndexes(ctx, mongoClient, cfg); err != nil {
		log.Fatalw("could not create indexes", "error", err)
	}

	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		log.Fatalw("could not connect to Redis", "addr", cfg.RedisAddr, "error", err)
	}
	log.Infow("connected to Redis", "addr", cfg.RedisAddr)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	mail := mailer.NewConsoleSender(log)
	sessions := authentication.NewRefreshStore(rdb)
	authHandler := authentication.NewHandler(mongoClient, cfg, sessions, mail, log)
	userHandler := users.NewHandler(mongoClient, cfg)
	verifyHandler := verification.NewHandler(mongoClient, cfg, mail, log)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", authHandler.HandleSignup)
		auth.POST("/login", authHandler.HandleLogin)
		auth.POST("/logout", authHandler.AuthMiddleware(), authHandler.HandleLogout)
		auth.POST("/refresh", authHandler.HandleRefresh)
		auth.POST("/verify", verifyHandler.HandleVerify)
		auth.POST("/verify/resend", verifyHandler.HandleResend)
		auth.POST("/password-reset", verifyHandler.HandleRequestReset)
		auth.POST("/password-reset/confirm", verifyHandler.HandleConfirmReset)
	}

	r.GET("/", authHandler.AuthMiddleware(), userHandler.HandleWelcome)
	r.GET("/api/me", authHandler.AuthMiddleware(), userHandler.HandleMe)

	r.GET("/api/info", func(c *gin.Context) {
		info := version.GetInfo()
		info.ServerEnv = cfg.AppEnv
		info.DatabaseName = cfg.DatabaseName
		c.JSON(http.StatusOK, info)
	})

	log.Infow("server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalw("server stopped", "error", err)
	}
}
