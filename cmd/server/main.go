package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/cruxgym/crux-api/internal/config"
	"github.com/cruxgym/crux-api/internal/database"
	"github.com/cruxgym/crux-api/internal/handler"
	"github.com/cruxgym/crux-api/internal/middleware"
	"github.com/cruxgym/crux-api/internal/queue"
	"github.com/cruxgym/crux-api/internal/repository"
	"github.com/cruxgym/crux-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables caching and rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	roles := repository.NewRoleRepo(db)
	nicknames := repository.NewNicknameRepo(db)
	routes := repository.NewRouteRepo(db)
	refs := repository.NewReferenceRepo(db)
	ticks := repository.NewTickRepo(db)
	likes := repository.NewLikeRepo(db)
	projects := repository.NewProjectRepo(db)
	feedback := repository.NewFeedbackRepo(db)
	stats := repository.NewStatsRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Deps{
		Auth:    handler.NewAuthHandler(cfg, users, roles, nicknames),
		Routes:  handler.NewRouteHandler(routes, refs),
		Ticks:   handler.NewTickHandler(ticks, routes, refs, users),
		Social:  handler.NewSocialHandler(likes, projects, feedback, refs, routes),
		Profile: handler.NewProfileHandler(nicknames, ticks, likes, projects, stats),

		Identity:  middleware.Identity(cfg.JWTSecret, users, sessions),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Roles:     roles,
	})

	queue.StartActivityConsumers()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
