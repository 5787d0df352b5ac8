// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cruxgym/crux-api/internal/handler"
	"github.com/cruxgym/crux-api/internal/middleware"
)

// Deps carries everything route registration needs. Middleware funcs are
// passed in pre-built so main controls their configuration and the Redis
// wiring stays out of this package.
type Deps struct {
	Auth    *handler.AuthHandler
	Routes  *handler.RouteHandler
	Ticks   *handler.TickHandler
	Social  *handler.SocialHandler
	Profile *handler.ProfileHandler

	Identity  echo.MiddlewareFunc // resolves the acting user, never rejects
	Cache     echo.MiddlewareFunc // response cache for reference reads
	RateLimit echo.MiddlewareFunc // token bucket for interaction writes
	Roles     middleware.RoleSource
}

// Register wires the full API surface onto the Echo instance.
//
// Layering: the identity resolver runs on everything under /v1 so public
// reads can include viewer flags; RequireAuth guards the interaction and
// profile endpoints; the role gates sit only on route management.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1", d.Identity)

	// Account endpoints. Register and login are anonymous; validate reads
	// its token directly and me/permissions use the resolved identity.
	authg := v1.Group("/auth")
	authg.POST("/register", d.Auth.Register)
	authg.POST("/login", d.Auth.Login)
	authg.GET("/validate", d.Auth.Validate)

	v1.GET("/me", d.Auth.Me)
	v1.GET("/me/permissions", d.Auth.Permissions)

	// Reference data: public, heavily cached.
	ref := v1.Group("", d.Cache)
	ref.GET("/wall-sections", d.Routes.WallSections)
	ref.GET("/grades", d.Routes.Grades)
	ref.GET("/grade-definitions", d.Routes.GradeDefinitions)
	ref.GET("/grade-colors", d.Routes.GradeColors)
	ref.GET("/lanes", d.Routes.Lanes)
	ref.GET("/hold-colors", d.Routes.HoldColors)

	// Route browsing: public, viewer flags appear when authenticated.
	v1.GET("/routes", d.Routes.List)
	v1.GET("/routes/:id", d.Routes.Get)
	v1.GET("/routes/:id/comments", d.Social.ListComments)

	// Route management: staff only.
	v1.POST("/routes", d.Routes.Create, middleware.RequireRouteManager(d.Roles))
	v1.DELETE("/routes/:id", d.Routes.Delete, middleware.RequireAdmin(d.Roles))

	// Interaction writes: authenticated and rate limited.
	act := v1.Group("/routes/:id", middleware.RequireAuth(), d.RateLimit)
	act.POST("/attempts", d.Ticks.AddAttempts)
	act.POST("/send", d.Ticks.MarkSend)
	act.POST("/unsend", d.Ticks.UnmarkSend)
	act.PUT("/notes", d.Ticks.UpdateNotes)
	act.DELETE("/ticks", d.Ticks.DeleteTick)
	act.POST("/like", d.Social.Like)
	act.DELETE("/like", d.Social.Unlike)
	act.POST("/projects", d.Social.AddProject)
	act.DELETE("/projects", d.Social.RemoveProject)
	act.POST("/comments", d.Social.AddComment)
	act.POST("/warnings", d.Social.AddWarning)
	act.POST("/grade-proposals", d.Social.ProposeGrade)

	// Interaction reads: authenticated, no limiter.
	read := v1.Group("/routes/:id", middleware.RequireAuth())
	read.GET("/ticks/me", d.Ticks.MyTick)
	read.GET("/like-status", d.Social.LikeStatus)
	read.GET("/grade-proposals/me", d.Social.MyProposalForRoute)

	// Profile surface.
	user := v1.Group("/user", middleware.RequireAuth())
	user.GET("/nickname", d.Profile.GetNickname)
	user.PUT("/nickname", d.Profile.SetNickname)
	user.GET("/ticks", d.Profile.MyTicks)
	user.GET("/likes", d.Profile.MyLikes)
	user.GET("/projects", d.Profile.MyProjects)
	user.GET("/stats", d.Profile.MyStats)
	user.GET("/grade-proposals", d.Social.MyProposals)
}
