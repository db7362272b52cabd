package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"teamhub/apperr"
	controller "teamhub/controllers"
	"teamhub/middleware"
	"teamhub/policy"
	"teamhub/store"
	"teamhub/utils"
)

// Deps carries everything the route table wires into handlers.
type Deps struct {
	Stores           *store.Stores
	Tokens           *utils.TokenIssuer
	Policy           *policy.Engine
	Logger           *logrus.Logger
	AuthRateLimit    int
	RateLimitStorage fiber.Storage
	CORS             middleware.CORSConfig
}

// NewApp builds the fiber app with the shared middleware stack and every
// route registered.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "teamhub",
		ErrorHandler: utils.FiberErrorHandler,
	})
	app.Use(recover.New())
	app.Use(middleware.CORS(deps.CORS))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: deps.Logger.Out,
	}))

	SetupRoutes(app, deps)
	return app
}

func SetupAuthRoutes(api fiber.Router, deps Deps) {
	authController := controller.NewAuthController(
		deps.Stores.Users, deps.Tokens, deps.Policy,
		deps.Logger.WithField("component", "auth"),
	)
	protected := middleware.Protected(deps.Tokens, deps.Stores.Users)
	throttle := middleware.AuthRateLimiter(deps.AuthRateLimit, deps.RateLimitStorage)

	users := api.Group("/users")

	// Public endpoints
	users.Post("/register", throttle, authController.Register)
	users.Post("/login", throttle, authController.Login)
	users.Post("/token/refresh", authController.Refresh)

	// Protected endpoints
	users.Post("/logout", protected, authController.Logout)
	users.Get("/me", protected, throttle, authController.Me)
	users.Patch("/me", protected, throttle, authController.UpdateMe)
	users.Delete("/me", protected, authController.DeleteMe)
	users.Get("/", protected, authController.ListUsers)
}

func SetupTeamRoutes(api fiber.Router, deps Deps) {
	teamController := controller.NewTeamController(deps.Stores, deps.Policy, deps.Logger.WithField("component", "teams"))

	teams := api.Group("/teams", middleware.Protected(deps.Tokens, deps.Stores.Users))
	teams.Get("/", teamController.ListTeams)
	teams.Post("/", teamController.CreateTeam)
	teams.Get("/:id", teamController.GetTeam)
	teams.Patch("/:id", teamController.UpdateTeam)
	teams.Delete("/:id", teamController.DeleteTeam)

	teams.Get("/:id/members", teamController.ListMembers)
	teams.Post("/:id/members", teamController.AddMember)
	teams.Delete("/:id/members", teamController.RemoveMember)
	teams.Patch("/:id/members/:userID", teamController.UpdateMemberRole)
}

func SetupChannelRoutes(api fiber.Router, deps Deps) {
	channelController := controller.NewChannelController(deps.Stores, deps.Policy, deps.Logger.WithField("component", "channels"))

	channels := api.Group("/channels", middleware.Protected(deps.Tokens, deps.Stores.Users))
	channels.Get("/", channelController.ListChannels)
	channels.Post("/", channelController.CreateChannel)
	channels.Get("/:id", channelController.GetChannel)
	channels.Patch("/:id", channelController.UpdateChannel)
	channels.Delete("/:id", channelController.DeleteChannel)

	channels.Get("/:id/members", channelController.ListMembers)
	channels.Post("/:id/members", channelController.AddMember)
	channels.Delete("/:id/members", channelController.RemoveMember)
}

func SetupRoutes(app *fiber.App, deps Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return utils.SuccessResponse(c, fiber.StatusOK, "ok", fiber.Map{"status": "running"})
	})

	api := app.Group("/api/v1")
	SetupAuthRoutes(api, deps)
	SetupTeamRoutes(api, deps)
	SetupChannelRoutes(api, deps)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(utils.Envelope{
			Message: "Endpoint not found",
			Error:   &utils.ErrorBody{Code: apperr.KindNotFound, Detail: c.Method() + " " + c.Path()},
		})
	})
}
