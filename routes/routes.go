package routes

import (
	"time"

	"wagerd/config"
	"wagerd/controllers/account"
	"wagerd/controllers/wager"
	"wagerd/middlewares"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Account     *account.Handler
	Wager       *wager.Handler
	Idempotency middlewares.IdempotencyStore
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
	})
	app.Post("/auth/token", h.Account.Token)

	master := middlewares.MasterAuth(cfg.Master)
	app.Post("/accounts/register", master, h.Account.Register)
	app.Post("/accounts/topup", master, h.Account.Topup)

	auth := middlewares.AccountAuth(cfg.JWT.Secret)
	idem := middlewares.Idempotency(h.Idempotency, cfg.Idempotency.TTL)

	app.Get("/accounts/balance", auth, h.Account.Balance)

	wagerroutes := app.Group("/wager/matches", auth)
	wagerroutes.Get("/", h.Wager.List)
	wagerroutes.Post("/", idem, h.Wager.Create)
	wagerroutes.Get("/:code", h.Wager.Get)
	wagerroutes.Get("/:code/events", h.Wager.Events)
	wagerroutes.Post("/:code/fund-host", idem, h.Wager.FundHost)
	wagerroutes.Post("/:code/join", idem, h.Wager.Join)
	wagerroutes.Post("/:code/refund", idem, h.Wager.Refund)
	wagerroutes.Post("/:code/settle", idem, h.Wager.Settle)
}
