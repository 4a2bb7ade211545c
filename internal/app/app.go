// Package app wires configuration, infrastructure and the bot together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/suggestbot/core/bootstrap"
	corecmd "github.com/m3rciful/suggestbot/core/cmd"
	"github.com/m3rciful/suggestbot/core/logger"
	tg "github.com/m3rciful/suggestbot/core/telegram"
	tghelpers "github.com/m3rciful/suggestbot/core/telegram/helpers"
	"github.com/m3rciful/suggestbot/core/telegram/router"
	"github.com/m3rciful/suggestbot/internal/bot"
	"github.com/m3rciful/suggestbot/internal/catalog"
	"github.com/m3rciful/suggestbot/internal/flow"
	"github.com/m3rciful/suggestbot/internal/render"
	"github.com/m3rciful/suggestbot/internal/suggestion"

	tele "gopkg.in/telebot.v4"
)

const (
	adminOnlyText   = "This command is for the bot admin only."
	rateLimitedText = "Too many requests, slow down a little."
)

var allowedUpdates = []string{"message", "callback_query"}

// App holds the long-lived collaborators of the bot process.
type App struct {
	cfg       *Config
	infra     *bootstrap.Result
	catalog   catalog.Client
	publisher suggestion.Publisher
	counter   bot.Counter

	machine *flow.Machine
}

// Bootstrap adapts New to the process runner.
func Bootstrap(c corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := c.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", c)
	}
	return New(cfg)
}

// New initializes logging and, when enabled, the suggestion database.
func New(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	infra, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.DatabaseOrNil(),
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		infra:     infra,
		catalog:   catalog.NewOMDb(cfg.Catalog, nil),
		publisher: suggestion.LogPublisher{},
	}
	if infra.DB != nil {
		store := suggestion.NewPostgresStore(infra.DB)
		a.publisher = store
		a.counter = store
	}
	logger.Info(logger.Background(), "app", "app.init",
		slog.String("status", "ok"),
		slog.Bool("database", infra.DB != nil),
	)
	return a, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	return a.infra.Close()
}

// TelegramRunOptions describes how the bot runtime should be composed.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	return tg.RunOptions{
		Config:         core,
		Registry:       tg.NewRegistry(),
		Middlewares:    tg.DefaultMiddlewares(core, rateLimited),
		AllowedUpdates: allowedUpdates,
		BuildRoutes:    a.buildRoutes,
		OnStart:        a.onStart,
	}, nil
}

func (a *App) buildRoutes(rt tg.Runtime) ([]tg.Route, error) {
	m, err := flow.NewMachine(flow.Options{
		Catalog:   a.catalog,
		Transport: bot.NewTransport(rt.Bot, rt.Dispatcher),
		Publisher: a.publisher,
		Renderer:  render.New(a.cfg.Flow.PlaceholderImage),
	})
	if err != nil {
		return nil, err
	}
	a.machine = m

	handlers := bot.NewHandlers(m, rt.Dispatcher, a.counter)
	if err := handlers.Register(rt.Registry); err != nil {
		return nil, err
	}

	adminID := a.cfg.Telegram.AdminID
	routes := router.CommandRoutes(rt.Registry, router.CommandRouteOptions{
		AdminID:       adminID,
		OnAdminReject: adminOnly,
	})
	routes = append(routes,
		router.CallbackRoute(rt.Registry, router.CallbackOptions{}),
		router.TextRoute(rt.Registry, router.TextOptions{
			AdminID:       adminID,
			OnAdminReject: adminOnly,
		}),
	)
	return routes, nil
}

func (a *App) onStart(ctx context.Context, _ tg.Runtime) error {
	if a.machine == nil {
		return errors.New("app: flow machine not built")
	}
	go a.machine.RunJanitor(ctx, a.cfg.Flow.JanitorInterval, a.cfg.Flow.SessionIdleTTL)
	return nil
}

func adminOnly(c tele.Context) error {
	return tghelpers.SendText(c, adminOnlyText)
}

func rateLimited(c tele.Context) error {
	if c.Callback() != nil {
		return tghelpers.Respond(c, &tele.CallbackResponse{Text: rateLimitedText})
	}
	return tghelpers.SendText(c, rateLimitedText)
}
