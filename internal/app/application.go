package app

import (
	"context"
	"flag"
	"time"

	"github.com/klayza/Fractal/internal/app/di"
	"github.com/klayza/Fractal/internal/commands/characters"
	chatcmd "github.com/klayza/Fractal/internal/commands/chat"
	"github.com/klayza/Fractal/internal/commands/clear"
	"github.com/klayza/Fractal/internal/commands/mode"
	"github.com/klayza/Fractal/internal/commands/start"
	"github.com/klayza/Fractal/internal/config"
	"github.com/klayza/Fractal/internal/core"
	"github.com/klayza/Fractal/internal/logger"
)

type Application struct {
	Logger logger.Logger
	cfg    *config.Config
	bot    *core.Bot
	di     *di.Container
	ctx    context.Context
	cancel context.CancelFunc
}

func New() (*Application, error) {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	cfg, err := config.Load()
	if err != nil {
		cancel()
		return nil, err
	}

	di, err := di.NewContainer(cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	di.Logger.Info("DI Container created")

	botInstance, err := core.NewBot(
		di.BotClient,
		di.Queue,
		di.Logger,
		di.DB,
		cfg,
		di.Localizer,
	)
	if err != nil {
		di.Logger.Fatal(err)
	}
	di.Logger.Info("Bot instance created")

	app := &Application{
		cfg:    cfg,
		bot:    botInstance,
		di:     di,
		Logger: di.Logger,
		ctx:    ctx,
		cancel: cancel,
	}

	app.registerCommands()

	return app, nil
}

func (a *Application) Start() error {
	a.Logger.Info("Starting application")
	a.StartMessageCleaner()
	return a.bot.Start(a.ctx)
}

func (a *Application) registerCommands() {
	if a.cfg.GetCommandConfig(start.CommandName).Enabled {
		a.bot.RegisterCommand(start.New(a.di))
	}
	if a.cfg.GetCommandConfig(mode.CommandName).Enabled {
		a.bot.RegisterCommand(mode.New(a.di))
	}
	if a.cfg.GetCommandConfig(clear.CommandName).Enabled {
		a.bot.RegisterCommand(clear.New(a.di))
	}
	if a.cfg.GetCommandConfig(characters.CommandName).Enabled {
		a.bot.RegisterCommand(characters.New(a.di))
	}
	if a.cfg.GetCommandConfig(chatcmd.CommandName).Enabled {
		a.bot.RegisterCommand(chatcmd.New(a.di))
	}
}

func (a *Application) WaitForShutdown() {
	<-a.ctx.Done()
	a.Logger.Info("Application stopped")
}

func (c *Application) StartMessageCleaner() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := c.di.DB.PurgeOldMessages(c.di.Cfg.Global().MessageRetentionDays); err != nil {
				c.di.Logger.Error("Failed to purge old messages: ", err)
			}
		}
	}()
}
