package base

import (
	"time"

	"github.com/klayza/Fractal/internal/app/di"
	"github.com/klayza/Fractal/internal/commands"
	"github.com/klayza/Fractal/internal/config"
	"github.com/klayza/Fractal/internal/logger"
	"github.com/klayza/Fractal/internal/queue"
	"github.com/klayza/Fractal/internal/service"
	"github.com/klayza/Fractal/internal/storage"
	"github.com/klayza/Fractal/internal/telegram"
)

type Command struct {
	command   commands.Command
	Tg        telegram.Client
	Logger    logger.Logger
	Cfg       *config.Config
	Queue     *queue.Queue
	Store     storage.Store
	Localizer *service.Localizer
}

func NewCommand(cmd commands.Command, di *di.Container) *Command {
	return &Command{
		command:   cmd,
		Tg:        di.BotClient,
		Logger:    di.Logger,
		Cfg:       di.Cfg,
		Queue:     di.Queue,
		Store:     di.Store,
		Localizer: di.Localizer,
	}
}

func (c *Command) Name() string {
	return ""
}

func (c *Command) Aliases() []string {
	return []string{}
}

func (c *Command) Handle(update telegram.Update) error {
	cfg := c.Cfg.GetCommandConfig(c.command.Name())
	if cfg.Queue.Enabled {
		config := c.command.GetQueueConfig()
		retryDelayMillis := int64(config.RetryDelay / time.Millisecond)
		return c.Queue.Add(c.command, update,
			config.MaxRetries,
			retryDelayMillis)
	}
	return c.command.Execute(update)
}

func (c *Command) GetQueueConfig() commands.QueueConfig {
	cfg := c.Cfg.GetCommandConfig(c.command.Name())
	return commands.QueueConfig{
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
		Timeout:    cfg.Queue.Timeout,
		Throttle: commands.ThrottleConfig{
			Concurrency: cfg.Queue.Throttle.Concurrency,
			Period:      cfg.Queue.Throttle.Period,
			Requests:    cfg.Queue.Throttle.Requests,
		},
	}
}

func (c *Command) Execute(update telegram.Update) error {
	return nil
}

func (c *Command) L(messageID string, data map[string]any) string {
	return c.Localizer.Localize(messageID, data)
}

// Reply sends plain text back to the chat the update came from.
func (c *Command) Reply(update telegram.Update, text string) error {
	msg := telegram.NewMessage(update.Message.Chat.ID, text, update.Message.MessageID)
	_, err := c.Tg.Send(msg)
	return err
}
