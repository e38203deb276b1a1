package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"slices"
	"strings"

	chatcmd "github.com/klayza/Fractal/internal/commands/chat"

	"github.com/klayza/Fractal/internal/commands"
	"github.com/klayza/Fractal/internal/config"
	"github.com/klayza/Fractal/internal/database"
	"github.com/klayza/Fractal/internal/logger"
	"github.com/klayza/Fractal/internal/queue"
	"github.com/klayza/Fractal/internal/service"
	"github.com/klayza/Fractal/internal/telegram"
)

type Bot struct {
	commands  map[string]commands.Command
	logger    logger.Logger
	queue     *queue.Queue
	db        database.Database
	tg        telegram.Client
	cfg       *config.Config
	localizer *service.Localizer
}

func NewBot(
	tg telegram.Client,
	queue *queue.Queue,
	logger logger.Logger,
	db database.Database,
	cfg *config.Config,
	localizer *service.Localizer,
) (*Bot, error) {
	return &Bot{
		commands:  make(map[string]commands.Command),
		tg:        tg,
		queue:     queue,
		cfg:       cfg,
		logger:    logger,
		db:        db,
		localizer: localizer,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	u := b.tg.NewUpdate(0, 60, 0)

	go b.queue.Start(ctx, b.commands)

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info("Bot started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			jsonData, _ := json.Marshal(update)
			b.logger.WithFields(logger.Fields{
				"update_structure": string(jsonData),
			}).Debug("Received update")

			msg := update.Message
			if msg == nil || msg.From == nil {
				continue
			}

			b.trackUser(msg)

			if msg.Text != "" && !msg.From.IsBot {
				if err := b.db.SaveMessage(msg.Chat.ID, msg.MessageID, msg.From.UserName, jsonData); err != nil {
					b.logger.WithError(err).Error("Failed to save message to database")
				}
			}

			// Check permissions
			if !b.cfg.Telegram().IsAllowed(msg.From.ID, msg.Chat.ID) {
				b.logger.WithFields(logger.Fields{
					"user_id":  msg.From.ID,
					"username": msg.From.UserName,
					"chat_id":  msg.Chat.ID,
				}).Warn("Unauthorized access attempt")
				continue
			}

			if msg.From.IsBot || msg.ForwardOrigin != nil {
				continue
			}

			if isCommand(msg.Text) {
				b.routeCommand(update)
				continue
			}

			// Everything else is conversation.
			if msg.Text != "" {
				if cmd, ok := b.commands[chatcmd.CommandName]; ok {
					b.dispatch(cmd, update)
				}
			}
		}
	}
}

func (b *Bot) routeCommand(update telegram.Update) {
	msg := update.Message
	parts := strings.Fields(msg.Text)
	if len(parts) == 0 {
		return
	}
	cmdParts := strings.Split(strings.TrimPrefix(parts[0], "/"), "@")
	command := cmdParts[0]
	if len(cmdParts) > 1 && !strings.EqualFold(cmdParts[1], b.tg.Self().UserName) {
		return // command addressed to another bot
	}

	var cmd commands.Command
	for name, c := range b.commands {
		if name == command || slices.Contains(c.Aliases(), command) {
			cmd = c
			break
		}
	}
	if cmd == nil {
		return
	}

	b.logger.WithFields(logger.Fields{
		"command":  command,
		"user_id":  msg.From.ID,
		"username": msg.From.UserName,
		"args":     msg.CommandArguments(),
	}).Info("Handling command")

	b.dispatch(cmd, update)
}

func (b *Bot) dispatch(cmd commands.Command, update telegram.Update) {
	msg := update.Message
	go func(cmd commands.Command, update telegram.Update) {
		if err := cmd.Handle(update); err != nil {
			b.logger.WithError(err).Error("Failed to handle command")
			b.sendErrorMessage(msg.Chat.ID, msg.MessageID)
		}
	}(cmd, update)
}

func (b *Bot) trackUser(msg *telegram.MessageOriginal) {
	storedUser, err := b.db.GetUser(msg.From.ID)
	user := database.User{
		ID:        msg.From.ID,
		FirstName: msg.From.FirstName,
		Username:  msg.From.UserName,
	}
	if err != nil {
		if err == sql.ErrNoRows {
			b.logger.WithField("user", user).Info("Store new user")
			if err := b.db.SaveUser(user); err != nil {
				b.logger.WithError(err).WithField("user", user).Error("Error save new user")
			}
		} else {
			b.logger.WithError(err).Error("Error get user by id")
		}
		return
	}
	if !user.Equal(*storedUser) {
		if err := b.db.SaveUser(user); err != nil {
			b.logger.WithError(err).WithField("user", user).Error("Error update user")
		}
	}
}

func (b *Bot) RegisterCommand(cmd commands.Command) {
	if cmd == nil {
		b.logger.Error("Attempting to register nil command")
		return
	}

	name := cmd.Name()
	if name == "" {
		b.logger.Error("Attempting to register command with empty name")
		return
	}

	b.logger.WithFields(logger.Fields{
		"command": name,
	}).Debug("Registering command")

	b.commands[name] = cmd
}

func isCommand(commandText string) bool {
	return strings.HasPrefix(commandText, "/")
}

func (b *Bot) sendErrorMessage(chatID int64, messageID int) {
	errorMsg := telegram.NewMessage(
		chatID,
		b.localizer.Localize("GenericError", nil),
		messageID,
	)
	if _, sendErr := b.tg.Send(errorMsg); sendErr != nil {
		b.logger.WithError(sendErr).Error("Failed to send error message")
	}
}

func (b *Bot) GetCommands() map[string]commands.Command {
	return b.commands
}
