package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/klayza/Fractal/internal/ai"
	"github.com/klayza/Fractal/internal/app/di"
	conversation "github.com/klayza/Fractal/internal/chat"
	"github.com/klayza/Fractal/internal/character"
	"github.com/klayza/Fractal/internal/commands/base"
	"github.com/klayza/Fractal/internal/logger"
	"github.com/klayza/Fractal/internal/sd"
	"github.com/klayza/Fractal/internal/storage"
	"github.com/klayza/Fractal/internal/telegram"
)

const CommandName = "chat"

// Command handles every plain text message: first-contact setup (name,
// then character choice), image generation when the sd switch is on,
// and otherwise a full conversation turn through the model.
type Command struct {
	*base.Command
	di *di.Container

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(di *di.Container) *Command {
	cmd := &Command{
		di:    di,
		locks: make(map[int64]*sync.Mutex),
	}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

// userLock serializes turns per user. Two interleaved turns would race
// on the history file and the task list.
func (c *Command) userLock(userID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[userID] = lock
	}
	return lock
}

func (c *Command) Execute(update telegram.Update) error {
	userID := update.Message.From.ID
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return nil
	}

	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	runtime, err := c.Store.LoadRuntimeProfile(userID)
	if err != nil {
		return err
	}

	if !runtime.CanChat() {
		return c.handleUserInit(update, text)
	}

	runtime.LastMessageTime = time.Now().Format(time.RFC3339)
	if err := c.Store.SaveRuntimeProfile(userID, runtime); err != nil {
		c.Logger.WithError(err).WithField("user_id", userID).Warn("Failed to save runtime profile")
	}

	if runtime.SD {
		return c.handleImage(update, runtime.Character, text)
	}
	return c.handleTurn(update, runtime.UserName, runtime.Character, text)
}

// handleUserInit walks a new user through setup: a one-word name
// first, then a character picked from the installed cards.
func (c *Command) handleUserInit(update telegram.Update, text string) error {
	userID := update.Message.From.ID
	runtime, err := c.Store.LoadRuntimeProfile(userID)
	if err != nil {
		return err
	}

	names, err := c.Store.AvailableCharacters()
	if err != nil {
		return err
	}

	if runtime.IsGuest() {
		if len(strings.Fields(text)) != 1 {
			return c.Reply(update, c.L("AskName", nil))
		}
		runtime.UserName = text
		if err := c.Store.SaveRuntimeProfile(userID, runtime); err != nil {
			return err
		}
		return c.Reply(update, c.L("AskCharacter", map[string]any{
			"Name":       text,
			"Characters": strings.Join(names, ", "),
		}))
	}

	if len(names) == 0 {
		return c.Reply(update, c.L("NoCharacters", nil))
	}

	for _, name := range names {
		if !strings.EqualFold(name, text) {
			continue
		}
		display := character.DisplayName(name)
		if err := c.Store.InstantiateCharacter(userID, name); err != nil {
			c.Logger.WithError(err).WithFields(logger.Fields{
				"user_id":   userID,
				"character": name,
			}).Error("Failed to instantiate character")
			return err
		}
		runtime.Character = name
		if err := c.Store.SaveRuntimeProfile(userID, runtime); err != nil {
			return err
		}
		return c.Reply(update, c.L("CharacterJoined", map[string]any{
			"Character": display,
		}))
	}

	return c.Reply(update, c.L("CharacterNotFound", map[string]any{
		"Characters": strings.Join(names, ", "),
	}))
}

// handleImage renders the message as image traits woven into the
// character's prompt and replies with the picture.
func (c *Command) handleImage(update telegram.Update, char, text string) error {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !c.di.SD.Enabled() {
		return c.Reply(update, c.L("SDDisabled", nil))
	}
	if err := c.Tg.SendChatAction(chatID, telegram.ActionUploadPhoto); err != nil {
		c.Logger.WithError(err).Debug("Failed to send chat action")
	}

	positive, negative, err := c.Store.SDPrompt(userID, char)
	if err != nil {
		c.Logger.WithError(err).WithField("character", char).Error("No image prompt for character")
		return c.Reply(update, c.L("GenericError", nil))
	}
	payloadBase, err := c.Store.SDPayload("default")
	if err != nil {
		return err
	}

	payload := sd.BuildPayload(payloadBase, positive, negative, "("+text+")", c.Cfg.SD().TraitWeight)

	ctx, cancel := context.WithTimeout(context.Background(), c.Cfg.SD().Timeout)
	defer cancel()
	image, err := c.di.SD.Generate(ctx, payload)
	if err != nil {
		c.Logger.WithError(err).WithField("user_id", userID).Error("Image generation failed")
		return c.Reply(update, c.L("GenericError", nil))
	}

	filename := fmt.Sprintf("output%s.png", time.Now().Format("01-02-15-04"))
	return c.Tg.SendPhotoBytes(chatID, filename, image)
}

// handleTurn runs one conversation round and persists both sides of
// the exchange only after the model answered.
func (c *Command) handleTurn(update telegram.Update, userName, char, text string) error {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	turnID := uuid.NewString()

	log := c.Logger.WithFields(logger.Fields{
		"turn_id":   turnID,
		"user_id":   userID,
		"character": char,
	})

	if err := c.Tg.SendChatAction(chatID, telegram.ActionTyping); err != nil {
		log.WithError(err).Debug("Failed to send chat action")
	}

	card, err := c.Store.LoadCharacterCard(userID, char)
	if err != nil {
		log.WithError(err).Error("Failed to load character card")
		return c.Reply(update, c.L("GenericError", nil))
	}
	systemPrompt, err := c.Store.SystemPrompt()
	if err != nil {
		log.WithError(err).Error("Failed to load system prompt")
		return c.Reply(update, c.L("GenericError", nil))
	}
	history, err := c.Store.LoadHistory(userID, char)
	if err != nil {
		log.WithError(err).Error("Failed to load history")
		return c.Reply(update, c.L("GenericError", nil))
	}

	cfg := c.Cfg.GetCommandConfig(CommandName)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Queue.Timeout)
	defer cancel()

	reply, err := c.di.Orchestrator.RunTurn(ctx, userID, conversation.AssembleInput{
		SystemPrompt: systemPrompt,
		Card:         card,
		History:      history,
		UserText:     text,
		Vars: map[string]string{
			"user": userName,
			"char": card.Name(),
		},
	})
	if err != nil {
		log.WithError(err).WithField("error_type", ai.GetErrorType(err)).Error("Turn failed")
		return c.Reply(update, c.L("GenericError", nil))
	}

	// History is written only on success, both sides at once.
	err = c.Store.AppendHistory(userID, char,
		storage.Turn{Name: userName, Role: ai.RoleUser, Msg: text},
		storage.Turn{Name: card.Name(), Role: ai.RoleAssistant, Msg: reply},
	)
	if err != nil {
		log.WithError(err).Error("Failed to append history")
	}

	log.Info("Turn completed")
	return c.Reply(update, reply)
}
