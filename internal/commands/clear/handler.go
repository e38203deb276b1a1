package clear

import (
	"github.com/klayza/Fractal/internal/app/di"
	"github.com/klayza/Fractal/internal/commands/base"
	"github.com/klayza/Fractal/internal/telegram"
)

const CommandName = "clear"

type Command struct {
	*base.Command
}

func New(di *di.Container) *Command {
	cmd := &Command{}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

// Execute erases the conversation history of the active character.
// The character card and the user's tasks survive.
func (c *Command) Execute(update telegram.Update) error {
	userID := update.Message.From.ID
	runtime, err := c.Store.LoadRuntimeProfile(userID)
	if err != nil {
		return err
	}
	if runtime.Character == "" {
		return c.Reply(update, c.L("NoActiveCharacter", nil))
	}

	if err := c.Store.ClearHistory(userID, runtime.Character); err != nil {
		c.Logger.WithError(err).WithField("user_id", userID).Error("Failed to clear history")
		return err
	}

	return c.Reply(update, c.L("ClearDone", map[string]any{
		"Character": runtime.Character,
	}))
}
