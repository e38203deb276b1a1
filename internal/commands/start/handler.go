package start

import (
	"github.com/klayza/Fractal/internal/app/di"
	"github.com/klayza/Fractal/internal/commands/base"
	"github.com/klayza/Fractal/internal/telegram"
)

const CommandName = "start"

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

// Execute resets the caller to a blank runtime profile and asks for
// their name again. Task lists and character histories are untouched.
func (c *Command) Execute(update telegram.Update) error {
	userID := update.Message.From.ID
	if _, err := c.Store.ResetRuntimeProfile(userID); err != nil {
		c.Logger.WithError(err).WithField("user_id", userID).Error("Failed to reset runtime profile")
		return err
	}

	return c.Reply(update, c.L("StartGreeting", nil))
}
