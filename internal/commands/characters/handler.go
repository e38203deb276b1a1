package characters

import (
	"strings"

	"github.com/klayza/Fractal/internal/app/di"
	"github.com/klayza/Fractal/internal/commands/base"
	"github.com/klayza/Fractal/internal/telegram"
)

const CommandName = "characters"

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

func (c *Command) Execute(update telegram.Update) error {
	names, err := c.Store.AvailableCharacters()
	if err != nil {
		c.Logger.WithError(err).Error("Failed to list characters")
		return err
	}
	if len(names) == 0 {
		return c.Reply(update, c.L("NoCharacters", nil))
	}

	return c.Reply(update, c.L("CharactersList", map[string]any{
		"Characters": strings.Join(names, ", "),
	}))
}
