package mode

import (
	"strings"

	"github.com/klayza/Fractal/internal/app/di"
	"github.com/klayza/Fractal/internal/commands/base"
	"github.com/klayza/Fractal/internal/telegram"
)

const CommandName = "mode"

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

// Execute flips runtime switches: nsfw/sfw toggles the content flag,
// sd/chat switches between image generation and conversation.
func (c *Command) Execute(update telegram.Update) error {
	userID := update.Message.From.ID
	runtime, err := c.Store.LoadRuntimeProfile(userID)
	if err != nil {
		return err
	}

	arg := strings.ToLower(strings.TrimSpace(update.Message.CommandArguments()))
	var reply string
	switch arg {
	case "nsfw":
		runtime.NSFW = true
		reply = c.L("ModeNSFWOn", nil)
	case "sfw":
		runtime.NSFW = false
		reply = c.L("ModeNSFWOff", nil)
	case "sd":
		if !c.Cfg.SD().Enabled {
			return c.Reply(update, c.L("SDDisabled", nil))
		}
		runtime.SD = true
		reply = c.L("ModeSDOn", nil)
	case "chat":
		runtime.SD = false
		reply = c.L("ModeSDOff", nil)
	default:
		return c.Reply(update, c.L("ModeUnknown", nil))
	}

	if err := c.Store.SaveRuntimeProfile(userID, runtime); err != nil {
		return err
	}

	return c.Reply(update, reply)
}
