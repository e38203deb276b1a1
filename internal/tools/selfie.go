package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/klayza/Fractal/internal/ai"
	"github.com/klayza/Fractal/internal/logger"
	"github.com/klayza/Fractal/internal/sd"
	"github.com/klayza/Fractal/internal/storage"
)

// PhotoSender delivers a selfie out of band, next to the normal text
// reply.
type PhotoSender interface {
	SendPhotoBytes(chatID int64, filename string, data []byte) error
	SendPhotoFile(chatID int64, path string) error
}

// ImageGenerator is the Stable Diffusion surface. Enabled reports
// whether a backend is configured at all.
type ImageGenerator interface {
	Enabled() bool
	Generate(ctx context.Context, payload map[string]any) ([]byte, error)
}

// SendSelfie sends the active character's selfie to the caller.
// When an image backend is configured it renders one from the
// character's image prompt with the requested emotion woven in;
// otherwise it falls back to the character's bundled media file.
type SendSelfie struct {
	store       storage.Store
	generator   ImageGenerator
	sender      PhotoSender
	mediaRoot   string
	traitWeight float64
	logger      logger.Logger
}

func NewSendSelfie(
	store storage.Store,
	generator ImageGenerator,
	sender PhotoSender,
	mediaRoot string,
	traitWeight float64,
	log logger.Logger,
) *SendSelfie {
	return &SendSelfie{
		store:       store,
		generator:   generator,
		sender:      sender,
		mediaRoot:   mediaRoot,
		traitWeight: traitWeight,
		logger:      log,
	}
}

func (t *SendSelfie) Name() string        { return ToolSendSelfie }
func (t *SendSelfie) NeedsIdentity() bool { return true }

func (t *SendSelfie) Schema() ai.Tool {
	return ai.NewTool(ToolSendSelfie,
		"Sends a selfie to the user",
		ai.Parameters{
			Type: "object",
			Properties: map[string]ai.Property{
				"name": {Type: "string", Description: "current emotion in selfie"},
			},
		})
}

func (t *SendSelfie) Invoke(ctx context.Context, userID int64, args map[string]any) (string, error) {
	runtime, err := t.store.LoadRuntimeProfile(userID)
	if err != nil {
		return "", err
	}
	if runtime.Character == "" {
		return "", fmt.Errorf("no active character for user %d", userID)
	}

	emotion := stringArg(args, "name")

	if t.generator != nil && t.generator.Enabled() {
		if err := t.generateAndSend(ctx, userID, runtime.Character, emotion); err == nil {
			return "Selfie sent.", nil
		} else {
			t.logger.WithError(err).WithField("user_id", userID).Warn("Selfie generation failed, falling back to media file")
		}
	}

	path := filepath.Join(t.mediaRoot, runtime.Character+"Selfie.jpg")
	if err := t.sender.SendPhotoFile(userID, path); err != nil {
		return "", fmt.Errorf("send selfie: %w", err)
	}
	return "Selfie sent.", nil
}

func (t *SendSelfie) generateAndSend(ctx context.Context, userID int64, char, emotion string) error {
	positive, negative, err := t.store.SDPrompt(userID, char)
	if err != nil {
		return err
	}

	payload, err := t.store.SDPayload("selfie")
	if err != nil {
		payload, err = t.store.SDPayload("default")
		if err != nil {
			return err
		}
	}

	traits := ""
	if emotion != "" {
		traits = "(" + emotion + ")"
	}
	payload["prompt"] = sd.InsertTraits(positive, traits, t.traitWeight)
	payload["negative_prompt"] = negative

	image, err := t.generator.Generate(ctx, payload)
	if err != nil {
		return err
	}
	return t.sender.SendPhotoBytes(userID, "selfie.png", image)
}
