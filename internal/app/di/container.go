package di

import (
	"path/filepath"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"github.com/klayza/Fractal/internal/ai"
	"github.com/klayza/Fractal/internal/chat"
	"github.com/klayza/Fractal/internal/config"
	"github.com/klayza/Fractal/internal/database"
	"github.com/klayza/Fractal/internal/logger"
	"github.com/klayza/Fractal/internal/network"
	"github.com/klayza/Fractal/internal/queue"
	"github.com/klayza/Fractal/internal/sd"
	"github.com/klayza/Fractal/internal/service"
	"github.com/klayza/Fractal/internal/storage"
	"github.com/klayza/Fractal/internal/telegram"
	"github.com/klayza/Fractal/internal/tools"
)

type Container struct {
	BotClient    telegram.Client
	Logger       logger.Logger
	DB           database.Database
	Cfg          *config.Config
	Queue        *queue.Queue
	Localizer    *service.Localizer
	Store        storage.Store
	AI           *ai.Client
	SD           *sd.Client
	Tools        *tools.Dispatcher
	Orchestrator *chat.Orchestrator
}

func NewContainer(cfg *config.Config) (*Container, error) {
	logCfg := cfg.Log()
	l := logger.NewLogrusLogger(&logCfg)

	db, err := database.NewSQLiteDB(cfg, l)
	if err != nil {
		return nil, err
	}

	q := queue.NewQueue(db, l)
	localizer, err := service.NewLocalizer(cfg.Global().InterfaceLanguage)
	if err != nil {
		l.WithError(err).Fatal("Error create localizer")
	}

	container := &Container{
		Logger:    l,
		DB:        db,
		Cfg:       cfg,
		Queue:     q,
		Localizer: localizer,
	}

	httpCfg := network.NewDefaultHTTPClientConfig(cfg.HTTP())
	if t := cfg.AI().Timeout; t > 0 {
		httpCfg.Timeout = t
	}
	httpClient := network.SetupHTTPClient(httpCfg, l)
	container.AI = ai.NewClient(httpClient, cfg.AI(), l)

	// The image backend is on the local network, never behind a proxy.
	sdHTTPClient := network.SetupHTTPClient(network.NewLocalHTTPClientConfig(cfg.SD().Timeout), l)
	container.SD = sd.NewClient(sdHTTPClient, cfg.SD(), l)

	container.Store = storage.NewFileStore(cfg.Storage().Root, l)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram().Token)
	if err != nil {
		l.WithError(err).Fatal("Bot API client initialization error")
	}
	l.Info("Bot API initialized")
	container.BotClient = telegram.NewBotClient(api, l)

	mediaRoot := filepath.Join(cfg.Storage().Root, "Global", "Media")
	registry := tools.NewRegistry(
		tools.NewAddNewTask(container.Store),
		tools.NewCompleteTask(container.Store, container.AI, l),
		tools.NewSummarizeTasks(container.Store, container.AI),
		tools.NewSendSelfie(container.Store, container.SD, container.BotClient, mediaRoot, cfg.SD().TraitWeight, l),
	)
	container.Tools = tools.NewDispatcher(registry, l)
	container.Orchestrator = chat.NewOrchestrator(container.AI, container.Tools, l)

	return container, nil
}
