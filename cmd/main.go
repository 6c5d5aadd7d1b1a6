package main

import (
	"bidmaster/internal/cms"
	"bidmaster/internal/config"
	"bidmaster/internal/crier"
	"bidmaster/internal/database"
	"bidmaster/internal/feed"
	"bidmaster/internal/forum"
	"bidmaster/internal/keyword"
	"bidmaster/internal/llm"
	"bidmaster/internal/logging"
	"bidmaster/internal/notify"
	"bidmaster/internal/radar"
	"bidmaster/internal/ratelimiter"
	"bidmaster/internal/scheduler"
	"bidmaster/internal/scout"
	"bidmaster/internal/social"
	"bidmaster/internal/writer"
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/openai/openai-go/v3/option"
)

const socialCopyCacheTTL = 24 * time.Hour

func main() {
	os.Exit(run())
}

func run() int {
	start := time.Now()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("Failed to load config",
			"error", err)

		return 1
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return 1
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	if len(os.Args) > 1 && os.Args[1] == statusCommand {
		return runStatus(ctx, db, os.Args[2:], log)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	gen := initGenerator(ctx, cfg, httpClient, log)

	notifier, stopNotifier := initNotifier(ctx, cfg, httpClient, log)
	defer stopNotifier()

	jobs := buildJobs(ctx, cfg, db, gen, notifier, httpClient, log)

	sched, err := scheduler.New(ctx, cfg.Location(), cfg.JobTimeout, db, log, jobs...)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create scheduler",
			"error", err)

		return 1
	}

	if len(os.Args) > 1 {
		return runOnce(ctx, sched, os.Args[1], log)
	}

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"timezone", cfg.Timezone)

		return 1
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"jobs", sched.JobNames(),
		"timezone", cfg.Timezone,
		"safeMode", cfg.Crier.SafeMode)

	startupDone := make(chan struct{})
	go func() {
		defer close(startupDone)
		if cfg.RunOnStart {
			sched.RunAll(ctx)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()
	<-startupDone

	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())

	return 0
}

func runOnce(ctx context.Context, sched *scheduler.Scheduler, name string, log *slog.Logger) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.RunOnce(ctx, name); err != nil {
		log.ErrorContext(ctx, "Job run is failed",
			"error", err,
			"job", name,
			"knownJobs", sched.JobNames())

		return 1
	}

	return 0
}

func runStatus(ctx context.Context, db *database.Database, args []string, log *slog.Logger) int {
	jobs := []string{radar.JobName, crier.JobName, scout.JobName}

	job := ""
	if len(args) > 0 {
		job = args[0]
		if !slices.Contains(jobs, job) {
			log.ErrorContext(ctx, "Unknown job for status",
				"job", job,
				"knownJobs", jobs)

			return 1
		}
	}

	if err := printStatus(ctx, os.Stdout, db, jobs, job); err != nil {
		log.ErrorContext(ctx, "Failed to print status",
			"error", err,
			"job", job)

		return 1
	}

	return 0
}

func buildJobs(
	ctx context.Context,
	cfg config.Config,
	db *database.Database,
	gen llm.Generator,
	notifier notify.Notifier,
	httpClient *http.Client,
	log *slog.Logger,
) []scheduler.Job {
	var store interface {
		radar.Store
		crier.Store
	}
	if s := initSanity(ctx, cfg, httpClient, log); s != nil {
		store = s
	}

	var drafter radar.Drafter
	var replier scout.Replier
	var promoter crier.Promoter
	if gen != nil {
		drafter = writer.NewDrafter(gen, log)
		replier = writer.NewReplier(gen, log)
		promoter = writer.NewPromoter(llm.NewCached(gen, socialCopyCacheTTL, llm.DefaultCacheMaxEntries), log)
	}

	rad := radar.New(
		feed.NewSource(cfg.Radar.Feeds, httpClient, log),
		keyword.NewMatcher(cfg.Radar.Keywords),
		drafter,
		store,
		db,
		log,
	)

	var poster crier.Poster
	if li := initLinkedIn(ctx, cfg, httpClient, log); li != nil {
		poster = li
	}

	cr := crier.New(store, promoter, poster, db, crier.Options{
		SafeMode:    cfg.Crier.SafeMode,
		SiteBaseURL: cfg.Crier.SiteBaseURL,
		LatestCount: cfg.Crier.LatestCount,
	}, log)

	var threads scout.Forum
	if r := initReddit(ctx, cfg, log); r != nil {
		threads = r
	}

	sc := scout.New(threads, keyword.NewMatcher(cfg.Scout.Keywords), replier, notifier, db, scout.Options{
		Subreddits: cfg.Scout.Subreddits,
		Limit:      cfg.Scout.Limit,
	}, log)

	return []scheduler.Job{
		{Name: radar.JobName, Spec: cfg.Radar.Schedule, Run: func(ctx context.Context) (string, error) {
			report, err := rad.Scan(ctx)
			return report.String(), err
		}},
		{Name: crier.JobName, Spec: cfg.Crier.Schedule, Run: func(ctx context.Context) (string, error) {
			result, err := cr.Run(ctx)
			return result.String(), err
		}},
		{Name: scout.JobName, Spec: cfg.Scout.Schedule, Run: func(ctx context.Context) (string, error) {
			report, err := sc.Run(ctx)
			return report.String(), err
		}},
	}
}

func initGenerator(ctx context.Context, cfg config.Config, httpClient *http.Client, log *slog.Logger) llm.Generator {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		if cfg.LLM.GeminiAPIKey == "" {
			log.WarnContext(ctx, "GEMINI_API_KEY is missing so text generation is disabled",
				"envVar", "GEMINI_API_KEY")

			return nil
		}

		g, err := llm.NewGemini(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel, httpClient)
		if err != nil {
			log.ErrorContext(ctx, "Failed to create Gemini client so text generation is disabled",
				"error", err)

			return nil
		}

		log.InfoContext(ctx, "Text generation is initialized",
			"provider", config.ProviderGemini,
			"model", cfg.LLM.GeminiModel)

		return g
	default:
		if cfg.LLM.OpenAIAPIKey == "" {
			log.WarnContext(ctx, "OPENAI_API_KEY is missing so text generation is disabled",
				"envVar", "OPENAI_API_KEY")

			return nil
		}

		o, err := llm.NewOpenAI(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIModel, option.WithHTTPClient(httpClient))
		if err != nil {
			log.ErrorContext(ctx, "Failed to create OpenAI client so text generation is disabled",
				"error", err)

			return nil
		}

		log.InfoContext(ctx, "Text generation is initialized",
			"provider", config.ProviderOpenAI,
			"model", cfg.LLM.OpenAIModel)

		return o
	}
}

func initSanity(ctx context.Context, cfg config.Config, httpClient *http.Client, log *slog.Logger) *cms.Client {
	if !cfg.Sanity.Configured() {
		log.WarnContext(ctx, "Sanity configuration is missing so content store is disabled",
			"envVars", []string{"SANITY_PROJECT_ID", "SANITY_API_TOKEN"})

		return nil
	}

	c, err := cms.New(cfg.Sanity.ProjectID, cfg.Sanity.Dataset, cfg.Sanity.Token, cfg.Sanity.APIVersion,
		httpClient, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create Sanity client so content store is disabled",
			"error", err)

		return nil
	}

	log.InfoContext(ctx, "Content store is initialized",
		"projectID", cfg.Sanity.ProjectID,
		"dataset", cfg.Sanity.Dataset,
		"apiVersion", cfg.Sanity.APIVersion)

	return c
}

func initLinkedIn(ctx context.Context, cfg config.Config, httpClient *http.Client, log *slog.Logger) *social.LinkedIn {
	if !cfg.LinkedIn.Configured() {
		log.WarnContext(ctx, "LinkedIn credentials are missing so social posting is disabled",
			"envVars", []string{"LINKEDIN_ACCESS_TOKEN", "LINKEDIN_ORG_ID"})

		return nil
	}

	li, err := social.NewLinkedIn(cfg.LinkedIn.AccessToken, cfg.LinkedIn.OrgID, httpClient)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create LinkedIn client so social posting is disabled",
			"error", err)

		return nil
	}

	return li
}

func initReddit(ctx context.Context, cfg config.Config, log *slog.Logger) *forum.Reddit {
	if !cfg.Reddit.Configured() {
		log.WarnContext(ctx, "Reddit credentials are missing so scout is disabled",
			"envVars", []string{"REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET"})

		return nil
	}

	r, err := forum.NewReddit(cfg.Reddit.ClientID, cfg.Reddit.ClientSecret, cfg.Reddit.UserAgent,
		cfg.HTTPTimeout, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create Reddit client so scout is disabled",
			"error", err)

		return nil
	}

	return r
}

// initNotifier returns every configured operator channel and a func that releases them.
func initNotifier(
	ctx context.Context,
	cfg config.Config,
	httpClient *http.Client,
	log *slog.Logger,
) (notify.Notifier, func()) {
	var channels notify.Multi
	stop := func() {}

	if cfg.Alerts.ResendAPIKey != "" {
		e, err := notify.NewResendEmail(cfg.Alerts.ResendAPIKey, cfg.Alerts.From, cfg.Alerts.To, httpClient)
		if err != nil {
			log.ErrorContext(ctx, "Failed to create email notifier",
				"error", err)
		} else {
			channels = append(channels, e)
			log.InfoContext(ctx, "Email notifier is initialized",
				"to", cfg.Alerts.To)
		}
	}

	if cfg.Alerts.TelegramToken != "" && cfg.Alerts.TelegramChatID != 0 {
		api, err := tgbotapi.NewBotAPIWithClient(cfg.Alerts.TelegramToken, tgbotapi.APIEndpoint, httpClient)
		if err != nil {
			log.ErrorContext(ctx, "Failed to create Telegram bot API",
				"error", err)
		} else {
			rl := ratelimiter.New(api, log)
			stop = rl.Stop

			tg, tgErr := notify.NewTelegram(rl, cfg.Alerts.TelegramChatID)
			if tgErr != nil {
				log.ErrorContext(ctx, "Failed to create Telegram notifier",
					"error", tgErr)
			} else {
				channels = append(channels, tg)
				log.InfoContext(ctx, "Telegram notifier is initialized",
					"chatID", cfg.Alerts.TelegramChatID,
					"botUsername", api.Self.UserName)
			}
		}
	}

	if len(channels) == 0 {
		log.WarnContext(ctx, "No notification channel is configured so reply drafts are only logged",
			"envVars", []string{"RESEND_API_KEY", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID"})

		return nil, stop
	}

	return channels, stop
}
