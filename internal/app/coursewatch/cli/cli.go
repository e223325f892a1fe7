package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/endeavored/sectionwatch/internal/app/coursewatch/jobs"
	"github.com/endeavored/sectionwatch/internal/pkg/config"
	"github.com/endeavored/sectionwatch/internal/pkg/helpers"
	"github.com/endeavored/sectionwatch/internal/pkg/heroku"
	"github.com/endeavored/sectionwatch/internal/pkg/logging"
	"github.com/endeavored/sectionwatch/internal/pkg/models"
	"github.com/endeavored/sectionwatch/internal/pkg/requests"
	"github.com/endeavored/sectionwatch/internal/pkg/storage"
	"github.com/spf13/cobra"
)

var version = "dev"

type options struct {
	configPath string
	envFile    string
}

func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:          "sectionwatch",
		Short:        "Watch course sections for open seats and new sections",
		Long:         "sectionwatch polls the registration search for every watched course, compares each result with the last one it reported, and posts a message when a seat or waitlist slot opens or a section is added.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Start(cmd.Context(), opts)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.json", "path to config json/yaml")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with secrets")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll watched courses until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Start(cmd.Context(), opts)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check [COURSE...]",
		Short: "Open one session and search each course once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath, opts.envFile)
			if err != nil {
				return err
			}
			courses := cfg.Courses
			if len(args) > 0 {
				courses = nil
				for _, a := range args {
					c, err := models.ParseCourse(a)
					if err != nil {
						return err
					}
					courses = append(courses, c)
				}
			}
			log := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)
			banner := requests.NewBannerClient(requests.NewHTTPClient(), cfg.SignupDomain, cfg.Term, cfg.RequestTimeout, log)
			return runCheck(cmd.Context(), cmd.OutOrStdout(), bannerFetcher(banner), courses)
		},
	}
}

func runCheck(ctx context.Context, w io.Writer, fetcher jobs.Fetcher, courses []models.Course) error {
	sess, err := fetcher.Open(ctx)
	if err != nil {
		return &jobs.FetchError{Err: err}
	}
	for _, c := range courses {
		sections, err := sess.Search(ctx, c)
		if err == nil {
			_, err = models.NewSnapshot(sections)
		}
		if err != nil {
			return &jobs.FetchError{Course: c, Err: err}
		}
		open := 0
		for _, s := range sections {
			if s.EnrollmentCount() < s.MaximumEnrollmentCount() {
				open++
			}
		}
		fmt.Fprintf(w, "%s: %d sections, %d with open seats\n", c, len(sections), open)
	}
	return nil
}

func bannerFetcher(banner *requests.BannerClient) jobs.Fetcher {
	return jobs.FetcherFunc(func(ctx context.Context) (jobs.Session, error) {
		s, err := banner.Open(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Start wires every collaborator from the config and blocks until ctx is
// cancelled.
func Start(ctx context.Context, opts *options) error {
	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return err
	}
	if err := cfg.RequireNotifier(); err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)
	httpCli := requests.NewHTTPClient()

	banner := requests.NewBannerClient(httpCli, cfg.SignupDomain, cfg.Term, cfg.RequestTimeout,
		log.With().Str("component", "banner").Logger())
	dispatcher := helpers.NewDispatcher(cfg.NotifyRatePerSec, log.With().Str("component", "notify").Logger(), sinks(cfg, httpCli)...)

	watchlist := jobs.NewWatchlist(cfg.Courses...)
	persist := func(context.Context, []string) error { return nil }
	if cfg.MongoURI != "" {
		store, err := storage.ConnectWatchlist(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(context.Background()); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect")
			}
		}()
		saved, err := store.Load(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("watchlist load")
		}
		for _, c := range saved {
			if watchlist.Add(c) {
				log.Info().Str("course", c.String()).Msg("added course from database")
			}
		}
		persist = store.Save
	}
	if len(watchlist.Courses()) == 0 {
		log.Warn().Msg("watchlist is empty, waiting for slack commands")
	}

	job := jobs.NewSectionPollJob(jobs.PollConfig{
		Interval:     cfg.PollInterval,
		RestartDelay: cfg.RestartDelay,
	}, bannerFetcher(banner), dispatcher, watchlist, log.With().Str("component", "poll").Logger())

	if cfg.Port != "" {
		go func() {
			if err := heroku.Serve(ctx, cfg.Port, job.Stats(), log); err != nil {
				log.Error().Err(err).Msg("status server")
			}
		}()
		go heroku.StartHeartbeat(ctx, httpCli, cfg.HeartbeatUrl, cfg.HeartbeatEvery, log)
	}
	if cfg.SlackSocketToken != "" {
		cmds := &socketCommands{watchlist: watchlist, persist: persist, log: log}
		go runSocketMode(ctx, httpCli, cfg.SlackSocketToken, cmds, log.With().Str("component", "slack").Logger())
	}

	log.Info().
		Str("term", cfg.Term).
		Strs("courses", watchlist.Strings()).
		Dur("interval", cfg.PollInterval).
		Int("sinks", dispatcher.Sinks()).
		Msg("sectionwatch started")

	err = <-jobs.Start(ctx, job, log)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("sectionwatch stopped")
		return nil
	}
	return err
}

func sinks(cfg *config.Config, cli requests.HTTPClient) []helpers.Sink {
	var out []helpers.Sink
	if cfg.DiscordWebhook != "" {
		out = append(out, helpers.NewDiscordSink(cli, cfg.DiscordWebhook, helpers.Footer{
			Text:    cfg.FooterText,
			IconUrl: cfg.FooterIconUrl,
		}))
	}
	if len(cfg.SlackWebhooks) > 0 {
		out = append(out, helpers.NewSlackSink(cli, cfg.SlackWebhooks))
	}
	return out
}
