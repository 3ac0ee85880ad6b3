package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	config_aws "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"browser-monitor-worker/config"
	"browser-monitor-worker/logging"
	"browser-monitor-worker/models"
	"browser-monitor-worker/repositories"
	"browser-monitor-worker/server"
	"browser-monitor-worker/services"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "browser-monitor",
		Short:        "Headless browser monitor: records captured URLs and search queries and scrapes the URLs",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newLogCmd(), newClassifyCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the capture and scrape pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := logging.New(cfg.LogLevel, cfg.Debug, cfg.LogFile)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger)
		},
	}
}

func newLogCmd() *cobra.Command {
	var tail int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the accumulated log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			sink, err := repositories.NewFileSink(cfg.DataPath(), nil)
			if err != nil {
				return err
			}

			if tail > 0 {
				lines, err := sink.Tail(tail)
				if err != nil {
					return err
				}
				for _, line := range lines {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			}

			data, err := sink.ReadAll()
			if err != nil {
				return err
			}
			if data == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No data yet")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), data)
			return nil
		},
	}
	cmd.Flags().IntVar(&tail, "tail", 0, "print only the last N lines")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Print how captured text would be classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			action := services.NewClassifier(cfg.SearchMarker, cfg.SearchEngineHost).Classify(strings.Join(args, " "))
			if action.URL == "" {
				fmt.Fprintln(cmd.OutOrStdout(), action.Kind)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", action.Kind, action.URL)
			return nil
		},
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	sink, err := repositories.NewFileSink(cfg.DataPath(), logger.Named("sink"))
	if err != nil {
		return err
	}

	recorderOpts := []services.RecorderOption{services.WithRecorderLogger(logger.Named("recorder"))}
	if cfg.DatabaseURL != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("failed to connect to db: %w", err)
		}
		if err := db.AutoMigrate(&models.CapturedEntry{}); err != nil {
			return fmt.Errorf("failed to migrate db: %w", err)
		}
		recorderOpts = append(recorderOpts, services.WithEntryRepository(repositories.NewDBRepository(db)))
	}
	recorder := services.NewRecorder(sink, recorderOpts...)

	scraperOpts := []services.ScraperOption{
		services.WithPageFetcher(repositories.NewPageFetcher(cfg.ScrapeTimeout, cfg.ScrapeUserAgent)),
		services.WithRecorder(recorder),
		services.WithScrapeInterval(cfg.ScrapeInterval),
		services.WithRetryPolicy(cfg.ScrapeMaxRetries, cfg.ScrapeBackoff),
		services.WithScraperLogger(logger.Named("scraper")),
	}
	if cfg.RedisHost != "" {
		scraperOpts = append(scraperOpts, services.WithSeenStore(repositories.NewRedisClient(cfg.RedisHost, cfg.RedisPort), cfg.ScrapeSeenTTL))
	}
	if cfg.OpenSearchURL != "" {
		osClient, err := opensearch.NewClient(opensearch.Config{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
			Addresses: []string{cfg.OpenSearchURL},
		})
		if err != nil {
			return fmt.Errorf("error creating OpenSearch client: %w", err)
		}
		scraperOpts = append(scraperOpts, services.WithScrapeIndexer(repositories.NewOpenSearchRepository(osClient)))
	}

	var awsCfg aws.Config
	needsAWS := cfg.InputQueueURL != "" || cfg.SnapshotBucket != "" || cfg.SessionTable != ""
	if needsAWS {
		if awsCfg, err = loadAWSConfig(ctx, cfg); err != nil {
			return err
		}
	}
	if cfg.SnapshotBucket != "" {
		s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.UsePathStyle = cfg.AWSEndpointURL != "" })
		scraperOpts = append(scraperOpts, services.WithSnapshotStore(repositories.NewS3Repository(s3Client), cfg.SnapshotBucket))
	}
	scraper := services.NewScraperService(scraperOpts...)

	state := services.NewWatchdogState(time.Now())
	hostOpts := []services.SessionHostOption{services.WithSessionLogger(logger.Named("session"))}
	if cfg.SessionTable != "" {
		hostOpts = append(hostOpts, services.WithStatusRepository(repositories.NewDynamoDBClient(dynamodb.NewFromConfig(awsCfg), cfg.SessionTable)))
	}
	host := services.NewSessionHost(state, hostOpts...)
	watchdog := services.NewWatchdog(state, cfg.WatchdogInterval, host, services.WithWatchdogLogger(logger.Named("watchdog")))

	router := services.NewEventRouter(recorder, scraper, state,
		services.WithMonitoredPackages(cfg.MonitoredPackages),
		services.WithAddressBarIDs(cfg.AddressBarIDs),
		services.WithMaxDepth(cfg.TreeMaxDepth),
		services.WithClassifier(services.NewClassifier(cfg.SearchMarker, cfg.SearchEngineHost)),
		services.WithRouterLogger(logger.Named("router")),
	)

	host.Start(ctx)
	logger.Info("browser monitor started",
		zap.String("data_file", sink.Path()),
		zap.String("session_id", host.ID()),
		zap.Strings("monitored_packages", cfg.MonitoredPackages),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	start := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
	start(recorder.Run)
	start(scraper.Run)
	start(watchdog.Run)
	if cfg.InputQueueURL != "" {
		feed := services.NewFeedService(repositories.NewSQSClient(sqs.NewFromConfig(awsCfg)), cfg.InputQueueURL, router, logger.Named("feed"))
		start(feed.Start)
	}

	srv := server.NewServer(router, sink, cfg.ListenAddress, logger.Named("server"))
	err = srv.Start(ctx)
	if err != nil {
		logger.Error("event feed failed", zap.Error(err))
	}

	cancel()
	wg.Wait()
	logger.Info("shutdown complete")
	return err
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*config_aws.LoadOptions) error{config_aws.WithRegion(cfg.AWSRegion)}
	if cfg.AWSEndpointURL != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           cfg.AWSEndpointURL,
				SigningRegion: cfg.AWSRegion,
			}, nil
		})
		opts = append(opts, config_aws.WithEndpointResolverWithOptions(customResolver))
	}

	awsCfg, err := config_aws.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return awsCfg, nil
}
