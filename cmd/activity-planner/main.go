package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"activity-planner/config"
	"activity-planner/internal/api"
	"activity-planner/internal/logging"
	"activity-planner/internal/mqtt"
	"activity-planner/internal/planner"
	"activity-planner/internal/sunrise"

	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "activity-planner",
		Short:         "Outdoor activity planner",
		Long:          "Suggests outdoor activities around sunrise and sunset for a place and date",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(planCmd())

	return rootCmd
}

// setup loads the config, configures logging and builds the planner
// service. The returned publisher must be closed by the caller.
func setup(withPublisher bool) (*config.Config, *planner.Service, *mqtt.Publisher, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	if err := logging.Init(level, cfg.Log.Format); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to init logging: %w", err)
	}

	client, err := sunrise.NewClient(sunrise.ClientConfig{
		Endpoint:       cfg.Sunrise.Endpoint,
		Timezone:       cfg.Sunrise.Timezone,
		Timeout:        cfg.Sunrise.Timeout,
		MaxAttempts:    cfg.Sunrise.MaxAttempts,
		InitialBackoff: cfg.Sunrise.InitialBackoff,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create sunrise client: %w", err)
	}

	composer, err := planner.NewComposer(cfg.Planner.Language)
	if err != nil {
		return nil, nil, nil, err
	}

	publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		Enabled:     cfg.MQTT.Enabled && withPublisher,
	})
	if err != nil {
		slog.Warn("MQTT connection failed, plans will not be published", "error", err)
		publisher, _ = mqtt.NewPublisher(mqtt.PublisherConfig{Enabled: false})
	} else if publisher.IsConnected() {
		if err := publisher.PublishHomeAssistantDiscovery(); err != nil {
			slog.Warn("Home Assistant discovery failed", "error", err)
		}
	}

	return cfg, planner.NewService(client, composer, publisher), publisher, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Start the API server exposing POST /plan-activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, service, publisher, err := setup(true)
			if err != nil {
				return err
			}
			defer publisher.Close()

			if !cfg.API.Enabled {
				return errors.New("api is disabled in config; nothing to serve")
			}

			server := api.NewServer(api.ServerConfig{
				Port:         cfg.API.Port,
				Planner:      service,
				ReadTimeout:  cfg.API.ReadTimeout,
				WriteTimeout: cfg.API.WriteTimeout,
			})

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			errChan := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errChan <- err
				}
			}()

			slog.Info("Activity planner started. Press Ctrl+C to stop.",
				"port", cfg.API.Port, "tzid", cfg.Sunrise.Timezone)

			select {
			case <-sigChan:
			case err := <-errChan:
				return fmt.Errorf("API server error: %w", err)
			}

			slog.Info("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Stop(ctx)
		},
	}
}

func planCmd() *cobra.Command {
	var (
		latitude  float64
		longitude float64
		date      string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan activities once and print the result",
		Long:  "Query the sunrise/sunset service for one place and date and print the suggested activities as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := planner.NewActivityRequest(latitude, longitude, date)
			if err != nil {
				return err
			}

			_, service, publisher, err := setup(false)
			if err != nil {
				return err
			}
			defer publisher.Close()

			plan, err := service.Plan(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to plan activities: %w", err)
			}

			output, err := json.MarshalIndent(plan, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		},
	}

	cmd.Flags().Float64Var(&latitude, "lat", 0, "latitude in degrees (-90 to 90)")
	cmd.Flags().Float64Var(&longitude, "lng", 0, "longitude in degrees (-180 to 180)")
	cmd.Flags().StringVar(&date, "date", time.Now().Format(time.DateOnly), "date as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}
