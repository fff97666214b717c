package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/rivalchat/internal/profile"
	"github.com/hrygo/rivalchat/internal/version"
	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/plugin/ai/cache"
	"github.com/hrygo/rivalchat/plugin/ai/roleplay"
	"github.com/hrygo/rivalchat/server"
	"github.com/hrygo/rivalchat/store"
	"github.com/hrygo/rivalchat/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "rivalchat",
		Short: `A roleplay chat with two rival personas, one on one or in a group.`,
		Run: func(_ *cobra.Command, _ []string) {
			instanceProfile, err := loadProfile()
			if err != nil {
				slog.Error("failed to load profile", "error", err)
				os.Exit(1)
			}

			ctx, cancel := context.WithCancel(context.Background())
			app, err := newApp(ctx, instanceProfile)
			if err != nil {
				cancel()
				slog.Error("failed to prepare rivalchat", "error", err)
				return
			}

			s, err := server.NewServer(ctx, instanceProfile, app.store, app.session, app.completer)
			if err != nil {
				cancel()
				slog.Error("failed to create server", "error", err)
				return
			}

			c := make(chan os.Signal, 1)
			// Trigger graceful shutdown on SIGINT or SIGTERM.
			// The default signal sent by the `kill` command is SIGTERM,
			// which is taken as the graceful shutdown signal for many systems, eg., Kubernetes, Gunicorn.
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)

			if err := s.Start(ctx); err != nil {
				cancel()
				slog.Error("failed to start server", "error", err)
				return
			}

			printGreetings(instanceProfile)

			go func() {
				<-c
				s.Shutdown(ctx)
				app.close()
				cancel()
			}()

			// Wait for CTRL-C.
			<-ctx.Done()
		},
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Chat with the personas in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := store.ParseChatMode(viper.GetString("chat-mode"))
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, app *app) error {
				pair, err := app.session.EnsurePersonas(ctx, ai.Credentials{})
				if err != nil {
					return err
				}
				return runChat(ctx, app.session, pair, mode, os.Stdin, os.Stdout)
			})
		},
	}

	regenerateCmd = &cobra.Command{
		Use:   "regenerate",
		Short: "Replace both personas and clear every thread",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *app) error {
				pair, err := app.session.Regenerate(ctx, ai.Credentials{})
				if err != nil {
					return err
				}
				fmt.Printf("新的角色：油腻男A %s，油腻男B %s\n", pair.A.Name, pair.B.Name)
				return nil
			})
		},
	}

	revealCmd = &cobra.Command{
		Use:   "reveal",
		Short: "Print both persona records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *app) error {
				pair, err := app.store.GetPersonas(ctx)
				if err != nil {
					return err
				}
				fmt.Print(roleplay.RevealMarkdown(pair))
				return nil
			})
		},
	}
)

// app holds what every command needs: the store and a session bound to it.
type app struct {
	store     *store.Store
	session   *roleplay.Session
	completer *ai.CompletionClient
	cache     *cache.PromptCache
}

func newApp(ctx context.Context, instanceProfile *profile.Profile) (*app, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to create db driver: %w", err)
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		storeInstance.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	promptCache := cache.NewPromptCache(cache.DefaultConfig())
	completer := ai.NewCompletionClient(instanceProfile.CompletionTimeout)
	session := roleplay.NewSession(roleplay.SessionConfig{
		Store:      storeInstance,
		Completer:  completer,
		Renderer:   roleplay.NewPromptRenderer(promptCache),
		Defaults:   ai.NewDefaultsFromProfile(instanceProfile),
		ReplyDelay: instanceProfile.ReplyDelay,
	})
	return &app{store: storeInstance, session: session, completer: completer, cache: promptCache}, nil
}

// close releases the prompt cache. The server closes the store on shutdown.
func (a *app) close() {
	a.cache.Close()
}

func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	instanceProfile, err := loadProfile()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, instanceProfile)
	if err != nil {
		return err
	}
	defer a.store.Close()
	defer a.close()
	return fn(ctx, a)
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:              viper.GetString("mode"),
		Addr:              viper.GetString("addr"),
		Port:              viper.GetInt("port"),
		Data:              viper.GetString("data"),
		Driver:            viper.GetString("driver"),
		DSN:               viper.GetString("dsn"),
		DefaultModel:      viper.GetString("model"),
		ReplyDelay:        viper.GetDuration("reply-delay"),
		CompletionTimeout: viper.GetDuration("completion-timeout"),
		Version:           version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)
	viper.SetDefault("reply-delay", profile.DefaultReplyDelay)
	viper.SetDefault("completion-timeout", profile.DefaultCompletionTimeout)
	viper.SetDefault("chat-mode", string(store.ChatModeGroup))

	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "store driver: sqlite, postgres, redis or memory")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")
	rootCmd.PersistentFlags().String("model", "", "default completion model")
	rootCmd.PersistentFlags().Duration("reply-delay", profile.DefaultReplyDelay, "pause before the second persona answers in the group, 0 disables")
	rootCmd.PersistentFlags().Duration("completion-timeout", profile.DefaultCompletionTimeout, "bound on a single completion call, 0 disables")
	// Shadows the persistent --mode; the instance mode of chat comes from RIVALCHAT_MODE.
	chatCmd.Flags().String("mode", string(store.ChatModeGroup), "thread to chat in: group, privateA or privateB")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "model", "reply-delay", "completion-timeout"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	if err := viper.BindPFlag("chat-mode", chatCmd.Flags().Lookup("mode")); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("rivalchat")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(chatCmd, regenerateCmd, revealCmd)
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("rivalchat %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprintf(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	// Server information
	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Server running on port %d\n", profile.Port)
	if len(profile.Addr) == 0 {
		fmt.Printf("Access your rivalchat at: http://localhost:%d\n", profile.Port)
	} else {
		fmt.Printf("Access your rivalchat at: http://%s:%d\n", profile.Addr, profile.Port)
	}
	if !profile.HasDefaultCredentials() {
		fmt.Printf("No default completion endpoint: set RIVALCHAT_API_KEY and RIVALCHAT_API_URL or save them under /api/v1/settings/api\n")
	}
	fmt.Println()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
