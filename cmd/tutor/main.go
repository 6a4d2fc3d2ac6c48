// CourseTutor terminal client.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ashureev/coursetutor/internal/backend"
	"github.com/ashureev/coursetutor/internal/config"
	"github.com/ashureev/coursetutor/internal/identity"
	"github.com/ashureev/coursetutor/internal/session"
	"github.com/ashureev/coursetutor/internal/speech"
	"github.com/ashureev/coursetutor/internal/store"
	"github.com/ashureev/coursetutor/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	backendURL string
	cookie     string
	playerCmd  string
	logFile    string
	noVoice    bool
)

var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Chat with the course tutor from the terminal",
	Long: `tutor opens a chat with the CourseTutor assistant for your courses.

Replies are read aloud through an external player unless --no-voice is set.
Settings come from the environment (and .env); flags override them.`,
	SilenceUsage: true,
	RunE:         runChat,
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List the courses available to this session",
	RunE:  listCourses,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "backend API root (overrides BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&cookie, "cookie", "", "raw Cookie header for the backend session (overrides BACKEND_COOKIE)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log destination (overrides TUTOR_LOG_FILE)")
	rootCmd.Flags().StringVar(&playerCmd, "player", "", "audio player command reading from stdin (overrides PLAYER_COMMAND)")
	rootCmd.Flags().BoolVar(&noVoice, "no-voice", false, "start with voice off")
	rootCmd.AddCommand(coursesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("backend") {
		cfg.BackendURL = backendURL
	}
	if cmd.Flags().Changed("cookie") {
		cfg.BackendCookie = cookie
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = logFile
	}
	if cmd.Flags().Changed("player") {
		cfg.PlayerCommand = playerCmd
	}
	if noVoice {
		cfg.VoiceDefault = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogger sends logs to a file; the screen owns stdout.
func setupLogger(path string) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	return logger, func() { _ = f.Close() }, nil
}

func newClient(cfg *config.Config, logger *slog.Logger) (*backend.Client, error) {
	return backend.NewClient(backend.ClientConfig{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
		Cookies: identity.ParseCookieHeader(cfg.BackendCookie),
	}, logger)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := setupLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	player, err := speech.NewCommandPlayer(cfg.PlayerCommand)
	if err != nil {
		return err
	}

	opts := []session.Option{
		session.WithVoiceEnabled(cfg.VoiceDefault),
		session.WithLogger(logger),
	}
	if cfg.ClipCache.Enabled {
		clips, err := store.NewSQLite(cfg.ClipCache.Path)
		if err != nil {
			logger.Warn("Clip cache unavailable, continuing without it", "error", err, "path", cfg.ClipCache.Path)
		} else {
			defer func() {
				if closeErr := clips.Close(); closeErr != nil {
					logger.Warn("Failed to close clip cache", "error", closeErr)
				}
			}()
			opts = append(opts, session.WithClipCache(clips))
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := session.New(client, player, opts...)
	defer ctrl.Close()

	logger.Info("Starting terminal client", "backend", cfg.BackendURL, "voice", cfg.VoiceDefault)
	p := tea.NewProgram(tui.New(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run screen: %w", err)
	}
	return nil
}

func listCourses(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := setupLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if cfg.BackendTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, cfg.BackendTimeout)
		defer cancelTimeout()
	}
	courses, err := client.ListCourses(ctx)
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}
	for _, c := range courses {
		fmt.Fprintln(cmd.OutOrStdout(), c)
	}
	return nil
}
