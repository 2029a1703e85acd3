package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gorilla "github.com/gorilla/handlers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/proctor/internal/evidence"
	"github.com/pavelanni/proctor/internal/handler"
	appI18n "github.com/pavelanni/proctor/internal/i18n"
	"github.com/pavelanni/proctor/internal/llm"
	"github.com/pavelanni/proctor/internal/llm/prompts"
	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/notify"
	"github.com/pavelanni/proctor/internal/proctor"
	"github.com/pavelanni/proctor/internal/scoring"
	"github.com/pavelanni/proctor/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "proctor",
		Short: "Proctored exam platform with automated grading",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `proctor --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "proctor.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("prompt-variant", string(prompts.PromptStandard), "Grading prompt variant (strict, standard, lenient)")
	f.Int("max-violations", 5, "Violations tolerated per attempt before flagging (0 = unlimited)")
	f.String("evidence-dir", "evidence", "Directory for uploaded screenshot evidence (empty = disable uploads)")
	f.StringSlice("cors-origin", nil, "Allowed CORS origins for the SPA (repeatable, empty = same-origin only)")
	f.StringP("lang", "l", "en", "Language for user-facing messages (en, ru)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-email", "admin@localhost", "Seeded admin login email")
	f.String("admin-password", "", "Initial admin password (or set PROCTOR_ADMIN_PASSWORD)")
	f.String("smtp-host", "", "SMTP server host (empty = disable result emails)")
	f.String("smtp-addr", "", "SMTP dial address host:port (defaults to host:587)")
	f.String("smtp-user", "", "SMTP username")
	f.String("smtp-password", "", "SMTP password")
	f.String("smtp-from", "", "Result email sender address")
	f.String("smtp-from-name", "Proctor", "Result email sender name")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export exam results and integrity logs as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "proctor.db", "SQLite database path")
	f.String("exam-id", "", "Exam identifier to export (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("exam-id")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("PROCTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("proctor")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/proctor")
	v.AddConfigPath("/etc/proctor")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(db, v.GetString("admin-email"), v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	promptVariant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(promptVariant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", promptVariant)
		promptVariant = string(prompts.PromptStandard)
	}
	grader, err := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		promptVariant,
	)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if err := grader.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	var notifier scoring.Notifier
	if host := v.GetString("smtp-host"); host != "" {
		addr := v.GetString("smtp-addr")
		if addr == "" {
			addr = host + ":587"
		}
		notifier = notify.NewMailer(notify.SMTPConfig{
			Host:     host,
			Addr:     addr,
			Username: v.GetString("smtp-user"),
			Password: v.GetString("smtp-password"),
			From:     v.GetString("smtp-from"),
			FromName: v.GetString("smtp-from-name"),
		}, lang)
		slog.Info("result emails enabled", "smtp_addr", addr)
	}

	var evStore *evidence.DiskStore
	if dir := v.GetString("evidence-dir"); dir != "" {
		evStore, err = evidence.NewDiskStore(dir)
		if err != nil {
			return fmt.Errorf("open evidence store: %w", err)
		}
	}

	cfg := model.ServerConfig{
		MaxViolations: v.GetInt("max-violations"),
		SecureCookies: v.GetBool("secure-cookies"),
		CORSOrigins:   v.GetStringSlice("cors-origin"),
		Lang:          lang,
	}

	scorer := scoring.New(db, grader, notifier, cfg.MaxViolations)
	aggregator := proctor.New(db, cfg.MaxViolations)
	h := handler.New(db, scorer, aggregator, evStore, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	var root http.Handler = r
	if len(cfg.CORSOrigins) > 0 {
		root = gorilla.CORS(
			gorilla.AllowedOrigins(cfg.CORSOrigins),
			gorilla.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
			gorilla.AllowedHeaders([]string{"Content-Type"}),
			gorilla.AllowCredentials(),
		)(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"max_violations", cfg.MaxViolations,
		"evidence_dir", v.GetString("evidence-dir"),
		"cors_origins", cfg.CORSOrigins,
	)
	return http.ListenAndServe(addr, root)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportExam(v.GetString("exam-id"))
	if err != nil {
		return fmt.Errorf("export exam: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func seedAdmin(db *store.Store, email, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or PROCTOR_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Email:        email,
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "email", email)
	return nil
}
