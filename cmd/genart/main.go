package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"genart/internal/app"
	"genart/internal/config"
	"genart/internal/domain"
	"genart/internal/gallery"
	"genart/internal/schedule"
	"genart/internal/status"
	genartsdk "genart/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "genart",
	Short: "Generative art gallery",
	Long: `genart serves the gallery of AI-generated artwork and tracks the generator.
- Gallery: one folder per date under gallery.root, each with period_<N>.json sidecars and their .png/.py companions.
- Archive: earlier attempts for a date live in <date>/archive and are listed with 'genart list --archive DATE'.
- Status: the generator publishes a small JSON document; the banner polls it every few seconds.
- Config: genart.yml in the workspace, overridden by flags and GENART_* environment variables (a .env file is read first).`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: .env:", err)
	}
	app.BindEnv(viper.GetViper())
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory holding genart.yml")
	flags.Bool("json", false, "output JSON")
	flags.String("root", "", "gallery root (overrides gallery.root)")
	flags.String("status-url", "", "status document URL (overrides status.url)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json or console")
	_ = viper.BindPFlag("workspace", flags.Lookup("workspace"))
	_ = viper.BindPFlag("json", flags.Lookup("json"))
	_ = viper.BindPFlag("gallery.root", flags.Lookup("root"))
	_ = viper.BindPFlag("status.url", flags.Lookup("status-url"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(configCmd())
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gallery page, companion files and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			rt, err := app.NewRuntime(cfg, logger)
			if err != nil {
				return err
			}
			handler, err := rt.Handler()
			if err != nil {
				return err
			}
			if err := rt.Start(cmd.Context()); err != nil {
				return err
			}
			defer rt.Stop()

			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info("serving gallery",
				zap.String("addr", cfg.Server.Addr),
				zap.String("root", cfg.Gallery.Root),
				zap.String("api", cfg.Server.BasePath),
			)
			fmt.Printf("Serving genart on http://%s (API at %s, Swagger UI at /docs)\n", cfg.Server.Addr, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	cmd.Flags().String("base-path", "", "API base path (overrides server.base_path)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.base_path", cmd.Flags().Lookup("base-path"))
	return cmd
}

func listCmd() *cobra.Command {
	var archive, remote string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artworks, most recent first",
		Long:  "Lists the gallery from the local tree, or from a running server with --remote. --archive DATE lists the earlier attempts kept for that date.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []listItem
			var err error
			if remote != "" {
				items, err = listRemote(cmd.Context(), remote, archive, limit)
			} else {
				items, err = listLocal(archive, limit)
			}
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			renderArtworks(os.Stdout, items)
			return nil
		},
	}
	cmd.Flags().StringVar(&archive, "archive", "", "list archived attempts for DATE (YYYY-MM-DD)")
	cmd.Flags().StringVar(&remote, "remote", "", "base URL of a running genart server")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many artworks (0 = all)")
	return cmd
}

type listItem struct {
	Key       string   `json:"key"`
	Date      string   `json:"date"`
	Period    int      `json:"period"`
	Label     string   `json:"period_label"`
	Theme     string   `json:"theme"`
	Score     *float64 `json:"score,omitempty"`
	Timestamp string   `json:"timestamp"`
	Image     string   `json:"image"`
}

func listLocal(archive string, limit int) ([]listItem, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	scanner := gallery.NewScanner(cfg.Gallery.Root, logger)
	var items []listItem
	if archive != "" {
		entries, err := scanner.ScanArchive(archive)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			items = append(items, localItem(e.Record, e.ImagePath()))
		}
	} else {
		recs, err := scanner.Scan()
		if err != nil {
			return nil, err
		}
		for _, key := range domain.DuplicateKeys(recs) {
			logger.Warn("duplicate artwork key", zap.String("key", key))
		}
		for _, r := range recs {
			items = append(items, localItem(r, r.ImagePath()))
		}
	}
	return truncate(items, limit), nil
}

func localItem(r domain.ArtworkRecord, image string) listItem {
	return listItem{
		Key:       r.Key(),
		Date:      r.Date,
		Period:    r.Period,
		Label:     r.PeriodLabel(),
		Theme:     r.Theme,
		Score:     r.Score,
		Timestamp: r.Timestamp,
		Image:     image,
	}
}

func listRemote(ctx context.Context, baseURL, archive string, limit int) ([]listItem, error) {
	client := genartsdk.New(baseURL)
	var list genartsdk.ArtworkList
	var err error
	if archive != "" {
		list, err = client.Archive(ctx, archive)
	} else {
		list, err = client.ListArtworks(ctx, limit)
	}
	if err != nil {
		return nil, err
	}
	items := make([]listItem, 0, len(list.Items))
	for _, a := range list.Items {
		items = append(items, listItem{
			Key:       a.Key,
			Date:      a.Date,
			Period:    a.Period,
			Label:     a.PeriodLabel,
			Theme:     a.Theme,
			Score:     a.Score,
			Timestamp: a.Timestamp,
			Image:     a.ImageURL,
		})
	}
	return truncate(items, limit), nil
}

func truncate(items []listItem, limit int) []listItem {
	if items == nil {
		items = []listItem{}
	}
	if limit > 0 && limit < len(items) {
		return items[:limit]
	}
	return items
}

func renderArtworks(w io.Writer, items []listItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, emptyGalleryText)
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Key", "Period", "Theme", "Score", "Timestamp", "Image"})
	for _, it := range items {
		period := fmt.Sprintf("%d", it.Period)
		if it.Label != "" {
			period += " (" + it.Label + ")"
		}
		score := ""
		if it.Score != nil {
			score = domain.ArtworkRecord{Score: it.Score}.ScoreText()
		}
		tw.AppendRow(table.Row{it.Key, period, it.Theme, score, it.Timestamp, it.Image})
	}
	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d artworks", len(items))})
	tw.Render()
}

const emptyGalleryText = "No artworks yet. First generation starts soon..."

func statusCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the generator status banner",
		Long:  "Fetches the status document once, or with --watch keeps polling it and redraws the banner until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Status.URL == "" {
				return errors.New("status.url is not configured; set it in genart.yml, GENART_STATUS_URL or --status-url")
			}
			cycle, err := schedule.Parse(cfg.Schedule.Cycle)
			if err != nil {
				return err
			}
			fetcher := status.NewHTTPFetcher(cfg.Status.URL, cfg.Status.Timeout)
			if !watch {
				doc, err := fetcher.Fetch(cmd.Context())
				if err != nil {
					return err
				}
				snap := status.Snapshot{State: status.StateActive, Doc: &doc}
				if doc.IsIdle(cfg.Status.IdleAgent) {
					snap.State = status.StateIdle
				}
				if viper.GetBool("json") {
					return printJSON(snap)
				}
				fmt.Println(renderBanner(snap, cycle, time.Now()))
				return nil
			}
			return watchStatus(cmd.Context(), os.Stdout, fetcher, cfg, cycle, logger)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep polling until interrupted")
	return cmd
}

func watchStatus(ctx context.Context, w io.Writer, f status.Fetcher, cfg *config.Config, cycle *schedule.Schedule, logger *zap.Logger) error {
	p := status.New(f, status.Options{
		Interval:  cfg.Status.Interval,
		IdleAgent: cfg.Status.IdleAgent,
		Logger:    logger,
	})
	updates := p.Subscribe()
	if err := p.Start(ctx); err != nil {
		return err
	}
	defer p.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			if viper.GetBool("json") {
				b, _ := json.Marshal(snap)
				fmt.Fprintln(w, string(b))
				continue
			}
			line := renderBanner(snap, cycle, time.Now())
			if line == "" {
				line = "status unavailable: " + snap.LastError
			}
			fmt.Fprintln(w, line)
		}
	}
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect the gallery config",
		Long:  "Config lives in genart.yml in the workspace. Flags and GENART_* variables override it for a single run.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetViper())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := cfg.ToYAML()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate genart.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": errString(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default genart.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// --- helpers ---

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger, err := app.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}
