package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"billcast/internal/audit"
	"billcast/internal/cache"
	"billcast/internal/config"
	"billcast/internal/db"
	"billcast/internal/domain"
	"billcast/internal/forecast"
	"billcast/internal/migrate"
	"billcast/internal/mlclient"
	"billcast/internal/provider"
	"billcast/internal/repo"
	"billcast/internal/server"
	"billcast/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "billcast",
	Short: "Legislative bill forecasting CLI",
	Long: `Billcast turns a bill's procedural metadata into an explained forecast:
an approval-likelihood score with attributed factors, a timeline estimate,
the probable next procedural steps, and a political/sector read.
Forecasts are cached for 24 hours; use --force to recompute.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("BILLCAST")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Bool("force", false, "bypass the forecast cache")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("force", rootCmd.PersistentFlags().Lookup("force"))
}

func registerCommands() {
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(sectorCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast <kind> <number> <year>",
		Short: "Forecast one bill",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseBillID(strings.Join(args, "_"))
			if err != nil {
				return err
			}
			return withOrchestrator(cmd.Context(), func(ctx context.Context, o *forecast.Orchestrator, _ *audit.Writer, _ *config.Config) error {
				f := o.Forecast(ctx, id, viper.GetBool("force"))
				if viper.GetBool("json") {
					return printJSON(f)
				}
				renderForecast(f)
				return nil
			})
		},
	}
	return cmd
}

func sectorCmd() *cobra.Command {
	var rawIDs []string
	cmd := &cobra.Command{
		Use:   "sector",
		Short: "Aggregate forecasts over a set of bills",
		Long:  "With no --id flags the configured watchlist is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrchestrator(cmd.Context(), func(ctx context.Context, o *forecast.Orchestrator, _ *audit.Writer, cfg *config.Config) error {
				var ids []domain.BillID
				for _, raw := range rawIDs {
					id, err := domain.ParseBillID(raw)
					if err != nil {
						return err
					}
					ids = append(ids, id)
				}
				if len(ids) == 0 {
					ids = cfg.WatchlistIDs()
				}
				if len(ids) == 0 {
					return fmt.Errorf("no bills given and the watchlist is empty")
				}
				overview := o.SectorOverview(ctx, ids, viper.GetBool("force"))
				if viper.GetBool("json") {
					return printJSON(overview)
				}
				renderOverview(overview)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&rawIDs, "id", nil, `bill id like "PL 2234/2022" (repeatable)`)
	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Manage the forecast cache"}
	cmd.AddCommand(cachePurgeCmd())
	return cmd
}

func cachePurgeCmd() *cobra.Command {
	var rawID string
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Evict cached forecasts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, s repo.Store, w *audit.Writer) error {
				if rawID != "" {
					id, err := domain.ParseBillID(rawID)
					if err != nil {
						return err
					}
					if err := s.DeleteForecast(ctx, id.Key()); err != nil {
						return err
					}
					_ = w.Append(ctx, audit.TypePurged, id.Key(), nil)
					fmt.Printf("purged %s\n", id)
					return nil
				}
				n, err := s.PurgeForecasts(ctx)
				if err != nil {
					return err
				}
				_ = w.Append(ctx, audit.TypePurged, "", audit.Payload{"rows": n})
				fmt.Printf("purged %d entries\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rawID, "bill", "", `purge a single bill, e.g. "PL 2234/2022"`)
	return cmd
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "log", Short: "Computation audit log"}
	cmd.AddCommand(logTailCmd())
	return cmd
}

func logTailCmd() *cobra.Command {
	var evtType, rawID string
	var limit uint64
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, _ repo.Store, w *audit.Writer) error {
				filter := audit.Filter{Type: evtType, Limit: limit}
				if rawID != "" {
					id, err := domain.ParseBillID(rawID)
					if err != nil {
						return err
					}
					filter.BillKey = id.Key()
				}
				items, err := w.Tail(ctx, filter)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Type", "Bill"})
				for _, e := range items {
					tw.AppendRow(table.Row{e.TS, e.Type, e.BillKey})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&evtType, "type", "", "filter by event type")
	cmd.Flags().StringVar(&rawID, "bill", "", "filter by bill id")
	cmd.Flags().Uint64VarP(&limit, "limit", "n", 20, "max events")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Manage configuration"}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default billcast.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	})
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrchestrator(cmd.Context(), func(ctx context.Context, o *forecast.Orchestrator, w *audit.Writer, cfg *config.Config) error {
				if addr == "" {
					addr = cfg.Server.Addr
				}
				if basePath == "" {
					basePath = cfg.Server.BasePath
				}
				secret := os.Getenv("BILLCAST_JWT_SECRET")
				if secret == "" {
					secret = cfg.Server.JWTSecret
				}
				handler, err := server.New(server.Config{
					Orchestrator: o,
					Audit:        w,
					Watchlist:    cfg.WatchlistIDs(),
					BasePath:     basePath,
					JWTSecret:    secret,
					Logger:       logger.New("server"),
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Billcast API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults from config)")
	return cmd
}

func withStore(ctx context.Context, fn func(context.Context, repo.Store, *audit.Writer) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Store{DB: conn}, &audit.Writer{DB: conn})
}

func withOrchestrator(ctx context.Context, fn func(context.Context, *forecast.Orchestrator, *audit.Writer, *config.Config) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}

	prov := provider.NewSenado(logger.New("provider"))
	if cfg.Provider.BaseURL != "" {
		prov.BaseURL = cfg.Provider.BaseURL
	}
	writer := &audit.Writer{DB: conn}
	o := &forecast.Orchestrator{
		Provider: prov,
		Memory:   cache.NewMemory(nil),
		Store:    repo.Store{DB: conn},
		Audit:    *writer,
		Logger:   logger.New("forecast"),
	}
	if cfg.ModelConfigured() {
		o.Classifier = mlclient.New(cfg.Model.Endpoint, cfg.Model.Name, cfg.Model.APIKey)
	}
	return fn(ctx, o, writer, cfg)
}

func renderForecast(f domain.Forecast) {
	fmt.Printf("%s — %s\n", f.BillID, f.Title)
	if f.NotFound {
		fmt.Println("bill not found upstream")
		return
	}
	if f.Degraded {
		fmt.Println("degraded forecast (insufficient data)")
	}
	fmt.Printf("Score: %.0f (%s)  Timeline: %s  Trend: %s\n", f.Risk.Score, f.Risk.Level, f.Timeline.Estimate, f.Trend)
	fmt.Printf("Urgency: %s  Controversy: %s\n\n", f.Context.Urgency, f.Context.Controversy)

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Factor", "Impact", "Description"})
	for _, fa := range f.Risk.Factors {
		tw.AppendRow(table.Row{fa.Name, fa.Impact, fa.Description})
	}
	tw.Render()

	fmt.Println()
	tw = table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Next step", "Probability", "Observation"})
	for _, s := range f.NextSteps {
		tw.AppendRow(table.Row{s.Step, s.Probability, s.Observation})
	}
	tw.Render()

	fmt.Printf("\nPolitical context: %s\n", f.Context.PoliticalContext)
	fmt.Printf("Sector impact: %s\n", f.Context.SectorImpact)
}

func renderOverview(o domain.SectorOverview) {
	fmt.Printf("Bills: %d  Average: %.1f (%s)  High: %d  Medium: %d  Low: %d\n\n",
		o.BillCount, o.AverageScore, o.AverageLevel,
		o.Distribution.High, o.Distribution.Medium, o.Distribution.Low)

	if len(o.TopHighRisk) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Bill", "Score", "Status"})
		for _, b := range o.TopHighRisk {
			tw.AppendRow(table.Row{b.BillID.String(), fmt.Sprintf("%.0f", b.Score), b.Status})
		}
		tw.Render()
		fmt.Println()
	}
	if len(o.CriticalEvents) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Bill", "Event", "Probability"})
		for _, e := range o.CriticalEvents {
			tw.AppendRow(table.Row{e.BillID.String(), e.Event, e.Probability})
		}
		tw.Render()
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
