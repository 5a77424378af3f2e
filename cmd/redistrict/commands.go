package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"district-realign/internal/config"
	"district-realign/internal/database"
	"district-realign/internal/dataset"
	"district-realign/internal/hierarchy"
	"district-realign/internal/metrics"
	"district-realign/internal/models"
	"district-realign/internal/pipeline"
	"district-realign/internal/sqlite"
)

// app is what every command needs once flags are parsed
type app struct {
	cfg       *config.Config
	store     database.DataStore
	collector *metrics.Collector
	server    *http.Server
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "redistrict",
		Short:         "Realign clubs into areas and areas into divisions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", getEnv("REDISTRICT_CONFIG", "config.yaml"), "path to the YAML config file")

	// withApp loads the config, opens the store and tears both down after fn
	withApp := func(fn func(ctx context.Context, a *app, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return fn(ctx, a, cmd)
		}
	}

	root.AddCommand(
		newAreasCmd(withApp),
		newDivisionsCmd(withApp),
		newRunCmd(withApp),
		newCentroidsCmd(),
		newCacheCmd(withApp),
	)
	return root
}

type appRunner func(fn func(ctx context.Context, a *app, cmd *cobra.Command) error) func(*cobra.Command, []string) error

func newAreasCmd(withApp appRunner) *cobra.Command {
	var clubsPath, outPath string

	cmd := &cobra.Command{
		Use:   "areas",
		Short: "Group clubs into areas of four or five",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
			clubs, err := dataset.ReadClubsFile(clubsPath)
			if err != nil {
				return err
			}

			res, err := a.pipeline().Areas(ctx, clubs)
			if err != nil {
				return err
			}

			if err := dataset.WriteFile(outPath, func(w io.Writer) error {
				return dataset.WriteAreaClubs(w, res.Clubs)
			}); err != nil {
				return err
			}
			log.Printf("[STAGE] wrote %d clubs in %d areas to %s", len(res.Clubs), len(res.Centroids), outPath)
			return nil
		}),
	}
	cmd.Flags().StringVar(&clubsPath, "clubs", "club_zips.csv", "input CSV with club_no, lat, long")
	cmd.Flags().StringVar(&outPath, "out", "area_clubs.csv", "output CSV of clubs with their area")
	return cmd
}

func newDivisionsCmd(withApp appRunner) *cobra.Command {
	var areasPath, outPath string

	cmd := &cobra.Command{
		Use:   "divisions",
		Short: "Group areas into divisions and renumber the areas",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
			clubs, err := dataset.ReadAreaClubsFile(areasPath)
			if err != nil {
				return err
			}

			res, err := a.pipeline().Divisions(ctx, clubs)
			if err != nil {
				return err
			}
			return writeAlignment(outPath, res.Alignment)
		}),
	}
	cmd.Flags().StringVar(&areasPath, "areas", "area_clubs.csv", "input CSV with club_no, area, lat, long")
	cmd.Flags().StringVar(&outPath, "out", "new_district_alignment.csv", "output CSV of the final alignment")
	return cmd
}

func newRunCmd(withApp appRunner) *cobra.Command {
	var clubsPath, areasPath, outPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run both stages from clubs to the final alignment",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
			clubs, err := dataset.ReadClubsFile(clubsPath)
			if err != nil {
				return err
			}

			res, err := a.pipeline().Run(ctx, clubs)
			if err != nil {
				return err
			}

			if areasPath != "" {
				if err := dataset.WriteFile(areasPath, func(w io.Writer) error {
					return dataset.WriteAreaClubs(w, res.Areas.Clubs)
				}); err != nil {
					return err
				}
			}
			return writeAlignment(outPath, res.Divisions.Alignment)
		}),
	}
	cmd.Flags().StringVar(&clubsPath, "clubs", "club_zips.csv", "input CSV with club_no, lat, long")
	cmd.Flags().StringVar(&areasPath, "areas-out", "area_clubs.csv", "intermediate CSV of clubs with their area (empty to skip)")
	cmd.Flags().StringVar(&outPath, "out", "new_district_alignment.csv", "output CSV of the final alignment")
	return cmd
}

// newCentroidsCmd recomputes area centroids after area_clubs.csv has been
// edited by hand. It needs no config or store.
func newCentroidsCmd() *cobra.Command {
	var areasPath, outPath string

	cmd := &cobra.Command{
		Use:   "centroids",
		Short: "Compute area centroids from a clubs-with-areas CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			clubs, err := dataset.ReadAreaClubsFile(areasPath)
			if err != nil {
				return err
			}

			centroids, err := hierarchy.AreaCentroids(clubs)
			if err != nil {
				return fmt.Errorf("failed to compute centroids: %w", err)
			}

			if err := dataset.WriteFile(outPath, func(w io.Writer) error {
				return dataset.WriteCentroids(w, centroids)
			}); err != nil {
				return err
			}
			log.Printf("[STAGE] wrote %d area centroids to %s", len(centroids), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&areasPath, "areas", "area_clubs.csv", "input CSV with club_no, area, lat, long")
	cmd.Flags().StringVar(&outPath, "out", "area_centroids.csv", "output CSV of area centroids")
	return cmd
}

func newCacheCmd(withApp appRunner) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached distance matrices",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached distance matrix",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
			if err := a.store.Artifacts().Clear(ctx); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			log.Printf("[CACHE] cleared")
			return nil
		}),
	})
	return cacheCmd
}

func writeAlignment(path string, rows []models.Alignment) error {
	if err := dataset.WriteFile(path, func(w io.Writer) error {
		return dataset.WriteAlignment(w, rows)
	}); err != nil {
		return err
	}
	log.Printf("[STAGE] wrote alignment of %d clubs to %s", len(rows), path)
	return nil
}

func newApp(cfg *config.Config) (*app, error) {
	store, err := openStore(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if err := store.HealthCheck(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("store health check failed: %w", err)
	}

	a := &app{cfg: cfg, store: store, collector: metrics.New()}

	if cfg.Metrics.Addr != "" {
		a.server = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           a.collector.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("[METRICS] serving on http://%s/metrics", cfg.Metrics.Addr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[ERROR] metrics server: %v", err)
			}
		}()
	}

	return a, nil
}

func (a *app) pipeline() *pipeline.Pipeline {
	return pipeline.New(pipeline.Options{
		Store:     a.store,
		Metric:    a.cfg.Distance.Metric,
		Areas:     a.cfg.Areas,
		Divisions: a.cfg.Divisions,
		Metrics:   a.collector,
	})
}

func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			log.Printf("[ERROR] failed to stop metrics server: %v", err)
		}
	}
	if err := a.store.Close(); err != nil {
		log.Printf("[ERROR] failed to close store: %v", err)
	}
}

// openStore picks the artifact cache and run history backend
func openStore(cfg config.CacheConfig) (database.DataStore, error) {
	if cfg.Backend == config.BackendNone {
		log.Printf("[CACHE] backend=none, nothing is persisted")
		return database.NewMemoryStore(), nil
	}

	dir, err := database.GetCacheDir(cfg.Dir)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendSQLite:
		store, err := sqlite.New(filepath.Join(dir, database.SQLiteDBFileName))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Printf("[CACHE] backend=sqlite path=%s", store.GetDBPath())
		return store, nil
	default:
		store, err := database.NewFileStore(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		log.Printf("[CACHE] backend=file dir=%s", dir)
		return store, nil
	}
}
