package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	database "github.com/FACorreiaa/bytebite/app/db"
	appLogger "github.com/FACorreiaa/bytebite/app/logger"
	"github.com/FACorreiaa/bytebite/app/store"
	"github.com/FACorreiaa/bytebite/config"
	"github.com/FACorreiaa/bytebite/internal/api/auth"
	"github.com/FACorreiaa/bytebite/internal/api/orders"
	"github.com/FACorreiaa/bytebite/internal/api/profile"
	"github.com/FACorreiaa/bytebite/internal/api/weight"
	"github.com/FACorreiaa/bytebite/internal/types"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword = errors.New("password must not be empty")
)

type adminApp struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

func newRootCmd(app *adminApp) *cobra.Command {
	root := &cobra.Command{
		Use:           "bbadmin",
		Short:         "ByteBite administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.cfg == nil {
				cfg, err := config.InitConfig()
				if err != nil {
					return err
				}
				app.cfg = &cfg
			}
			if app.logger == nil {
				app.logger = appLogger.New(app.cfg.Mode, os.Stderr)
			}
			return nil
		},
	}
	root.AddCommand(
		newAddUserCmd(app),
		newResetPasswordCmd(app),
		newMigrateCmd(app),
		newImportJSONCmd(app),
	)
	return root
}

func newAddUserCmd(app *adminApp) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create an account, or reset name and password if the email exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := promptPassword(app.out)
			if err != nil {
				return err
			}
			svc, closeFn, err := app.authService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			user, created, err := svc.UpsertUser(cmd.Context(), name, email, pwd)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(app.out, "Created user %s (%s)\n", user.Email, user.ID)
			} else {
				fmt.Fprintf(app.out, "Updated user %s (%s)\n", user.Email, user.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResetPasswordCmd(app *adminApp) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Set a new password for an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := promptPassword(app.out)
			if err != nil {
				return err
			}
			svc, closeFn, err := app.authService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.ResetPassword(cmd.Context(), email, pwd); err != nil {
				if errors.Is(err, types.ErrNotFound) {
					return fmt.Errorf("no account for %s", email)
				}
				return err
			}
			fmt.Fprintln(app.out, "Password updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newMigrateCmd(app *adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbConfig, err := database.NewDatabaseConfig(app.cfg, app.logger)
			if err != nil {
				return err
			}
			return database.RunMigrations(dbConfig.ConnectionURL, app.logger)
		},
	}
}

func newImportJSONCmd(app *adminApp) *cobra.Command {
	var dataDir string
	cmd := &cobra.Command{
		Use:   "import-json",
		Short: "Copy the JSON data files into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if dataDir == "" {
				dataDir = app.cfg.Storage.DataDir
			}
			db, closeFn, err := app.openPostgres(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			stats, err := importJSON(ctx, app.cfg.Storage, dataDir, db, app.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Imported %s\n", stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the JSON files (defaults to storage.dataDir)")
	return cmd
}

func promptPassword(out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}

// authService builds the service over whichever backend storage.driver names.
func (app *adminApp) authService(ctx context.Context) (*auth.AuthServiceImpl, func(), error) {
	if app.cfg.Storage.Driver == "postgres" {
		db, closeFn, err := app.openPostgres(ctx)
		if err != nil {
			return nil, nil, err
		}
		return auth.NewAuthService(auth.NewPostgresAuthRepo(db, app.logger), app.cfg, app.logger), closeFn, nil
	}

	path := filepath.Join(app.cfg.Storage.DataDir, app.cfg.Storage.CredentialsFile)
	repo := auth.NewJSONAuthRepo(store.NewFile[types.User](path, app.logger), app.logger)
	if _, err := repo.Backfill(ctx); err != nil {
		return nil, nil, err
	}
	return auth.NewAuthService(repo, app.cfg, app.logger), func() {}, nil
}

func (app *adminApp) openPostgres(ctx context.Context) (database.DBTX, func(), error) {
	dbConfig, err := database.NewDatabaseConfig(app.cfg, app.logger)
	if err != nil {
		return nil, nil, err
	}
	pool, err := database.Init(dbConfig.ConnectionURL, app.logger)
	if err != nil {
		return nil, nil, err
	}
	if !database.WaitForDB(ctx, pool, app.logger) {
		pool.Close()
		return nil, nil, errors.New("database not ready")
	}
	return pool, pool.Close, nil
}

type importStats struct {
	users, preferences, orders, weights, skipped int
}

func (s importStats) String() string {
	return fmt.Sprintf("%d users, %d preferences, %d orders, %d weight entries (%d already present)",
		s.users, s.preferences, s.orders, s.weights, s.skipped)
}

// importJSON copies every JSON collection into db. Rows that already exist are
// skipped, so the command can be re-run.
func importJSON(ctx context.Context, cfg config.StorageConfig, dataDir string, db database.DBTX, logger *slog.Logger) (importStats, error) {
	var stats importStats
	path := func(name string) string { return filepath.Join(dataDir, name) }

	users := auth.NewJSONAuthRepo(store.NewFile[types.User](path(cfg.CredentialsFile), logger), logger)
	if _, err := users.Backfill(ctx); err != nil {
		return stats, err
	}
	list, err := store.NewFile[types.User](path(cfg.CredentialsFile), logger).Load(ctx)
	if err != nil {
		return stats, err
	}
	pgUsers := auth.NewPostgresAuthRepo(db, logger)
	for _, u := range list {
		if err := pgUsers.CreateUser(ctx, u); err != nil {
			if errors.Is(err, types.ErrConflict) {
				stats.skipped++
				continue
			}
			return stats, fmt.Errorf("user %s: %w", u.Email, err)
		}
		stats.users++
	}

	prefs, err := store.NewFile[types.Preferences](path(cfg.PreferencesFile), logger).Load(ctx)
	if err != nil {
		return stats, err
	}
	pgProfiles := profile.NewPostgresProfileRepo(db, logger)
	for _, p := range prefs {
		if err := pgProfiles.SavePreferences(ctx, p); err != nil {
			return stats, fmt.Errorf("preferences of %s: %w", p.UserID, err)
		}
		stats.preferences++
	}

	orderList, err := store.NewFile[types.Order](path(cfg.OrdersFile), logger).Load(ctx)
	if err != nil {
		return stats, err
	}
	pgOrders := orders.NewPostgresOrderRepo(db, logger)
	for _, o := range orderList {
		if err := pgOrders.CreateOrder(ctx, o); err != nil {
			if errors.Is(err, types.ErrConflict) {
				stats.skipped++
				continue
			}
			return stats, fmt.Errorf("order %s: %w", o.ID, err)
		}
		stats.orders++
	}

	entries, err := store.NewFile[types.WeightEntry](path(cfg.WeightsFile), logger).Load(ctx)
	if err != nil {
		return stats, err
	}
	pgWeights := weight.NewPostgresWeightRepo(db, logger)
	for _, e := range entries {
		if err := pgWeights.CreateEntry(ctx, e); err != nil {
			if errors.Is(err, types.ErrConflict) {
				stats.skipped++
				continue
			}
			return stats, fmt.Errorf("weight entry %s: %w", e.ID, err)
		}
		stats.weights++
	}
	return stats, nil
}
