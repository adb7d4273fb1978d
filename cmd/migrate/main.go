// Command migrate manages the warehouse schema in postgres.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cashflow/backend/internal/infrastructure/config"
	"github.com/cashflow/backend/internal/infrastructure/logger"
	"github.com/cashflow/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// schemaCommand runs against a connected migrator
type schemaCommand struct {
	usage string
	help  string
	run   func(m *migration.Migrator, args []string, log *zap.Logger) error
}

// fileCommand only touches the migrations directory
type fileCommand struct {
	usage string
	help  string
	run   func(dir string, args []string, log *zap.Logger) error
}

var errMissingArg = errors.New("missing argument")

var schemaCommands = map[string]schemaCommand{
	"up": {"up", "Apply all pending migrations", func(m *migration.Migrator, _ []string, _ *zap.Logger) error {
		return m.Up()
	}},
	"down": {"down", "Roll back all migrations", func(m *migration.Migrator, _ []string, _ *zap.Logger) error {
		return m.Down()
	}},
	"step": {"step <n>", "Apply n migrations (positive=up, negative=down)", func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	}},
	"goto": {"goto <version>", "Migrate to a specific version", func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := intArg(args)
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("version must not be negative: %d", v)
		}
		return m.GoTo(uint(v))
	}},
	"version": {"version", "Show current migration version", func(m *migration.Migrator, _ []string, log *zap.Logger) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("No migrations applied")
			return nil
		}
		log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}},
	"force": {"force <version>", "Force set migration version (use with caution)", func(m *migration.Migrator, args []string, log *zap.Logger) error {
		v, err := intArg(args)
		if err != nil {
			return err
		}
		log.Warn("Forcing migration version, the schema is not checked", zap.Int("version", v))
		return m.Force(v)
	}},
}

var fileCommands = map[string]fileCommand{
	"create": {"create <name> [desc]", "Create the next numbered migration pair", func(dir string, args []string, log *zap.Logger) error {
		if len(args) == 0 {
			return errMissingArg
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		mf, err := migration.CreateMigration(dir, args[0], description)
		if err != nil {
			return err
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return nil
	}},
	"list": {"list", "List available migrations", func(dir string, _ []string, log *zap.Logger) error {
		migrations, err := migration.ListMigrations(dir)
		if err != nil {
			return err
		}
		if len(migrations) == 0 {
			log.Info("No migrations found")
			return nil
		}
		log.Info("Available migrations", zap.Int("count", len(migrations)))
		for _, m := range migrations {
			fmt.Println("  -", m)
		}
		return nil
	}},
}

func intArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errMissingArg
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", args[0])
	}
	return n, nil
}

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "migrations", "Path to migrations directory")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	name, rest := args[0], args[1:]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	dir, err := filepath.Abs(migrationsPath)
	if err != nil {
		log.Fatal("Failed to resolve migrations path", zap.Error(err))
	}
	log = log.With(zap.String("command", name), zap.String("migrations_path", dir))

	if cmd, ok := fileCommands[name]; ok {
		if err := cmd.run(dir, rest, log); err != nil {
			log.Fatal("Command failed", zap.String("usage", "migrate "+cmd.usage), zap.Error(err))
		}
		return
	}

	cmd, ok := schemaCommands[name]
	if !ok {
		log.Error("Unknown command")
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatal("Migrations only run against postgres; sqlite databases are created on startup",
			zap.String("driver", cfg.Database.Driver))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, migration.Config{MigrationsPath: dir}, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	if err := cmd.run(m, rest, log); err != nil {
		log.Fatal("Command failed", zap.String("usage", "migrate "+cmd.usage), zap.Error(err))
	}
}

func printUsage() {
	fmt.Println("Cashflow Warehouse Migration Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  migrate [flags] <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, name := range []string{"up", "down", "step", "goto", "version", "force"} {
		c := schemaCommands[name]
		fmt.Printf("  %-22s%s\n", c.usage, c.help)
	}
	for _, name := range []string{"create", "list"} {
		c := fileCommands[name]
		fmt.Printf("  %-22s%s\n", c.usage, c.help)
	}
	fmt.Println()
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Connection settings come from config.toml and CASHFLOW_DATABASE_* variables.")
}
