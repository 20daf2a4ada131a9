package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/salesledger/internal/app"
	"github.com/andresuchdata/salesledger/internal/config"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/drive"
	"github.com/andresuchdata/salesledger/internal/repository/postgres"
	"github.com/andresuchdata/salesledger/internal/service"
	"github.com/andresuchdata/salesledger/pkg/logger"
)

type appKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to the configured database)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

// initApp opens the database given by --db-url, or the configured one, and
// builds the shared services.
func initApp(c *cli.Context) error {
	cfg := config.Load()
	logger.Configure(cfg.Log.Level, cfg.Log.Format)

	var opts app.Options
	if dbURL := c.String("db-url"); dbURL != "" {
		db, err := sql.Open("pgx", dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(c.Context); err != nil {
			db.Close()
			return fmt.Errorf("failed to ping database: %w", err)
		}
		opts.DB = postgres.Wrap(sqlx.NewDb(db, "pgx"))
	}

	a, err := app.New(c.Context, cfg, opts)
	if err != nil {
		return err
	}
	c.Context = context.WithValue(c.Context, appKey{}, a)
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.Context.Value(appKey{}).(*app.App); ok && a != nil {
		return a.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *app.App {
	return c.Context.Value(appKey{}).(*app.App)
}

func command(name, usage string, flags []cli.Flag, action cli.ActionFunc) *cli.Command {
	return &cli.Command{
		Name:   name,
		Usage:  usage,
		Flags:  append([]cli.Flag{newDBURLFlag()}, flags...),
		Before: initApp,
		After:  closeApp,
		Action: action,
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	cliApp := &cli.App{
		Name:  "seed",
		Usage: "Seed and maintain the sales ledger store",
		Commands: []*cli.Command{
			command("migrate", "Create the document table", nil, func(c *cli.Context) error {
				if appFrom(c).Documents == nil {
					return errors.New("no database configured")
				}
				log.Println("Document table is up to date")
				return nil
			}),
			command("admin", "Create the default admin when no user exists", nil, func(c *cli.Context) error {
				if err := appFrom(c).SeedAdmin(c.Context); err != nil {
					return err
				}
				log.Println("Default admin ensured")
				return nil
			}),
			command("branches", "Seed branches from a CSV of name,description rows", []cli.Flag{
				&cli.StringFlag{
					Name:    "file",
					Usage:   "Branches CSV file",
					Value:   "./data/seeds/branches.csv",
					EnvVars: []string{"SEED_BRANCHES_FILE"},
				},
			}, seedBranches),
			command("definitions", "Reset treasury definitions to the defaults", nil, func(c *cli.Context) error {
				saved, err := appFrom(c).Services.Catalog.SaveTreasuryDefinitions(c.Context, domain.DefaultTreasuryDefinitions())
				if err != nil {
					return err
				}
				return printJSON(saved.Write)
			}),
			command("sales", "Import sales from local CSV or XLSX files", []cli.Flag{
				&cli.StringFlag{
					Name:    "dir",
					Usage:   "Directory containing sales sheets",
					Value:   "./data/seeds/sales",
					EnvVars: []string{"SEED_SALES_DIR"},
				},
				&cli.BoolFlag{Name: "overwrite", Usage: "Replace amounts of existing sales"},
			}, importSales),
			command("drive", "Import every sales sheet in a Google Drive folder", []cli.Flag{
				&cli.StringFlag{Name: "path", Usage: "Folder path, e.g. Sales/2024"},
				&cli.BoolFlag{Name: "overwrite", Usage: "Replace amounts of existing sales"},
			}, importDrive),
			command("report", "Print a report as JSON", []cli.Flag{
				&cli.StringFlag{Name: "kind", Value: "dashboard", Usage: "dashboard, monthly, yearly, branches, peak or analysis"},
				&cli.StringFlag{Name: "branch", Usage: "Limit to one branch"},
				&cli.IntFlag{Name: "year", Usage: "Year for monthly and yearly reports"},
			}, printReport),
			command("backup", "Write a snapshot of every collection", []cli.Flag{
				&cli.StringFlag{Name: "out", Usage: "Output file, stdout when empty"},
			}, writeBackup),
			command("restore", "Replace collections from a backup file", []cli.Flag{
				&cli.StringFlag{Name: "file", Usage: "Backup JSON file", Required: true},
			}, restoreBackup),
			command("counts", "Print the number of documents per collection", nil, func(c *cli.Context) error {
				a := appFrom(c)
				if a.Documents == nil {
					return errors.New("no database configured")
				}
				counts, err := a.Documents.Count(c.Context)
				if err != nil {
					return err
				}
				return printJSON(counts)
			}),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seedBranches(c *cli.Context) error {
	f, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open branches file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	if _, err := reader.Read(); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	catalog := appFrom(c).Services.Catalog
	existing, err := catalog.ListBranches(c.Context)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, b := range existing {
		known[domain.NormalizeBranchName(b.Name)] = true
	}

	created := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}
		name := strings.Join(strings.Fields(row[0]), " ")
		key := domain.NormalizeBranchName(name)
		if key == "" || known[key] {
			continue
		}
		b := domain.Branch{Name: name}
		if len(row) > 1 {
			b.Description = strings.TrimSpace(row[1])
		}
		if _, err := catalog.SaveBranch(c.Context, b); err != nil {
			return fmt.Errorf("failed to save branch %q: %w", name, err)
		}
		known[key] = true
		created++
	}
	log.Printf("Seeded %d branches", created)
	return nil
}

func importSales(c *cli.Context) error {
	dir := c.String("dir")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && drive.IsSheet(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	sales := appFrom(c).Services.Sales
	opts := service.ImportOptions{Overwrite: c.Bool("overwrite")}
	for _, name := range names {
		if err := importFile(c.Context, sales, filepath.Join(dir, name), opts); err != nil {
			log.Printf("Skipping %s: %v", name, err)
		}
	}
	return nil
}

func importFile(ctx context.Context, sales *service.SalesService, path string, opts service.ImportOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sheet, err := drive.ParseSales(f, filepath.Base(path))
	if err != nil {
		return err
	}
	res, err := drive.ImportSheet(ctx, sales, filepath.Base(path), sheet, opts)
	if err != nil {
		return err
	}
	log.Printf("%s: imported=%d updated=%d skipped=%d errors=%d", filepath.Base(path), res.Imported, res.Updated, res.Skipped, len(res.Errors))
	return nil
}

func importDrive(c *cli.Context) error {
	a := appFrom(c)
	path := c.String("path")
	if path == "" {
		path = a.Config.Drive.SalesFolderPath
	}
	if path == "" {
		return errors.New("no folder path given")
	}

	source, err := drive.NewService(c.Context, a.Config.Drive.CredentialsJSON)
	if err != nil {
		return err
	}
	reports, err := drive.NewIngestService(source, a.Services.Sales).
		IngestFolder(c.Context, path, service.ImportOptions{Overwrite: c.Bool("overwrite")})
	if err != nil {
		return err
	}
	return printJSON(reports)
}

func printReport(c *cli.Context) error {
	reports := appFrom(c).Services.Reports
	scope := service.Scope{Branch: c.String("branch")}
	ctx := c.Context
	year := c.Int("year")
	if year == 0 {
		year = time.Now().Year()
	}

	var (
		v   any
		err error
	)
	switch c.String("kind") {
	case "dashboard":
		v, err = reports.Dashboard(ctx, scope)
	case "monthly":
		v, err = reports.Monthly(ctx, scope, year)
	case "yearly":
		v, err = reports.Yearly(ctx, scope, year)
	case "branches":
		v, err = reports.Branches(ctx, domain.SalesFilter{})
	case "peak":
		v, err = reports.Peak(ctx, scope)
	case "analysis":
		v, err = reports.Analysis(ctx, scope)
	default:
		return fmt.Errorf("unknown report %q", c.String("kind"))
	}
	if err != nil {
		return err
	}
	return printJSON(v)
}

func writeBackup(c *cli.Context) error {
	b, err := appFrom(c).Services.Backup.Backup(c.Context)
	if err != nil {
		return err
	}
	out := c.String("out")
	if out == "" {
		return printJSON(b)
	}
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	log.Printf("Backup written to %s (%d sales, %d branches)", out, len(b.Sales), len(b.Branches))
	return nil
}

func restoreBackup(c *cli.Context) error {
	raw, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	var b service.Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return fmt.Errorf("failed to parse backup: %w", err)
	}
	res, err := appFrom(c).Services.Backup.Restore(c.Context, &b)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
