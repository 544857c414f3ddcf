package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/api"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/config"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/extractor"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/logging"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/normalize"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/parser"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/storage"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/writer"
)

const version = "1.0.0"

func main() {
	// CLI flags
	issuerFlag := flag.String("issuer", "", "Issuer: cibc (auto-detected if omitted)")
	outputFlag := flag.String("output", "", "Output file path (defaults to input filename with the format's extension)")
	formatFlag := flag.String("format", "csv", "Output format: csv or xlsx")
	headerFlag := flag.Bool("header", true, "Include statement metadata header rows in CSV")
	sortFlag := flag.Bool("sort", false, "Sort records by transaction date before writing")
	yearFlag := flag.Int("year", 0, "Override the statement year instead of reading the period banner")
	rulesFlag := flag.String("rules", "", "YAML rules file overriding the built-in category/city tables")
	ingestFlag := flag.Bool("ingest", false, "Load parsed records into Postgres after conversion")
	serveFlag := flag.Bool("serve", false, "Run the HTTP API server instead of converting files")
	addrFlag := flag.String("addr", "", "HTTP listen address for -serve (overrides SERVER_ADDR)")
	verboseFlag := flag.Bool("verbose", false, "Enable debug logging")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = usage
	flag.Parse()

	if *versionFlag {
		fmt.Printf("privacy-expense-tracker v%s\n", version)
		os.Exit(0)
	}

	logger := logging.New(*verboseFlag)

	cfg := config.Load()
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}
	if *rulesFlag != "" {
		cfg.RulesPath = *rulesFlag
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	rules := normalize.DefaultRules()
	if cfg.RulesPath != "" {
		loaded, err := normalize.LoadRules(cfg.RulesPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("failed to load rules")
		}
		rules = loaded
	}

	if *serveFlag {
		runServer(cfg, rules, logger)
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	issuer, err := resolveIssuerFlag(*issuerFlag)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid -issuer")
	}

	ctx := context.Background()
	var store *storage.Store
	if *ingestFlag {
		store, err = storage.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer store.Close()
		if err := store.Init(ctx); err != nil {
			logger.Fatal().Err(err).Msg("schema initialization failed")
		}
	}

	opt := fileOptions{
		issuer: issuer,
		output: *outputFlag,
		format: strings.ToLower(*formatFlag),
		header: *headerFlag,
		sort:   *sortFlag,
		year:   *yearFlag,
		rules:  rules,
		store:  store,
	}

	// A document that cannot be read fails alone; the rest of the batch
	// still gets processed.
	failed := 0
	for _, inputPath := range flag.Args() {
		if err := processFile(ctx, inputPath, opt, logger); err != nil {
			logger.Error().Err(err).Str("file", inputPath).Msg("processing failed")
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

type fileOptions struct {
	issuer models.Issuer
	output string
	format string
	header bool
	sort   bool
	year   int
	rules  *normalize.Rules
	store  *storage.Store
}

func processFile(ctx context.Context, inputPath string, opt fileOptions, logger zerolog.Logger) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}
	if ext := strings.ToLower(filepath.Ext(inputPath)); ext != ".pdf" {
		return fmt.Errorf("expected .pdf file, got %q", ext)
	}

	logger.Info().Str("file", inputPath).Msg("processing statement")

	pages, err := extractor.ExtractText(inputPath)
	if err != nil {
		return err
	}
	logger.Debug().Int("pages", len(pages)).Msg("extracted text")

	issuer := opt.issuer
	if issuer == "" {
		issuer, err = parser.AutoDetect(pages)
		if err != nil {
			return err
		}
		logger.Info().Str("issuer", string(issuer)).Msg("auto-detected issuer")
	}

	popts := []parser.Option{
		parser.WithSourceFile(filepath.Base(inputPath)),
		parser.WithRules(opt.rules),
	}
	if opt.year != 0 {
		popts = append(popts, parser.WithReferencePeriod(normalize.Period{Year: opt.year}))
	}
	p, err := parser.New(issuer, popts...)
	if err != nil {
		return err
	}

	stmt, err := p.Parse(pages)
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}

	if opt.sort {
		models.SortTransactions(stmt.Transactions)
	}

	logger.Info().
		Str("period", stmt.Period).
		Int("rows_parsed", stmt.Stats.RowsParsed).
		Int("rows_skipped", stmt.Stats.RowsSkipped).
		Int("dates_repaired", stmt.Stats.DatesRepaired).
		Int("locations_inferred", stmt.Stats.LocationsInferred).
		Msg("statement parsed")
	for _, skip := range stmt.Skipped {
		logger.Debug().
			Int("page", skip.Page).
			Str("reason", skip.Reason).
			Str("line", skip.Line).
			Msg("row skipped")
	}
	if stmt.Stats.RowsParsed == 0 {
		logger.Warn().Msg("no transactions found; specify -issuer if auto-detection chose wrong")
	}

	outPath := opt.output
	if outPath == "" {
		outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "." + opt.format
	}

	switch opt.format {
	case "csv":
		w := &writer.CSVWriter{IncludeHeader: opt.header}
		if err := w.WriteToFile(outPath, stmt); err != nil {
			return fmt.Errorf("CSV write failed: %w", err)
		}
	case "xlsx":
		w := &writer.XLSXWriter{}
		if err := w.WriteToFile(outPath, stmt); err != nil {
			return fmt.Errorf("XLSX write failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q (use csv or xlsx)", opt.format)
	}
	logger.Info().Str("output", outPath).Msg("wrote output")

	if opt.store != nil {
		if _, err := opt.store.Ingest(ctx, stmt); err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
	}
	return nil
}

func runServer(cfg *config.Config, rules *normalize.Rules, logger zerolog.Logger) {
	ctx := context.Background()

	var store *storage.Store
	st, err := storage.Open(ctx, cfg.Database, logger)
	if err == nil {
		err = st.Ping(ctx)
	}
	if err == nil {
		err = st.Init(ctx)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("database unavailable; /api/ingest disabled")
		if st != nil {
			st.Close()
		}
	} else {
		store = st
		defer store.Close()
	}

	h := &api.Handler{
		Store:   store,
		Rules:   rules,
		Logger:  logger,
		Version: version,
	}
	app := api.NewApp(h, cfg.Server.BodyLimit)

	logger.Info().Str("addr", cfg.Server.Addr).Msg("starting HTTP server")
	if err := app.Listen(cfg.Server.Addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func resolveIssuerFlag(value string) (models.Issuer, error) {
	switch strings.ToLower(value) {
	case "":
		return "", nil
	case "cibc":
		return models.IssuerCIBC, nil
	default:
		return "", fmt.Errorf("unknown issuer %q (supported: cibc)", value)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Credit Card Statement Extractor

Converts credit card statement PDFs into normalized transaction records,
writes them as CSV or Excel, and optionally loads them into Postgres.
Locations and spending categories are inferred from merchant descriptions;
everything runs locally.

Usage:
  privacy-expense-tracker [flags] <statement.pdf> [statement2.pdf ...]
  privacy-expense-tracker -serve

Flags:
`)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  # Auto-detect issuer and convert to CSV
  privacy-expense-tracker statement.pdf

  # Excel workbook with separate charges and payments sheets
  privacy-expense-tracker -format=xlsx statement.pdf

  # Parse and load into Postgres (set DATABASE_URL or POSTGRES_* vars)
  privacy-expense-tracker -ingest statement.pdf

  # Run the HTTP API
  privacy-expense-tracker -serve -addr=:8080

Supported Issuers:
  cibc      - CIBC credit card statements (Mon D date format)
`)
}
