package api

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	recoverer "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/extractor"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/normalize"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/parser"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/storage"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/writer"
)

// pageBreakMarker separates pages in client-side extracted text.
const pageBreakMarker = "\n---PAGE_BREAK---\n"

// ConvertResponse is the JSON response from the /api/convert endpoint.
type ConvertResponse struct {
	Success       bool                 `json:"success"`
	Error         string               `json:"error,omitempty"`
	Issuer        string               `json:"issuer,omitempty"`
	SourceFile    string               `json:"sourceFile,omitempty"`
	Period        string               `json:"period,omitempty"`
	Transactions  []models.Transaction `json:"transactions"`
	CSV           string               `json:"csv,omitempty"`
	Stats         models.ParseStats    `json:"stats"`
	Skipped       []models.SkippedRow  `json:"skipped,omitempty"`
	TotalCharges  string               `json:"totalCharges"`
	TotalPayments string               `json:"totalPayments"`
	Count         int                  `json:"count"`
	Version       string               `json:"version,omitempty"`
}

// IngestResponse is the JSON response from the /api/ingest endpoint.
type IngestResponse struct {
	Success bool                  `json:"success"`
	Error   string                `json:"error,omitempty"`
	Result  *storage.IngestResult `json:"result,omitempty"`
	Stats   models.ParseStats     `json:"stats"`
}

// Handler holds the HTTP handlers for the API. Store may be nil when no
// database is configured; /api/ingest then responds 503.
type Handler struct {
	Store   *storage.Store
	Rules   *normalize.Rules
	Logger  zerolog.Logger
	Version string
}

// NewApp builds the Fiber application with all routes registered.
func NewApp(h *Handler, bodyLimit int) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "privacy-expense-tracker",
		BodyLimit: bodyLimit,
	})
	app.Use(recoverer.New())
	app.Use(cors.New())

	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/convert", h.HandleConvert)
	app.Post("/api/ingest", h.HandleIngest)
	return app
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.Version,
	})
}

func (h *Handler) HandleConvert(c *fiber.Ctx) error {
	stmt, err := h.statementFromRequest(c)
	if err != nil {
		return h.jsonError(c, err)
	}

	includeHeader := c.FormValue("header") != "false"
	var csvBuf bytes.Buffer
	csvWriter := &writer.CSVWriter{IncludeHeader: includeHeader}
	if err := csvWriter.Write(&csvBuf, stmt); err != nil {
		return h.jsonError(c, fmt.Errorf("CSV generation failed: %w", err))
	}

	var totalCharges, totalPayments decimal.Decimal
	for _, txn := range stmt.Transactions {
		if txn.Section == models.SectionPayment {
			totalPayments = totalPayments.Add(txn.Amount)
		} else {
			totalCharges = totalCharges.Add(txn.Amount)
		}
	}

	// Never marshal transactions as JSON null
	txns := stmt.Transactions
	if txns == nil {
		txns = []models.Transaction{}
	}

	return c.JSON(ConvertResponse{
		Success:       true,
		Issuer:        string(stmt.Issuer),
		SourceFile:    stmt.SourceFile,
		Period:        stmt.Period,
		Transactions:  txns,
		CSV:           csvBuf.String(),
		Stats:         stmt.Stats,
		Skipped:       stmt.Skipped,
		TotalCharges:  totalCharges.StringFixed(2),
		TotalPayments: totalPayments.StringFixed(2),
		Count:         len(txns),
		Version:       h.Version,
	})
}

func (h *Handler) HandleIngest(c *fiber.Ctx) error {
	if h.Store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(IngestResponse{
			Success: false,
			Error:   "database not configured",
		})
	}

	stmt, err := h.statementFromRequest(c)
	if err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return c.Status(reqErr.status).JSON(IngestResponse{Success: false, Error: reqErr.msg})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(IngestResponse{Success: false, Error: err.Error()})
	}

	result, err := h.Store.Ingest(c.UserContext(), stmt)
	if err != nil {
		h.Logger.Error().Err(err).Str("source_file", stmt.SourceFile).Msg("ingest failed")
		return c.Status(fiber.StatusInternalServerError).JSON(IngestResponse{Success: false, Error: err.Error()})
	}

	return c.JSON(IngestResponse{
		Success: true,
		Result:  result,
		Stats:   stmt.Stats,
	})
}

// requestError carries an HTTP status for request-level failures.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// statementFromRequest extracts pages from the uploaded PDF (or the
// pre-extracted text field) and parses them into a statement.
func (h *Handler) statementFromRequest(c *fiber.Ctx) (*models.Statement, error) {
	var pages []string
	sourceFile := ""

	// Pre-extracted text from client-side pdf.js, split on page markers
	if extracted := c.FormValue("extractedText"); extracted != "" {
		for _, page := range strings.Split(extracted, pageBreakMarker) {
			if page = strings.TrimSpace(page); page != "" {
				pages = append(pages, page)
			}
		}
		if fileHeader, err := c.FormFile("file"); err == nil {
			sourceFile = filepath.Base(fileHeader.Filename)
		}
	}

	if len(pages) == 0 {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return nil, &requestError{fiber.StatusBadRequest, "No file uploaded. Use form field 'file' or 'extractedText'."}
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
			return nil, &requestError{fiber.StatusBadRequest, "Only PDF files are supported."}
		}
		sourceFile = filepath.Base(fileHeader.Filename)

		tmp, err := os.CreateTemp("", "statement-*.pdf")
		if err != nil {
			return nil, fmt.Errorf("create temp file: %w", err)
		}
		tmpName := tmp.Name()
		tmp.Close()
		defer os.Remove(tmpName)

		if err := c.SaveFile(fileHeader, tmpName); err != nil {
			return nil, fmt.Errorf("save uploaded file: %w", err)
		}

		pages, err = extractor.ExtractText(tmpName)
		if err != nil {
			return nil, &requestError{fiber.StatusUnprocessableEntity, err.Error()}
		}
	}

	issuer, err := h.resolveIssuer(c.FormValue("issuer"), pages)
	if err != nil {
		return nil, err
	}

	opts := []parser.Option{parser.WithSourceFile(sourceFile)}
	if h.Rules != nil {
		opts = append(opts, parser.WithRules(h.Rules))
	}
	p, err := parser.New(issuer, opts...)
	if err != nil {
		return nil, &requestError{fiber.StatusBadRequest, err.Error()}
	}

	stmt, err := p.Parse(pages)
	if err != nil {
		return nil, &requestError{fiber.StatusUnprocessableEntity, fmt.Sprintf("parsing failed: %v", err)}
	}

	h.Logger.Info().
		Str("issuer", string(stmt.Issuer)).
		Str("source_file", stmt.SourceFile).
		Int("rows_parsed", stmt.Stats.RowsParsed).
		Int("rows_skipped", stmt.Stats.RowsSkipped).
		Msg("statement parsed")
	return stmt, nil
}

func (h *Handler) resolveIssuer(param string, pages []string) (models.Issuer, error) {
	if param != "" {
		switch strings.ToLower(param) {
		case "cibc":
			return models.IssuerCIBC, nil
		default:
			return "", &requestError{fiber.StatusBadRequest, fmt.Sprintf("Unknown issuer: %q. Use cibc.", param)}
		}
	}
	issuer, err := parser.AutoDetect(pages)
	if err != nil {
		return "", &requestError{fiber.StatusUnprocessableEntity, err.Error()}
	}
	return issuer, nil
}

func (h *Handler) jsonError(c *fiber.Ctx, err error) error {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return c.Status(reqErr.status).JSON(ConvertResponse{Success: false, Error: reqErr.msg})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(ConvertResponse{Success: false, Error: err.Error()})
}
