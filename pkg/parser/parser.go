package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/yurifrl/ezimport/pkg/models"
)

// Source export field names.
const (
	fieldID          = "Id"
	fieldDate        = "BookgDt"
	fieldAmount      = "Amt"
	fieldDescription = "RmtInf"
	fieldDirection   = "CdtDbtInd"
	fieldCategory    = "Category"
	fieldStatus      = "BookgSts"
)

var requiredFields = []string{fieldID, fieldDate, fieldAmount, fieldDescription, fieldDirection}

// ErrMissingField is wrapped by EntryError when a required field is absent.
var ErrMissingField = errors.New("missing required field")

// EntryError describes one export entry that could not be turned into a record.
type EntryError struct {
	ID  string
	Raw json.RawMessage
	Err error
}

func (e *EntryError) Error() string {
	id := e.ID
	if id == "" {
		id = "UNKNOWN"
	}
	return fmt.Sprintf("entry %s: %v", id, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Result is the outcome of parsing one export file.
type Result struct {
	AccountID string
	Records   []*models.SourceRecord
	// Pending counts entries skipped because they are not booked yet.
	Pending  int
	Failures []*EntryError
}

type Parser struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Parser {
	return &Parser{
		logger: logger,
	}
}

// AccountID derives the source account id from an export file name.
func AccountID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseFile reads an export file whose name stem is the source account id.
func (p *Parser) ParseFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}
	return p.ProcessBytes(data, AccountID(path))
}

// ProcessBytes decodes a JSON array of export entries. Only a malformed
// document is an error; broken entries are collected in Result.Failures.
func (p *Parser) ProcessBytes(data []byte, accountID string) (*Result, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}

	p.logger.Debug("parsing export", "account", accountID, "entries", len(entries))

	res := &Result{AccountID: accountID, Records: make([]*models.SourceRecord, 0, len(entries))}
	for i, raw := range entries {
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			res.Failures = append(res.Failures, &EntryError{Raw: raw, Err: fmt.Errorf("entry %d is not an object: %w", i, err)})
			continue
		}

		// pending entries carry no stable booking date
		status, err := bookingStatus(fields)
		if err != nil || status != models.Booked {
			p.logger.Debug("skipping unbooked entry", "account", accountID, "index", i, "status", status)
			res.Pending++
			continue
		}

		rec, err := buildRecord(fields, accountID)
		if err != nil {
			id, _ := text(fields, fieldID)
			res.Failures = append(res.Failures, &EntryError{ID: id, Raw: raw, Err: err})
			continue
		}
		res.Records = append(res.Records, rec)
	}

	return res, nil
}

func bookingStatus(fields map[string]json.RawMessage) (models.BookingStatus, error) {
	s, err := text(fields, fieldStatus)
	if err != nil {
		return "", err
	}
	if s == "" {
		return models.Booked, nil
	}
	return models.BookingStatus(s), nil
}

func buildRecord(fields map[string]json.RawMessage, accountID string) (*models.SourceRecord, error) {
	var missing []string
	for _, f := range requiredFields {
		if raw, ok := fields[f]; !ok || isNull(raw) && f != fieldDescription {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	id, err := text(fields, fieldID)
	if err != nil || id == "" {
		return nil, fmt.Errorf("invalid %s", fieldID)
	}

	dateStr, err := text(fields, fieldDate)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldDate, err)
	}
	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", fieldDate, dateStr, err)
	}

	amountStr, err := text(fields, fieldAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldAmount, err)
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", fieldAmount, amountStr, err)
	}

	description, err := text(fields, fieldDescription)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldDescription, err)
	}

	dirStr, err := text(fields, fieldDirection)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldDirection, err)
	}
	direction := models.Direction(dirStr)
	if !direction.Valid() {
		return nil, fmt.Errorf("invalid %s %q", fieldDirection, dirStr)
	}

	category, err := text(fields, fieldCategory)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldCategory, err)
	}

	return &models.SourceRecord{
		ID:          id,
		BookingDate: date,
		Amount:      amount.Abs(),
		Description: description,
		Direction:   direction,
		Category:    category,
		Status:      models.Booked,
		AccountID:   accountID,
	}, nil
}

// parseAmount accepts "12.34", "-12.34" and the comma form "12,34".
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

// text returns a string or number field as string. Absent and null yield "".
func text(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%s is neither string nor number", key)
	}
	return n.String(), nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
