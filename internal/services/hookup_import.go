package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/localnerve/lxnotes/internal/csvimport"
	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/types"
	"gorm.io/gorm"
)

// Hookup fields a CSV column can map to
const (
	HookupLWID            = "lwid"
	HookupChannel         = "channel"
	HookupPosition        = "position"
	HookupUnitNumber      = "unitNumber"
	HookupFixtureType     = "fixtureType"
	HookupPurpose         = "purpose"
	HookupUniverse        = "universe"
	HookupAddress         = "address"
	HookupUniverseAddress = "universeAddress"
)

const dmxUniverseSize = 512

// hookupAliases lists the header names Lightwright and similar tools use, normalized
var hookupAliases = map[string][]string{
	HookupLWID:            {"lightwrightid", "lwid", "lwid#", "id"},
	HookupChannel:         {"channel", "chan", "ch"},
	HookupPosition:        {"position", "pos"},
	HookupUnitNumber:      {"unitnumber", "unit#", "unit", "unitno"},
	HookupFixtureType:     {"instrumenttype", "fixturetype", "type"},
	HookupPurpose:         {"purpose", "focus"},
	HookupUniverse:        {"universe", "univ"},
	HookupAddress:         {"address", "dmx", "dmxaddress", "absoluteaddress", "absaddress"},
	HookupUniverseAddress: {"universe/address", "u/a", "dmxuniverse/address"},
}

var requiredHookupFields = []string{HookupLWID, HookupChannel}

// HookupImportOptions controls a hookup import
type HookupImportOptions struct {
	// Mapping maps hookup fields to CSV header names; empty means auto-detect
	Mapping           map[string]string
	DeactivateMissing bool
	MaxBytes          int64
	MaxRowErrors      int
	Delimiter         rune
}

// ImportResult summarizes a hookup import
type ImportResult struct {
	Total       int                  `json:"total"`
	Created     int                  `json:"created"`
	Updated     int                  `json:"updated"`
	Unchanged   int                  `json:"unchanged"`
	Skipped     int                  `json:"skipped"`
	Deactivated int                  `json:"deactivated"`
	Errors      []csvimport.RowError `json:"errors"`
	ErrorCount  int                  `json:"errorCount"`
	Truncated   bool                 `json:"truncated"`
	Mapping     map[string]string    `json:"mapping"`
}

type hookupRow struct {
	line    int
	fixture models.FixtureInfo
}

// ImportHookupCSV reads a Lightwright hookup export and upserts fixtures by lwid.
// Rows with errors are skipped and reported; file level problems fail the import.
func ImportHookupCSV(db *gorm.DB, productionID string, r io.Reader, opts HookupImportOptions) (*ImportResult, error) {
	if _, err := GetProduction(db, productionID); err != nil {
		return nil, err
	}

	data, err := readLimited(r, opts.MaxBytes)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, csvimport.ErrInvalidEncoding
	}

	var parserOpts []csvimport.ParserOption
	if opts.Delimiter != 0 {
		parserOpts = append(parserOpts, csvimport.WithDelimiter(opts.Delimiter))
	}
	parser, err := csvimport.NewParser(bytes.NewReader(data), parserOpts...)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}

	mapping, err := resolveHookupMapping(parser.Headers(), opts.Mapping)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Mapping: mapping}
	errs := csvimport.NewErrorCollection(opts.MaxRowErrors)
	seen := make(map[string]int)
	// Every lwid in the file, including rows skipped for errors
	present := make(map[string]bool)
	var rows []hookupRow

	for {
		row, err := parser.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			var rowErr csvimport.RowError
			if errors.As(err, &rowErr) {
				result.Total++
				result.Skipped++
				errs.Add(rowErr)
				continue
			}
			return nil, err
		}
		if row.IsEmpty() {
			continue
		}
		result.Total++
		if lwid := row.Get(mapping[HookupLWID]); lwid != "" {
			present[lwid] = true
		}

		fixture, ok := parseHookupRow(row, mapping, errs)
		if !ok {
			result.Skipped++
			continue
		}
		if first, dup := seen[fixture.LWID]; dup {
			errs.AddInvalid(row.LineNumber, mapping[HookupLWID], csvimport.ErrCodeDuplicate,
				fmt.Sprintf("lwid already used on row %d", first), fixture.LWID)
			result.Skipped++
			continue
		}
		seen[fixture.LWID] = row.LineNumber
		rows = append(rows, hookupRow{line: row.LineNumber, fixture: fixture})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return upsertFixtures(tx, productionID, rows, present, opts.DeactivateMissing, result)
	})
	if err != nil {
		return nil, err
	}
	InvalidateFixtureIndex(productionID)

	result.Errors = errs.Errors()
	result.ErrorCount = errs.TotalCount()
	result.Truncated = errs.Truncated()
	return result, nil
}

func upsertFixtures(tx *gorm.DB, productionID string, rows []hookupRow, present map[string]bool, deactivateMissing bool, result *ImportResult) error {
	var existing []models.FixtureInfo
	if err := tx.Where("production_id = ?", productionID).Find(&existing).Error; err != nil {
		return err
	}
	byLWID := make(map[string]*models.FixtureInfo, len(existing))
	for i := range existing {
		byLWID[existing[i].LWID] = &existing[i]
	}

	now := time.Now()
	for _, row := range rows {
		incoming := row.fixture
		incoming.ProductionID = productionID
		incoming.IsActive = true
		incoming.Source = models.FixtureSourceHookup
		incoming.LastImportedAt = &now

		current, ok := byLWID[incoming.LWID]
		if !ok {
			if err := tx.Create(&incoming).Error; err != nil {
				return fmt.Errorf("row %d: %w", row.line, err)
			}
			result.Created++
			continue
		}
		if sameFixture(current, &incoming) {
			result.Unchanged++
			continue
		}
		incoming.ID = current.ID
		incoming.CreatedAt = current.CreatedAt
		if err := tx.Save(&incoming).Error; err != nil {
			return fmt.Errorf("row %d: %w", row.line, err)
		}
		result.Updated++
	}

	if deactivateMissing {
		var missing []string
		for _, f := range existing {
			if !present[f.LWID] && f.IsActive && f.Source == models.FixtureSourceHookup {
				missing = append(missing, f.ID)
			}
		}
		if len(missing) > 0 {
			res := tx.Model(&models.FixtureInfo{}).Where("id IN ?", missing).Update("is_active", false)
			if res.Error != nil {
				return res.Error
			}
			result.Deactivated = int(res.RowsAffected)
		}
	}

	if result.Created+result.Updated+result.Deactivated > 0 {
		return touchProduction(tx, productionID)
	}
	return nil
}

func sameFixture(a, b *models.FixtureInfo) bool {
	return a.IsActive == b.IsActive &&
		a.Source == b.Source &&
		a.Channel == b.Channel &&
		a.Position == b.Position &&
		a.UnitNumber == b.UnitNumber &&
		a.FixtureType == b.FixtureType &&
		a.Purpose == b.Purpose &&
		a.Universe == b.Universe &&
		a.Address == b.Address &&
		a.UniverseAddressRaw == b.UniverseAddressRaw
}

// parseHookupRow validates one data row, recording problems in errs
func parseHookupRow(row *csvimport.Row, mapping map[string]string, errs *csvimport.ErrorCollection) (models.FixtureInfo, bool) {
	get := func(field string) string {
		if header, ok := mapping[field]; ok {
			return row.Get(header)
		}
		return ""
	}
	ok := true

	fixture := models.FixtureInfo{
		LWID:        get(HookupLWID),
		Position:    get(HookupPosition),
		UnitNumber:  get(HookupUnitNumber),
		FixtureType: get(HookupFixtureType),
		Purpose:     get(HookupPurpose),
	}
	if fixture.LWID == "" {
		errs.AddRequired(row.LineNumber, mapping[HookupLWID])
		ok = false
	}

	if raw := get(HookupChannel); raw == "" {
		errs.AddRequired(row.LineNumber, mapping[HookupChannel])
		ok = false
	} else if channel, valid := ParseChannel(raw); !valid {
		errs.AddInvalid(row.LineNumber, mapping[HookupChannel], csvimport.ErrCodeInvalidType,
			"channel must be a positive integer", raw)
		ok = false
	} else {
		fixture.Channel = channel
	}

	universe, address, raw, column, err := parseUniverseAddress(get(HookupUniverseAddress), get(HookupUniverse), get(HookupAddress))
	if err != nil {
		err.Row = row.LineNumber
		err.Column = mapping[column]
		errs.Add(*err)
		ok = false
	}
	fixture.Universe, fixture.Address, fixture.UniverseAddressRaw = universe, address, raw

	return fixture, ok
}

// parseUniverseAddress accepts a combined "2/101" value, separate universe and address
// columns, or an absolute address. Empty input means the unit is not patched.
func parseUniverseAddress(combined, universeText, addressText string) (int, int, string, string, *csvimport.RowError) {
	invalid := func(field, code, msg, value string) (int, int, string, string, *csvimport.RowError) {
		return 0, 0, "", field, &csvimport.RowError{Code: code, Message: msg, Value: value}
	}

	var universe, address int
	var raw, field string

	switch {
	case combined != "":
		field, raw = HookupUniverseAddress, combined
		parts := strings.FieldsFunc(combined, func(r rune) bool { return r == '/' || r == '.' || r == '-' || r == ':' })
		switch len(parts) {
		case 1:
			abs, err := strconv.Atoi(strings.TrimSpace(parts[0]))
			if err != nil {
				return invalid(field, csvimport.ErrCodeInvalidFormat, "universe/address must look like 2/101", combined)
			}
			universe, address = fromAbsoluteAddress(abs)
		case 2:
			u, errU := strconv.Atoi(strings.TrimSpace(parts[0]))
			a, errA := strconv.Atoi(strings.TrimSpace(parts[1]))
			if errU != nil || errA != nil {
				return invalid(field, csvimport.ErrCodeInvalidFormat, "universe/address must look like 2/101", combined)
			}
			universe, address = u, a
		default:
			return invalid(field, csvimport.ErrCodeInvalidFormat, "universe/address must look like 2/101", combined)
		}

	case addressText != "":
		field = HookupAddress
		a, err := strconv.Atoi(addressText)
		if err != nil {
			return invalid(field, csvimport.ErrCodeInvalidType, "address must be numeric", addressText)
		}
		if universeText == "" {
			universe, address = fromAbsoluteAddress(a)
		} else {
			u, err := strconv.Atoi(universeText)
			if err != nil {
				return invalid(HookupUniverse, csvimport.ErrCodeInvalidType, "universe must be numeric", universeText)
			}
			universe, address = u, a
		}
		raw = fmt.Sprintf("%d/%d", universe, address)

	case universeText != "":
		return invalid(HookupAddress, csvimport.ErrCodeRequiredField, "address is required when universe is set", "")

	default:
		return 0, 0, "", "", nil
	}

	if universe < 1 {
		return invalid(field, csvimport.ErrCodeInvalidRange, "universe must be 1 or greater", raw)
	}
	if address < 1 || address > dmxUniverseSize {
		return invalid(field, csvimport.ErrCodeInvalidRange, "address must be between 1 and 512", raw)
	}
	return universe, address, raw, field, nil
}

// fromAbsoluteAddress converts an absolute DMX address into universe and address.
// Non-positive values are returned as universe 1 so range checks reject them.
func fromAbsoluteAddress(abs int) (int, int) {
	if abs <= dmxUniverseSize {
		return 1, abs
	}
	return (abs-1)/dmxUniverseSize + 1, (abs-1)%dmxUniverseSize + 1
}

// resolveHookupMapping validates an explicit mapping or detects one from the headers
func resolveHookupMapping(headers []string, explicit map[string]string) (map[string]string, error) {
	mapping := make(map[string]string)
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	if len(explicit) > 0 {
		for field, header := range explicit {
			if _, known := hookupAliases[field]; !known {
				return nil, types.Validationf("unknown hookup field '%s'", field)
			}
			header = strings.TrimSpace(header)
			if header == "" {
				continue
			}
			if !present[header] {
				return nil, importError("mapped column '%s' not found in file", header)
			}
			mapping[field] = header
		}
	} else {
		normalized := make(map[string]string, len(headers))
		for _, h := range headers {
			if n := normalizeHeader(h); n != "" {
				if _, dup := normalized[n]; !dup {
					normalized[n] = h
				}
			}
		}
		used := make(map[string]bool)
		for _, field := range hookupFieldOrder {
			for _, alias := range hookupAliases[field] {
				if h, ok := normalized[alias]; ok && !used[h] {
					mapping[field] = h
					used[h] = true
					break
				}
			}
		}
	}

	var missing []string
	for _, field := range requiredHookupFields {
		if _, ok := mapping[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, importError("missing required columns: %s", strings.Join(missing, ", "))
	}
	return mapping, nil
}

// hookupFieldOrder claims headers for the specific fields before the generic ones
var hookupFieldOrder = []string{
	HookupUniverseAddress,
	HookupLWID,
	HookupChannel,
	HookupUnitNumber,
	HookupFixtureType,
	HookupPosition,
	HookupPurpose,
	HookupUniverse,
	HookupAddress,
}

func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '/' || r == '#' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, csvimport.ErrFileTooLarge
	}
	return data, nil
}

func importError(format string, args ...any) *types.CustomError {
	return &types.CustomError{
		Code:    http.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
		Type:    types.ErrTypeImport,
	}
}
