package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

// DataType identifies the record kind a CSV upload carries.
type DataType string

const (
	DataTypeProducts      DataType = "products"
	DataTypeDailyFinances DataType = "dailyFinances"
	DataTypeInvoices      DataType = "invoices"
)

// Required column sets per data type. A row missing any of these is rejected.
var requiredFields = map[DataType][]string{
	DataTypeProducts: {
		"productName", "runDate", "ber", "status", "researchMethod", "category",
		"verkoopPrijs", "link", "prijs", "land", "video1", "btw", "mergeExBtw",
		"mergeInBtw", "avatarUrl",
	},
	DataTypeDailyFinances: {
		"date", "revenue", "orders", "adSpend", "roas", "refunds", "cog",
		"profitLoss", "margin",
	},
	DataTypeInvoices: {
		"date", "amount", "category", "business", "facture", "notes",
	},
}

// Row is a parsed CSV record keyed by header name.
type Row map[string]string

// Parse reads the CSV stream into rows keyed by the header line and validates
// every row against the required-field list for the data type. Blank rows are
// skipped; any row missing a required value aborts the whole parse.
func Parse(r io.Reader, dataType DataType) ([]Row, error) {
	fields, ok := requiredFields[dataType]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrBadFileFormat, fmt.Sprintf("unknown data type %q", dataType))
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, appErrors.Clone(appErrors.ErrBadFileFormat, "file is empty")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrBadFileFormat.Code, appErrors.ErrBadFileFormat.Status, "failed to read csv header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrBadFileFormat.Code, appErrors.ErrBadFileFormat.Status, "failed to read csv row")
		}

		row := make(Row, len(header))
		empty := true
		for i, value := range record {
			if i >= len(header) {
				break
			}
			value = strings.TrimSpace(value)
			if value != "" {
				empty = false
			}
			row[header[i]] = value
		}
		if empty {
			continue
		}

		for _, field := range fields {
			if row[field] == "" {
				return nil, appErrors.Clone(appErrors.ErrBadFileFormat, "Data is not in proper format")
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// RequiredFields exposes the column list for a data type, used by exporters to
// keep upload and download formats symmetric.
func RequiredFields(dataType DataType) []string {
	fields := requiredFields[dataType]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}
