package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Transfer is one row of a property transfer list.
type Transfer struct {
	RollNumber       string  `json:"roll_number,omitempty"`
	Address          string  `json:"address,omitempty"`
	Vendor           string  `json:"vendor,omitempty"`
	Purchaser        string  `json:"purchaser,omitempty"`
	SalesDate        string  `json:"sales_date,omitempty"`
	SalesPrice       float64 `json:"sales_price,omitempty"`
	PropertyTypeCode string  `json:"property_type_code,omitempty"`
	PropertyType     string  `json:"property_type,omitempty"`
}

// Columns: Roll #, Civic_Address, Vendor, Purchaser, Sales_Date,
// Sales_Price, PPT, PPT_Descriptor.
const transferColumns = 8

// ParseTransferList reads a property transfer list in CSV form. The
// first row is treated as headers and skipped; rows with fewer than
// eight columns or no values are dropped.
func ParseTransferList(r io.Reader) ([]Transfer, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var records []Transfer
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read transfer list: %w", err)
		}

		if first {
			first = false
			continue
		}
		if len(row) < transferColumns || allEmpty(row) {
			continue
		}

		transfer := Transfer{
			RollNumber:       strings.TrimSpace(row[0]),
			Address:          strings.TrimSpace(row[1]),
			Vendor:           cleanName(row[2]),
			Purchaser:        cleanName(row[3]),
			SalesDate:        formatDate(row[4]),
			PropertyTypeCode: strings.TrimSpace(row[6]),
			PropertyType:     strings.TrimSpace(row[7]),
		}
		if price := strings.TrimSpace(row[5]); price != "" {
			parsed, err := strconv.ParseFloat(strings.ReplaceAll(price, ",", ""), 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse sales price %q: %w", price, err)
			}
			transfer.SalesPrice = parsed
		}

		records = append(records, transfer)
	}

	return records, nil
}

func cleanName(val string) string {
	return strings.Join(strings.Fields(val), " ")
}

// formatDate normalizes common spreadsheet date renderings to ISO;
// anything unrecognized passes through untouched.
func formatDate(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02", "1/2/2006", "01/02/2006", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, val); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return val
}

func allEmpty(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
