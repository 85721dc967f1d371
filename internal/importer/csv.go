package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/storefront/internal/domain"
)

// DefaultDelimiter separates the fields of every import file.
const DefaultDelimiter = ';'

// OrderItemRow is one line of OrderItems.csv. Customer and order columns
// repeat on every item of the same order.
type OrderItemRow struct {
	Line       int
	OrderNr    string
	Date       time.Time
	CustomerNr string
	LastName   string
	FirstName  string
	ProductNr  string
	Amount     int
	OrderType  domain.OrderType
}

// ProductCategoryRow is one line of ProductCategory.csv.
type ProductCategoryRow struct {
	Line         int
	ProductNr    string
	CategoryName string
}

// dateLayouts are tried in order when parsing the order date column.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// readRecords reads every record after the header row. Each record must
// have exactly fields columns.
func readRecords(r io.Reader, delimiter rune, fields int, visit func(line int, record []string) error) error {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = fields
	reader.TrimLeadingSpace = true

	// Read header
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to read header: %w", err)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("malformed record: %w", err)
		}
		line, _ := reader.FieldPos(0)
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		if err := visit(line, record); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

// ReadProducts parses Products.csv: nr; name; price.
func ReadProducts(r io.Reader, delimiter rune) ([]*domain.Product, error) {
	var products []*domain.Product
	err := readRecords(r, delimiter, 3, func(line int, record []string) error {
		price, err := parsePrice(record[2])
		if err != nil {
			return err
		}
		products = append(products, &domain.Product{
			ProductNr: record[0],
			Name:      record[1],
			Price:     price,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return products, nil
}

// ReadOrderItems parses OrderItems.csv:
// orderNr; date; customerNr; lastName; firstName; productNr; amount; orderType.
func ReadOrderItems(r io.Reader, delimiter rune) ([]OrderItemRow, error) {
	var rows []OrderItemRow
	err := readRecords(r, delimiter, 8, func(line int, record []string) error {
		date, err := parseDate(record[1])
		if err != nil {
			return err
		}
		amount, err := strconv.Atoi(record[6])
		if err != nil {
			return fmt.Errorf("invalid amount %q", record[6])
		}
		orderType, err := parseOrderType(record[7])
		if err != nil {
			return err
		}
		rows = append(rows, OrderItemRow{
			Line:       line,
			OrderNr:    record[0],
			Date:       date,
			CustomerNr: record[2],
			LastName:   record[3],
			FirstName:  record[4],
			ProductNr:  record[5],
			Amount:     amount,
			OrderType:  orderType,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}
	return rows, nil
}

// ReadProductCategories parses ProductCategory.csv: productNr; categoryName.
func ReadProductCategories(r io.Reader, delimiter rune) ([]ProductCategoryRow, error) {
	var rows []ProductCategoryRow
	err := readRecords(r, delimiter, 2, func(line int, record []string) error {
		rows = append(rows, ProductCategoryRow{
			Line:         line,
			ProductNr:    record[0],
			CategoryName: record[1],
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read product categories: %w", err)
	}
	return rows, nil
}

// parsePrice accepts a decimal point or a decimal comma.
func parsePrice(s string) (float64, error) {
	price, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return price, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseOrderType matches order type names case-insensitively.
func parseOrderType(s string) (domain.OrderType, error) {
	for _, t := range []domain.OrderType{domain.OrderTypeStandard, domain.OrderTypeExpress, domain.OrderTypeWholesale} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown order type %q", s)
}
