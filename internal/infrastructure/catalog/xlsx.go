package catalog

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
)

func parseXLSX(data []byte) ([]domain.Product, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make([]string, len(rows[0]))
	for i, name := range rows[0] {
		columns[i] = canonicalHeader(name)
	}

	var products []domain.Product
	for _, record := range rows[1:] {
		row := make(map[string]string, len(columns))
		for i, value := range record {
			if i >= len(columns) {
				break
			}
			row[columns[i]] = value
		}
		if p, ok := rowToProduct(row); ok {
			products = append(products, p)
		}
	}
	return products, nil
}
