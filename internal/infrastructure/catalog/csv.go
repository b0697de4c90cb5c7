package catalog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
)

func parseCSV(data []byte) ([]domain.Product, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = canonicalHeader(name)
	}

	var products []domain.Product
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}

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
