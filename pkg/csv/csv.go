package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Header is the first row written by Create.
var Header = []string{"Date", "Type", "Account", "Destination", "Category", "Amount", "Comment"}

type Record interface {
	Date() string
	Kind() string
	Account() string
	Destination() string
	Category() string
	Amount() string
	Comment() string
}

type FilterFunc[T Record] func(T) bool

func Create[T Record](records []T, filter FilterFunc[T]) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		if filter != nil && !filter(r) {
			continue
		}
		row := []string{r.Date(), r.Kind(), r.Account(), r.Destination(), r.Category(), r.Amount(), r.Comment()}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
