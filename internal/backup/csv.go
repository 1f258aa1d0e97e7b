// Package backup exports the catalogue as CSV.
package backup

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/tdhoang/gramlist/internal/store"
)

// Export reads the store fresh and renders every record as CSV, header row
// first.
func Export(ctx context.Context, st store.Store) ([]byte, error) {
	records, err := st.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"URL", "username", "full_name", "profile_pic_url", "Rating"}); err != nil {
		return nil, err
	}
	for _, r := range records {
		rating := ""
		if r.Rated() {
			rating = strconv.Itoa(r.Rating)
		}
		if err := w.Write([]string{r.URL, r.Username, r.FullName, r.AvatarURL, rating}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
