package backup

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tdhoang/gramlist/internal/store"
	"github.com/tdhoang/gramlist/internal/testsupport"
)

func TestExport(t *testing.T) {
	st := testsupport.NewMemoryStore(
		store.Record{URL: "https://www.instagram.com/alice/", FullName: "Alice Wonder", AvatarURL: "https://cdn/a.jpg", Rating: 5},
		store.Record{URL: "https://www.instagram.com/bob/"},
	)

	data, err := Export(context.Background(), st)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"URL", "username", "full_name", "profile_pic_url", "Rating"}, rows[0])
	require.Equal(t, []string{"https://www.instagram.com/alice/", "alice", "Alice Wonder", "https://cdn/a.jpg", "5"}, rows[1])
	require.Equal(t, []string{"https://www.instagram.com/bob/", "bob", "", "", ""}, rows[2])
}

func TestExportEmpty(t *testing.T) {
	data, err := Export(context.Background(), testsupport.NewMemoryStore())
	require.NoError(t, err)
	require.Equal(t, 1, len(strings.Split(strings.TrimSpace(string(data)), "\n")))
}
