package local

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/scrape"
)

func TestSaveWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	target := leads.ScrapeTarget{URL: "https://jobs.example.com", Kind: leads.KindJobBoard}
	page := scrape.FetchResponse{Body: []byte("<html>hi</html>")}
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	uri, err := s.Save(context.Background(), target, page, at)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"), uri)

	body, err := os.ReadFile(strings.TrimPrefix(uri, "file://"))
	require.NoError(t, err)
	assert.Equal(t, page.Body, body)
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)
}
