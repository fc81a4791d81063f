package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neovoice/escapebot/internal/content"
	"github.com/neovoice/escapebot/internal/domain"
)

const testCodeWord = "LIBERATION"

// testCatalog builds a 10-day catalog where every day has one choice task
// and one voice task.
func testCatalog(t *testing.T) *content.Catalog {
	t.Helper()
	dir := t.TempDir()

	for n := 1; n <= 10; n++ {
		day := map[string]any{
			"day_number": n,
			"title":      fmt.Sprintf("Day %d", n),
			"video":      "https://example.com/video",
			"brief":      "briefing",
			"tasks": []map[string]any{
				{
					"task_number":    1,
					"type":           "choice",
					"title":          "Pick one",
					"question":       "2+2?",
					"options":        []string{"3", "4"},
					"correct_answer": "4",
					"hints":          []string{"count fingers"},
				},
				{
					"task_number":    2,
					"type":           "voice",
					"title":          "Say it",
					"voice_prompt":   "Say: my name is ...",
					"voice_keywords": []string{"my name is"},
				},
			},
		}
		data, err := json.Marshal(day)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("day_%02d.json", n)), data, 0o644))
	}

	catalog, err := content.Load(dir, testCodeWord, 10)
	require.NoError(t, err)
	return catalog
}

// seedUser creates a user with course access on day 1.
func seedUser(t *testing.T, store *memStore, catalog *content.Catalog, telegramID int64) *domain.User {
	t.Helper()
	ctx := context.Background()

	users := NewUserService(store, catalog)
	user, isNew, err := users.FindOrCreate(ctx, telegramID, "Neo", "", "neo", "Europe/Moscow", false)
	require.NoError(t, err)
	require.True(t, isNew)

	require.NoError(t, store.GrantUserAccess(ctx, user.ID, time.Now().UTC()))

	user, err = store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	return user
}
