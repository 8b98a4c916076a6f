package history

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundtrip/internal/store"
	"soundtrip/internal/story"
)

func openSQLite(t *testing.T, path string) *store.SQLite {
	t.Helper()
	kv, err := store.NewSQLite(store.DriverModernc, path)
	require.NoError(t, err)
	return kv
}

func kyotoStory() SavedStory {
	return SavedStory{
		Form: story.Form{City: "京都", Date: "2024-03-01", TimeOfDay: "夕方", Comment: "雨でも"},
		Story: story.Response{
			ID:    "abc123",
			Title: "鴨川の夕暮れ",
			Chapters: []story.Chapter{
				{Name: "出発", Text: "三条大橋から歩き出す。"},
				{Name: "路地", Text: "先斗町の灯りがともる。"},
			},
			SunoLyrics:       "川の音\n鐘の音",
			AffiliateContext: &story.AffiliateContext{Themes: []string{"tea"}},
			AudioURL:         "/audio/abc123.mp3",
		},
		SavedAt: time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC),
	}
}

func TestStore_SaveReopenRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "soundtrip.db")

	kv := openSQLite(t, path)
	s := New(kv)
	_, err := s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, kyotoStory()))
	require.NoError(t, kv.Close())

	kv = openSQLite(t, path)
	defer kv.Close()
	reopened := New(kv)
	report, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Entries)
	assert.False(t, report.Migrated)

	got, ok := reopened.Get("2024-03-01")
	require.True(t, ok)
	if diff := cmp.Diff(kyotoStory(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_SameDateLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory())
	_, err := s.Load(ctx)
	require.NoError(t, err)

	first := kyotoStory()
	second := kyotoStory()
	second.Story.Title = "二度目の京都"
	second.Form.Comment = ""

	require.NoError(t, s.Save(ctx, first))
	require.NoError(t, s.Save(ctx, second))

	assert.Equal(t, []string{"2024-03-01"}, s.Dates())
	got, ok := s.Get("2024-03-01")
	require.True(t, ok)
	assert.Equal(t, "二度目の京都", got.Story.Title)
	assert.Equal(t, "", got.Form.Comment)
}

func TestStore_DatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory())

	for _, date := range []string{"2024-03-01", "2024-12-24", "2023-07-15"} {
		entry := kyotoStory()
		entry.Form.Date = date
		require.NoError(t, s.Save(ctx, entry), "save without explicit Load should lazily load")
	}
	assert.Equal(t, []string{"2024-12-24", "2024-03-01", "2023-07-15"}, s.Dates())
	assert.Len(t, s.All(), 3)
}

func TestStore_SaveStampsMissingTime(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory())
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	entry := kyotoStory()
	entry.SavedAt = time.Time{}
	require.NoError(t, s.Save(ctx, entry))

	got, _ := s.Get("2024-03-01")
	assert.Equal(t, fixed, got.SavedAt)
}

func TestStore_GetDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory())
	require.NoError(t, s.Save(ctx, kyotoStory()))

	got, _ := s.Get("2024-03-01")
	got.Story.Chapters[0].Text = "changed"

	again, _ := s.Get("2024-03-01")
	assert.Equal(t, "三条大橋から歩き出す。", again.Story.Chapters[0].Text)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := New(kv)
	require.NoError(t, s.Save(ctx, kyotoStory()))

	require.NoError(t, s.Delete(ctx, "2024-03-01"))
	_, ok := s.Get("2024-03-01")
	assert.False(t, ok)

	err := s.Delete(ctx, "2024-03-01")
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)

	reloaded := New(kv)
	_, err = reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Dates())
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory())
	require.NoError(t, s.Save(ctx, kyotoStory()))

	require.NoError(t, s.Update(ctx, "2024-03-01", func(e *SavedStory) {
		e.Story.AudioURL = "/audio/abc123-v2.mp3"
	}))
	got, _ := s.Get("2024-03-01")
	assert.Equal(t, "/audio/abc123-v2.mp3", got.Story.AudioURL)

	err := s.Update(ctx, "1999-01-01", func(*SavedStory) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_LoadMissingKeyIsEmpty(t *testing.T) {
	s := New(store.NewMemory())
	report, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, report.FromVersion)
	assert.Zero(t, report.Entries)
	assert.Empty(t, s.Dates())
}

func TestStore_MigratesLegacyMap(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	legacy := `{
		"2024-03-01": {
			"title": "鴨川の夕暮れ",
			"chapters": [{"name": "出発", "text": "三条大橋から歩き出す。"}],
			"sunoLyrics": "",
			"audioUrl": null,
			"city": "京都",
			"date": "2024-03-01",
			"timeOfDay": "夕方",
			"comment": "",
			"savedAt": "2024-03-01T09:30:00.000Z"
		},
		"2024-04-10": {
			"title": "金沢",
			"audioUrl": "/audio/k.mp3",
			"city": "金沢",
			"timeOfDay": "朝"
		}
	}`
	require.NoError(t, kv.Set(ctx, HistoryKey, legacy))

	s := New(kv)
	report, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FromVersion)
	assert.True(t, report.Migrated)
	assert.Equal(t, 2, report.Entries)
	assert.Empty(t, report.Skipped)

	kyoto, ok := s.Get("2024-03-01")
	require.True(t, ok)
	assert.Equal(t, story.Form{City: "京都", Date: "2024-03-01", TimeOfDay: "夕方"}, kyoto.Form)
	assert.Equal(t, "", kyoto.Story.AudioURL)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), kyoto.SavedAt.UTC())

	kanazawa, ok := s.Get("2024-04-10")
	require.True(t, ok)
	assert.Equal(t, "2024-04-10", kanazawa.Form.Date, "date comes from the map key")
	assert.Equal(t, []story.Chapter{}, kanazawa.Story.Chapters)
	assert.Equal(t, "/audio/k.mp3", kanazawa.Story.AudioURL)

	raw, _, err := kv.Get(ctx, HistoryKey)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, SchemaVersion, env.Version, "migrated history should be written back")
	assert.Len(t, env.Entries, 2)
}

func TestStore_SkipsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, HistoryKey, `{
		"version": 2,
		"entries": {
			"2024-03-01": {"form": {"city": "京都", "date": "2024-03-01"}, "story": {"title": "ok", "chapters": []}},
			"2024-03-02": {"form": "not an object", "story": 42},
			"2024-03-03": "garbage"
		}
	}`))

	s := New(kv)
	report, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-02", "2024-03-03"}, report.Skipped)
	assert.Equal(t, 1, report.Entries)
	assert.Equal(t, []string{"2024-03-01"}, s.Dates())

	// Unreadable entries survive a later save untouched.
	entry := kyotoStory()
	entry.Form.Date = "2024-05-05"
	require.NoError(t, s.Save(ctx, entry))

	raw, _, err := kv.Get(ctx, HistoryKey)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Len(t, env.Entries, 4)
	assert.JSONEq(t, `"garbage"`, string(env.Entries["2024-03-03"]))
}

func TestStore_CorruptValueMovedAside(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, HistoryKey, `{{{`))

	s := New(kv)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	report, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, HistoryKey+".corrupt-1700000000", report.BackupKey)

	backup, ok, err := kv.Get(ctx, report.BackupKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{{{`, backup)

	_, ok, err = kv.Get(ctx, HistoryKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_NewerSchemaRefusesWrites(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	future := `{"version": 9, "entries": {}}`
	require.NoError(t, kv.Set(ctx, HistoryKey, future))

	s := New(kv)
	report, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNewerSchema)
	require.NotNil(t, report)
	assert.Equal(t, 9, report.FromVersion)

	assert.ErrorIs(t, s.Save(ctx, kyotoStory()), ErrNewerSchema)
	assert.ErrorIs(t, s.Delete(ctx, "2024-03-01"), ErrNewerSchema)

	raw, _, err := kv.Get(ctx, HistoryKey)
	require.NoError(t, err)
	assert.Equal(t, future, raw, "stored value must not be clobbered")
}

func TestStore_ReadFailureIsReturned(t *testing.T) {
	kv := store.NewMemory()
	require.NoError(t, kv.Close())

	_, err := New(kv).Load(context.Background())
	assert.ErrorIs(t, err, store.ErrClosed)
}
