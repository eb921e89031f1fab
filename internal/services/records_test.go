package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/t3vo/internal/common"
	"github.com/dmitrijs2005/t3vo/internal/cryptox"
	"github.com/dmitrijs2005/t3vo/internal/logging"
	"github.com/dmitrijs2005/t3vo/internal/models"
	"github.com/dmitrijs2005/t3vo/internal/registry"
	"github.com/dmitrijs2005/t3vo/internal/repositories/records"
	"github.com/dmitrijs2005/t3vo/internal/session"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = cryptox.KDFParams{MemoryKiB: cryptox.MinKDFMemoryKiB, Iterations: 1, Parallelism: 1}

type env struct {
	reg   *registry.Registry
	codec *cryptox.Codec
	logs  *bytes.Buffer
	log   logging.Logger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	codec, err := cryptox.NewCodec(testParams)
	require.NoError(t, err)

	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(logging.NewRedactingHandler(slog.NewTextHandler(&buf, nil))))

	reg := registry.New(filepath.Join(t.TempDir(), "data"), logging.Discard())
	t.Cleanup(func() { _ = reg.Close() })
	return &env{reg: reg, codec: codec, logs: &buf, log: log}
}

func unlock(t *testing.T, passphrase string) *session.Session {
	t.Helper()
	s := session.New()
	require.NoError(t, s.Unlock([]byte(passphrase)))
	t.Cleanup(s.Lock)
	return s
}

func (e *env) service(t *testing.T, keys cryptox.KeySource) *RecordService {
	t.Helper()
	db, err := e.reg.Open(context.Background(), keys)
	require.NoError(t, err)
	return NewRecordService(db, e.codec, e.log)
}

func listIDs(t *testing.T, svc *RecordService, c models.Collection) []string {
	t.Helper()
	var out []string
	for m, err := range svc.List(context.Background(), c, records.OrderByID) {
		require.NoError(t, err)
		out = append(out, m.ID)
	}
	return out
}

func TestCreateRead_RoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s := unlock(t, "k")
	svc := e.service(t, s)

	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	want := models.Password{Username: "u", Email: "u@x", Password: "p", TOTPSecret: "JBSWY3DP", URLs: []string{"https://x"}}
	created, err := svc.Create(ctx, s, models.Passwords, "bank", want)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.True(t, fixed.Equal(created.UpdatedAt))

	got, err := svc.Read(ctx, s, models.Passwords, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Unreadable)
	assert.Equal(t, "bank", got.Title)
	assert.True(t, fixed.Equal(got.UpdatedAt))

	p, err := models.DecodePayload[models.Password](got)
	require.NoError(t, err)
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_StoresCiphertextOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s := unlock(t, "k")

	db, err := e.reg.Open(ctx, s)
	require.NoError(t, err)
	svc := NewRecordService(db, e.codec, e.log)

	rec, err := svc.Create(ctx, s, models.Notes, "diary", models.Note{Content: "very secret text", Tags: []string{"x"}})
	require.NoError(t, err)

	var payload string
	var content, tags any
	require.NoError(t, db.DB().QueryRow(`SELECT payload, content, tags FROM notes WHERE id = ?`, rec.ID).Scan(&payload, &content, &tags))
	assert.NotContains(t, payload, "very secret text")
	assert.Nil(t, content)
	assert.Nil(t, tags)
}

func TestEndToEnd_CorrectAndWrongHorse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	correct := unlock(t, "correct-horse")
	svc := e.service(t, correct)

	rec, err := svc.Create(ctx, correct, models.Notes, "T", map[string]any{"content": "secret", "tags": []string{"a"}})
	require.NoError(t, err)

	got, err := svc.Read(ctx, correct, models.Notes, rec.ID)
	require.NoError(t, err)
	require.False(t, got.Unreadable)
	assert.JSONEq(t, `{"content":"secret","tags":["a"]}`, string(got.Payload))

	// wrong key against the same database: the record exists but is unreadable
	wrong := unlock(t, "wrong-horse")
	got, err = svc.Read(ctx, wrong, models.Notes, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.Unreadable)
	assert.Nil(t, got.Payload)
	assert.Equal(t, "T", got.Title)
	assert.Contains(t, e.logs.String(), "record payload cannot be decrypted")

	_, err = models.DecodePayload[models.Note](got)
	require.ErrorIs(t, err, models.ErrUnreadable)
}

func TestIsolation_NewPassphraseSeesEmptyDatabase(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := unlock(t, "correct-horse")
	svcA := e.service(t, a)
	_, err := svcA.Create(ctx, a, models.Bookmarks, "site", models.Bookmark{URL: "https://x"})
	require.NoError(t, err)

	b := unlock(t, "wrong-horse")
	svcB := e.service(t, b)
	assert.Empty(t, listIDs(t, svcB, models.Bookmarks))
	assert.Len(t, listIDs(t, svcA, models.Bookmarks), 1)
}

func TestListAfterDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s := unlock(t, "k")
	svc := e.service(t, s)

	r1, err := svc.Create(ctx, s, models.Notes, "one", models.Note{Content: "1"})
	require.NoError(t, err)
	r2, err := svc.Create(ctx, s, models.Notes, "two", models.Note{Content: "2"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, models.Notes, r1.ID))

	assert.Equal(t, []string{r2.ID}, listIDs(t, svc, models.Notes))

	_, err = svc.Read(ctx, s, models.Notes, r1.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.ErrorIs(t, svc.Delete(ctx, models.Notes, r1.ID), common.ErrorNotFound)

	n, err := svc.Count(ctx, models.Notes)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestList_ReturnsMetaWithoutKey(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s := unlock(t, "k")
	svc := e.service(t, s)

	_, err := svc.Create(ctx, s, models.Notes, "b-title", models.Note{})
	require.NoError(t, err)
	_, err = svc.Create(ctx, s, models.Notes, "a-title", models.Note{})
	require.NoError(t, err)

	s.Lock()

	var titles []string
	for m, err := range svc.List(ctx, models.Notes, records.OrderByTitle) {
		require.NoError(t, err)
		titles = append(titles, m.Title)
	}
	assert.Equal(t, []string{"a-title", "b-title"}, titles)
}

func TestUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s := unlock(t, "k")
	svc := e.service(t, s)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return t0 }
	rec, err := svc.Create(ctx, s, models.Bookmarks, "old", models.Bookmark{URL: "https://old"})
	require.NoError(t, err)

	svc.now = func() time.Time { return t0.Add(time.Hour) }
	_, err = svc.Update(ctx, s, models.Bookmarks, rec.ID, "new", models.Bookmark{URL: "https://new", Note: "n"})
	require.NoError(t, err)

	got, err := svc.Read(ctx, s, models.Bookmarks, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.True(t, t0.Add(time.Hour).Equal(got.UpdatedAt))
	b, err := models.DecodePayload[models.Bookmark](got)
	require.NoError(t, err)
	assert.Equal(t, models.Bookmark{URL: "https://new", Note: "n"}, b)

	_, err = svc.Update(ctx, s, models.Bookmarks, "missing", "x", models.Bookmark{})
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLockedSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s := unlock(t, "k")
	svc := e.service(t, s)

	rec, err := svc.Create(ctx, s, models.Notes, "t", models.Note{Content: "x"})
	require.NoError(t, err)

	s.Lock()

	_, err = svc.Create(ctx, s, models.Notes, "t2", models.Note{})
	require.ErrorIs(t, err, common.ErrKeyUnavailable)

	_, err = svc.Update(ctx, s, models.Notes, rec.ID, "t", models.Note{})
	require.ErrorIs(t, err, common.ErrKeyUnavailable)

	got, err := svc.Read(ctx, s, models.Notes, rec.ID)
	require.ErrorIs(t, err, common.ErrKeyUnavailable)
	assert.Nil(t, got)

	// nothing was written while locked
	assert.Equal(t, []string{rec.ID}, listIDs(t, svc, models.Notes))
}

func TestNullPayloadIsReadable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s := unlock(t, "k")
	svc := e.service(t, s)

	rec, err := svc.Create(ctx, s, models.Notes, "empty", nil)
	require.NoError(t, err)

	got, err := svc.Read(ctx, s, models.Notes, rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Unreadable)
	assert.Equal(t, json.RawMessage("null"), got.Payload)
}

func TestUnknownCollection(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s := unlock(t, "k")
	svc := e.service(t, s)

	_, err := svc.Create(ctx, s, "files", "t", nil)
	require.ErrorIs(t, err, common.ErrUnknownCollection)
	_, err = svc.Read(ctx, s, "files", "id")
	require.ErrorIs(t, err, common.ErrUnknownCollection)
	require.ErrorIs(t, svc.Delete(ctx, "files", "id"), common.ErrUnknownCollection)

	var listErr error
	for _, err := range svc.List(ctx, "files", records.OrderByID) {
		listErr = err
	}
	require.ErrorIs(t, listErr, common.ErrUnknownCollection)
}
