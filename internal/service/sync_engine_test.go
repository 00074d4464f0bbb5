// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-core/internal/store"
	"github.com/MKhiriev/go-sync-core/models"
)

// ── push ──────────────────────────────────────────────────────────────────────

// Локальные правки между двумя проходами схлопываются: отправляется только
// итоговое состояние и один запрос на создание.
func TestRunPass_OfflineEditsCoalesceIntoSingleCreate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.create(t, "v1")
	a.Payload = notePayload("v2")
	a = h.put(t, a)
	a.Payload = notePayload("v3")
	a = h.put(t, a)
	require.EqualValues(t, 3, a.Version)

	report := h.pass(t)

	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)
	assert.Equal(t, 1, report.Created)

	rec, st := h.get(t, a.LocalID)
	assert.NotEmpty(t, rec.ServerID)
	assert.False(t, st.Dirty)
	require.NotNil(t, st.LastSyncedVersion)
	assert.EqualValues(t, 3, *st.LastSyncedVersion)

	creates, updates := h.remote.counts()
	assert.Equal(t, 1, creates)
	assert.Zero(t, updates)

	server := h.remote.record(rec.ServerID)
	assert.True(t, server.Payload.Equal(notePayload("v3")))
	assert.EqualValues(t, 3, server.Version)

	dirty, err := h.storages.Tracker.ListDirty(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)
}

func TestRunPass_RoundTripIsByteIdentical(t *testing.T) {
	h := newHarness(t)

	payload := models.Payload{
		"title": []byte(`"round trip"`),
		"body":  []byte(`"línea\nсрока"`),
		"tags":  []byte(`["a","b"]`),
	}
	a := h.put(t, models.Record{Type: "note", Payload: payload})

	require.Equal(t, models.PassSuccess, h.pass(t).Outcome)
	second := h.pass(t)
	require.Equal(t, models.PassSuccess, second.Outcome, second.Error)
	assert.Zero(t, second.Conflicts)

	rec, st := h.get(t, a.LocalID)
	assert.False(t, st.Dirty)
	assert.True(t, rec.Payload.Equal(payload))
	assert.True(t, h.remote.record(rec.ServerID).Payload.Equal(rec.Payload))
	assert.EqualValues(t, 1, rec.Version)
}

func TestRunPass_PushesOldestFirst(t *testing.T) {
	h := newHarness(t)

	first := h.create(t, "first")
	second := h.create(t, "second")
	first.Payload = notePayload("first, edited later")
	h.put(t, first)

	require.Equal(t, models.PassSuccess, h.pass(t).Outcome)

	r2, _ := h.get(t, second.LocalID)
	r1, _ := h.get(t, first.LocalID)
	assert.Equal(t, "srv-1", r2.ServerID)
	assert.Equal(t, "srv-2", r1.ServerID)
}

func TestRunPass_UpdateWithVersionToken(t *testing.T) {
	h := newHarness(t)
	b := h.synced(t, "b1")

	b.Payload = notePayload("b2")
	b = h.put(t, b)

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)
	assert.Equal(t, 1, report.Updated)

	server := h.remote.record(b.ServerID)
	assert.True(t, server.Payload.Equal(notePayload("b2")))
	assert.Equal(t, b.Version, server.Version)

	_, st := h.get(t, b.LocalID)
	assert.False(t, st.Dirty)
	assert.EqualValues(t, b.Version, *st.LastSyncedVersion)
}

func TestRunPass_UnpushedTombstonePurgedWithoutRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.create(t, "draft")
	_, err := h.storages.Records.SoftDelete(ctx, a.LocalID)
	require.NoError(t, err)

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome)
	assert.Equal(t, 1, report.Purged)
	assert.Zero(t, report.Pushed())

	creates, updates := h.remote.counts()
	assert.Zero(t, creates+updates)

	_, err = h.storages.Records.Get(ctx, a.LocalID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunPass_DeletePushedThenPurged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.synced(t, "c")
	_, err := h.storages.Records.SoftDelete(ctx, c.LocalID)
	require.NoError(t, err)

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.Purged)
	assert.Equal(t, 1, h.remote.deletesOf(c.ServerID))
	assert.True(t, h.remote.record(c.ServerID).Deleted)

	_, err = h.storages.Records.Get(ctx, c.LocalID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// эхо удаления не создаёт запись заново
	require.Equal(t, models.PassSuccess, h.pass(t).Outcome)
	_, err = h.storages.Records.GetByServerID(ctx, c.ServerID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, h.remote.deletesOf(c.ServerID))
}

// ── pull ──────────────────────────────────────────────────────────────────────

func TestRunPass_PullCreatesCleanRecords(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	serverID := h.remote.serverInsert(notePayload("from another device"), t0.Add(time.Minute))

	events, cancel := h.storages.Records.Subscribe()
	defer cancel()

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome)
	assert.Equal(t, 1, report.Pulled)
	assert.Equal(t, "1", report.Cursor)

	rec, err := h.storages.Records.GetByServerID(ctx, serverID)
	require.NoError(t, err)
	_, st := h.get(t, rec.LocalID)
	assert.False(t, st.Dirty)
	assert.True(t, rec.Payload.Equal(notePayload("from another device")))

	select {
	case ev := <-events:
		assert.Equal(t, rec.LocalID, ev.LocalID)
		assert.Equal(t, models.ChangeCreated, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("pulled record was not announced")
	}

	cursor, err := h.storages.Meta.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", cursor)
}

func TestRunPass_PullOverwritesCleanRecord(t *testing.T) {
	h := newHarness(t)
	b := h.synced(t, "b1")

	h.remote.serverEdit(b.ServerID, notePayload("server edit"), t0.Add(time.Hour))

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome)
	assert.Zero(t, report.Conflicts)

	rec, st := h.get(t, b.LocalID)
	assert.True(t, rec.Payload.Equal(notePayload("server edit")))
	assert.False(t, st.Dirty)
	assert.Greater(t, rec.Version, b.Version)
}

func TestRunPass_PagesAndCursor(t *testing.T) {
	h := newHarness(t, WithPageLimit(2))
	for i := 0; i < 5; i++ {
		h.remote.serverInsert(notePayload("r"), t0.Add(time.Duration(i)*time.Minute))
	}

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome)
	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, 5, report.Pulled)
	assert.Equal(t, []string{"", "2", "4"}, h.remote.pullCursors())

	// следующий проход начинается с сохранённого курсора
	h.pass(t)
	assert.Equal(t, "5", h.remote.pullCursors()[3])
}

// Без hasMore лента читается до тех пор, пока курсор продвигается.
func TestRunPass_PagesWithoutHasMoreHint(t *testing.T) {
	h := newHarness(t, WithPageLimit(2))
	h.remote.omitHasMore = true
	for i := 0; i < 5; i++ {
		h.remote.serverInsert(notePayload("r"), t0.Add(time.Duration(i)*time.Minute))
	}

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome)
	assert.Equal(t, 5, report.Pulled)
	assert.Equal(t, "5", report.Cursor)
	assert.Equal(t, []string{"", "2", "4", "5"}, h.remote.pullCursors())

	cursor, err := h.storages.Meta.Cursor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5", cursor)

	// пустая страница с тем же курсором завершает чтение сразу
	h.pass(t)
	assert.Equal(t, []string{"", "2", "4", "5", "5"}, h.remote.pullCursors())
}

// Обрыв связи после N из M страниц: повторный проход продолжает со страницы
// N+1, версии не откатываются.
func TestRunPass_AbortedPullResumesFromLastAppliedPage(t *testing.T) {
	h := newHarness(t, WithPageLimit(2))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 6; i++ {
		ids = append(ids, h.remote.serverInsert(notePayload("v1"), t0.Add(time.Duration(i)*time.Minute)))
	}

	passCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pulls := 0
	var hook func(context.Context) error
	hook = func(ctx context.Context) error {
		pulls++
		if pulls == 2 {
			// связь пропала перед второй страницей
			cancel()
			return ctx.Err()
		}
		h.remote.onNext("pull", hook)
		return nil
	}
	h.remote.onNext("pull", hook)

	report := h.engine.RunPass(passCtx, models.TriggerConnectivity)
	require.Equal(t, models.PassAborted, report.Outcome)
	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, "2", report.Cursor)

	cursor, err := h.storages.Meta.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", cursor)

	first, err := h.storages.Records.GetByServerID(ctx, ids[0])
	require.NoError(t, err)
	versionBefore := first.Version

	report = h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)
	assert.Equal(t, 4, report.Pulled)

	cursors := h.remote.pullCursors()
	assert.Equal(t, "2", cursors[1], "retried pass must resume after the applied page")

	first, err = h.storages.Records.GetByServerID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, versionBefore, first.Version)

	n := 0
	seq, err := h.storages.Records.Query(ctx, nil)
	require.NoError(t, err)
	for range seq {
		n++
	}
	assert.Equal(t, 6, n)

	last, err := h.storages.Meta.LastReport(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, models.PassSuccess, last.Outcome)
}

func TestRunPass_PullFailureStillPushes(t *testing.T) {
	h := newHarness(t)
	a := h.create(t, "local")

	h.remote.failNext("pull", definitiveErr("pull"))

	report := h.pass(t)
	assert.Equal(t, models.PassPartialFailure, report.Outcome)
	assert.Contains(t, report.Error, ErrPullFailed.Error())
	assert.Equal(t, 1, report.Created)

	_, st := h.get(t, a.LocalID)
	assert.False(t, st.Dirty)
}

// ── conflicts ─────────────────────────────────────────────────────────────────

// Запись B синхронизирована; сервер меняет её позже (T2), локальная правка
// сделана раньше (T1 < T2): побеждает сервер, локальная правка остаётся в
// журнале конфликтов.
func TestRunPass_LaterRemoteEditWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	b := h.synced(t, "b1")
	b.Payload = notePayload("b local")
	b = h.put(t, b)

	t2 := b.UpdatedAt.Add(time.Hour)
	h.remote.serverEdit(b.ServerID, notePayload("b server"), t2)

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)
	assert.Equal(t, 1, report.Conflicts)

	rec, st := h.get(t, b.LocalID)
	assert.True(t, rec.Payload.Equal(notePayload("b server")))
	assert.False(t, st.Dirty)

	conflicts, err := h.storages.Meta.ListConflicts(ctx, b.LocalID, 0)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.Equal(t, models.WinnerRemote, c.Winner)
	assert.Equal(t, models.ReasonLastWriterWins, c.Reason)
	assert.Equal(t, b.ServerID, c.ServerID)
	assert.True(t, c.LosingPayload.Equal(notePayload("b local")))
	assert.True(t, c.RemoteUpdatedAt.Equal(t2))
	assert.True(t, c.LocalUpdatedAt.Equal(b.UpdatedAt))

	// сервер не получил проигравшую правку
	_, updates := h.remote.counts()
	assert.Zero(t, updates)
}

func TestRunPass_LaterLocalEditWinsAndIsPushed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	b := h.synced(t, "b1")
	h.remote.serverEdit(b.ServerID, notePayload("b server"), b.UpdatedAt.Add(time.Second))

	h.clock.Advance(time.Hour)
	b.Payload = notePayload("b local")
	b = h.put(t, b)

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)
	assert.Equal(t, 1, report.Conflicts)
	assert.Equal(t, 1, report.Updated)

	server := h.remote.record(b.ServerID)
	assert.True(t, server.Payload.Equal(notePayload("b local")))

	_, st := h.get(t, b.LocalID)
	assert.False(t, st.Dirty)

	conflicts, err := h.storages.Meta.ListConflicts(ctx, b.LocalID, 0)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.WinnerLocal, conflicts[0].Winner)
	assert.True(t, conflicts[0].LosingPayload.Equal(notePayload("b server")))
}

func TestRunPass_MergeableFieldsSurvive(t *testing.T) {
	h := newHarness(t)

	b := h.synced(t, "title v1")

	// локально меняется только body, на сервере позже меняется title
	b.Payload = models.MustPayload(map[string]any{"title": "title v1", "body": "local body"})
	b = h.put(t, b)
	h.remote.serverEdit(b.ServerID, notePayload("title v2"), b.UpdatedAt.Add(time.Hour))

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)

	want := models.MustPayload(map[string]any{"title": "title v2", "body": "local body"})
	rec, st := h.get(t, b.LocalID)
	assert.True(t, rec.Payload.Equal(want))
	assert.False(t, st.Dirty, "merged payload pushed in the same pass")
	assert.True(t, h.remote.record(b.ServerID).Payload.Equal(want))

	conflicts, err := h.storages.Meta.ListConflicts(context.Background(), b.LocalID, 0)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, []string{"body"}, conflicts[0].MergedFields)
}

// Удалённая в офлайне запись C удалена и на сервере: purge ровно один раз,
// запрос DELETE не отправляется ни сейчас, ни в следующем проходе.
func TestRunPass_BothTombstonesPurgedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.synced(t, "c")
	_, err := h.storages.Records.SoftDelete(ctx, c.LocalID)
	require.NoError(t, err)
	h.remote.serverDelete(c.ServerID, t0.Add(time.Hour))

	events, cancel := h.storages.Records.Subscribe()
	defer cancel()

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)
	assert.Equal(t, 1, report.Conflicts)

	_, err = h.storages.Records.Get(ctx, c.LocalID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, h.remote.deletesOf(c.ServerID))

	require.Equal(t, models.PassSuccess, h.pass(t).Outcome)
	assert.Zero(t, h.remote.deletesOf(c.ServerID))

	conflicts, err := h.storages.Meta.ListConflicts(ctx, c.LocalID, 0)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ReasonBothTombstones, conflicts[0].Reason)

	// локальное удаление уже было объявлено, повторного события нет
	select {
	case ev := <-events:
		t.Fatalf("unexpected change event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// Надгробие побеждает даже более позднюю правку на сервере.
func TestRunPass_OlderLocalTombstoneBeatsRemoteEdit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.synced(t, "c")
	_, err := h.storages.Records.SoftDelete(ctx, c.LocalID)
	require.NoError(t, err)
	h.remote.serverEdit(c.ServerID, notePayload("server edit"), t0.Add(24*time.Hour))

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)
	assert.Equal(t, 1, report.Conflicts)
	assert.Equal(t, 1, report.Deleted)

	_, err = h.storages.Records.Get(ctx, c.LocalID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.True(t, h.remote.record(c.ServerID).Deleted)

	conflicts, err := h.storages.Meta.ListConflicts(ctx, c.LocalID, 0)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ReasonLocalTombstone, conflicts[0].Reason)
	assert.True(t, conflicts[0].LosingPayload.Equal(notePayload("server edit")))
}

func TestRunPass_RemoteTombstoneBeatsLaterLocalEdit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	b := h.synced(t, "b")
	h.remote.serverDelete(b.ServerID, t0)
	h.clock.Advance(time.Hour)
	b.Payload = notePayload("edited after the remote delete")
	h.put(t, b)

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)

	_, err := h.storages.Records.Get(ctx, b.LocalID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	conflicts, err := h.storages.Meta.ListConflicts(ctx, b.LocalID, 0)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ReasonRemoteTombstone, conflicts[0].Reason)
	assert.True(t, conflicts[0].LosingPayload.Equal(notePayload("edited after the remote delete")))
}

// Сервер изменил запись уже после фазы pull: PUT получает 409, конфликт
// разрешается в пользу более поздней локальной правки, и она отправляется
// повторно.
func TestRunPass_StaleTokenResolvedAndRepushed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	b := h.synced(t, "b1")
	h.clock.Advance(time.Hour)
	b.Payload = notePayload("b local")
	b = h.put(t, b)

	h.remote.onNext("update", func(context.Context) error {
		h.remote.serverEdit(b.ServerID, notePayload("b racing"), t0.Add(time.Minute))
		h.remote.serverEdit(b.ServerID, notePayload("b racing 2"), t0.Add(2*time.Minute))
		return nil
	})

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)
	assert.Equal(t, 1, report.Conflicts)
	assert.Equal(t, 1, report.Updated)

	server := h.remote.record(b.ServerID)
	assert.True(t, server.Payload.Equal(notePayload("b local")))

	rec, st := h.get(t, b.LocalID)
	assert.False(t, st.Dirty)
	assert.Equal(t, rec.Version, server.Version)

	conflicts, err := h.storages.Meta.ListConflicts(ctx, b.LocalID, 0)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.True(t, conflicts[0].LosingPayload.Equal(notePayload("b racing 2")))
}

func TestRunPass_StaleTokenRemoteWinsWithoutRepush(t *testing.T) {
	h := newHarness(t)

	b := h.synced(t, "b1")
	b.Payload = notePayload("b local")
	b = h.put(t, b)

	h.remote.onNext("update", func(context.Context) error {
		h.remote.serverEdit(b.ServerID, notePayload("b newer on server"), b.UpdatedAt.Add(time.Hour))
		h.remote.serverEdit(b.ServerID, notePayload("b newer on server"), b.UpdatedAt.Add(2*time.Hour))
		return nil
	})

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)
	assert.Equal(t, 1, report.Conflicts)
	assert.Zero(t, report.Updated)

	_, updates := h.remote.counts()
	assert.Equal(t, 1, updates, "only the rejected update was sent")

	rec, st := h.get(t, b.LocalID)
	assert.True(t, rec.Payload.Equal(notePayload("b newer on server")))
	assert.False(t, st.Dirty)
}

func TestRunPass_UpdateOfRecordGoneOnServer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	b := h.synced(t, "b")
	b.Payload = notePayload("b local")
	h.put(t, b)

	h.remote.onNext("update", func(context.Context) error {
		h.remote.serverDelete(b.ServerID, t0)
		return nil
	})

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)
	assert.Equal(t, 1, report.Conflicts)

	_, err := h.storages.Records.Get(ctx, b.LocalID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ── failures ──────────────────────────────────────────────────────────────────

func TestRunPass_TransientFailuresRetried(t *testing.T) {
	h := newHarness(t)

	a := h.create(t, "a")
	h.remote.failNext("create", transientErr("create"), transientErr("create"))

	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)

	creates, _ := h.remote.counts()
	assert.Equal(t, 1, creates)

	_, st := h.get(t, a.LocalID)
	assert.False(t, st.Dirty)
	assert.Zero(t, st.FailedAttempts)
}

func TestRunPass_TransientFailuresExhausted(t *testing.T) {
	h := newHarness(t)

	a := h.create(t, "a")
	b := h.create(t, "b")
	h.remote.failNext("create",
		transientErr("create"), transientErr("create"),
		transientErr("create"), transientErr("create"))

	report := h.pass(t)
	require.Equal(t, models.PassPartialFailure, report.Outcome)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, a.LocalID, report.Failures[0].LocalID)
	assert.Equal(t, 1, report.Created, "the rest of the pass continues")

	_, st := h.get(t, a.LocalID)
	assert.True(t, st.Dirty)
	assert.Equal(t, 1, st.FailedAttempts)
	assert.NotEmpty(t, st.LastError)
	assert.True(t, st.PendingSync())

	_, stB := h.get(t, b.LocalID)
	assert.False(t, stB.Dirty)

	// следующий проход досылает запись и сбрасывает ошибку
	require.Equal(t, models.PassSuccess, h.pass(t).Outcome)
	_, st = h.get(t, a.LocalID)
	assert.False(t, st.Dirty)
	assert.Zero(t, st.FailedAttempts)
	assert.Empty(t, st.LastError)
}

func TestRunPass_DefinitiveFailureNotRetried(t *testing.T) {
	h := newHarness(t)

	a := h.create(t, "a")
	h.remote.failNext("create", definitiveErr("create"))

	report := h.pass(t)
	require.Equal(t, models.PassPartialFailure, report.Outcome)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Error, "rejected")

	creates, _ := h.remote.counts()
	assert.Zero(t, creates)
	_, st := h.get(t, a.LocalID)
	assert.True(t, st.Dirty)
	assert.Equal(t, 1, st.FailedAttempts)
}

func TestRunPass_ConcurrentEditDuringPushStaysDirty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.create(t, "a1")
	h.remote.onNext("create", func(context.Context) error {
		edited := a
		edited.Payload = notePayload("a2")
		_, err := h.storages.Records.Put(ctx, edited)
		return err
	})

	require.Equal(t, models.PassSuccess, h.pass(t).Outcome)

	rec, st := h.get(t, a.LocalID)
	assert.NotEmpty(t, rec.ServerID)
	assert.True(t, st.Dirty, "edit made during the request must not be cleared")
	assert.EqualValues(t, 2, rec.Version)

	require.Equal(t, models.PassSuccess, h.pass(t).Outcome)
	_, st = h.get(t, a.LocalID)
	assert.False(t, st.Dirty)
	assert.True(t, h.remote.record(rec.ServerID).Payload.Equal(notePayload("a2")))
}

func TestRunPass_CancelledDuringPushIsAborted(t *testing.T) {
	h := newHarness(t)

	a := h.create(t, "a")
	ctx, cancel := context.WithCancel(context.Background())
	h.remote.onNext("create", func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})

	report := h.engine.RunPass(ctx, models.TriggerPeriodic)
	assert.Equal(t, models.PassAborted, report.Outcome)
	assert.Contains(t, report.Error, ErrPassAborted.Error())
	assert.Empty(t, report.Failures, "an aborted push is not a record failure")

	_, st := h.get(t, a.LocalID)
	assert.True(t, st.Dirty)
	assert.Zero(t, st.FailedAttempts)
}

func TestRunPass_ReportPersisted(t *testing.T) {
	h := newHarness(t)
	h.create(t, "a")

	report := h.pass(t)

	last, err := h.storages.Meta.LastReport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, report.Outcome, last.Outcome)
	assert.Equal(t, models.TriggerExplicit, last.Trigger)
	assert.Equal(t, 1, last.Created)
	assert.False(t, last.FinishedAt.Before(last.StartedAt))
}
