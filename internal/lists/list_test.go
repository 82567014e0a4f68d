package lists_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/bensuskins/command-center/internal/lists"
	"github.com/bensuskins/command-center/internal/storage"
	"github.com/bensuskins/command-center/internal/testutil"
)

type task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Done      bool   `json:"done"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func (item task) EntityID() string { return item.ID }

func (item task) WithEntityID(id string) task {
	item.ID = id
	return item
}

func newLocalList(t *testing.T) (*lists.List[task], *storage.Local) {
	t.Helper()
	local, _ := testutil.NewMemoryLocal()
	list, err := lists.New[task](context.Background(), local, storage.NewDocuments(nil), lists.Options{Key: "tasks", Collection: "tasks"})
	if err != nil {
		t.Fatalf("creating list: %v", err)
	}
	return list, local
}

func TestList_LocalInsertPersists(t *testing.T) {
	list, local := newLocalList(t)
	ctx := context.Background()

	inserted, err := list.Insert(ctx, task{Title: "sweep"})
	if err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if inserted.ID == "" {
		t.Fatal("expected local id to be assigned")
	}
	if inserted.CreatedAt == "" {
		t.Error("expected createdAt to be stamped")
	}

	saved, ok := storage.Get[[]task](ctx, local, "tasks")
	if !ok || len(saved) != 1 || saved[0].Title != "sweep" {
		t.Errorf("expected persisted [sweep], got %v", saved)
	}
	if list.Mode() != lists.ModeLocal {
		t.Errorf("expected local mode, got %s", list.Mode())
	}
}

func TestList_LocalUpdateAndDelete(t *testing.T) {
	list, local := newLocalList(t)
	ctx := context.Background()

	first, _ := list.Insert(ctx, task{Title: "one"})
	second, _ := list.Insert(ctx, task{Title: "two"})

	if err := list.Update(ctx, first.ID, map[string]any{"done": true, "id": "hijack"}); err != nil {
		t.Fatalf("updating: %v", err)
	}
	updated, ok := list.Find(first.ID)
	if !ok || !updated.Done {
		t.Errorf("expected %s to be done, got %+v", first.ID, updated)
	}

	if err := list.Delete(ctx, second.ID); err != nil {
		t.Fatalf("deleting: %v", err)
	}
	if len(list.Items()) != 1 {
		t.Errorf("expected 1 item, got %d", len(list.Items()))
	}

	saved, _ := storage.Get[[]task](ctx, local, "tasks")
	if len(saved) != 1 || !saved[0].Done {
		t.Errorf("expected persisted done item, got %v", saved)
	}
}

func TestList_UpdateMissing(t *testing.T) {
	list, _ := newLocalList(t)

	err := list.Update(context.Background(), "missing", map[string]any{"done": true})
	if !errors.Is(err, lists.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList_LoadsExistingLocalItems(t *testing.T) {
	local, _ := testutil.NewMemoryLocal()
	ctx := context.Background()
	local.Set(ctx, "tasks", []task{{ID: "1", Title: "stored"}})

	list, err := lists.New[task](ctx, local, storage.NewDocuments(nil), lists.Options{Key: "tasks"})
	if err != nil {
		t.Fatalf("creating list: %v", err)
	}
	if items := list.Items(); len(items) != 1 || items[0].Title != "stored" {
		t.Errorf("expected [stored], got %v", items)
	}
}

func TestList_RemoteModeFollowsSnapshots(t *testing.T) {
	local, _ := testutil.NewMemoryLocal()
	driver := testutil.NewMemoryDocuments()
	documents := storage.NewDocuments(driver)
	ctx := context.Background()

	list, err := lists.New[task](ctx, local, documents, lists.Options{Key: "tasks", Collection: "tasks", UseRemote: true})
	if err != nil {
		t.Fatalf("creating list: %v", err)
	}
	defer list.Close()

	if list.Mode() != lists.ModeRemote {
		t.Fatalf("expected remote mode, got %s", list.Mode())
	}

	inserted, err := list.Insert(ctx, task{Title: "remote"})
	if err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if driver.Count("tasks") != 1 {
		t.Errorf("expected 1 remote document, got %d", driver.Count("tasks"))
	}
	found, ok := list.Find(inserted.ID)
	if !ok || found.Title != "remote" {
		t.Errorf("expected snapshot to contain inserted item, got %v", list.Items())
	}

	driver.SetFail(true)
	if _, err := list.Insert(ctx, task{Title: "lost"}); !errors.Is(err, lists.ErrRemoteWrite) {
		t.Errorf("expected ErrRemoteWrite, got %v", err)
	}
}

func TestList_RemoteRequestedWithoutStoreFallsBack(t *testing.T) {
	local, _ := testutil.NewMemoryLocal()

	list, err := lists.New[task](context.Background(), local, storage.NewDocuments(nil), lists.Options{Key: "tasks", UseRemote: true})
	if err != nil {
		t.Fatalf("creating list: %v", err)
	}
	if list.Mode() != lists.ModeLocal {
		t.Errorf("expected local fallback, got %s", list.Mode())
	}
}

func TestList_MigrateEmptyIsNoop(t *testing.T) {
	local, _ := testutil.NewMemoryLocal()
	driver := testutil.NewMemoryDocuments()
	ctx := context.Background()

	list, err := lists.New[task](ctx, local, storage.NewDocuments(driver), lists.Options{Key: "tasks", Collection: "tasks"})
	if err != nil {
		t.Fatalf("creating list: %v", err)
	}

	if err := list.Migrate(ctx); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	if list.Mode() != lists.ModeLocal {
		t.Errorf("expected mode to stay local, got %s", list.Mode())
	}
	if driver.Adds["tasks"] != 0 {
		t.Errorf("expected remote untouched, got %d adds", driver.Adds["tasks"])
	}
}

func TestList_MigrateCopiesItems(t *testing.T) {
	local, keyValues := testutil.NewMemoryLocal()
	driver := testutil.NewMemoryDocuments()
	ctx := context.Background()

	list, err := lists.New[task](ctx, local, storage.NewDocuments(driver), lists.Options{Key: "tasks", Collection: "tasks"})
	if err != nil {
		t.Fatalf("creating list: %v", err)
	}
	defer list.Close()

	for i := 0; i < 3; i++ {
		list.Insert(ctx, task{Title: "task " + strconv.Itoa(i)})
	}

	if err := list.Migrate(ctx); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	if list.Mode() != lists.ModeRemote {
		t.Errorf("expected remote mode, got %s", list.Mode())
	}
	if driver.Count("tasks") != 3 {
		t.Errorf("expected 3 remote documents, got %d", driver.Count("tasks"))
	}
	if keyValues.Has("tasks") {
		t.Error("expected local key to be cleared")
	}
	if len(list.Items()) != 3 {
		t.Errorf("expected 3 items from subscription, got %d", len(list.Items()))
	}
}

func TestList_MigrateWithoutRemote(t *testing.T) {
	list, _ := newLocalList(t)
	ctx := context.Background()
	list.Insert(ctx, task{Title: "stay"})

	if err := list.Migrate(ctx); !errors.Is(err, lists.ErrRemoteUnavailable) {
		t.Errorf("expected ErrRemoteUnavailable, got %v", err)
	}
	if list.Mode() != lists.ModeLocal {
		t.Errorf("expected local mode, got %s", list.Mode())
	}
}

func TestList_MigratePartialFailureRollsBack(t *testing.T) {
	local, keyValues := testutil.NewMemoryLocal()
	driver := testutil.NewMemoryDocuments()
	ctx := context.Background()

	list, err := lists.New[task](ctx, local, storage.NewDocuments(driver), lists.Options{Key: "tasks", Collection: "tasks"})
	if err != nil {
		t.Fatalf("creating list: %v", err)
	}
	defer list.Close()

	for i := 0; i < 3; i++ {
		list.Insert(ctx, task{Title: "task " + strconv.Itoa(i)})
	}

	driver.FailAddsAfter(2)
	if err := list.Migrate(ctx); !errors.Is(err, lists.ErrRemoteWrite) {
		t.Fatalf("expected ErrRemoteWrite, got %v", err)
	}
	if list.Mode() != lists.ModeLocal {
		t.Errorf("expected local mode, got %s", list.Mode())
	}
	if driver.Count("tasks") != 0 {
		t.Errorf("expected copied documents removed, got %d", driver.Count("tasks"))
	}
	if !keyValues.Has("tasks") {
		t.Error("expected local key to be kept")
	}

	driver.FailAddsAfter(3)
	if err := list.Migrate(ctx); err != nil {
		t.Fatalf("retrying migration: %v", err)
	}
	if driver.Count("tasks") != 3 {
		t.Errorf("expected 3 remote documents after retry, got %d", driver.Count("tasks"))
	}
	if list.Mode() != lists.ModeRemote {
		t.Errorf("expected remote mode, got %s", list.Mode())
	}
}

func TestList_MigrateWithRewritesAndMapsIDs(t *testing.T) {
	local, _ := testutil.NewMemoryLocal()
	driver := testutil.NewMemoryDocuments()
	ctx := context.Background()

	list, err := lists.New[task](ctx, local, storage.NewDocuments(driver), lists.Options{Key: "tasks", Collection: "tasks"})
	if err != nil {
		t.Fatalf("creating list: %v", err)
	}
	defer list.Close()

	inserted, err := list.Insert(ctx, task{Title: "sweep"})
	if err != nil {
		t.Fatalf("inserting: %v", err)
	}

	ids, err := list.MigrateWith(ctx, func(item task) task {
		item.Done = true
		return item
	})
	if err != nil {
		t.Fatalf("migrating: %v", err)
	}
	remoteID, ok := ids[inserted.ID]
	if !ok || remoteID == inserted.ID {
		t.Fatalf("expected new remote id for %s, got %v", inserted.ID, ids)
	}
	migrated, ok := list.Find(remoteID)
	if !ok {
		t.Fatalf("expected %s in remote snapshot", remoteID)
	}
	if !migrated.Done {
		t.Error("expected rewrite to be applied before copying")
	}
}

func TestList_LocalSaveFailureKeepsSnapshot(t *testing.T) {
	local, keyValues := testutil.NewMemoryLocal()
	ctx := context.Background()

	list, err := lists.New[task](ctx, local, storage.NewDocuments(nil), lists.Options{Key: "tasks", Collection: "tasks"})
	if err != nil {
		t.Fatalf("creating list: %v", err)
	}
	if _, err := list.Insert(ctx, task{Title: "kept"}); err != nil {
		t.Fatalf("inserting: %v", err)
	}

	keyValues.FailWrites = true
	if _, err := list.Insert(ctx, task{Title: "lost"}); err == nil {
		t.Fatal("expected insert to fail")
	}
	items := list.Items()
	if len(items) != 1 || items[0].Title != "kept" {
		t.Errorf("expected snapshot [kept], got %v", items)
	}
}

func TestList_SubscribeReceivesSnapshots(t *testing.T) {
	list, _ := newLocalList(t)
	ctx := context.Background()

	var sizes []int
	cancel := list.Subscribe(func(items []task) { sizes = append(sizes, len(items)) })
	list.Insert(ctx, task{Title: "a"})
	list.Insert(ctx, task{Title: "b"})
	cancel()
	list.Insert(ctx, task{Title: "c"})

	if len(sizes) != 2 || sizes[0] != 1 || sizes[1] != 2 {
		t.Errorf("expected [1 2], got %v", sizes)
	}
}

func TestNextLocalID_Monotonic(t *testing.T) {
	previous := int64(0)
	for i := 0; i < 100; i++ {
		id, err := strconv.ParseInt(lists.NextLocalID(), 10, 64)
		if err != nil {
			t.Fatalf("parsing id: %v", err)
		}
		if id <= previous {
			t.Fatalf("expected %d > %d", id, previous)
		}
		previous = id
	}
}
