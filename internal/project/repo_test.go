package project

import (
	"context"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/Danielbarber11/aivan/internal/workspace"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Project{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	// shared cache persists between tests in the process
	if err := db.Exec("DELETE FROM projects").Error; err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

func TestRepo_SaveUpsertsAggregate(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	p := &Project{
		ID:       "01TESTPROJECTID0000000000A",
		UserID:   1,
		Name:     "a site about cats",
		Language: "en",
		Model:    "gemini-2.5-flash",
		Code:     "<html>v1</html>",
		CreatorMessages: MessageLog{
			{ID: "m1", Role: workspace.RoleUser, Text: "build it", Timestamp: 1700000000000},
		},
		CodeHistory: StringList{},
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	firstMod := p.LastModified
	if firstMod == 0 {
		t.Fatalf("create did not stamp last_modified")
	}

	time.Sleep(2 * time.Millisecond)
	p.Code = "<html>v2</html>"
	p.CodeHistory = StringList{"<html>v1</html>"}
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.GetByID(ctx, 1, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Code != "<html>v2</html>" {
		t.Fatalf("code not upserted: %q", got.Code)
	}
	if len(got.CodeHistory) != 1 || got.CodeHistory[0] != "<html>v1</html>" {
		t.Fatalf("history column roundtrip: %v", got.CodeHistory)
	}
	if len(got.CreatorMessages) != 1 || got.CreatorMessages[0].Text != "build it" {
		t.Fatalf("messages column roundtrip: %+v", got.CreatorMessages)
	}
	if got.LastModified <= firstMod {
		t.Fatalf("save did not advance last_modified: %d -> %d", firstMod, got.LastModified)
	}
}

func TestRepo_GetScopedToOwner(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	p := &Project{ID: "01TESTPROJECTID0000000000B", UserID: 1, Name: "mine", Language: "en", Model: "m"}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.GetByID(ctx, 2, p.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("foreign user read err = %v, want record not found", err)
	}
	if err := repo.Delete(ctx, 2, p.ID); err != nil {
		t.Fatalf("foreign delete errored: %v", err)
	}
	if _, err := repo.GetByID(ctx, 1, p.ID); err != nil {
		t.Fatalf("foreign delete removed the row: %v", err)
	}
}

func TestRepo_ListNewestFirst(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	base := time.Now().UnixMilli()
	for i, id := range []string{"01TESTPROJECTID0000000000C", "01TESTPROJECTID0000000000D", "01TESTPROJECTID0000000000E"} {
		p := &Project{ID: id, UserID: 7, Name: id, Language: "en", Model: "m", LastModified: base + int64(i)}
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	projects, err := repo.List(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("list len=%d", len(projects))
	}
	for i := 1; i < len(projects); i++ {
		if projects[i-1].LastModified < projects[i].LastModified {
			t.Fatalf("list not newest-first: %d before %d", projects[i-1].LastModified, projects[i].LastModified)
		}
	}
}

func TestRepo_SetNameSpendsTitleFlag(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	p := &Project{ID: "01TESTPROJECTID0000000000F", UserID: 1, Name: "a site about cats", Language: "en", Model: "m", Code: "<html></html>"}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.SetName(ctx, 1, p.ID, "Cat Gallery"); err != nil {
		t.Fatalf("set name: %v", err)
	}

	got, err := repo.GetByID(ctx, 1, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Cat Gallery" || !got.Titled {
		t.Fatalf("rename not applied: name=%q titled=%v", got.Name, got.Titled)
	}
	// the rest of the aggregate is untouched
	if got.Code != "<html></html>" {
		t.Fatalf("rename clobbered the code: %q", got.Code)
	}
}

func TestRepo_MarkTitledKeepsName(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	p := &Project{ID: "01TESTPROJECTID0000000000G", UserID: 1, Name: "default name", Language: "en", Model: "m"}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.MarkTitled(ctx, 1, p.ID); err != nil {
		t.Fatalf("mark titled: %v", err)
	}

	got, _ := repo.GetByID(ctx, 1, p.ID)
	if got.Name != "default name" || !got.Titled {
		t.Fatalf("mark titled: name=%q titled=%v", got.Name, got.Titled)
	}
}

func TestGormStore_WatchEmitsOnChange(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	store := NewGormStore(repo)
	store.PollInterval = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := store.Watch(ctx, 9)

	// initial delivery: empty list
	select {
	case got := <-updates:
		if len(got) != 0 {
			t.Fatalf("initial delivery len=%d", len(got))
		}
	case <-time.After(time.Second):
		t.Fatalf("no initial delivery")
	}

	p := &Project{ID: "01TESTPROJECTID0000000000H", UserID: 9, Name: "new", Language: "en", Model: "m"}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	select {
	case got := <-updates:
		if len(got) != 1 || got[0].ID != p.ID {
			t.Fatalf("change delivery: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("no delivery after a write")
	}

	cancel()
	select {
	case _, ok := <-updates:
		if ok {
			// a final in-flight delivery may race the cancel; the channel
			// must still close right after
			if _, ok := <-updates; ok {
				t.Fatalf("channel did not close after cancel")
			}
		}
	case <-time.After(time.Second):
		t.Fatalf("channel did not close after cancel")
	}
}
