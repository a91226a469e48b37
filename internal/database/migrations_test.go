package database

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrations_Ordered(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"migrations/0002_b.sql": {Data: []byte("CREATE TABLE b ();")},
		"migrations/0001_a.sql": {Data: []byte("CREATE TABLE a ();")},
		"migrations/README.md":  {Data: []byte("ignored")},
	}
	got, err := LoadMigrations(fsys)
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(got))
	}
	if got[0].Version != "0001_a" || got[1].Version != "0002_b" {
		t.Errorf("unexpected order: %s, %s", got[0].Version, got[1].Version)
	}
	if got[0].SQL != "CREATE TABLE a ();" {
		t.Errorf("unexpected SQL: %q", got[0].SQL)
	}
}

func TestLoadMigrations_Embedded(t *testing.T) {
	t.Parallel()
	got, err := LoadMigrations(migrationFiles)
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected embedded migrations")
	}
	var all strings.Builder
	for _, m := range got {
		all.WriteString(m.SQL)
	}
	for _, table := range []string{"users", "bookmarks", "tags", "bookmark_tags", "tag_statistics", "cors_config", "ratelimit_config"} {
		if !strings.Contains(all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("embedded migrations do not create %s", table)
		}
	}
}
