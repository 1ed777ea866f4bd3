package postgres

import (
	"testing"
	"testing/fstest"
)

func TestMigrationFilesOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_notifications.sql": {Data: []byte("SELECT 2;")},
		"0001_init.sql":          {Data: []byte("SELECT 1;")},
		"README.md":              {Data: []byte("docs")},
		"old/0000_skip.sql":      {Data: []byte("SELECT 0;")},
	}
	files, err := migrationFiles(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0] != "0001_init.sql" || files[1] != "0002_notifications.sql" {
		t.Fatalf("unexpected files %v", files)
	}
}
