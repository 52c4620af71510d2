package infra

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %s", name)
		}
	}
	if len(ups) == 0 {
		t.Fatalf("no migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Fatalf("migration %s has no down file", v)
		}
	}
}

func TestMigrateValidatesArguments(t *testing.T) {
	if err := Migrate("", "up"); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	if err := Migrate("postgres://localhost/paysync", "sideways"); err == nil {
		t.Fatalf("expected error for bad direction")
	}
}

func TestMigrationURLUsesPgxScheme(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost:5432/paysync?sslmode=disable": "pgx5://u:p@localhost:5432/paysync?sslmode=disable",
		"postgresql://localhost/paysync":                        "pgx5://localhost/paysync",
		"pgx5://localhost/paysync":                              "pgx5://localhost/paysync",
	}
	for in, want := range tests {
		if got := migrationURL(in); got != want {
			t.Fatalf("migrationURL(%q) = %q, want %q", in, got, want)
		}
	}
}
