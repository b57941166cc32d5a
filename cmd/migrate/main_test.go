package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
)

type fakeMigrator struct {
	calls   []string
	err     error
	version uint
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.err
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return f.err
}

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	return f.err
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	f.calls = append(f.calls, "version")
	return f.version, false, f.err
}

func (f *fakeMigrator) Force(version int) error {
	f.calls = append(f.calls, "force")
	return f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr error
	}{
		{"up", []string{"-up"}, options{up: true, force: -1}, nil},
		{"steps", []string{"-steps", "-1"}, options{steps: -1, force: -1}, nil},
		{"force zero", []string{"-force", "0"}, options{force: 0, forceSet: true}, nil},
		{"dsn only", []string{"-dsn", "postgres://x"}, options{}, errUsage},
		{"nothing", nil, options{}, errUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args, io.Discard)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("parseFlags() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFlags() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseFlags() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		opts     options
		err      error
		wantCall string
		wantErr  bool
	}{
		{"version wins", options{version: true, up: true}, nil, "version", false},
		{"force", options{forceSet: true, force: 2, up: true}, nil, "force", false},
		{"up", options{up: true}, nil, "up", false},
		{"up no change", options{up: true}, migrate.ErrNoChange, "up", false},
		{"down", options{down: true}, nil, "down", false},
		{"steps", options{steps: 2}, nil, "steps", false},
		{"up failure", options{up: true}, errors.New("dirty database"), "up", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMigrator{err: tt.err}
			err := apply(m, tt.opts, io.Discard, discard())

			if (err != nil) != tt.wantErr {
				t.Fatalf("apply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(m.calls) != 1 || m.calls[0] != tt.wantCall {
				t.Errorf("calls = %v, want [%s]", m.calls, tt.wantCall)
			}
		})
	}
}

func TestApplyPrintsVersion(t *testing.T) {
	var out bytes.Buffer
	if err := apply(&fakeMigrator{version: 3}, options{version: true}, &out, discard()); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "version: 3, dirty: false\n" {
		t.Errorf("output = %q", got)
	}
}

func TestResolveDSN(t *testing.T) {
	t.Setenv("OSENCHI_DB_DSN", "")
	t.Setenv("OSENCHI_DB_HOST", "db.internal")

	dsn, err := resolveDSN("")
	if err != nil {
		t.Fatalf("resolveDSN() error = %v", err)
	}
	if !strings.HasPrefix(dsn, "postgres://") || !strings.Contains(dsn, "db.internal") {
		t.Errorf("resolveDSN() = %s, want a URL for db.internal", dsn)
	}

	t.Setenv("OSENCHI_DB_DSN", "postgres://env@localhost:5432/osenchi")
	if dsn, _ := resolveDSN(""); dsn != "postgres://env@localhost:5432/osenchi" {
		t.Errorf("env DSN = %s", dsn)
	}
	if dsn, _ := resolveDSN("postgres://flag@localhost:5432/osenchi"); dsn != "postgres://flag@localhost:5432/osenchi" {
		t.Errorf("flag DSN = %s", dsn)
	}
}
