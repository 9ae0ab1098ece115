package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m3rciful/botkit/core/bootstrap"
	"github.com/m3rciful/botkit/core/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRunRequiresApp(t *testing.T) {
	if err := Run(Options{}); err == nil {
		t.Fatal("expected error without App")
	}
}

func TestRunRequiresConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	err := Run(Options{App: func(context.Context, *config.Config, *bootstrap.Result) error { return nil }})
	if err == nil {
		t.Fatal("expected error without config path")
	}
}

func TestRunExecutesApp(t *testing.T) {
	path := writeConfig(t, "storage:\n  backend: memory\n")

	var gotBackend string
	err := Run(Options{
		DefaultConfigPath: path,
		Bootstrap: func(ctx context.Context, opts bootstrap.Options) (*bootstrap.Result, error) {
			opts.LoggerInit = func(*config.Config) error { return nil }
			return bootstrap.Run(ctx, opts)
		},
		ShutdownLogger: func() error { return nil },
		App: func(_ context.Context, cfg *config.Config, res *bootstrap.Result) error {
			gotBackend = cfg.Storage.Backend
			if res.Storage == nil {
				t.Error("nil storage passed to app")
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if gotBackend != config.BackendMemory {
		t.Fatalf("backend = %q, want memory", gotBackend)
	}
}

func TestRunPropagatesAppError(t *testing.T) {
	path := writeConfig(t, "storage:\n  backend: memory\n")
	boom := errors.New("boom")

	err := Run(Options{
		DefaultConfigPath: path,
		Bootstrap: func(ctx context.Context, opts bootstrap.Options) (*bootstrap.Result, error) {
			opts.LoggerInit = func(*config.Config) error { return nil }
			return bootstrap.Run(ctx, opts)
		},
		ShutdownLogger: func() error { return nil },
		App: func(context.Context, *config.Config, *bootstrap.Result) error {
			return boom
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
