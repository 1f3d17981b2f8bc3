package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/dusk-indust/usercrud/internal/config"
	"github.com/dusk-indust/usercrud/internal/recordstore"
	"github.com/dusk-indust/usercrud/internal/user"
	"github.com/dusk-indust/usercrud/internal/userapi"
)

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// startAPI serves a users API over a seeded in-memory store.
func startAPI(t *testing.T, users ...user.User) (*httptest.Server, *recordstore.MemStore) {
	t.Helper()

	store := recordstore.NewMemStore(users...)
	srv := userapi.NewServer(userapi.NewService(store))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()

	names := map[string]*cobra.Command{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = sub
	}
	for _, want := range []string{"serve", "mcp", "users", "version"} {
		assert.Contains(t, names, want)
	}

	var userCmds []string
	for _, sub := range names["users"].Commands() {
		userCmds = append(userCmds, sub.Name())
	}
	assert.ElementsMatch(t, []string{"list", "get", "create", "update", "delete", "watch"}, userCmds)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestUsersList(t *testing.T) {
	ts, _ := startAPI(t,
		user.User{ID: 1, Name: "Ana", Email: "ana@x.com", Age: user.IntPtr(29)},
		user.User{ID: 2, Name: "Bea", Email: "bea@x.com"},
	)

	out, err := execute(t, "users", "list", "--server", ts.URL)
	require.NoError(t, err)

	var got []user.User
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Ana", got[0].Name)
	assert.Nil(t, got[1].Age)
}

func TestUsersGet(t *testing.T) {
	ts, _ := startAPI(t, user.User{ID: 7, Name: "Ana", Email: "ana@x.com"})

	out, err := execute(t, "users", "get", "7", "--server", ts.URL)
	require.NoError(t, err)

	var got user.User
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, user.User{ID: 7, Name: "Ana", Email: "ana@x.com"}, got)

	_, err = execute(t, "users", "get", "8", "--server", ts.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.Contains(t, err.Error(), "user 8")
}

func TestUsersGet_InvalidID(t *testing.T) {
	_, err := execute(t, "users", "get", "abc", "--server", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid user id "abc"`)
}

func TestUsersCreate(t *testing.T) {
	ts, store := startAPI(t)

	out, err := execute(t, "users", "create", "--name", "Ana", "--email", "ana@x.com", "--age", "29", "--server", ts.URL)
	require.NoError(t, err)

	var got user.User
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotZero(t, got.ID)
	assert.Equal(t, user.IntPtr(29), got.Age)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []user.User{got}, stored)
}

func TestUsersCreate_WithoutAge(t *testing.T) {
	ts, _ := startAPI(t)

	out, err := execute(t, "users", "create", "--name", "Ana", "--server", ts.URL)
	require.NoError(t, err)

	var got user.User
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Nil(t, got.Age)
	assert.Equal(t, "", got.Email)
}

func TestUsersUpdate_OnlyChangedFlags(t *testing.T) {
	ts, _ := startAPI(t, user.User{ID: 3, Name: "Ana", Email: "ana@x.com", Age: user.IntPtr(29)})

	out, err := execute(t, "users", "update", "3", "--age", "30", "--server", ts.URL)
	require.NoError(t, err)

	var got user.User
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, user.User{ID: 3, Name: "Ana", Email: "ana@x.com", Age: user.IntPtr(30)}, got)

	out, err = execute(t, "users", "update", "3", "--clear-age", "--server", ts.URL)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Nil(t, got.Age)
	assert.Equal(t, "Ana", got.Name)
}

func TestUsersUpdate_AgeAndClearAgeConflict(t *testing.T) {
	_, err := execute(t, "users", "update", "3", "--age", "30", "--clear-age", "--server", "http://127.0.0.1:1")
	assert.Error(t, err)
}

func TestUsersDelete(t *testing.T) {
	ts, store := startAPI(t, user.User{ID: 3, Name: "Ana"})

	out, err := execute(t, "users", "delete", "3", "--server", ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "deleted 3\n", out)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)

	_, err = execute(t, "users", "delete", "3", "--server", ts.URL)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestResolveServeConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usercrud.yml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":8080\"\ndataPath: /tmp/from-file.json\nmcpAddr: \":3001\"\n"), 0o644))

	opts := &serveOptions{rootOptions: &rootOptions{Verbose: true}}
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	addServeFlags(fs, opts)
	require.NoError(t, fs.Parse([]string{"--config", path, "--data", "/tmp/from-flag.json"}))

	cfg, err := resolveServeConfig(fs, opts)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "/tmp/from-flag.json", cfg.DataPath)
	assert.Equal(t, ":3001", cfg.MCPAddr)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, config.Duration(config.DefaultShutdownTimeout), cfg.ShutdownTimeout)
}

func TestResolveServeConfig_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	opts := &serveOptions{rootOptions: &rootOptions{}}
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	addServeFlags(fs, opts)
	require.NoError(t, fs.Parse(nil))

	cfg, err := resolveServeConfig(fs, opts)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultAddr, cfg.Addr)
	assert.Equal(t, config.DefaultDataPath, cfg.DataPath)
	assert.Empty(t, cfg.MCPAddr)
}

func TestResolveServeConfig_MissingFile(t *testing.T) {
	_, err := execute(t, "serve", "--config", filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	cfg := &config.ServerConfig{
		Addr:            "127.0.0.1:0",
		ShutdownTimeout: config.Duration(config.DefaultShutdownTimeout),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- runServe(ctx, cfg, true, newLogger(&bytes.Buffer{}, false), &bytes.Buffer{})
	}()
	time.AfterFunc(100*time.Millisecond, cancel)

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not return after cancel")
	}
}

func TestStartTelemetry_Disabled(t *testing.T) {
	shutdown, err := startTelemetry(&config.ServerConfig{}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartTelemetry_ExportsStoreSpansAndMetrics(t *testing.T) {
	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})

	var out bytes.Buffer
	cfg := &config.ServerConfig{Telemetry: true}
	shutdown, err := startTelemetry(cfg, &out)
	require.NoError(t, err)

	store := openStore(cfg, true, newLogger(&bytes.Buffer{}, false))
	_, err = store.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, out.String(), "recordstore.Load")
	assert.Contains(t, out.String(), "usercrud.store.ops")
}
