package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khasanovbi/tretyakov-backend/internal/app"
	"github.com/khasanovbi/tretyakov-backend/internal/blob"
	"github.com/khasanovbi/tretyakov-backend/internal/config"
	"github.com/khasanovbi/tretyakov-backend/internal/store/memory"
)

// stubApp swaps the application factory for one that needs no real
// config file, database, or network.
func stubApp(t *testing.T) {
	t.Helper()

	blobs, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	orig := newApp
	newApp = func(_ context.Context, _ string) (*app.App, error) {
		return &app.App{
			Config: config.Config{},
			Logger: zap.NewNop(),
			Store:  memory.New(),
			Blobs:  blobs,
		}, nil
	}
	t.Cleanup(func() { newApp = orig })
}

func executeCommand(args ...string) error {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestParseRejectsNonNumericPages(t *testing.T) {
	stubApp(t)

	err := executeCommand("parse", "twelve")
	require.Error(t, err)
	require.ErrorContains(t, err, "positive integer")
}

func TestParseRejectsZeroPages(t *testing.T) {
	stubApp(t)

	err := executeCommand("parse", "0")
	require.Error(t, err)
	require.ErrorContains(t, err, "positive integer")
}

func TestParseRejectsExtraArgs(t *testing.T) {
	stubApp(t)

	err := executeCommand("parse", "1", "2")
	require.Error(t, err)
}
