package browser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "state.json")
	saved := &State{
		Engine:  EngineRod,
		SavedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Cookies: []Cookie{
			{Name: "sessionid", Value: "abc", Domain: ".douyin.com", Path: "/", Expires: 1735689600, HTTPOnly: true, Secure: true},
			{Name: "ttwid", Value: "xyz", Domain: ".douyin.com", Path: "/"},
		},
	}

	require.NoError(t, WriteState(path, saved))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := ReadState(path)
	require.NoError(t, err)
	if diff := cmp.Diff(saved, loaded); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestReadStateCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := ReadState(path)
	assert.True(t, errors.Is(err, ErrStateUnreadable))
}

func TestReadStateMissing(t *testing.T) {
	_, err := ReadState(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, errors.Is(err, ErrStateUnreadable))
}

func TestNewRuntimeUnknownEngine(t *testing.T) {
	_, err := NewRuntime("selenium", nil)
	assert.Error(t, err)

	rt, err := NewRuntime(EngineChromedp, nil)
	require.NoError(t, err)
	assert.Equal(t, EngineChromedp, rt.Name())
}
