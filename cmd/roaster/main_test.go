package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestViewCmd_UsesConfiguredDataDir(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	data := filepath.Join(t.TempDir(), "roasts")
	require.NoError(t, os.MkdirAll(data, 0755))
	cfgPath := filepath.Join(t.TempDir(), "roaster.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("data_dir: "+data+"\n"), 0644))

	err := viewCmd([]string{"-config", cfgPath})
	require.ErrorContains(t, err, data)

	other := t.TempDir()
	err = viewCmd([]string{"-config", cfgPath, "-dir", other})
	require.ErrorContains(t, err, other)
}
