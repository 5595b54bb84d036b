package plugins

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/liuran001/MusicPreview-Go/music"
	"github.com/liuran001/MusicPreview-Go/music/catalog"
	"github.com/liuran001/MusicPreview-Go/music/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct{ name string }

func (s stubCatalog) Name() string { return s.name }
func (s stubCatalog) Search(context.Context, string, int) ([]catalog.Track, error) {
	return nil, nil
}
func (s stubCatalog) GetTrack(context.Context, string) (*catalog.TrackDetail, error) {
	return nil, catalog.ErrNotFound
}

func TestRegisterValidation(t *testing.T) {
	assert.Error(t, Register("", func(*config.Config, music.Logger) (*Contribution, error) { return nil, nil }))
	assert.Error(t, Register("nil-factory", nil))
}

func TestRegisterDuplicate(t *testing.T) {
	factory := func(*config.Config, music.Logger) (*Contribution, error) {
		return &Contribution{Catalog: stubCatalog{name: "dup"}}, nil
	}
	require.NoError(t, Register("registry-test-dup", factory))
	assert.Error(t, Register("registry-test-dup", factory))
	assert.Contains(t, Names(), "registry-test-dup")
}

func TestBuild(t *testing.T) {
	require.NoError(t, Register("registry-test-ok", func(*config.Config, music.Logger) (*Contribution, error) {
		return &Contribution{Catalog: stubCatalog{name: "ok"}}, nil
	}))
	require.NoError(t, Register("registry-test-fail", func(*config.Config, music.Logger) (*Contribution, error) {
		return nil, errors.New("no credentials")
	}))
	require.NoError(t, Register("registry-test-empty", func(*config.Config, music.Logger) (*Contribution, error) {
		return &Contribution{}, nil
	}))

	conf, err := config.Load("")
	require.NoError(t, err)

	cat, err := Build("registry-test-ok", conf, music.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, "ok", cat.Name())

	_, err = Build("registry-test-fail", conf, music.NopLogger{})
	assert.ErrorContains(t, err, "no credentials")

	_, err = Build("registry-test-empty", conf, music.NopLogger{})
	assert.Error(t, err)

	_, err = Build("registry-test-missing", conf, music.NopLogger{})
	assert.ErrorContains(t, err, "not registered")
}

func TestBuildRespectsDisabledSection(t *testing.T) {
	require.NoError(t, Register("registry-test-disabled", func(*config.Config, music.Logger) (*Contribution, error) {
		return &Contribution{Catalog: stubCatalog{name: "disabled"}}, nil
	}))

	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("[plugins.registry-test-disabled]\nenabled = false\n"), 0o644))
	conf, err := config.Load(path)
	require.NoError(t, err)

	_, err = Build("registry-test-disabled", conf, music.NopLogger{})
	assert.ErrorContains(t, err, "disabled")
}
