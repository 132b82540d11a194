package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedListLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.json")

	s := NewSeedList(path)
	s.Add(
		"https://example.co.jp/en/forsale/view/1",
		"https://example.co.jp/en/forsale/view/2",
	)
	require.NoError(t, s.Save())

	loaded := NewSeedList(path)
	require.NoError(t, loaded.Load())
	assert.Equal(t, s.URLs(), loaded.URLs())
}

func TestSeedListMissingFileIsEmpty(t *testing.T) {
	s := NewSeedList(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, s.Load())
	assert.Zero(t, s.Len())
}

func TestSeedListAddDeduplicates(t *testing.T) {
	s := NewSeedList("unused.json")
	s.Add("https://example.co.jp/en/forsale/view/1")
	s.Add("https://example.co.jp/en/forsale/view/1", "")
	assert.Equal(t, 1, s.Len())
}

func TestSeedListRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewSeedList(path)
	assert.Error(t, s.Load())
}
