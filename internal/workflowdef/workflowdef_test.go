package workflowdef

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBytes_TopLevelLabels(t *testing.T) {
	p, err := ParseBytes([]byte(`
name: nightly scrape
labels:
  - crawler
  - high-memory
`))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"crawler", "high-memory"}, p.Tags)
}

func TestParseBytes_JobLevelLabels(t *testing.T) {
	p, err := ParseBytes([]byte(`
name: pipeline
jobs:
  build:
    name: build
    labels: [compile]
  test:
    name: test
    labels: [unit]
`))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"compile", "unit"}, p.Tags)
}

func TestParseBytes_P2PTagFromName(t *testing.T) {
	p, err := ParseBytes([]byte(`name: My P2P-Workflow Run`))
	require.NoError(t, err)
	assert.Contains(t, p.Tags, P2PTag)
}

func TestParseBytes_OfflineTagFromJobName(t *testing.T) {
	p, err := ParseBytes([]byte(`
name: root
jobs:
  j1:
    name: offline-workflow batch
`))
	require.NoError(t, err)
	assert.Contains(t, p.Tags, OfflineTag)
}

func TestParseBytes_MalformedYAMLReturnsError(t *testing.T) {
	_, err := ParseBytes([]byte("not: valid: yaml: at: all: ["))
	assert.Error(t, err)
}

func TestParseFile_MissingFileReturnsError(t *testing.T) {
	_, err := ParseFile("/no/such/file.yaml")
	assert.Error(t, err)
}

func TestParseFile_ReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: p2p-workflow nightly\n"), 0o644))

	p, err := ParseFile(path)
	require.NoError(t, err)
	assert.Contains(t, p.Tags, P2PTag)
}
