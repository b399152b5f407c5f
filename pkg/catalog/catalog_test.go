package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, 10, c.Len())
	q, ok := c.Question(0)
	require.True(t, ok)
	assert.Equal(t, "Environment", q.Theme)
	assert.NotEmpty(t, q.Text)

	_, ok = c.Question(10)
	assert.False(t, ok)
	_, ok = c.Question(-1)
	assert.False(t, ok)

	assert.Equal(t, []string{
		"Environment",
		"Labor & Human Rights",
		"Ethics",
		"Sustainable Procurement",
		"Governance & Reporting",
	}, c.Themes())
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		body    string
		wantLen int
		wantErr string
	}{
		{
			name:    "yaml",
			file:    "c.yaml",
			body:    "version: '2'\nquestions:\n  - id: a\n    text: First?\n  - id: b\n    text: Second?\n",
			wantLen: 2,
		},
		{
			name:    "json",
			file:    "c.json",
			body:    `{"version":"2","questions":[{"id":"a","text":"Only?","theme":"T"}]}`,
			wantLen: 1,
		},
		{
			name:    "empty catalog",
			file:    "empty.yaml",
			body:    "version: '2'\nquestions: []\n",
			wantErr: "no questions",
		},
		{
			name:    "duplicate ids",
			file:    "dup.yaml",
			body:    "questions:\n  - id: a\n    text: One\n  - id: a\n    text: Two\n",
			wantErr: "used by questions 0 and 1",
		},
		{
			name:    "blank text",
			file:    "blank.json",
			body:    `{"questions":[{"id":"a","text":"  "}]}`,
			wantErr: "question 0 has no text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			c, err := LoadCatalog(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, c.Len())
		})
	}
}

func TestLoadCatalog_EmptyPathUsesDefault(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, Default().Len(), c.Len())
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
