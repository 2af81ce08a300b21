package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/pkg/pdfextract"
)

func TestLoadProfile(t *testing.T) {
	profile, err := loadProfile("")
	require.NoError(t, err)
	assert.Empty(t, profile)

	txt := filepath.Join(t.TempDir(), "profile.txt")
	require.NoError(t, os.WriteFile(txt, []byte("Go developer in Berlin"), 0o600))
	profile, err = loadProfile(txt)
	require.NoError(t, err)
	assert.Equal(t, "Go developer in Berlin", profile)

	profile, err = loadProfile("../pkg/pdfextract/testdata/profile.pdf")
	require.NoError(t, err)
	assert.Contains(t, profile, "Cloud security engineer")
	assert.NotContains(t, profile, "%PDF")

	_, err = loadProfile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestLoadProfile_PDFWithoutText(t *testing.T) {
	_, err := loadProfile("../pkg/pdfextract/testdata/blank.pdf")
	assert.ErrorIs(t, err, pdfextract.ErrNoText)
}

func TestLoadProfile_UppercaseExtension(t *testing.T) {
	raw, err := os.ReadFile("../pkg/pdfextract/testdata/profile.pdf")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "RESUME.PDF")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	profile, err := loadProfile(path)
	require.NoError(t, err)
	assert.Contains(t, profile, "Cloud security engineer")
}
