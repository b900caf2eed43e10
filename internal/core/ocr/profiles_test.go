package ocr

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

func TestDefaultProfilesOrderAndArgs(t *testing.T) {
	profiles := DefaultProfiles()
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"printed", "handwritten", "auto", "single_line", "single_word"}, names)

	assert.Equal(t,
		[]string{"--psm", "6", "--oem", "3", "-c", "tessedit_char_whitelist=" + InvoiceWhitelist},
		profiles[0].Args())
	assert.Equal(t, []string{"--psm", "13", "--oem", "3"}, profiles[4].Args())
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: sparse
    psm: 11
    oem: 1
  - name: block
    psm: 6
    oem: 3
    whitelist: "0123456789"
`), 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "sparse", profiles[0].Name)
	assert.Equal(t, 11, profiles[0].PSM)
	assert.Equal(t, "0123456789", profiles[1].Whitelist)
}

func TestLoadProfilesRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty.yaml":     "profiles: []\n",
		"badpsm.yaml":    "profiles:\n  - name: x\n    psm: 42\n    oem: 3\n",
		"noname.yaml":    "profiles:\n  - psm: 6\n    oem: 3\n",
		"duplicate.yaml": "profiles:\n  - name: x\n    psm: 6\n    oem: 3\n  - name: x\n    psm: 7\n    oem: 3\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := LoadProfiles(path)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, common.ErrInvalidInput), name)
	}
}
