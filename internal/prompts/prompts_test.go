package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/phish-screen/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	assert.Contains(t, set.Router, "whatsapp")
	assert.Contains(t, set.Phishing, "phishing")
	assert.Contains(t, set.Phishing, core.DegradedInput)
	assert.Contains(t, set.SocialEngineering, "ingeniería social")
	assert.Contains(t, set.Unified, "UN SOLO PASO")
	assert.Equal(t, "Texto extraído de la imagen:", set.ExtractedTextLead)
}

func TestParseRejectsMissingPrompts(t *testing.T) {
	_, err := Parse([]byte("router: hola\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")

	_, err = Parse([]byte("router: [unclosed"))
	assert.Error(t, err)
}

func TestLoadOverridesSubset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("phishing: |\n  Prompt propio\n"), 0o600))

	defaults, err := Default()
	require.NoError(t, err)

	set, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Prompt propio", set.Phishing)
	assert.Equal(t, defaults.Router, set.Router)
	assert.Equal(t, defaults.Unified, set.Unified)
}

func TestLoadEmptyPathAndMissingFile(t *testing.T) {
	set, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, set.SocialEngineering)

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
