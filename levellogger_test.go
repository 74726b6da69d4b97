package killsrp

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLevelWriterSplitsByLevel(t *testing.T) {
	var out, errOut bytes.Buffer

	logger := zerolog.New(LevelWriter{Out: &out, Err: &errOut})

	logger.Info().Msg("ingested killmail")
	logger.Debug().Msg("fetching")
	logger.Warn().Msg("ship name not resolved")
	logger.Error().Msg("failed to publish killmail")

	assert.Contains(t, out.String(), "ingested killmail")
	assert.Contains(t, out.String(), "fetching")
	assert.NotContains(t, out.String(), "ship name not resolved")

	assert.Contains(t, errOut.String(), "ship name not resolved")
	assert.Contains(t, errOut.String(), "failed to publish killmail")
	assert.NotContains(t, errOut.String(), "ingested killmail")
}
