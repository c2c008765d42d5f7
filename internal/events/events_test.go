package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/dreamspace/internal/domain"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "dreamspace.generations.failed", Subject("dreamspace.generations", domain.GenerationFailed))
}

func TestEncode(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	payload, err := Encode(&domain.GenerationResult{
		GenerationID: "gen_abc",
		Status:       domain.GenerationCompleted,
		OutputRef:    "generated_0000aaaa.png",
		Duration:     2500 * time.Millisecond,
		CreatedAt:    at,
	})
	require.NoError(t, err)

	var ev GenerationEvent
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, "gen_abc", ev.GenerationID)
	assert.Equal(t, int64(2500), ev.DurationMS)
	assert.Equal(t, "generated_0000aaaa.png", ev.OutputRef)
	assert.True(t, at.Equal(ev.At))
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.PublishGeneration(context.Background(), &domain.GenerationResult{}))
}
