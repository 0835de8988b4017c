package ml

import (
	"testing"

	"argus/core"

	"github.com/stretchr/testify/assert"
)

func TestExtractFeatures_System(t *testing.T) {
	event := core.NewEvent(core.SourceSystem, "ERROR: kernel crash, permission denied, failed failed")
	fv := ExtractFeatures(event)

	assert.Equal(t, event.EventID, fv.EventID)
	assert.Equal(t, core.SourceSystem, fv.Source)
	assert.Equal(t, 1.0, fv.Values[0], "error indicator")
	assert.Equal(t, 0.0, fv.Values[1], "warning indicator")
	assert.Equal(t, 2.0, fv.Values[4], "failed count")
	assert.Equal(t, 1.0, fv.Values[5], "permission denied indicator")
	assert.Equal(t, 1.0, fv.Values[6], "crash indicator")
	assert.Equal(t, 1.0, fv.Values[7], "kernel indicator")
}

func TestExtractFeatures_Network(t *testing.T) {
	event := core.NewEvent(core.SourceNetwork, "GET /admin 403 denied, connection timeout")
	fv := ExtractFeatures(event)

	assert.Equal(t, 0.0, fv.Values[0], "404 indicator")
	assert.Equal(t, 1.0, fv.Values[2], "403 indicator")
	assert.Equal(t, 1.0, fv.Values[3], "denied indicator")
	assert.Equal(t, 1.0, fv.Values[4], "timeout indicator")
	assert.Equal(t, 6.0, fv.Values[6], "word count")
}

func TestExtractFeatures_Application(t *testing.T) {
	event := core.NewEvent(core.SourceApplication, "Unhandled exception: null pointer, request failed")
	fv := ExtractFeatures(event)

	assert.Equal(t, 1.0, fv.Values[0], "exception indicator")
	assert.Equal(t, 0.0, fv.Values[1], "error indicator")
	assert.Equal(t, 1.0, fv.Values[2], "failed count")
	assert.Equal(t, 1.0, fv.Values[4], "null indicator")
}

func TestExtractFeatures_GenericShape(t *testing.T) {
	event := core.NewEvent(core.SourceOther, "abc 123!")
	fv := ExtractFeatures(event)

	assert.Equal(t, 8.0, fv.Values[0], "content length")
	assert.Equal(t, 2.0, fv.Values[1], "word count")
	assert.Equal(t, 3.0, fv.Values[2], "digit count")
	assert.Equal(t, 2.0, fv.Values[3], "non-alphanumeric count")
}

func TestExtractFeatures_CaseInsensitive(t *testing.T) {
	lower := ExtractFeatures(core.NewEvent(core.SourceSystem, "critical kernel crash"))
	upper := ExtractFeatures(core.NewEvent(core.SourceSystem, "CRITICAL KERNEL CRASH"))
	assert.Equal(t, lower.Values, upper.Values)
}
