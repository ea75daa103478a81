package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.cbor")

	fl, err := NewFileLogger(path)
	require.NoError(t, err)

	for i, conn := range []string{"c1", "c2", "c1"} {
		fl.Log(Event{
			Timestamp:    time.Now().UTC(),
			ConnectionID: conn,
			Layer:        LayerWire,
			Category:     CategoryMessage,
			Message:      NewMessageEvent([]byte{byte('a' + i)}),
		})
	}
	require.NoError(t, fl.Close())

	// Close is idempotent and later logs are dropped.
	require.NoError(t, fl.Close())
	fl.Log(Event{ConnectionID: "dropped"})

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	var got []Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, ev)
	}
	require.Len(t, got, 3)
	assert.Equal(t, "c1", got[0].ConnectionID)
	assert.Equal(t, "c2", got[1].ConnectionID)
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.cbor")

	fl, err := NewFileLogger(path)
	require.NoError(t, err)
	fl.Log(Event{ConnectionID: "keep", Layer: LayerDispatch})
	fl.Log(Event{ConnectionID: "skip", Layer: LayerTransport})
	fl.Log(Event{ConnectionID: "keep", Layer: LayerDispatch, Topic: "fiware.notify"})
	require.NoError(t, fl.Close())

	layer := LayerDispatch
	r, err := NewFilteredReader(path, Filter{ConnectionID: "keep", Layer: &layer})
	require.NoError(t, err)
	defer r.Close()

	count := 0
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, "keep", ev.ConnectionID)
		count++
	}
	assert.Equal(t, 2, count)
}
