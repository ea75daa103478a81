package wire

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderSingleChunk(t *testing.T) {
	r := NewMessageReader()
	require.NoError(t, r.Read([]byte("POST /notify HTTP/1.0\r\nContent-Length: 5\r\nHost: broker\r\n\r\nhello")))

	assert.True(t, r.HeaderComplete())
	assert.True(t, r.BodyComplete())
	assert.Equal(t, 5, r.ContentLength())
	assert.Equal(t, "hello", string(r.Body()))

	host, ok := r.Header("HOST")
	require.True(t, ok)
	assert.Equal(t, "broker", host)
}

func TestReaderArbitrarySplits(t *testing.T) {
	// The final state must not depend on where chunk boundaries fall,
	// including splits mid-header-line and mid-body.
	msg := []byte("X-Len: 5\r\n\r\nhello")

	for split := 1; split < len(msg); split++ {
		t.Run(fmt.Sprintf("split at %d", split), func(t *testing.T) {
			r := NewMessageReader()
			require.NoError(t, r.Read(msg[:split]))
			require.NoError(t, r.Read(msg[split:]))

			assert.True(t, r.BodyComplete())
			assert.Equal(t, "hello", string(r.Body()))
		})
	}
}

func TestReaderByteAtATime(t *testing.T) {
	msg := []byte("POST / HTTP/1.0\r\nContent-Length: 11\r\n\r\nhello world")

	r := NewMessageReader()
	for i := range msg {
		require.NoError(t, r.Read(msg[i:i+1]))
	}

	assert.True(t, r.BodyComplete())
	assert.Equal(t, "hello world", string(r.Body()))
}

func TestReaderNoLengthHeader(t *testing.T) {
	// Absent length declaration means an empty body: complete at the
	// blank line, surplus bytes dropped.
	r := NewMessageReader()
	require.NoError(t, r.Read([]byte("Host: broker\r\n\r\nleftover")))

	assert.True(t, r.HeaderComplete())
	assert.True(t, r.BodyComplete())
	assert.Equal(t, 0, r.ContentLength())
	assert.Empty(t, r.Body())
}

func TestReaderLengthHeaderMatching(t *testing.T) {
	t.Run("name merely containing len is not a length", func(t *testing.T) {
		// "Challenge" must not be mistaken for a length declaration;
		// without one the body is empty.
		r := NewMessageReader()
		require.NoError(t, r.Read([]byte("POST / HTTP/1.0\r\nChallenge: abc\r\n\r\n")))

		assert.True(t, r.BodyComplete())
		assert.Equal(t, 0, r.ContentLength())
		assert.Empty(t, r.Body())
	})

	t.Run("unrelated header does not shadow content-length", func(t *testing.T) {
		r := NewMessageReader()
		require.NoError(t, r.Read([]byte("X-Challenge: tok\r\nContent-Length: 5\r\n\r\nhello")))

		assert.True(t, r.BodyComplete())
		assert.Equal(t, 5, r.ContentLength())
		assert.Equal(t, "hello", string(r.Body()))
	})

	t.Run("exact content-length beats a len-suffixed name", func(t *testing.T) {
		r := NewMessageReader()
		require.NoError(t, r.Read([]byte("X-Len: 2\r\nContent-Length: 5\r\n\r\nhello")))

		assert.Equal(t, 5, r.ContentLength())
		assert.Equal(t, "hello", string(r.Body()))
	})

	t.Run("space-separated name", func(t *testing.T) {
		r := NewMessageReader()
		require.NoError(t, r.Read([]byte("Content Length: 2\r\n\r\nok")))

		assert.True(t, r.BodyComplete())
		assert.Equal(t, "ok", string(r.Body()))
	})

	t.Run("length-suffixed name", func(t *testing.T) {
		r := NewMessageReader()
		require.NoError(t, r.Read([]byte("X-Body-Length: 3\r\n\r\nabc")))

		assert.Equal(t, 3, r.ContentLength())
		assert.Equal(t, "abc", string(r.Body()))
	})
}

func TestReaderStartLineIsNotEndOfHeaders(t *testing.T) {
	// The separator-less start line arrives before any header field and
	// must not terminate the header section.
	r := NewMessageReader()
	require.NoError(t, r.Read([]byte("POST /notify HTTP/1.0\r\n")))
	assert.False(t, r.HeaderComplete())

	require.NoError(t, r.Read([]byte("Content-Length: 2\r\n\r\nok")))
	assert.True(t, r.BodyComplete())
	assert.Equal(t, "ok", string(r.Body()))
}

func TestReaderBadContentLength(t *testing.T) {
	tests := []string{
		"Content-Length: five\r\n\r\n",
		"Content-Length: -1\r\n\r\n",
		"Content-Length: \r\n\r\n",
	}

	for _, msg := range tests {
		r := NewMessageReader()
		err := r.Read([]byte(msg))
		assert.ErrorIs(t, err, ErrBadContentLength, "message %q", msg)
	}
}

func TestReaderNoOpAfterComplete(t *testing.T) {
	r := NewMessageReader()
	require.NoError(t, r.Read([]byte("Content-Length: 3\r\n\r\nabcdef")))

	assert.True(t, r.BodyComplete())
	assert.Equal(t, "abc", string(r.Body()))

	// Further reads change nothing.
	require.NoError(t, r.Read([]byte("more data")))
	assert.Equal(t, "abc", string(r.Body()))
}

func TestReaderClear(t *testing.T) {
	r := NewMessageReader()
	require.NoError(t, r.Read([]byte("Content-Length: 3\r\n\r\nabc")))
	require.True(t, r.BodyComplete())

	r.Clear()
	assert.False(t, r.HeaderComplete())
	assert.False(t, r.BodyComplete())
	assert.Empty(t, r.Body())

	require.NoError(t, r.Read([]byte("X-Len: 2\r\n\r\nhi")))
	assert.True(t, r.BodyComplete())
	assert.Equal(t, "hi", string(r.Body()))
}

func TestReaderBodyAccounting(t *testing.T) {
	// Accumulated body length always equals the bytes appended to the
	// body buffer, whichever chunk carried the blank line.
	r := NewMessageReader()
	require.NoError(t, r.Read([]byte("Content-Length: 10\r\n\r\n12345")))
	assert.False(t, r.BodyComplete())
	assert.Len(t, r.Body(), 5)

	require.NoError(t, r.Read([]byte("678")))
	assert.Len(t, r.Body(), 8)
	assert.False(t, r.BodyComplete())

	require.NoError(t, r.Read([]byte("90")))
	assert.True(t, r.BodyComplete())
	assert.Equal(t, "1234567890", string(r.Body()))
}
