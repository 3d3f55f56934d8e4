package completion_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/completion"
)

type sliceStream struct {
	deltas []completion.Delta
	err    error
	closed bool
}

func (s *sliceStream) Recv() (completion.Delta, error) {
	if len(s.deltas) == 0 {
		if s.err != nil {
			return completion.Delta{}, s.err
		}
		return completion.Delta{}, io.EOF
	}
	d := s.deltas[0]
	s.deltas = s.deltas[1:]
	return d, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

func TestCollect(t *testing.T) {
	s := &sliceStream{deltas: []completion.Delta{{Content: "Hel"}, {}, {Content: "lo"}, {FinishReason: "stop"}}}
	var seen int
	out, err := completion.Collect(s, func(completion.Delta) error {
		seen++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)
	assert.Equal(t, 3, seen)
	assert.True(t, s.closed)
}

func TestCollectPropagatesErrors(t *testing.T) {
	boom := errors.New("connection reset")
	s := &sliceStream{deltas: []completion.Delta{{Content: "partial"}}, err: boom}
	out, err := completion.Collect(s, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", out)
	assert.True(t, s.closed)
}
