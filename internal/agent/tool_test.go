package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tome/internal/agent"
	"tome/internal/vector"
)

func TestNewSearchTool(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockSearcher)

	e.On("Embed", mock.Anything, "find me").Return([]float32{0.3, 0.4}, nil)
	s.On("Query", mock.Anything, []float32{0.3, 0.4}, 3).
		Return([]vector.Match{match("hit", "a.txt", 0.7)}, nil)

	tool := agent.NewSearchTool(e, s, 3)
	assert.Equal(t, "semantic_search", tool.Name)
	assert.NotEmpty(t, tool.Description)

	matches, err := tool.Run(context.Background(), "find me")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "hit", matches[0].Content)
	e.AssertExpectations(t)
	s.AssertExpectations(t)
}

func TestNewSearchTool_EmbedError(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockSearcher)
	e.On("Embed", mock.Anything, "q").Return(nil, errors.New("boom"))

	tool := agent.NewSearchTool(e, s, 3)
	_, err := tool.Run(context.Background(), "q")
	assert.ErrorContains(t, err, "embed query")
	s.AssertNotCalled(t, "Query")
}
