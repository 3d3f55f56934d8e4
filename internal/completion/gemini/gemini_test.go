package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"ragchat/internal/completion"
	"ragchat/internal/domain"
)

func TestConvertMapsRolesAndSystemInstruction(t *testing.T) {
	contents, config := convert(completion.Request{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "be brief"},
			{Role: domain.RoleUser, Content: "hi"},
			{Role: domain.RoleAssistant, Content: "hello"},
			{Role: domain.RoleUser, Content: "bye"},
		},
		Temperature: 0.5,
		MaxTokens:   100,
		Stop:        []string{"END"},
	})

	require.Len(t, contents, 3)
	assert.Equal(t, "user", string(contents[0].Role))
	assert.Equal(t, "model", string(contents[1].Role))
	assert.Equal(t, "bye", contents[2].Parts[0].Text)

	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "be brief", config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, genai.Ptr(float32(0.5)), config.Temperature)
	assert.EqualValues(t, 100, config.MaxOutputTokens)
	assert.Equal(t, []string{"END"}, config.StopSequences)
}

func TestConvertWithoutSystemMessage(t *testing.T) {
	contents, config := convert(completion.Request{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	assert.Len(t, contents, 1)
	assert.Nil(t, config.SystemInstruction)
	assert.Zero(t, config.MaxOutputTokens)
}
