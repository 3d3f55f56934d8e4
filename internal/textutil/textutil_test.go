package textutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ragchat/internal/textutil"
)

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"aes", "block", "cipher"}, textutil.Tokens("AES is a block cipher"))
	assert.Equal(t, []string{"aes"}, textutil.Tokens("What is AES?"))
	assert.Equal(t, []string{"rfc", "5246", "tls"}, textutil.Tokens("RFC 5246: TLS"))
	assert.Empty(t, textutil.Tokens("the and of"))
}

func TestSentences(t *testing.T) {
	assert.Equal(t, []string{"One.", "Two!", "Three?"}, textutil.Sentences("One. Two! Three?"))
	assert.Equal(t, []string{"no punctuation"}, textutil.Sentences("  no punctuation "))
	assert.Nil(t, textutil.Sentences("   "))
}
