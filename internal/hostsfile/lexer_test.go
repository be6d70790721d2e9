package hostsfile_test

import (
	"testing"

	"github.com/nsserver/kdns/internal/hostsfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allPairs(t *testing.T, data string) [][2]string {
	t.Helper()
	lex := hostsfile.New([]byte(data))
	var pairs [][2]string
	for {
		host, ip, ok, err := lex.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		pairs = append(pairs, [2]string{host, ip})
	}
	return pairs
}

func TestLexerBasicLine(t *testing.T) {
	pairs := allPairs(t, "10.0.0.1 example.local\n")
	require.Len(t, pairs, 1)
	assert.Equal(t, "example.local", pairs[0][0])
	assert.Equal(t, "10.0.0.1", pairs[0][1])
}

func TestLexerMultipleLinesWithCommentsAndBlanks(t *testing.T) {
	data := "# a comment\n\n10.0.0.1 example.local\n  10.0.0.2   other.test  # trailing comment\n"
	pairs := allPairs(t, data)
	require.Len(t, pairs, 2)
	assert.Equal(t, [2]string{"example.local", "10.0.0.1"}, pairs[0])
	assert.Equal(t, [2]string{"other.test", "10.0.0.2"}, pairs[1])
}

func TestLexerNoTrailingNewline(t *testing.T) {
	pairs := allPairs(t, "10.0.0.1 example.local")
	require.Len(t, pairs, 1)
	assert.Equal(t, "example.local", pairs[0][0])
}

func TestLexerFormatErrorSingleToken(t *testing.T) {
	lex := hostsfile.New([]byte("onlyonetoken\n"))
	_, _, _, err := lex.Next()
	assert.Error(t, err)
}

func TestLexerFormatErrorGarbageAfterHost(t *testing.T) {
	lex := hostsfile.New([]byte("10.0.0.1 example.local garbage\n"))
	_, _, _, err := lex.Next()
	assert.Error(t, err)
}

func TestLexerReportsLineNumber(t *testing.T) {
	lex := hostsfile.New([]byte("10.0.0.1 good.test\n10.0.0.2 bad garbage\n"))

	host, ip, ok, err := lex.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "good.test", host)
	assert.Equal(t, "10.0.0.1", ip)

	_, _, _, err = lex.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
