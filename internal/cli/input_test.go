package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

// stubPasswords makes readPassword return answers in order, then io.EOF.
func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, io.EOF
		}
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("  hello world \n"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleText_EOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	assert.ErrorIs(t, err, io.EOF)
}

func TestGetTextWithDefault(t *testing.T) {
	var out bytes.Buffer
	got, err := GetTextWithDefault(rdr("\n"), "URL", "https://example.com", &out)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)
	assert.Contains(t, out.String(), "URL [https://example.com]")

	got, err = GetTextWithDefault(rdr("https://go.dev\n"), "URL", "https://example.com", &out)
	require.NoError(t, err)
	assert.Equal(t, "https://go.dev", got)
}

func TestGetMultiline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"stops on empty line", "a\nb\n\nc\n", "a\nb"},
		{"crlf", "a\r\nb\r\n\r\n", "a\nb"},
		{"immediate blank", "\n", ""},
		{"eof without blank", "a\nb", "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetMultiline(rdr(tt.input), "Content", &out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetPassword(t *testing.T) {
	stubPasswords(t, "s3cret")
	var out bytes.Buffer
	got, err := GetPassword("Passphrase", &out)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), got)
	assert.Equal(t, "Passphrase: \n", out.String())
}

func TestGetPassword_Error(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }

	var out bytes.Buffer
	_, err := GetPassword("Passphrase", &out)
	require.Error(t, err)
}
