package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestReadCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare code", input: "4/0AbCdEf\n", want: "4/0AbCdEf"},
		{name: "no trailing newline", input: "4/0AbCdEf", want: "4/0AbCdEf"},
		{name: "surrounding spaces", input: "  4/0AbCdEf  \n", want: "4/0AbCdEf"},
		{
			name:  "redirect url",
			input: "http://localhost:5001/oauth2callback?state=xyz&code=4%2F0AbCdEf&scope=calendar\n",
			want:  "4/0AbCdEf",
		},
		{name: "empty", input: "\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readCode(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintTokens(t *testing.T) {
	var buf bytes.Buffer
	printTokens(&buf, &oauth2.Token{AccessToken: "ya29.access", RefreshToken: "1//refresh"})

	assert.Contains(t, buf.String(), "G_ACCESS_TOKEN=ya29.access\n")
	assert.Contains(t, buf.String(), "G_REFRESH_TOKEN=1//refresh\n")

	buf.Reset()
	printTokens(&buf, &oauth2.Token{AccessToken: "ya29.access"})
	assert.NotContains(t, buf.String(), "G_REFRESH_TOKEN")
}

func TestAuthCmd_RequiresClient(t *testing.T) {
	t.Setenv("G_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("G_CLIENT_SECRET", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")

	cmd := newAuthCmd()
	cmd.SetArgs([]string{})
	cmd.SetIn(strings.NewReader("code\n"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client ID is required")
}
