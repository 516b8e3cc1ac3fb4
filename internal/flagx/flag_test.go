package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	server := []string{"-a", "-d", "-max-files"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"separate values", []string{"-a", ":7000", "-c", "conf.json", "-max-files", "5"}, []string{"-a", ":7000", "-max-files", "5"}},
		{"equals form", []string{"-d=postgres://db", "-x=1"}, []string{"-d=postgres://db"}},
		{"foreign flags and positionals dropped", []string{"-x", "1", "--y=2", "positional"}, []string{}},
		{"missing value at end", []string{"-max-files"}, []string{"-max-files"}},
		{"dash token is never a value", []string{"-a", "-d", "dsn"}, []string{"-a", "-d", "dsn"}},
		{"equals value may start with dash", []string{"-d=--odd"}, []string{"-d=--odd"}},
		{"repeats kept in order", []string{"-a", ":1", "-a", ":2"}, []string{"-a", ":1", "-a", ":2"}},
		{"empty", []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, server))
		})
	}
}

func TestFilterArgsWithBools(t *testing.T) {
	args := []string{"-profile-medical", "-w", "4", "-x", "y", "-profile-medical=false", "positional"}

	got := FilterArgsWithBools(args, []string{"-w"}, []string{"-profile-medical"})
	assert.Equal(t, []string{"-profile-medical", "-w", "4", "-profile-medical=false"}, got)
}

func TestFilterArgsWithBools_BoolDoesNotEatValue(t *testing.T) {
	got := FilterArgsWithBools([]string{"-v", "value"}, nil, []string{"-v"})
	assert.Equal(t, []string{"-v"}, got)
}

func TestJsonConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/meduploads.json", JsonConfigPath([]string{"--config=/etc/meduploads.json"}))
	assert.Equal(t, "/p/short.json", JsonConfigPath([]string{"-a", ":7000", "-c", "/p/short.json"}))
	assert.Equal(t, "/p/2.json", JsonConfigPath([]string{"-c", "/p/1.json", "-config", "/p/2.json"}))
	assert.Empty(t, JsonConfigPath([]string{"-x", "1"}))
	assert.Empty(t, JsonConfigPath(nil))
}

func TestJsonConfigFlags_ReadsOSArgs(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"meduploads", "-config", "/srv/conf.json"}
	assert.Equal(t, "/srv/conf.json", JsonConfigFlags())
}
