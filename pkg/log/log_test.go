package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/log"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{in: "", want: zerolog.InfoLevel},
		{in: " DEBUG ", want: zerolog.DebugLevel},
		{in: "warn", want: zerolog.WarnLevel},
		{in: "loud", want: zerolog.InfoLevel, wantErr: true},
	}

	for _, tc := range cases {
		got, err := log.ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) err = %v", tc.in, err)
		}

		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(configs.LogConfig{Level: "warn", Format: "json"}, false, &buf)
	l.Info().Msg("hidden")
	l.Warn().Str("token", "abc…").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %s", out)
	}

	if !strings.Contains(out, `"message":"shown"`) || !strings.Contains(out, `"service":"quickdrop"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestGinWriter(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(configs.LogConfig{Level: "info", Format: "json"}, false, &buf)
	w := log.NewGinWriter(&l, zerolog.ErrorLevel)

	n, err := w.Write([]byte("[GIN-debug] boom\n"))
	if err != nil || n != len("[GIN-debug] boom\n") {
		t.Fatalf("write = %d, %v", n, err)
	}

	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), `"source":"gin"`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
