package observability_test

import (
	"testing"

	"github.com/rs/zerolog"

	"review_dashboard/internal/adapters/observability"
)

func TestNewLogger_Levels(t *testing.T) {
	cases := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"prod", "", zerolog.InfoLevel},
		{"dev", "", zerolog.DebugLevel},
		{"prod", "warn", zerolog.WarnLevel},
		{"development", "error", zerolog.ErrorLevel},
		{"prod", "loud", zerolog.InfoLevel},
	}
	for _, c := range cases {
		l := observability.NewLogger(c.env, "review-api", c.level)
		if got := l.GetLevel(); got != c.want {
			t.Fatalf("env=%s level=%q: got %s want %s", c.env, c.level, got, c.want)
		}
	}
}
