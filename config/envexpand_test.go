package config

import "testing"

func TestExpandEnv_SetVar(t *testing.T) {
	t.Setenv("BEACON_TEST_VAR", "hello")

	got := ExpandEnv("value: ${BEACON_TEST_VAR}")
	want := "value: hello"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_UnsetVar(t *testing.T) {
	got := ExpandEnv("value: ${UNSET_VAR_12345}")
	want := "value: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_Defaults(t *testing.T) {
	t.Setenv("BEACON_SET", "real")
	t.Setenv("BEACON_EMPTY", "")

	tests := []struct {
		in, want string
	}{
		{"${UNSET_VAR_12345:-fallback}", "fallback"},
		{"${BEACON_SET:-fallback}", "real"},
		{"${BEACON_EMPTY:-fallback}", "fallback"},
		{"${BEACON_SET}:${UNSET_VAR_12345:-x}", "real:x"},
		{"no variables here", "no variables here"},
		{"$BEACON_SET stays", "$BEACON_SET stays"},
	}
	for _, tt := range tests {
		if got := ExpandEnv(tt.in); got != tt.want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandEnvFunc_ReportsMissing(t *testing.T) {
	lookup := func(name string) (string, bool) {
		if name == "API_KEY" {
			return "k", true
		}
		return "", false
	}
	got, missing := ExpandEnvFunc("key: ${API_KEY}\nurl: ${METRICS_URL}\nlevel: ${LEVEL:-info}", lookup)

	want := "key: k\nurl: \nlevel: info"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if len(missing) != 1 || missing[0] != "METRICS_URL" {
		t.Errorf("missing = %v, want [METRICS_URL]", missing)
	}
}
