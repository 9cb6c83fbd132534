package main

import (
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitErrHandler_NilError(t *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

// testApp returns the app with exit handling captured instead of exiting.
func testApp(got *error) *cli.App {
	app := newApp()
	app.ExitErrHandler = func(_ *cli.Context, err error) { *got = err }
	return app
}

func TestApp_Commands(t *testing.T) {
	app := newApp()
	want := map[string]bool{"simulate": false, "xray": false, "version": false}
	for _, c := range app.Commands {
		if _, ok := want[c.Name]; ok {
			want[c.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestApp_VersionRejectsTUI(t *testing.T) {
	var handled error
	err := testApp(&handled).Run([]string{"beacon", "version", "--tui"})
	if err == nil {
		t.Fatal("version --tui should fail")
	}

	var exitCoder cli.ExitCoder
	if !errors.As(err, &exitCoder) || exitCoder.ExitCode() != 1 {
		t.Errorf("error = %v, want exit code 1", err)
	}
	if handled == nil {
		t.Error("ExitErrHandler not invoked")
	}
}

func TestApp_XrayRequiresArchive(t *testing.T) {
	var handled error
	if err := testApp(&handled).Run([]string{"beacon", "xray"}); err == nil {
		t.Error("xray without --archive should fail")
	}
}

func TestApp_InvalidFormat(t *testing.T) {
	var handled error
	if err := testApp(&handled).Run([]string{"beacon", "version", "--format", "xml"}); err == nil {
		t.Error("invalid --format should fail")
	}
}
