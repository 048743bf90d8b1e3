package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// launchers maps GOOS to the command that hands a URL to the default
// browser.
var launchers = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"windows": {"cmd", "/c", "start"},
}

var goos = func() string { return runtime.GOOS }

var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// OpenBrowser hands the URL to the platform's default browser. The
// login flow depends on this: the authorize page must render in the
// user's own browser session so the provider can reuse their cookies.
func OpenBrowser(url string) error {
	argv, ok := launchers[goos()]
	if !ok {
		return fmt.Errorf("no browser launcher for platform %s", goos())
	}
	if err := startCommand(argv[0], append(argv[1:], url)...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
