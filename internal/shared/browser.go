package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

var browserCommands = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

// browserCommand returns the argv that opens url on goos.
func browserCommand(goos, url string) ([]string, error) {
	base, ok := browserCommands[goos]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
	return append(append([]string{}, base...), url), nil
}

// OpenBrowser launches the system browser at url, used for the AniList authorization page.
func OpenBrowser(url string) error {
	argv, err := browserCommand(getRuntime(), url)
	if err != nil {
		return err
	}
	if err := exec.Command(argv[0], argv[1:]...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
