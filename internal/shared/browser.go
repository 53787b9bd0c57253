package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var (
	getRuntime = func() string { return runtime.GOOS }
	startCmd   = func(cmd *exec.Cmd) error { return cmd.Start() }
)

// OpenBrowser sends the user to the Spotify authorization page at url.
//
// $BROWSER wins when set; otherwise the platform opener is used on macOS, Linux and Windows.
func OpenBrowser(url string) error {
	cmd, err := browserCommand(url)
	if err != nil {
		return err
	}

	if err := startCmd(cmd); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}

func browserCommand(url string) (*exec.Cmd, error) {
	if browser := os.Getenv("BROWSER"); browser != "" {
		return exec.Command(browser, url), nil
	}

	switch rt := getRuntime(); rt {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", url), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", rt)
	}
}
