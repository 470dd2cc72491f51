package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// browserCommand returns the argv that opens url on the given platform.
func browserCommand(goos, url string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{"open", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return []string{"xdg-open", url}, nil
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenBrowser opens the default system browser at url, used to start the Google consent flow.
func OpenBrowser(url string) error {
	argv, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}

	if err := exec.Command(argv[0], argv[1:]...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
