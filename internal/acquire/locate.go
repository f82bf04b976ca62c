package acquire

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var ErrBrowserNotFound = errors.New("no browser executable found")

// HostedBundlePaths are where serverless deployments unpack their bundled chromium.
var HostedBundlePaths = []string{
	"/opt/chromium",
	"/opt/bin/chromium",
	"/opt/headless-shell/headless-shell",
	"/tmp/chromium",
}

var localInstallPaths = map[string][]string{
	"linux": {
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	},
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	},
	"windows": {
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	},
}

var executableNames = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"chrome",
}

type LocateOptions struct {
	// ExecPath is used as-is when set, it must exist.
	ExecPath string
	// Hosted makes the bundled serverless paths take precedence over local installs.
	Hosted bool

	// the following exist for tests, they default to the platform's values.
	HostedPaths []string
	LocalPaths  []string
	LookPath    func(file string) (string, error)
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LocateBrowser finds the browser executable the rendered strategy should launch.
func LocateBrowser(opts LocateOptions) (string, error) {
	if opts.ExecPath != "" {
		if !isExecutableFile(opts.ExecPath) {
			return "", fmt.Errorf("%w: configured path %s does not exist", ErrBrowserNotFound, opts.ExecPath)
		}
		return opts.ExecPath, nil
	}

	hostedPaths := opts.HostedPaths
	if hostedPaths == nil {
		hostedPaths = HostedBundlePaths
	}
	localPaths := opts.LocalPaths
	if localPaths == nil {
		localPaths = localInstallPaths[runtime.GOOS]
	}
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	var candidates []string
	if opts.Hosted {
		candidates = append(candidates, hostedPaths...)
	}
	candidates = append(candidates, localPaths...)

	for _, candidate := range candidates {
		if isExecutableFile(candidate) {
			return candidate, nil
		}
	}
	for _, name := range executableNames {
		path, err := lookPath(name)
		if err == nil {
			return path, nil
		}
	}

	return "", ErrBrowserNotFound
}
