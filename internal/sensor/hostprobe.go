package sensor

import (
	"bufio"
	"os"
	"runtime"
	"strings"
)

// HostInfo holds the machine facts sent as registration metadata and
// exposed as static sensors.
type HostInfo struct {
	Hostname  string
	OSName    string
	OSVersion string
}

// ProbeHost collects host facts. Failures degrade to empty fields; a
// machine without a readable os-release still registers.
func ProbeHost() HostInfo {
	info := HostInfo{
		OSName: osName(),
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}
	info.OSVersion = osVersion()

	return info
}

// osName maps the runtime platform to a display name.
func osName() string {
	switch runtime.GOOS {
	case "linux":
		return "Linux"
	case "darwin":
		return "macOS"
	case "windows":
		return "Windows"
	default:
		return runtime.GOOS
	}
}

// osVersion reads a human-readable OS version where one is cheaply
// available. Linux exposes PRETTY_NAME in os-release; elsewhere the
// platform name alone has to do.
func osVersion() string {
	if runtime.GOOS != "linux" {
		return ""
	}

	f, err := os.Open("/etc/os-release")
	if err != nil {
		return ""
	}
	defer f.Close() //nolint:errcheck // Read-only file

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
			return strings.Trim(v, `"`)
		}
	}
	return ""
}
