package source

import (
	"os"
	"strings"
)

const osReleasePath = "/etc/os-release"

// osReleaseName returns PRETTY_NAME (or NAME) from an os-release file, or ""
// when the file is missing.
func osReleaseName(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	fields := parseKeyValueFile(string(content))
	if pretty, ok := fields["PRETTY_NAME"]; ok {
		return pretty
	}
	return fields["NAME"]
}

// parseKeyValueFile parses KEY=VALUE lines, dropping surrounding quotes.
func parseKeyValueFile(content string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[key] = strings.Trim(value, `"'`)
	}
	return fields
}
