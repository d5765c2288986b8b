package git

import (
	"regexp"
	"sort"
)

var (
	submoduleStatusPattern = regexp.MustCompile(`^.[0-9a-fA-F]{40} (.+?)( \(.+\))?$`)
	submoduleURLPattern    = regexp.MustCompile(`^submodule\.(.+)\.url (.+)$`)
	submodulePathPattern   = regexp.MustCompile(`^submodule\.(.+)\.path (.+)$`)
)

// ParseSubmoduleStatus returns the paths listed by `git submodule status`,
// in order.
func ParseSubmoduleStatus(lines []string) ([]string, error) {
	folders := []string{}
	for _, line := range lines {
		m := submoduleStatusPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, &ParseError{Parser: "git submodule status", Line: line, Output: lines}
		}
		folders = append(folders, m[1])
	}
	return folders, nil
}

// ParseSubmoduleURLs maps submodule names to URLs from
// `git config --get-regexp ^submodule\..+\.url` output.
func ParseSubmoduleURLs(lines []string) (map[string]string, error) {
	return parseSubmoduleKeys(submoduleURLPattern, lines)
}

// ParseSubmodulePaths maps submodule names to working-tree paths from
// `git config -f .gitmodules --get-regexp ^submodule\..+\.path` output.
func ParseSubmodulePaths(lines []string) (map[string]string, error) {
	return parseSubmoduleKeys(submodulePathPattern, lines)
}

func parseSubmoduleKeys(pattern *regexp.Regexp, lines []string) (map[string]string, error) {
	values := make(map[string]string, len(lines))
	for _, line := range lines {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			return nil, &ParseError{Parser: "git config", Line: line, Output: lines}
		}
		values[m[1]] = m[2]
	}
	return values, nil
}

// submoduleURLsByPath joins name-keyed URLs with the manifest's name to path
// mapping. A name the manifest does not list is taken to be its own path.
func submoduleURLsByPath(urls, paths map[string]string) map[string]string {
	byPath := make(map[string]string, len(urls))
	for name, url := range urls {
		path, ok := paths[name]
		if !ok || path == "" {
			path = name
		}
		byPath[path] = url
	}
	return byPath
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
