package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// SearchDirs returns the fixed lookup order tried before falling back to PATH.
func SearchDirs(home string) []string {
	dirs := make([]string, 0, 3)
	if home = strings.TrimSpace(home); home != "" {
		dirs = append(dirs, filepath.Join(home, ".local", "bin"))
	}
	return append(dirs, "/usr/local/bin", "/opt/homebrew/bin")
}

// Resolve locates name using SearchDirs for the current user. Names that
// already contain a path separator are returned unchanged, and the bare name
// is returned when no candidate is executable so exec falls back to PATH.
func Resolve(name string) string {
	home, _ := os.UserHomeDir()
	return ResolveIn(name, SearchDirs(home))
}

// ResolveIn is Resolve with an explicit directory list.
func ResolveIn(name string, dirs []string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsRune(name, os.PathSeparator) || strings.Contains(name, "/") {
		return name
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, executableName(name))
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return candidate
		}
	}
	return name
}

// ExtractorEnv returns the environment for extractor invocations: the current
// environment with $HOME/.deno/bin prepended to PATH so JavaScript challenge
// solvers are found.
func ExtractorEnv(environ []string, home string) []string {
	env := make([]string, 0, len(environ)+1)
	var path string
	for _, kv := range environ {
		if strings.HasPrefix(kv, "PATH=") {
			path = strings.TrimPrefix(kv, "PATH=")
			continue
		}
		env = append(env, kv)
	}
	if home = strings.TrimSpace(home); home != "" {
		deno := filepath.Join(home, ".deno", "bin")
		if path == "" {
			path = deno
		} else {
			path = deno + string(os.PathListSeparator) + path
		}
	}
	if path != "" {
		env = append(env, "PATH="+path)
	}
	return env
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
