package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigCandidates returns relative paths that will be checked (in order)
// when searching for a default runtime config.
func DefaultConfigCandidates() []string {
	return []string{
		"runtime.yaml",
		"runtime.yml",
		"bootstrap.yaml",
		"bootstrap.yml",
	}
}

// FindDefaultConfigFile searches the task root, the CWD and then the
// executable directory.
func FindDefaultConfigFile(taskRoot string) (string, error) {
	candidates := DefaultConfigCandidates()

	var dirs []string
	if taskRoot != "" {
		dirs = append(dirs, taskRoot)
	}
	dirs = append(dirs, ".")
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	for _, dir := range dirs {
		for _, rel := range candidates {
			p := rel
			if dir != "." {
				p = filepath.Join(dir, rel)
			}
			if st, err := os.Stat(p); err == nil && !st.IsDir() {
				return p, nil
			}
		}
	}

	return "", fmt.Errorf("config: not found (expected %v)", candidates)
}
