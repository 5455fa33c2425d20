package human

import (
	"encoding"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Path is a path on the host file system. A leading "~" stands for the home
// directory of the user running the program; it is expanded when the path is
// set from a flag or a configuration file.
type Path string

func (p Path) String() string {
	return string(p)
}

func (p *Path) Set(s string) error {
	path, err := expandHome(s)
	if err != nil {
		return err
	}
	*p = Path(path)
	return nil
}

// Resolve returns the path with the home directory expanded.
func (p Path) Resolve() (string, error) {
	return expandHome(string(p))
}

func (p *Path) UnmarshalText(b []byte) error {
	return p.Set(string(b))
}

// expandHome replaces "~" at the start of path by the home directory. Other
// users' home directories ("~user") are not expanded.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", path, err)
	}
	return filepath.Join(home, path[1:]), nil
}

var (
	_ encoding.TextUnmarshaler = (*Path)(nil)
	_ flag.Value               = (*Path)(nil)
)
