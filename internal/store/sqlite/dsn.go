package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// driverDSN maps sqlite://path[?query] onto the form the driver expects.
// Relative paths are anchored at dir, or at the working directory when dir
// is empty.
func driverDSN(dsn, dir string) (string, error) {
	rest, ok := strings.CutPrefix(dsn, "sqlite://")
	if !ok {
		return "", fmt.Errorf("invalid sqlite DSN scheme, expected sqlite://")
	}
	if rest == ":memory:" {
		return rest, nil
	}

	path, query, _ := strings.Cut(rest, "?")
	path, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("unescaping path: %w", err)
	}
	if path == "" {
		return "", fmt.Errorf("sqlite DSN has no path")
	}

	switch {
	case filepath.IsAbs(path):
	case dir != "":
		path = filepath.Join(dir, path)
	case !strings.HasPrefix(path, "./"):
		path = "./" + path
	}
	if query != "" {
		path += "?" + query
	}
	return path, nil
}
