package export

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// BinaryEnv names the environment variable that overrides the renderer path.
const BinaryEnv = "OPENSCAD_BIN"

const macBundle = "/Applications/OpenSCAD.app/Contents/MacOS/OpenSCAD"

// ErrRendererNotFound means no OpenSCAD binary could be located.
var ErrRendererNotFound = errors.New("openscad binary not found")

// ResolveBinary locates the renderer: the explicit path if given, then
// $OPENSCAD_BIN, then openscad on PATH, then the macOS app bundle.
func ResolveBinary(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrRendererNotFound, explicit, err)
		}
		return explicit, nil
	}
	if env := os.Getenv(BinaryEnv); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("%w: $%s=%s: %v", ErrRendererNotFound, BinaryEnv, env, err)
		}
		return env, nil
	}
	if p, err := exec.LookPath("openscad"); err == nil {
		return p, nil
	}
	if runtime.GOOS == "darwin" {
		if _, err := os.Stat(macBundle); err == nil {
			return macBundle, nil
		}
	}
	return "", fmt.Errorf("%w: install OpenSCAD or set $%s", ErrRendererNotFound, BinaryEnv)
}
