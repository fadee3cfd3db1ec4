package export

import (
	"fmt"

	"vnpipe/internal/services"
)

// MaxVersion is the largest number a three-digit version field can hold.
const MaxVersion = 999

// VersionSuffix returns "_v" followed by n zero padded to three digits.
// Numbers outside [0, MaxVersion] are rejected rather than truncated.
func VersionSuffix(n int) (string, error) {
	if n < 0 || n > MaxVersion {
		return "", services.Wrap(services.ErrValidation, "export", "version",
			fmt.Sprintf("version %d outside 0..%d", n, MaxVersion), nil)
	}
	return fmt.Sprintf("_v%03d", n), nil
}

// VersionLabel joins name and the version suffix, e.g. Rock01_v004.
func VersionLabel(name string, n int) (string, error) {
	suffix, err := VersionSuffix(n)
	if err != nil {
		return "", err
	}
	return name + suffix, nil
}
