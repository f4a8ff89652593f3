package renamer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/renami-app/renami/internal/domain"
)

// maxCollisionSuffix bounds the _N search in ResolveDestination.
const maxCollisionSuffix = 10000

var illegalNameChars = strings.NewReplacer(
	"<", "-", ">", "-", ":", "-", `"`, "-",
	"/", "-", `\`, "-", "|", "-", "?", "-", "*", "-",
)

// Sanitize replaces each of < > : " / \ | ? * with a hyphen and leaves every
// other character unchanged.
func Sanitize(name string) string {
	return illegalNameChars.Replace(name)
}

// FinalBase turns a model suggestion into the base name (without extension)
// for a file whose original extension is ext. A trailing copy of ext is
// dropped, compared case-insensitively.
func FinalBase(suggestion, ext string) (string, error) {
	base := Sanitize(strings.TrimSpace(suggestion))
	if ext != "" && len(base) > len(ext) && strings.EqualFold(base[len(base)-len(ext):], ext) {
		base = base[:len(base)-len(ext)]
	}
	if strings.TrimSpace(base) == "" || strings.EqualFold(base, ext) {
		return "", domain.ErrEmptySuggestion
	}
	return base, nil
}

// ResolveDestination returns the first free path among dir/base+ext,
// dir/base_1+ext, dir/base_2+ext, ... where dir is src's directory. src itself
// never counts as taken. Existence is re-checked on every candidate but not
// locked; a concurrent writer can claim the name before the rename.
func ResolveDestination(fs afero.Fs, src, base, ext string) (string, error) {
	dir := filepath.Dir(src)
	candidate := filepath.Join(dir, base+ext)
	for i := 1; ; i++ {
		if filepath.Clean(candidate) == filepath.Clean(src) {
			return src, nil
		}
		_, err := fs.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check %s: %w", candidate, err)
		}
		if i > maxCollisionSuffix {
			return "", fmt.Errorf("no free name for %s%s after %d attempts", base, ext, maxCollisionSuffix)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
}
