package npm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
)

var errVersionNotFound = errors.New("version entry not found")

// PackageJSONRepository reads and edits package.json in place.
type PackageJSONRepository struct{}

// NewManifestRepository creates the package.json editor.
func NewManifestRepository() repositories.ManifestRepository {
	return &PackageJSONRepository{}
}

func (it *PackageJSONRepository) Read(_ context.Context, dir string) (*entities.Manifest, error) {
	content, err := os.ReadFile(filepath.Join(dir, entities.ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", entities.ManifestFileName, err)
	}
	return entities.ParseManifest(content)
}

// SetVersion replaces only the bytes of the version string so indentation,
// key order and trailing newline stay as the authors left them.
func (it *PackageJSONRepository) SetVersion(
	_ context.Context,
	dir string,
	section entities.DependencySection,
	packageName, versionRange string,
) error {
	path := filepath.Join(dir, entities.ManifestFileName)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", entities.ManifestFileName, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", entities.ManifestFileName, err)
	}

	updated, err := replaceVersion(content, string(section), packageName, versionRange)
	if err != nil {
		return fmt.Errorf("failed to set %s in %s: %w", packageName, section, err)
	}
	if err = os.WriteFile(path, updated, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", entities.ManifestFileName, err)
	}
	return nil
}

// frame is one open JSON container while walking the token stream.
type frame struct {
	object    bool
	name      string // key under which the container sits in its parent
	expectKey bool
	key       string // last key read inside this object
}

func replaceVersion(content []byte, section, packageName, versionRange string) ([]byte, error) {
	decoder := json.NewDecoder(bytes.NewReader(content))
	var stack []*frame

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil, errVersionNotFound
		}
		if err != nil {
			return nil, err
		}

		var top *frame
		if len(stack) > 0 {
			top = stack[len(stack)-1]
		}
		if delim, ok := token.(json.Delim); ok {
			switch delim {
			case '{', '[':
				name := ""
				if top != nil {
					name = top.key
				}
				stack = append(stack, &frame{object: delim == '{', name: name, expectKey: delim == '{'})
			default:
				stack = stack[:len(stack)-1]
				if len(stack) > 0 && stack[len(stack)-1].object {
					stack[len(stack)-1].expectKey = true
				}
			}
			continue
		}

		if top != nil && top.object && top.expectKey {
			top.key, _ = token.(string)
			top.expectKey = false
			continue
		}

		if _, isString := token.(string); isString && len(stack) == 2 &&
			stack[0].object && stack[1].object && stack[1].name == section && top.key == packageName {
			end := int(decoder.InputOffset())
			start := bytes.LastIndexByte(content[:end-1], '"')
			encoded, marshalErr := json.Marshal(versionRange)
			if marshalErr != nil {
				return nil, marshalErr
			}
			result := make([]byte, 0, len(content)+len(encoded))
			result = append(result, content[:start]...)
			result = append(result, encoded...)
			return append(result, content[end:]...), nil
		}

		if top != nil && top.object {
			top.expectKey = true
		}
	}
}
