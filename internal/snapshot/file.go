package snapshot

import (
	"os"
	"path/filepath"

	"github.com/maksimkurb/pbr-lens/internal/errors"
	"github.com/maksimkurb/pbr-lens/internal/log"
	"github.com/maksimkurb/pbr-lens/internal/routing"
)

// Dump file names inside a FileSource directory.
const (
	RulesV4File  = "rules.v4"
	RulesV6File  = "rules.v6"
	RoutesV4File = "routes.v4"
	RoutesV6File = "routes.v6"
)

// FileSource replays a snapshot saved to plain text files, e.g. captured on
// another host with `ip -4 rule show > rules.v4`. A missing file counts as an
// empty blob, so dumps from hosts without IPv6 work as-is.
type FileSource struct {
	Dir string
}

// NewFileSource creates a source reading dump files from dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

// Rules returns the saved `ip rule show` output for the family.
func (s *FileSource) Rules(family routing.Family) (string, error) {
	name := RulesV4File
	if family == routing.V6 {
		name = RulesV6File
	}
	return s.read(name)
}

// Routes returns the saved `ip route show table all` output for the family.
func (s *FileSource) Routes(family routing.Family) (string, error) {
	name := RoutesV4File
	if family == routing.V6 {
		name = RoutesV6File
	}
	return s.read(name)
}

func (s *FileSource) read(name string) (string, error) {
	path := filepath.Join(s.Dir, name)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("Dump file %s not found, treating as empty", path)
			return "", nil
		}
		return "", errors.NewSnapshotError("reading dump file "+path, err)
	}

	return string(content), nil
}
