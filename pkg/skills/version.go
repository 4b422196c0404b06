package skills

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Snapshot is a content fingerprint of one skill at a point in time. Two
// snapshots over identical file content produce the same ContentHash.
type Snapshot struct {
	SkillName   string
	ContentHash string
	FilesJSON   string // manifest: normalized relative path -> per-file sha256
}

// Fingerprint hashes the full file set under a skill directory. The result
// is a pure function of file paths and contents, independent of filesystem
// iteration order.
func Fingerprint(dir string) (hash string, filesJSON string, err error) {
	manifest := make(map[string]string)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", path)
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return errors.Wrapf(err, "failed to relativize %s", path)
		}

		fileSum := sha256.Sum256(content)
		manifest[filepath.ToSlash(rel)] = hex.EncodeToString(fileSum[:])
		return nil
	})
	if err != nil {
		return "", "", errors.Wrapf(err, "failed to walk skill directory %s", dir)
	}

	paths := make([]string, 0, len(manifest))
	for path := range manifest {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, path := range paths {
		h.Write([]byte(path))
		h.Write([]byte{0})
		h.Write([]byte(manifest[path]))
		h.Write([]byte{'\n'})
	}

	// json.Marshal sorts map keys, so the manifest is deterministic too
	encoded, err := json.Marshal(manifest)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to encode file manifest")
	}

	return hex.EncodeToString(h.Sum(nil)), string(encoded), nil
}

// SnapshotAll fingerprints every discovered skill. The snapshot is taken in
// one pass at batch start so all results in a run are attributed to a
// consistent version even if files change mid-run.
func SnapshotAll(discovery *Discovery) ([]Snapshot, error) {
	discovered, err := discovery.DiscoverSkills()
	if err != nil {
		return nil, errors.Wrap(err, "failed to discover skills")
	}

	names := make([]string, 0, len(discovered))
	for name := range discovered {
		names = append(names, name)
	}
	sort.Strings(names)

	snapshots := make([]Snapshot, 0, len(names))
	for _, name := range names {
		skill := discovered[name]
		hash, filesJSON, err := Fingerprint(skill.Directory)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fingerprint skill %s", name)
		}
		snapshots = append(snapshots, Snapshot{
			SkillName:   name,
			ContentHash: hash,
			FilesJSON:   filesJSON,
		})
	}

	return snapshots, nil
}
