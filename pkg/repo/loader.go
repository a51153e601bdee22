package repo

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/parona-source/pkgcheck/pkg/ebuild"
	"github.com/parona-source/pkgcheck/pkg/errors"
)

// snapshot is the on-disk TOML form of a repository index.
type snapshot struct {
	Packages []snapshotPackage `toml:"package"`
}

type snapshotPackage struct {
	Category     string   `toml:"category"`
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Keywords     []string `toml:"keywords"`
	Eclasses     []string `toml:"eclasses"`
	Depends      string   `toml:"depends"`
	RDepends     string   `toml:"rdepends"`
	PostRDepends string   `toml:"post_rdepends"`
}

// Load reads a repository snapshot from path. A regular file is read as one
// TOML snapshot; a directory is walked for *.toml files in sorted order and
// their packages are concatenated.
//
// Any I/O or decoding failure is fatal: the index is expected to be a
// reliable local structure, so there is no partial-result mode.
func Load(path string) (*Repository, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRepoLoad, err, "stat %s", path)
	}

	var files []string
	if info.IsDir() {
		entries, err := filepath.Glob(filepath.Join(path, "*.toml"))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeRepoLoad, err, "list %s", path)
		}
		sort.Strings(entries)
		files = entries
	} else {
		files = []string{path}
	}
	if len(files) == 0 {
		return nil, errors.New(errors.ErrCodeRepoLoad, "no snapshot files in %s", path)
	}

	var pkgs []*ebuild.PackageVersion
	for _, f := range files {
		var snap snapshot
		if _, err := toml.DecodeFile(f, &snap); err != nil {
			return nil, errors.Wrap(errors.ErrCodeRepoLoad, err, "decode %s", f)
		}
		for _, sp := range snap.Packages {
			pkgs = append(pkgs, sp.toPackage())
		}
	}
	return New(pkgs)
}

func (sp snapshotPackage) toPackage() *ebuild.PackageVersion {
	kw := make([]ebuild.Keyword, len(sp.Keywords))
	for i, k := range sp.Keywords {
		kw[i] = ebuild.Keyword(k)
	}
	return &ebuild.PackageVersion{
		Category:     sp.Category,
		Name:         sp.Name,
		Version:      sp.Version,
		Keywords:     kw,
		Eclasses:     sp.Eclasses,
		Depends:      sp.Depends,
		RDepends:     sp.RDepends,
		PostRDepends: sp.PostRDepends,
	}
}
