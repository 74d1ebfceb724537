// Package assets persists baked terrain bundles and resolves them again.
package assets

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/terrainbake/internal/engine/texture"
	"github.com/Faultbox/terrainbake/internal/logger"
)

// Backend stores bundles under a root directory, one directory per name.
type Backend interface {
	// Kind returns the backend name used in configuration.
	Kind() string
	Root() string
	Exists(name string) (bool, error)
	// Begin opens a write session. It fails with ErrNameConflict, before
	// anything is written, when name exists and overwrite is false.
	Begin(name string, overwrite bool) (Session, error)
	Resolve(h Handle) (*Bundle, error)
}

// Session collects a bundle's artifacts. Nothing is visible under the final
// name until Commit succeeds.
type Session interface {
	Put(a Artifact) (Ref, error)
	Commit() (Handle, error)
	// Abort discards everything written so far. It is safe after Commit.
	Abort() error
}

// metaFormatVersion is written into every sidecar.
const metaFormatVersion = 2

// fsStore is the directory layout both backends share. With sidecars set,
// every artifact gets a .meta file carrying its GUID and import settings.
type fsStore struct {
	root     string
	sidecars bool
	importer texture.ImportSettings
	cache    *Cache
	log      *zap.Logger
}

func newFSStore(root string, sidecars bool, component string) *fsStore {
	return &fsStore{
		root:     root,
		sidecars: sidecars,
		importer: texture.DefaultImportSettings(),
		cache:    NewCache(),
		log:      logger.Named(component),
	}
}

// Root returns the directory bundles are written under.
func (s *fsStore) Root() string { return s.root }

// Cache returns the resolve cache.
func (s *fsStore) Cache() *Cache { return s.cache }

// Exists reports whether a bundle directory named name exists.
func (s *fsStore) Exists(name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(s.root, name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &PersistenceError{Step: "exists", Path: filepath.Join(s.root, name), Err: err}
	}
}

func (s *fsStore) begin(name string, overwrite bool) (*stagedSession, error) {
	exists, err := s.Exists(name)
	if err != nil {
		return nil, err
	}
	if exists && !overwrite {
		return nil, fmt.Errorf("%w: %q under %s", ErrNameConflict, name, s.root)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, &PersistenceError{Step: "prepare", Path: s.root, Err: err}
	}
	staging := filepath.Join(s.root, fmt.Sprintf(".%s.staging-%s", name, uuid.NewString()))
	if err := os.Mkdir(staging, 0o755); err != nil {
		return nil, &PersistenceError{Step: "prepare", Path: staging, Err: err}
	}

	s.log.Debug("session started", zap.String("name", name), zap.String("staging", staging))
	return &stagedSession{
		store:   s,
		name:    name,
		final:   filepath.Join(s.root, name),
		staging: staging,
		refs:    make(map[ArtifactKind]Ref),
	}, nil
}

type stagedSession struct {
	store   *fsStore
	name    string
	final   string
	staging string
	refs    map[ArtifactKind]Ref
	done    bool
}

// Put writes the artifact into the staging directory.
func (ss *stagedSession) Put(a Artifact) (Ref, error) {
	if ss.done {
		return Ref{}, &PersistenceError{Step: a.Kind.String(), Path: ss.final, Err: errors.New("session already closed")}
	}
	file := FileName(ss.name, a.Kind)
	path := filepath.Join(ss.staging, file)
	if err := writeFile(path, a.Data); err != nil {
		return Ref{}, &PersistenceError{Step: a.Kind.String(), Path: path, Err: err}
	}

	ref := Ref{File: file}
	if ss.store.sidecars {
		meta := Meta{
			FileFormatVersion: metaFormatVersion,
			GUID:              uuid.NewString(),
			Importer:          ImporterNative,
		}
		if a.Kind.IsTexture() {
			settings := ss.store.importer
			meta.Importer = ImporterTexture
			meta.TextureImporter = &settings
		}
		data, err := yaml.Marshal(&meta)
		if err == nil {
			err = writeFile(path+".meta", data)
		}
		if err != nil {
			return Ref{}, &PersistenceError{Step: a.Kind.String() + " meta", Path: path + ".meta", Err: err}
		}
		ref.GUID = meta.GUID
	}

	ss.refs[a.Kind] = ref
	ss.store.log.Debug("artifact staged",
		zap.Stringer("artifact", a.Kind),
		zap.String("path", path),
		zap.Int("bytes", len(a.Data)),
	)
	return ref, nil
}

// Commit moves the staging directory into place, replacing an existing
// bundle of the same name.
func (ss *stagedSession) Commit() (Handle, error) {
	if ss.done {
		return Handle{}, &PersistenceError{Step: "commit", Path: ss.final, Err: errors.New("session already closed")}
	}
	if _, ok := ss.refs[ArtifactPrefab]; !ok {
		err := &PersistenceError{Step: "commit", Path: ss.final, Err: errors.New("bundle has no prefab")}
		return Handle{}, multierr.Append(err, ss.Abort())
	}

	var backup string
	if _, err := os.Stat(ss.final); err == nil {
		backup = filepath.Join(ss.store.root, fmt.Sprintf(".%s.old-%s", ss.name, uuid.NewString()))
		if err := os.Rename(ss.final, backup); err != nil {
			perr := &PersistenceError{Step: "commit", Path: ss.final, Err: err}
			return Handle{}, multierr.Append(perr, ss.Abort())
		}
	}

	if err := os.Rename(ss.staging, ss.final); err != nil {
		perr := error(&PersistenceError{Step: "commit", Path: ss.final, Err: err})
		if backup != "" {
			perr = multierr.Append(perr, os.Rename(backup, ss.final))
		}
		return Handle{}, multierr.Append(perr, ss.Abort())
	}
	ss.done = true
	ss.store.cache.Delete(ss.final)

	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			ss.store.log.Warn("stale bundle left behind", zap.String("path", backup), zap.Error(err))
		}
	}

	h := Handle{Name: ss.name, Dir: ss.final, GUID: ss.refs[ArtifactPrefab].GUID}
	ss.store.log.Info("bundle committed", zap.String("name", h.Name), zap.String("dir", h.Dir))
	return h, nil
}

// Abort removes the staging directory.
func (ss *stagedSession) Abort() error {
	if ss.done {
		return nil
	}
	ss.done = true
	if err := os.RemoveAll(ss.staging); err != nil {
		return &PersistenceError{Step: "abort", Path: ss.staging, Err: err}
	}
	ss.store.log.Debug("session aborted", zap.String("name", ss.name))
	return nil
}

// resolve loads a committed bundle. Sidecar GUIDs are checked against the
// references that point at them, and texture import settings applied.
func (s *fsStore) resolve(h Handle) (*Bundle, error) {
	dir := h.Dir
	if dir == "" {
		if err := validateName(h.Name); err != nil {
			return nil, err
		}
		dir = filepath.Join(s.root, h.Name)
	}
	if b, ok := s.cache.Get(dir); ok {
		return b, nil
	}
	name := h.Name
	if name == "" {
		name = filepath.Base(dir)
	}

	b := &Bundle{Handle: Handle{Name: name, Dir: dir}}
	if s.sidecars {
		b.Metas = make(map[ArtifactKind]*Meta)
	}

	prefabFile := FileName(name, ArtifactPrefab)
	b.Prefab = &Prefab{}
	if err := s.readYAML(dir, prefabFile, b.Prefab); err != nil {
		return nil, err
	}
	if err := s.readMeta(dir, Ref{File: prefabFile, GUID: h.GUID}, ArtifactPrefab, b); err != nil {
		return nil, err
	}
	if b.Metas != nil {
		b.Handle.GUID = b.Metas[ArtifactPrefab].GUID
	}

	var meshAsset MeshAsset
	if err := s.readYAML(dir, b.Prefab.Mesh.File, &meshAsset); err != nil {
		return nil, err
	}
	if err := s.readMeta(dir, b.Prefab.Mesh, ArtifactMesh, b); err != nil {
		return nil, err
	}
	mesh, err := meshAsset.Mesh()
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", b.Prefab.Mesh.File, err)
	}
	b.Mesh = mesh

	b.Material = &Material{}
	if err := s.readYAML(dir, b.Prefab.Material.File, b.Material); err != nil {
		return nil, err
	}
	if err := s.readMeta(dir, b.Prefab.Material, ArtifactMaterial, b); err != nil {
		return nil, err
	}

	heightImg, err := s.readTexture(dir, b.Prefab.HeightMap, ArtifactHeightMap, b)
	if err != nil {
		return nil, err
	}
	if b.Height, err = texture.HeightFromImage(heightImg, b.Prefab.HeightRange); err != nil {
		return nil, fmt.Errorf("resolving %s: %w", b.Prefab.HeightMap.File, err)
	}

	diffuseRef, ok := b.Material.Textures[PropertyMainTex]
	if !ok {
		return nil, fmt.Errorf("resolving %s: material has no %s", b.Prefab.Material.File, PropertyMainTex)
	}
	diffuseImg, err := s.readTexture(dir, diffuseRef, ArtifactDiffuse, b)
	if err != nil {
		return nil, err
	}
	b.Diffuse = texture.ToNRGBA(diffuseImg)

	s.cache.Set(dir, b)
	return b, nil
}

func (s *fsStore) readYAML(dir, file string, out any) error {
	path := filepath.Join(dir, file)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return &PersistenceError{Step: "read", Path: path, Err: err}
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (s *fsStore) readMeta(dir string, ref Ref, kind ArtifactKind, b *Bundle) error {
	if !s.sidecars {
		return nil
	}
	meta := &Meta{}
	if err := s.readYAML(dir, ref.File+".meta", meta); err != nil {
		return err
	}
	if ref.GUID != "" && ref.GUID != meta.GUID {
		return fmt.Errorf("broken reference to %s: guid %s, sidecar has %s", ref.File, ref.GUID, meta.GUID)
	}
	b.Metas[kind] = meta
	return nil
}

func (s *fsStore) readTexture(dir string, ref Ref, kind ArtifactKind, b *Bundle) (img image.Image, err error) {
	if err := s.readMeta(dir, ref, kind, b); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, ref.File)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, &PersistenceError{Step: "read", Path: path, Err: err}
	}
	defer f.Close()

	img, err = png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if meta := b.Metas[kind]; meta != nil && meta.TextureImporter != nil {
		img = texture.Import(img, *meta.TextureImporter)
	}
	return img, nil
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\:`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
