package assets

import (
	"fmt"

	"github.com/Faultbox/terrainbake/internal/engine/texture"
)

// Backend kinds.
const (
	KindEditor   = "editor"
	KindHeadless = "headless"
)

// EditorBackend writes bundles the way an editor asset database expects them:
// every artifact gets a .meta sidecar with a GUID, and textures carry importer
// settings that are applied again when the bundle is resolved.
type EditorBackend struct {
	*fsStore
}

// NewEditorBackend creates an editor backend rooted at root.
func NewEditorBackend(root string) *EditorBackend {
	return &EditorBackend{fsStore: newFSStore(root, true, "assets.editor")}
}

// SetImportSettings changes the texture importer settings written for new
// artifacts.
func (b *EditorBackend) SetImportSettings(s texture.ImportSettings) {
	b.importer = s
}

// Kind implements Backend.
func (b *EditorBackend) Kind() string { return KindEditor }

// Begin implements Backend.
func (b *EditorBackend) Begin(name string, overwrite bool) (Session, error) {
	return b.begin(name, overwrite)
}

// Resolve implements Backend.
func (b *EditorBackend) Resolve(h Handle) (*Bundle, error) {
	return b.resolve(h)
}

// HeadlessBackend writes plain files with no sidecars, for tooling that runs
// outside an editor.
type HeadlessBackend struct {
	*fsStore
}

// NewHeadlessBackend creates a headless backend rooted at root.
func NewHeadlessBackend(root string) *HeadlessBackend {
	return &HeadlessBackend{fsStore: newFSStore(root, false, "assets.headless")}
}

// Kind implements Backend.
func (b *HeadlessBackend) Kind() string { return KindHeadless }

// Begin implements Backend.
func (b *HeadlessBackend) Begin(name string, overwrite bool) (Session, error) {
	return b.begin(name, overwrite)
}

// Resolve implements Backend.
func (b *HeadlessBackend) Resolve(h Handle) (*Bundle, error) {
	return b.resolve(h)
}

// NewBackend creates a backend by kind.
func NewBackend(kind, root string) (Backend, error) {
	switch kind {
	case KindEditor:
		return NewEditorBackend(root), nil
	case KindHeadless:
		return NewHeadlessBackend(root), nil
	default:
		return nil, fmt.Errorf("unknown asset backend %q", kind)
	}
}
