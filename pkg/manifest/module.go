// Package manifest reads the file that maps content bundles to the custom
// asset packs they were moved into at build time.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/repeale/fp-go/option"
)

const FILENAME = "CustomAssetPacksData.json"

type PackEntry struct {
	AssetPackName string
	AssetBundles  []string
}

type Manifest struct {
	Entries []PackEntry
}

type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed manifest %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

func validate(source string, manifest *Manifest) error {
	for i, entry := range manifest.Entries {
		if entry.AssetPackName == "" {
			return &ParseError{
				Source: source,
				Err:    fmt.Errorf("entry %d has no asset pack name", i),
			}
		}
	}
	return nil
}

// Parse decodes a JSON manifest.
func Parse(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, &ParseError{Source: "json", Err: err}
	}

	if err := validate("json", &manifest); err != nil {
		return nil, err
	}

	return &manifest, nil
}

// ParseCBOR decodes a manifest with the same schema encoded as CBOR.
func ParseCBOR(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := cbor.Unmarshal(data, &manifest); err != nil {
		return nil, &ParseError{Source: "cbor", Err: err}
	}

	if err := validate("cbor", &manifest); err != nil {
		return nil, err
	}

	return &manifest, nil
}

// Decode picks the decoder from the extension of name.
func Decode(name string, data []byte) (*Manifest, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".cbor":
		return ParseCBOR(data)
	default:
		return Parse(data)
	}
}

// Fingerprint identifies a manifest's contents in logs.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// Index maps bundle names to the pack entry that owns them. It is never
// modified after NewIndex returns.
type Index struct {
	bundles    map[string]PackEntry
	packs      []string
	duplicates []string
}

// NewIndex builds the bundle lookup. When a bundle is listed by more than
// one entry the last entry wins and the bundle is reported by Duplicates.
func NewIndex(manifest *Manifest) *Index {
	index := &Index{
		bundles: make(map[string]PackEntry),
	}
	if manifest == nil {
		return index
	}

	seenPacks := make(map[string]struct{})
	for _, entry := range manifest.Entries {
		if _, ok := seenPacks[entry.AssetPackName]; !ok {
			seenPacks[entry.AssetPackName] = struct{}{}
			index.packs = append(index.packs, entry.AssetPackName)
		}

		for _, bundle := range entry.AssetBundles {
			if previous, ok := index.bundles[bundle]; ok && previous.AssetPackName != entry.AssetPackName {
				index.duplicates = append(index.duplicates, bundle)
			}
			index.bundles[bundle] = entry
		}
	}

	return index
}

func (i *Index) Lookup(bundle string) opt.Option[PackEntry] {
	if i == nil {
		return opt.None[PackEntry]()
	}

	entry, ok := i.bundles[bundle]
	if !ok {
		return opt.None[PackEntry]()
	}

	return opt.Some(entry)
}

// Packs lists every pack named by the manifest in file order.
func (i *Index) Packs() []string {
	if i == nil {
		return nil
	}
	return append([]string(nil), i.packs...)
}

func (i *Index) Duplicates() []string {
	if i == nil {
		return nil
	}
	return append([]string(nil), i.duplicates...)
}

func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.bundles)
}
