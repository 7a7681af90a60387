package emit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"zclc/internal/zcl"
)

// TableVersion is the layout version of the descriptor table.
const TableVersion = 1

// ErrTableVersion is returned when decoding a table of another layout.
var ErrTableVersion = errors.New("unsupported descriptor table version")

// encMode encodes tables deterministically, so equal catalogs produce
// equal bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

type table struct {
	Version int          `cbor:"1,keyasint"`
	Catalog *zcl.Catalog `cbor:"2,keyasint"`
}

// EncodeTable serializes a catalog as canonical CBOR.
func EncodeTable(cat *zcl.Catalog) ([]byte, error) {
	if cat == nil {
		return nil, errors.New("encode table: nil catalog")
	}
	data, err := encMode.Marshal(table{Version: TableVersion, Catalog: cat})
	if err != nil {
		return nil, fmt.Errorf("encode table: %w", err)
	}
	return data, nil
}

// DecodeTable parses a table written by EncodeTable and rebinds its enum
// values to their decode tables.
func DecodeTable(data []byte) (*zcl.Catalog, error) {
	var t table
	if err := decMode.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	if t.Version != TableVersion {
		return nil, fmt.Errorf("decode table: version %d: %w", t.Version, ErrTableVersion)
	}
	if t.Catalog == nil {
		return nil, errors.New("decode table: missing catalog")
	}
	if err := t.Catalog.Bind(); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	return t.Catalog, nil
}

// Digest returns the hex SHA-256 of the encoded table.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
