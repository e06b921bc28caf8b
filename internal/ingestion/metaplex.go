package ingestion

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Metaplex Token Metadata program ID.
const metaplexProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

// SPL Token mint layout (82 bytes):
//
//	mintAuthority   COption<Pubkey>  0..36
//	supply          u64              36..44
//	decimals        u8               44
//	isInitialized   bool             45
//	freezeAuthority COption<Pubkey>  46..82
const (
	mintAccountLen   = 82
	mintSupplyOffset = 36
	mintDecimalsOff  = 44
)

const metadataKeyV1 = 4

var errNoPDA = errors.New("no off-curve program address")

// mintAccount is the decoded subset of an SPL mint.
type mintAccount struct {
	Decimals int
	Supply   float64 // ui amount
}

func parseMintAccount(data []byte) (*mintAccount, error) {
	if len(data) < mintAccountLen {
		return nil, fmt.Errorf("mint data too short: %d", len(data))
	}
	raw := binary.LittleEndian.Uint64(data[mintSupplyOffset : mintSupplyOffset+8])
	decimals := int(data[mintDecimalsOff])
	return &mintAccount{
		Decimals: decimals,
		Supply:   float64(raw) / math.Pow10(decimals),
	}, nil
}

// isValidPubkey reports whether s is a base58 encoded 32-byte key.
func isValidPubkey(s string) bool {
	b, err := base58.Decode(s)
	return err == nil && len(b) == 32
}

// metadataPDA derives the Metaplex metadata account for mint.
// Seeds: ["metadata", program_id, mint].
func metadataPDA(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil || len(mintBytes) != 32 {
		return "", fmt.Errorf("invalid mint %q", mint)
	}
	programBytes, err := base58.Decode(metaplexProgramID)
	if err != nil {
		return "", fmt.Errorf("decode metaplex program id: %w", err)
	}
	return findProgramAddress([][]byte{[]byte("metadata"), programBytes, mintBytes}, programBytes)
}

// findProgramAddress searches bumps 255..1 for the first hash off the ed25519 curve.
func findProgramAddress(seeds [][]byte, programID []byte) (string, error) {
	for bump := byte(255); bump > 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{bump})
		h.Write(programID)
		h.Write([]byte("ProgramDerivedAddress"))
		sum := h.Sum(nil)

		if !isOnCurve(sum) {
			return base58.Encode(sum), nil
		}
	}
	return "", errNoPDA
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// tokenMetadata is the name/symbol/uri prefix of a Metaplex metadata account.
type tokenMetadata struct {
	Name   string
	Symbol string
	URI    string
}

// parseMetadataAccount reads key(1) | update_authority(32) | mint(32) followed by
// three borsh strings. Padding NULs are trimmed.
func parseMetadataAccount(data []byte) (*tokenMetadata, error) {
	if len(data) < 65 || data[0] != metadataKeyV1 {
		return nil, errors.New("not a metadata v1 account")
	}

	r := borshReader{buf: data, off: 65}
	name, err := r.string(64)
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	symbol, err := r.string(32)
	if err != nil {
		return nil, fmt.Errorf("symbol: %w", err)
	}
	uri, _ := r.string(256)

	return &tokenMetadata{Name: name, Symbol: symbol, URI: uri}, nil
}

type borshReader struct {
	buf []byte
	off int
}

func (r *borshReader) string(maxLen uint32) (string, error) {
	if r.off+4 > len(r.buf) {
		return "", errors.New("truncated length")
	}
	n := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	if n > maxLen || r.off+int(n) > len(r.buf) {
		return "", fmt.Errorf("bad string length %d", n)
	}
	s := strings.TrimRight(string(r.buf[r.off:r.off+int(n)]), "\x00")
	r.off += int(n)
	return strings.TrimSpace(s), nil
}
