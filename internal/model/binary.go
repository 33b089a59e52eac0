package model

import (
	"fmt"

	"github.com/alecthomas/types/optional"
)

// BinaryKind is the format of an uploadable artifact.
type BinaryKind int

const (
	APK BinaryKind = iota + 1
	AppBundle
)

func (k BinaryKind) String() string {
	switch k {
	case APK:
		return "apk"
	case AppBundle:
		return "bundle"
	default:
		return fmt.Sprintf("BinaryKind(%d)", int(k))
	}
}

func (k BinaryKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *BinaryKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "apk":
		*k = APK
	case "bundle":
		*k = AppBundle
	default:
		return fmt.Errorf("unknown binary kind %q", string(text))
	}
	return nil
}

// Binary is one uploadable artifact as delivered by a caller.
//
// The hashes are supplied by the caller and kept for reference only.
type Binary struct {
	SHA1   string
	SHA256 string
	// MediaBody is the base64 encoded binary.
	MediaBody string
	// DeobfuscationFile is the base64 encoded ProGuard mapping, if any.
	DeobfuscationFile optional.Option[string]
}

// LinkedBinary is a Binary whose payloads must be fetched from a URL.
type LinkedBinary struct {
	SHA256                string
	MediaBodyLink         string
	DeobfuscationFileLink optional.Option[string]
}

// VersionCode is assigned by the store to every uploaded binary.
type VersionCode int64

// EditID identifies a store-side publishing transaction.
type EditID string

func (e EditID) String() string { return string(e) }
