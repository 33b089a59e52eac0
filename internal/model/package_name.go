package model

import (
	"regexp"

	"github.com/alecthomas/errors"
)

// ErrInvalidPackageName is returned by ParsePackageName.
var ErrInvalidPackageName = errors.New("Invalid package name")

var packageNamePattern = regexp.MustCompile(`^[a-zA-Z0-9.]+$`)

// PackageName is the application ID of an Android app, eg. "com.example.app".
type PackageName string

func ParsePackageName(name string) (PackageName, error) {
	if !packageNamePattern.MatchString(name) {
		return "", ErrInvalidPackageName
	}
	return PackageName(name), nil
}

func (p PackageName) String() string { return string(p) }

func (p *PackageName) UnmarshalText(text []byte) error {
	name, err := ParsePackageName(string(text))
	if err != nil {
		return err
	}
	*p = name
	return nil
}

func (p PackageName) MarshalText() ([]byte, error) { return []byte(p), nil }
