package model

import "fmt"

// VersionPair is a (major, minor) version as handed over by the build server.
type VersionPair struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

func (v VersionPair) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Supported reports whether a product at version product already ships the
// runtime flavor whose support started at version support.
func Supported(product, support VersionPair) bool {
	if support.Major > product.Major {
		return false
	}
	if support.Major == product.Major && support.Minor > product.Minor {
		return false
	}
	return true
}
