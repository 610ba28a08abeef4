package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// BuildStableSymbolID creates a deterministic symbol ID.
// Line numbers and file paths are left out so the ID survives edits that move a declaration.
func BuildStableSymbolID(unit *CodeUnit) string {
	if unit == nil {
		return ""
	}

	pkg := strings.TrimSpace(unit.Package)
	if pkg == "" {
		pkg = "_"
	}

	kind := strings.TrimSpace(unit.UnitType)
	if kind == "" {
		kind = "symbol"
	}

	name := strings.TrimSpace(unit.Name)
	if name == "" {
		name = "_"
	}

	fingerprint := strings.Join([]string{
		pkg,
		kind,
		canonicalize(receiverOf(unit)),
		name,
		canonicalize(signatureOf(unit)),
	}, "|")

	sum := sha256.Sum256([]byte(fingerprint))
	return fmt.Sprintf("%s:%s:%s:%s", pkg, kind, name, hex.EncodeToString(sum[:8]))
}

// TypeKey identifies a declared type by directory and name. Two files of one package share it.
func TypeKey(dir, name string) string {
	return dir + "#" + name
}

func receiverOf(unit *CodeUnit) string {
	switch d := unit.Details.(type) {
	case GoFunctionDetails:
		return d.ReceiverType
	case *GoFunctionDetails:
		if d != nil {
			return d.ReceiverType
		}
	}
	return ""
}

// signatureOf only covers funcs. Type bodies change too often to be part of an identity.
func signatureOf(unit *CodeUnit) string {
	switch d := unit.Details.(type) {
	case GoFunctionDetails:
		return d.Signature
	case *GoFunctionDetails:
		if d != nil {
			return d.Signature
		}
	}
	return ""
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}
