package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Domain prefixes for content-addressed identity. The version suffix allows
// the encoding to change without colliding with old cache entries.
const (
	DomainClosure  = "lambdaq/closure/v1"
	DomainSymbolic = "lambdaq/symbolic/v1"
	DomainQuery    = "lambdaq/query/v1"
	DomainSchema   = "lambdaq/schema/v1"
	DomainResult   = "lambdaq/result/v1"
	DomainLowering = "lambdaq/lowering/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashCanonical hashes the canonical encoding of v under the given domain.
func HashCanonical(domain string, v IRValue) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// ClosureID computes the identity of a closure: its instruction stream and
// the static types of its arguments and captured values. Captured values
// themselves are excluded; the same closure with different captured values
// translates to the same query with different parameters.
func ClosureID(code []byte, args, captured []Type) string {
	obj := IRObject{
		"code":     IRString(hex.EncodeToString(code)),
		"args":     typeList(args),
		"captured": typeList(captured),
	}
	// Every member is a string, so the canonical encoding cannot fail.
	id, err := HashCanonical(DomainClosure, obj)
	if err != nil {
		panic(err)
	}
	return id
}

// QueryKey computes the identity of a composed query from the entity, the
// ordered clause descriptors and a fingerprint of the options that affect
// translation.
func QueryKey(entity string, clauses IRArray, options IRObject) (string, error) {
	return HashCanonical(DomainQuery, IRObject{
		"entity":  IRString(entity),
		"clauses": clauses,
		"options": options,
	})
}

// EncodeType returns the canonical form of a type descriptor.
func EncodeType(t Type) IRValue {
	if t.Name == "" {
		return IRString(t.Kind.String())
	}
	return IRString(t.Kind.String() + ":" + t.Name)
}

// DecodeType parses the canonical form produced by EncodeType.
func DecodeType(v IRValue) (Type, error) {
	s, ok := v.(IRString)
	if !ok {
		return Type{}, fmt.Errorf("type: expected string, got %T", v)
	}
	kindName, name, _ := strings.Cut(string(s), ":")
	k, ok := kindByName[kindName]
	if !ok {
		return Type{}, fmt.Errorf("type: unknown kind %q", kindName)
	}
	return Type{Kind: k, Name: name}, nil
}

// TranslationKey identifies the symbolic interpretation of a closure: the
// closure itself, the schema it was resolved against and whether its
// result is used as a condition.
func TranslationKey(closureID, schemaHash string, condition bool) string {
	id, err := HashCanonical(DomainResult, IRObject{
		"closure":   IRString(closureID),
		"schema":    IRString(schemaHash),
		"condition": IRBool(condition),
	})
	if err != nil {
		panic(err)
	}
	return id
}

func typeList(ts []Type) IRArray {
	arr := make(IRArray, len(ts))
	for i, t := range ts {
		arr[i] = EncodeType(t)
	}
	return arr
}

// LoweringKey identifies the lowering of an interpreted closure: its
// translation key, the select closures that shaped the row it reads and
// the options that change lowering.
func LoweringKey(translationKey string, row IRArray, options IRObject) (string, error) {
	return HashCanonical(DomainLowering, IRObject{
		"translation": IRString(translationKey),
		"row":         row,
		"options":     options,
	})
}
