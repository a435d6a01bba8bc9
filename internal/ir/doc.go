// Package ir provides the foundational types shared by every stage of the
// translator: static type descriptors, the entity schema, translation
// errors, and the canonical encoding used for content-addressed identity.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Closure identity is a SHA-256 over RFC 8785 canonical JSON with
//     domain separation, so it is stable across processes
//   - Canonical JSON carries no floats; callers encode them as strings
//   - Every pipeline failure is a *TranslationError with one of four codes
package ir
