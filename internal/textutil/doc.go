// Package textutil provides text normalization utilities for matching keys,
// display casing, and filesystem-safe slugs.
//
// The primary use cases are:
//   - Canonicalize: building lookup keys from free text (drafts, artists,
//     record titles) so equality checks ignore case, spacing, and diacritics
//   - TitleCase: producing display names from raw user input
//   - Slugify: deriving safe file names for stored covers
//
// Canonical forms are matching keys only; they are never shown to users.
package textutil
