// Package core provides the business logic for CSV user imports.
//
// This package is the heart of the importer, containing all domain logic
// independent of any UI, transport or storage layer. It can be used by web
// handlers, the CLI, or tests without modification. Storage and media
// concerns are reached through the ports declared in ports.go.
//
// # Architecture
//
// The package is organized around a handful of collaborators:
//
//   - Batch Driver: [Importer.ImportBatch] streams a semicolon-delimited file,
//     turns each row into a [Record] and tallies the outcome in a [Summary].
//   - Row Validator: [ParseRecord] and [ValidateRecord] bind a row to the
//     header and reject rows without a usable email address.
//   - Reconciler: decides between the create and update paths. Updates only
//     fill fields that are currently empty.
//   - Social Merger: writes the nine social profile links into user metadata.
//   - Sideloader: [Sideloader.SetAvatarFromURL] downloads a remote picture
//     into the media library and records it as the user's local avatar.
//
// # Batch Semantics
//
// A batch runs to completion on the calling goroutine. Rows are committed one
// at a time, so a failing row never rolls back or aborts the rest:
//
//  1. The reader is wrapped with BOM skipping and UTF-8 sanitization
//  2. The header row is read once; failure yields a single batch error
//  3. Each row is parsed, validated and reconciled in file order
//  4. The reported action increments imported, updated or skipped
//
// Failures are reported as "Row N: reason" where N counts records from the
// header (row 1); the first data row is row 2.
//
// # Error Handling
//
// Per-row failures are typed as [ImportError] with an [ErrorKind]. Technical
// errors surfaced to users are mapped to friendly messages using [MapError]:
//
//   - DB001-DB007: Database errors (duplicates, connections)
//   - IMP001-IMP004: Import errors (header, parse, email, role)
//   - AVT001-AVT004: Avatar errors (permission, type, download)
//   - FILE001-FILE005: File errors (size, encoding, format)
//   - UPL001-UPL005: Upload errors (busy, cancelled, timeout)
package core
