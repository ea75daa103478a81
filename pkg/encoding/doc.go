// Package encoding implements reversible escaping of characters that the
// context broker forbids on the wire.
//
// Two independent character classes exist:
//   - Field alphabet: identifier-like fields (entity ids, types, attribute
//     names) may only contain ASCII letters, digits, and a fixed punctuation
//     set. Anything else at or below 0x7F is escaped. Bytes above 0x7F pass
//     through untouched; non-ASCII validation is the broker's job.
//   - Value denylist: free-text attribute values may contain anything except
//     a small set of characters the broker rejects outright.
//
// # Escape Form
//
// An escaped character is written as the codec's marker followed by exactly
// two uppercase hex digits, e.g. "%3C" for '<' with the percent codec. The
// marker itself is always escaped so the encoding stays injective.
//
// # Strict vs Lenient Decoding
//
// The broker may itself produce text that happens to look like an escape
// triple. Lenient decoding turns every well-formed triple back into its
// character. Strict decoding only decodes triples whose character actually
// required escaping in that context; look-alike triples stay literal.
package encoding
