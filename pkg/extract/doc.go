// Package extract recovers human-readable strings from binary blobs that are
// presumed to hold protocol buffer data, without a schema.
//
// Extraction is two steps. The walker reads the buffer as a sequence of
// tag/wire-type/value records and collects every length-delimited payload that
// decodes as clean UTF-8, recursing into each payload in case it is itself a
// nested message. The filter then drops candidates that are too short, look
// like identifiers (UUIDs, hex hashes), or are dominated by symbols.
//
// Malformed input is the common case. Any read failure ends the current
// nesting level and keeps what was found so far; nothing in this package
// returns an error for bad input.
//
//	out := extract.Run(data, extract.DefaultOptions())
//	fmt.Println(out.Strings)
package extract
