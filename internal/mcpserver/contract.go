package mcpserver

// RecordFormatContract describes how records and blobs are laid out so that
// LLM consumers can write data other tools will read back.
const RecordFormatContract = `# Folio Record Format

Folio keeps structured records and binary blobs either in a directory the
user granted access to or, when local storage is off, in the internal stores.
Tools behave the same in both cases.

## Records

- A record is one JSON value stored under a name inside a subdirectory.
- The default subdirectory is ` + "`" + `records` + "`" + `. Nested subdirectories use forward
  slashes, for example ` + "`" + `records/projects` + "`" + `.
- On disk a record lives at ` + "`" + `<subdir>/<name>.json` + "`" + `, written as two-space
  indented JSON with a trailing newline. Pass the name without ` + "`" + `.json` + "`" + `.
- Names must not contain slashes and must not start with a dot.
- ` + "`" + `read_record` + "`" + ` returns a checksum. Pass it back as ` + "`" + `if_match` + "`" + ` to
  ` + "`" + `save_record` + "`" + ` to make sure nobody changed the record in between.

## Blobs

- Blobs are stored under ` + "`" + `blobs` + "`" + ` unless another subdirectory is given.
- ` + "`" + `save_blob` + "`" + ` accepts a ` + "`" + `data:` + "`" + ` URI or an http(s) URL and returns the blob address.
- Addresses starting with ` + "`" + `./` + "`" + ` are relative to the granted directory.
  Addresses starting with ` + "`" + `blobstore://` + "`" + ` point into the internal store.

## Storage state

Call ` + "`" + `storage_status` + "`" + ` first. When ` + "`" + `backend` + "`" + ` is ` + "`" + `unbound` + "`" + `, local storage
is enabled but no directory is available: reads return nothing and writes fail
until the user selects a directory again.
`
