package engine

import "strings"

// Delimiter separates field values on a persisted record line. There is no
// escaping, so values containing it are rejected at validation time.
const Delimiter = ";"

// reservedChars may not appear in any value: the field delimiter and the
// line terminators that separate stored records.
const reservedChars = Delimiter + "\r\n"

// Record is one schema-shaped row of string-encoded field values.
type Record []string

// EncodeRecord joins the record's values into a single line without the
// trailing newline.
func EncodeRecord(record Record) string {
	return strings.Join(record, Delimiter)
}

// DecodeRecord splits a stored line back into its values.
func DecodeRecord(line string) Record {
	return strings.Split(line, Delimiter)
}
