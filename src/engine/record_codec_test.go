package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordCodecRoundTrip(t *testing.T) {
	records := []Record{
		{"u1", "30", "true"},
		{"a", "b"},
		{"spaces are fine", "so are, commas", "and \"quotes\""},
		{"ünïcödé", "日本語"},
	}

	for _, record := range records {
		line := EncodeRecord(record)
		assert.Equal(t, record, DecodeRecord(line))
	}
}

func TestEncodeRecordUsesDelimiter(t *testing.T) {
	assert.Equal(t, "u1;30;true", EncodeRecord(Record{"u1", "30", "true"}))
}

func TestDecodeRecordWithDelimiterInValueChangesShape(t *testing.T) {
	// values may not contain the delimiter; this is what happens if they do
	line := EncodeRecord(Record{"a;b", "c"})
	assert.Len(t, DecodeRecord(line), 3)
}
