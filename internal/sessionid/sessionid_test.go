package sessionid

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	id := New()

	assert.Len(t, id, Length)
	assert.NoError(t, Validate(id))
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := New()
		require.False(t, seen[id], "duplicate ID %s", id)
		seen[id] = true
	}
}

func TestNewSortsByCreation(t *testing.T) {
	var ids []string
	for i := 0; i < 50; i++ {
		ids = append(ids, New())
	}

	for i := 1; i < len(ids); i++ {
		assert.Negative(t, strings.Compare(ids[i-1], ids[i]), "%s should sort before %s", ids[i-1], ids[i])
	}
}

func TestNewIsVersion7(t *testing.T) {
	id, err := Parse(New())
	require.NoError(t, err)

	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, uuid.RFC4122, id.Variant())
}

func TestGeneratorUsesReader(t *testing.T) {
	seed := bytes.Repeat([]byte{0xa5}, 16)

	a := NewGenerator(bytes.NewReader(seed)).New()
	b := NewGenerator(bytes.NewReader(seed)).New()

	// characters from 14 on hold only random bits, the rest is the clock
	assert.Equal(t, a[14:], b[14:])
}

func TestParse(t *testing.T) {
	u := uuid.Must(uuid.NewV7())

	got, err := Parse(encode(u))
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = Parse("short")
	assert.Error(t, err)

	// last character carries two padding bits that must be zero
	_, err = Parse(strings.Repeat("0", Length-1) + "1")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "valid", id: "01h5n0et5q6mt3v7ms1234abcd"},
		{name: "too short", id: "01h5n0et5q6mt3v7ms123", wantErr: true},
		{name: "too long", id: "01h5n0et5q6mt3v7ms1234abcdef", wantErr: true},
		{name: "excluded letter", id: "01h5n0et5q6mt3v7ms1234abcu", wantErr: true},
		{name: "uppercase", id: "01H5N0ET5Q6MT3V7MS1234ABCD", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
