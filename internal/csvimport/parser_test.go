package csvimport

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ReadsRowsByHeader(t *testing.T) {
	input := "\xEF\xBB\xBFChannel, Position ,Purpose\n1,1st Electric,Warm wash\n\n2,\"2nd Electric\",\"Cool, back\"\n"

	p, err := NewParser(strings.NewReader(input))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())

	assert.Equal(t, []string{"Channel", "Position", "Purpose"}, p.Headers())
	assert.True(t, p.HasHeader("Position"))

	row, err := p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 2, row.LineNumber)
	assert.Equal(t, "1st Electric", row.Get("Position"))

	row, err = p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "Cool, back", row.Get("Purpose"))

	_, err = p.ReadRow()
	assert.Equal(t, io.EOF, err)
}

func TestParser_ShortRowsPadEmpty(t *testing.T) {
	p, err := NewParser(strings.NewReader("A,B,C\n1\n"))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())

	row, err := p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "1", row.Get("A"))
	assert.Equal(t, "", row.Get("C"))
	assert.False(t, row.IsEmpty())
}

func TestParser_SemicolonDelimiter(t *testing.T) {
	p, err := NewParser(strings.NewReader("A;B\nx;y\n"), WithDelimiter(';'))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())

	row, err := p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "y", row.Get("B"))
}

func TestParser_FileErrors(t *testing.T) {
	_, err := NewParser(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptyFile))

	_, err = NewParser(strings.NewReader("  \n\n"))
	assert.True(t, errors.Is(err, ErrEmptyFile))

	_, err = NewParser(strings.NewReader("Chan\xff\xfe,Pos\n"))
	assert.True(t, errors.Is(err, ErrInvalidEncoding))

	p, err := NewParser(strings.NewReader(",,\n1,2,3\n"))
	require.NoError(t, err)
	assert.True(t, errors.Is(p.ParseHeader(), ErrMissingHeader))
}

func TestParser_InvalidEncodingPastFirstWindow(t *testing.T) {
	content := "A,B\n" + strings.Repeat("x,y\n", 20*1024) + "bad,\xff\xfe\n"
	p, err := NewParser(strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())

	for {
		_, err = p.ReadRow()
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestErrorCollection_Limit(t *testing.T) {
	ec := NewErrorCollection(2)
	ec.AddRequired(2, "Channel")
	ec.AddInvalid(3, "Channel", ErrCodeInvalidType, "expected a positive integer", "x")
	ec.AddInvalid(4, "Address", ErrCodeInvalidRange, "address must be between 1 and 512", "600")

	assert.Len(t, ec.Errors(), 2)
	assert.Equal(t, 3, ec.TotalCount())
	assert.True(t, ec.Truncated())
	assert.Equal(t, "row 2, column 'Channel': field 'Channel' is required", ec.Errors()[0].Error())
}
