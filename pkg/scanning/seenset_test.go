package scanning

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SeenSetSuite struct {
	suite.Suite
}

func TestSeenSetSuite(t *testing.T) {
	suite.Run(t, &SeenSetSuite{})
}

func (s *SeenSetSuite) TestAddRemove() {
	set := NewSeenSet("A", "B", "A")
	s.Equal(2, set.Len())
	s.True(set.Contains("A"))
	s.False(set.Contains("a"))

	s.False(set.Add("B"))
	s.True(set.Add("C"))
	s.Equal([]string{"A", "B", "C"}, set.Values())

	s.True(set.Remove("B"))
	s.False(set.Remove("B"))
	s.False(set.Contains("B"))
	s.Equal(2, set.Len())
}

func (s *SeenSetSuite) TestExactMatch() {
	set := NewSeenSet()
	s.Zero(set.Len())
	s.Empty(set.Values())
	s.False(set.Contains(""))

	s.True(set.Add("ABC123"))
	s.False(set.Contains("ABC123 "), "values are compared verbatim, callers normalize")
	s.False(set.Contains("abc123"))
	s.Equal([]string{"ABC123"}, set.Values())
}

func (s *SeenSetSuite) TestDecodePayload() {
	testCases := []struct {
		title       string
		input       []byte
		expected    string
		expectedErr error
	}{
		{title: "Plain text", input: []byte("ABC123"), expected: "ABC123"},
		{title: "Trimmed", input: []byte("  https://example.com \r\n"), expected: "https://example.com"},
		{title: "Unicode", input: []byte("héllo"), expected: "héllo"},
		{title: "Blank", input: []byte(" \n"), expectedErr: ErrEmptyPayload},
		{title: "Binary", input: []byte{0xff, 0xfe, 0x00}, expectedErr: ErrInvalidPayload},
	}

	for _, tc := range testCases {
		s.Run(tc.title, func() {
			res, err := DecodePayload(tc.input)
			s.Equal(tc.expectedErr, err)
			s.Equal(tc.expected, res)
		})
	}
}
