package cardgen

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePAN(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"", ""},
		{"4567-1234-5678-9012", "4567123456789012"},
		{" 4567 1234\t5678-9012 ", "4567123456789012"},
		{"A123-4567", "A1234567"},
	}
	for _, c := range cases {
		if got := NormalizePAN(c.in); got != c.out {
			t.Fatalf("NormalizePAN(%q) = %q want %q", c.in, got, c.out)
		}
	}
}

func TestMaskPAN(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"", ""},
		{"123", "***"},
		{"1234567", "***4567"},
		{"4567-1234-5678-9012", "456712******9012"},
		{"A123-4567-8901-2345", "A12345******2345"},
	}
	for _, c := range cases {
		if got := MaskPAN(c.in); got != c.out {
			t.Fatalf("MaskPAN(%q) = %q want %q", c.in, got, c.out)
		}
	}
}

func TestLuhnValid(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"4567-1234-5678-9012", true},
		{"4111111111111111", true},
		{"79927398713", true},
		{"4123456789012345", false},
		{"4111111111111112", false},
		{"A123-4567-8901-2345", false},
		{"7", false},
		{"", false},
	}
	for _, c := range cases {
		if got := LuhnValid(c.in); got != c.ok {
			t.Fatalf("LuhnValid(%q) = %v want %v", c.in, got, c.ok)
		}
	}
}

func TestLastN(t *testing.T) {
	require.Equal(t, "9012", LastN("4567123456789012", 4))
	require.Equal(t, "12", LastN("12", 4))
}

func TestGeneratePAN(t *testing.T) {
	for _, length := range []int{13, 16, 19} {
		pan, err := GeneratePAN("421234", length)
		require.NoError(t, err)
		require.Len(t, pan, length)
		require.True(t, IsDigits(pan))
		require.Equal(t, "421234", pan[:6])
		require.True(t, LuhnValid(pan), "generated %s must pass Luhn", pan)
	}

	_, err := GeneratePAN("4212", 16)
	require.Error(t, err)
	_, err = GeneratePAN("42a234", 16)
	require.Error(t, err)
	_, err = GeneratePAN("421234", 20)
	require.Error(t, err)
}

func TestHashPANHMAC(t *testing.T) {
	key := []byte("test-key")
	a := HashPANHMAC("4567-1234-5678-9012", key)
	b := HashPANHMAC("4567123456789012", key)
	require.Len(t, a, 32)
	require.True(t, bytes.Equal(a, b), "separators must not change the hash")
	require.False(t, bytes.Equal(a, HashPANHMAC("4567123456789012", []byte("other"))))
}
