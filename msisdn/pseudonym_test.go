package msisdn_test

import (
	"strings"
	"testing"

	"github.com/midauth/mobileid-bridge/msisdn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	d := msisdn.NewDeriver(msisdn.Normalizer{}, nil)

	t.Run("swiss number", func(t *testing.T) {
		got := d.Derive("+41 79 123 45 67")
		require.Equal(t, "1100-7417-9123-4567", got)
	})

	t.Run("swiss national format", func(t *testing.T) {
		require.Equal(t, "1100-7417-9208-0350", d.Derive("079 208 03 50"))
	})

	t.Run("us number pads to distinct width", func(t *testing.T) {
		got := d.Derive("+1 202 555 0123")
		require.Equal(t, "1100-7120-2555-0123", got)
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, d.Derive("+41791234567"), d.Derive("0041 79 123 45 67"))
	})

	t.Run("fixed shape", func(t *testing.T) {
		got := d.Derive("0791234567")
		require.Len(t, got, 19)
		require.True(t, strings.HasPrefix(got, "1100-7"))
		require.Len(t, strings.Split(got, "-"), 4)
	})
}

func TestDeriveNotDerivable(t *testing.T) {
	d := msisdn.NewDeriver(msisdn.Normalizer{}, nil)

	tests := []struct {
		name string
		raw  string
	}{
		{"country code off the allow-list", "+49 170 1234567"},
		{"subscriber part too long", "+41 79 123 45 67 89 01"},
		{"too short", "079"},
		{"empty", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Empty(t, d.Derive(tc.raw))
		})
	}
}

func TestDeriveCustomJurisdictions(t *testing.T) {
	d := msisdn.NewDeriver(msisdn.Normalizer{}, []msisdn.Jurisdiction{
		{CountryCode: "49", SubscriberDigits: 9},
	})

	require.Equal(t, "1100-7491-7012-3456", d.Derive("+49 170 123 456"))
	require.Empty(t, d.Derive("+41 79 123 45 67"), "default allow-list must not apply")
}
