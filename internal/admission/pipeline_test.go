package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRecipientStripsFormatting(t *testing.T) {
	got, err := normalizeRecipient("+1 (555) 123-4567")

	require.NoError(t, err)
	assert.Equal(t, "15551234567", got)
}

func TestNormalizeRecipientRejectsTooShort(t *testing.T) {
	_, err := normalizeRecipient("12345")

	assert.Error(t, err)
}

func TestNormalizeRecipientRejectsTooLong(t *testing.T) {
	_, err := normalizeRecipient("1234567890123456")

	assert.Error(t, err)
}

func TestNormalizeRecipientRejectsNonDigits(t *testing.T) {
	_, err := normalizeRecipient("not-a-phone-number")

	assert.Error(t, err)
}
