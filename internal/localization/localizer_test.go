package localization

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAndRoundTrip(t *testing.T) {
	t.Parallel()

	l, err := Parse([]byte(`
locale: en_IN
messages:
  HCM_ADMIN_CONSOLE_FACILITIES: List of Facilities
  HCM_ADMIN_CONSOLE_BOUNDARY_CODE: Boundary Code
`))
	require.NoError(t, err)
	require.Equal(t, "en_IN", l.Locale())
	require.Equal(t, "List of Facilities", l.Localize("HCM_ADMIN_CONSOLE_FACILITIES"))
	require.Equal(t, "HCM_ADMIN_CONSOLE_BOUNDARY_CODE", l.Delocalize("  boundary code "))
	require.Equal(t, "UNKNOWN", l.Localize("UNKNOWN"))
	require.Equal(t, "Other", l.Delocalize("Other "))
}

func TestNilLocalizerIsIdentity(t *testing.T) {
	t.Parallel()

	var l *Localizer
	require.Equal(t, "X", l.Localize("X"))
	require.Equal(t, "Y", l.Delocalize(" Y"))
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("messages: [unclosed"))
	require.Error(t, err)
}
