package admitgate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSnapshot_ValidateRequiresPositiveDefaultRPM(t *testing.T) {
	c := ConfigSnapshot{DefaultRequestsPerMinute: 0, Endpoints: map[string]map[string]Limit{}}
	assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
}

func TestConfigSnapshot_ValidateRequiresEndpointsMap(t *testing.T) {
	c := ConfigSnapshot{DefaultRequestsPerMinute: 60}
	assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
}

func TestConfigSnapshot_ValidateAcceptsMinimalSnapshot(t *testing.T) {
	c := ConfigSnapshot{DefaultRequestsPerMinute: 60, Endpoints: map[string]map[string]Limit{}}
	assert.NoError(t, c.Validate())
}

func TestMarshalUnmarshalConfig_RoundTrips(t *testing.T) {
	c := ConfigSnapshot{
		DefaultRequestsPerMinute: 60,
		DefaultBurstSize:         10,
		Endpoints: map[string]map[string]Limit{
			"/api/users": {"POST": {RequestsPerMinute: 30, BurstSize: 5}},
		},
		UserOverrides: map[string]Limit{
			"u1": {RequestsPerMinute: 600, BurstSize: 100},
		},
	}

	raw, err := marshalConfig(c)
	require.NoError(t, err)

	decoded, err := unmarshalConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}

func TestUnmarshalConfig_RejectsMalformedJSON(t *testing.T) {
	_, err := unmarshalConfig("not json")
	assert.Error(t, err)
}
