package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGathersCollectors(t *testing.T) {
	AttributeQueries.WithLabelValues("min_rh", "local").Inc()
	DeserializeProblems.WithLabelValues("warning").Add(2)

	assert.GreaterOrEqual(t, testutil.ToFloat64(AttributeQueries.WithLabelValues("min_rh", "local")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(DeserializeProblems.WithLabelValues("warning")), 2.0)

	families, err := Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["gridstack_temporal_attribute_queries_total"])
	assert.True(t, names["gridstack_temporal_deserialize_problems_total"])
}
