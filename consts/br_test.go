package consts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/autonomy-rt/consts"
)

func TestStateTitle(t *testing.T) {
	mapping := map[string]string{
		"SP": "São Paulo (SP)",
		"es": "Espírito Santo (ES)",
		"RJ": "Rio de Janeiro (RJ)",
		"DF": "Distrito Federal (DF)",
	}

	for key, value := range mapping {
		actual, err := consts.StateTitle(key)
		assert.NoError(t, err)
		assert.Equal(t, value, actual, "wrong title")
	}

	actual, err := consts.StateTitle("Tereos")
	assert.Error(t, err)
	assert.Equal(t, "Tereos", actual)
	assert.Len(t, consts.BrStateName, 27)
}
