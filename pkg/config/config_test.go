package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeights(t *testing.T) {
	weights, err := ParseWeights("25, 40,25 ,10")
	require.NoError(t, err)
	assert.Equal(t, [4]float64{25, 40, 25, 10}, weights)

	_, err = ParseWeights("25,40,25")
	assert.Error(t, err)

	_, err = ParseWeights("25,40,-5,10")
	assert.Error(t, err)

	_, err = ParseWeights("a,b,c,d")
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GRADES_DEFAULT_WEIGHTS", "30,30,30,10")
	t.Setenv("GRADES_COMMIT_ATOMIC", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, [4]float64{30, 30, 30, 10}, cfg.Grades.DefaultWeights)
	assert.True(t, cfg.Grades.CommitAtomic)
	assert.Equal(t, "literal", cfg.Grades.WeightPolicy)
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 1.0, clampRatio(3))
	assert.Equal(t, 0.25, clampRatio(0.25))
}
