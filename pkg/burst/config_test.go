package burst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	c := DefaultConfig()
	c.Finalize()
	require.NoError(t, c.Validate())
	assert.Greater(t, c.Workers, 0)
}

func TestConfigFromYaml(t *testing.T) {
	yaml := `
tilesize: 32
numpyramidlevels: 3
searchradiusperlevel: [8, 4, 2]
noise:
  shot: 0.0005
  read: 0.00001
referencepolicy: sharpest
gain: 1.5
bogusoption: 42
camera:
  blacklevel: 256
  whitelevel: 4095
  cfa: GRBG
  whitebalance: [2.1, 1.0, 1.0, 1.6]
`
	// The unrecognized bogusoption must not fail the parse.
	c, err := NewConfigFromYaml([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, 32, c.TileSize)
	assert.Equal(t, 3, c.NumPyramidLevels)
	assert.Equal(t, []int{8, 4, 2}, c.SearchRadiusPerLevel)
	assert.Equal(t, 0.0005, c.Noise.Shot)
	assert.Equal(t, "sharpest", c.ReferencePolicy)
	assert.Equal(t, 1.5, c.Gain)
	assert.Equal(t, 256, c.Camera.BlackLevel)
	assert.Equal(t, "GRBG", c.Camera.CFA)
	assert.Equal(t, 2.1, c.Camera.WhiteBalance[0])

	// Unset options keep their defaults.
	assert.Equal(t, 3.8, c.Compression)
	assert.Equal(t, 2, c.ChromaDenoiseRadius)

	c.Finalize()
	require.NoError(t, c.Validate())
}

func TestConfigFinalize(t *testing.T) {
	c := DefaultConfig()
	c.ToneMapStrength = 7.0
	c.Finalize()
	assert.Equal(t, 7.0, c.Compression)
	assert.Greater(t, c.Workers, 0)
}

func TestConfigValidate(t *testing.T) {
	mutate := []struct {
		name string
		fn   func(c *Config)
	}{
		{"tilesize not power of two", func(c *Config) { c.TileSize = 12 }},
		{"tilesize too small", func(c *Config) { c.TileSize = 2 }},
		{"no pyramid levels", func(c *Config) { c.NumPyramidLevels = 0 }},
		{"radius count mismatch", func(c *Config) { c.SearchRadiusPerLevel = []int{8, 4} }},
		{"radius out of range", func(c *Config) { c.SearchRadiusPerLevel = []int{8, 4, 2, 100} }},
		{"bad noise model", func(c *Config) { c.Noise = NoiseModel{} }},
		{"negative reference index", func(c *Config) { c.ReferenceIndex = -1 }},
		{"unknown reference policy", func(c *Config) { c.ReferencePolicy = "brightest" }},
		{"zero compression", func(c *Config) { c.Compression = 0.0 }},
		{"negative sharpen", func(c *Config) { c.SharpenAmount = -0.1 }},
		{"unknown tonemapper", func(c *Config) { c.Tonemapper = "magic" }},
		{"unknown cfa", func(c *Config) { c.Camera.CFA = "XTRANS" }},
	}

	for _, tt := range mutate {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			c.Finalize()
			tt.fn(&c)

			err := c.Validate()
			var ce ConfigurationError
			require.ErrorAs(t, err, &ce, "expected a configuration error")
		})
	}
}
