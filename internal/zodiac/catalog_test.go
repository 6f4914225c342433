// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package zodiac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCatalogOrder(t *testing.T) {
	want := []string{"sun", "moon", "mercury", "venus", "mars", "jupiter", "saturn", "uranus", "neptune", "pluto"}
	assert.Equal(t, want, DefaultCatalog().Keys())
}

func TestDefaultCatalogIsCopy(t *testing.T) {
	c := DefaultCatalog()
	c[0].ProviderID = "changed"

	id, ok := DefaultCatalog().Resolve("sun")
	assert.True(t, ok)
	assert.Equal(t, "sun", id)
}

func TestCatalogResolve(t *testing.T) {
	c := DefaultCatalog()

	id, ok := c.Resolve("mercury")
	assert.True(t, ok)
	assert.Equal(t, "mercury barycenter", id)

	_, ok = c.Resolve("ceres")
	assert.False(t, ok)
}
