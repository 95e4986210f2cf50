package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotalCost(t *testing.T) {
	item := CargoItem{
		TransportCost: decimal.NewFromInt(500),
		HandlingCost:  decimal.NewFromInt(120),
		InsuranceCost: decimal.RequireFromString("30.50"),
		StorageCost:   decimal.NewFromInt(49),
	}

	total := item.ComputeTotalCost()
	assert.True(t, total.Equal(decimal.RequireFromString("699.50")), "total = %s", total)

	// Declared value is informational only, never part of the total.
	item.DeclaredValue = decimal.NewFromInt(100000)
	assert.True(t, item.ComputeTotalCost().Equal(total))
}

func TestIsTerminalStatus(t *testing.T) {
	for _, status := range []string{CargoStatusDelivered, CargoStatusProblem, CargoStatusLost} {
		assert.True(t, IsTerminalStatus(status), status)
	}
	for _, status := range []string{CargoStatusReceived, CargoStatusPending, CargoStatusAssigned, CargoStatusInTransit, CargoStatusArrived, CargoStatusDamaged} {
		assert.False(t, IsTerminalStatus(status), status)
	}
}

func TestContainerUnlimitedCapacity(t *testing.T) {
	c := Container{}
	assert.True(t, c.HasUnlimitedWeight())
	assert.True(t, c.HasUnlimitedVolume())

	c.DeclaredWeight = 28000
	assert.False(t, c.HasUnlimitedWeight())
	assert.True(t, c.HasUnlimitedVolume())
}
