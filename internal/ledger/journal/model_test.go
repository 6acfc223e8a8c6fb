package journal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestActivityNet(t *testing.T) {
	activity := Activity{
		Debits:  decimal.RequireFromString("300.00"),
		Credits: decimal.RequireFromString("120.50"),
	}
	assert.True(t, activity.Net().Equal(decimal.RequireFromString("179.50")))

	assert.True(t, Activity{}.Net().IsZero())

	creditHeavy := Activity{
		Debits:  decimal.RequireFromString("10.00"),
		Credits: decimal.RequireFromString("25.00"),
	}
	assert.True(t, creditHeavy.Net().Equal(decimal.RequireFromString("-15.00")))
}
