package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle to api key entry", from: StateIdle, to: StateAwaitingAPIKey, expected: true},
		{name: "idle to buy amount", from: StateIdle, to: StateBuyAmount, expected: true},
		{name: "idle to sell amount", from: StateIdle, to: StateSellAmount, expected: true},
		{name: "buy amount to sell amount", from: StateBuyAmount, to: StateSellAmount, expected: true},
		{name: "sell amount to sell price", from: StateSellAmount, to: StateSellPrice, expected: true},
		{name: "params choice to params value", from: StateParamsChoice, to: StateParamsValue, expected: true},
		{name: "sell price back to idle", from: StateSellPrice, to: StateIdle, expected: true},
		{name: "idle straight to sell price invalid", from: StateIdle, to: StateSellPrice, expected: false},
		{name: "sell price to sell amount invalid", from: StateSellPrice, to: StateSellAmount, expected: false},
		{name: "params value to params choice invalid", from: StateParamsValue, to: StateParamsChoice, expected: false},
		{name: "unknown state to buy amount invalid", from: State("unknown"), to: StateBuyAmount, expected: false},
		{name: "any state to idle emergency", from: State("whatever"), to: StateIdle, expected: true},
		{name: "any state to error emergency", from: StateSellPrice, to: StateError, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}
