package state

import "time"

// State represents a finite-state machine state.
type State string

const (
	// StateIdle indicates that the bot is waiting for the next user command.
	StateIdle State = "idle"
	// StateAwaitingAPIKey indicates that the user is registering their
	// exchange credential.
	StateAwaitingAPIKey State = "awaiting_api_key"
	// StateBuyAmount indicates that the user is entering the quote amount
	// for a market buy.
	StateBuyAmount State = "buy_amount"
	// StateSellAmount indicates that the user is entering the base amount
	// for a limit sell.
	StateSellAmount State = "sell_amount"
	// StateSellPrice indicates that the user is entering the limit price
	// for a sell order.
	StateSellPrice State = "sell_price"
	// StateParamsChoice indicates that the user is picking a parameter to edit.
	StateParamsChoice State = "params_choice"
	// StateParamsValue indicates that the user is entering a new parameter value.
	StateParamsValue State = "params_value"
	// StateError indicates that the bot is in an error state and requires recovery.
	StateError State = "error"
)

// UserState captures the current FSM state for a Telegram user.
type UserState struct {
	UserID       int64                  `json:"user_id"`
	CurrentState State                  `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}
