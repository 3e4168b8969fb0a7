package core

// AccountBalance is an account with its settled balance.
type AccountBalance struct {
	Account Account `json:"account"`
	Balance Money   `json:"balance"`
}

// NamedAmount is a metric name with its signed total.
type NamedAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}
