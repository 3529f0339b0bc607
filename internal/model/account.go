package model

import (
	"github.com/google/uuid"
)

// AccountBalance is the balance of one currency.
type AccountBalance struct {
	Total  Money `json:"total"`
	Locked Money `json:"locked"`
	Free   Money `json:"free"`
}

// AccountState is an account snapshot event reported by a venue.
type AccountState struct {
	AccountID  AccountID        `json:"accountId"`
	Balances   []AccountBalance `json:"balances"`
	IsReported bool             `json:"isReported"`
	EventID    uuid.UUID        `json:"eventId"`
	TsEvent    int64            `json:"tsEvent"`
	TsInit     int64            `json:"tsInit"`
}
