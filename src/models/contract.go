package models

// MContract is a qualified, tradable instrument handle issued by the gateway.
type MContract struct {
	ConID    int    `json:"con_id"`
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
}
