package domain

// ExternalRecord is a transaction as returned by the bank aggregator.
// Amount keeps the aggregator's own sign convention and string encoding;
// it is normalized only at the importer boundary.
type ExternalRecord struct {
	ID          string                `json:"id"`
	AccountID   string                `json:"account_id"`
	Date        string                `json:"date"`
	Amount      string                `json:"amount"`
	Description string                `json:"description"`
	Type        string                `json:"type"`
	Status      string                `json:"status"`
	Details     ExternalRecordDetails `json:"details"`
}

// ExternalRecordDetails holds enrichment supplied by the aggregator.
type ExternalRecordDetails struct {
	Category     string               `json:"category"`
	Counterparty ExternalCounterparty `json:"counterparty"`
	Recurring    *bool                `json:"recurring,omitempty"`
}

// ExternalCounterparty is the other side of an aggregator transaction.
type ExternalCounterparty struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
