package models

// ProviderPayment is the payment authority's canonical record of one charge.
// ExternalReference carries the order public id chosen at intent time.
type ProviderPayment struct {
	ID                string
	Status            string
	ExternalReference string
	QRCode            string
	QRCodeBase64      string
	QRExpiresAt       string
}

// CardCharge is the client-side card tokenization result needed to charge a card.
type CardCharge struct {
	Token           string
	IssuerID        string
	PaymentMethodID string
	Installments    int
	PayerEmail      string
}
