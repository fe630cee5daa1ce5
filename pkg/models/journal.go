package models

import "time"

// JournalKind labels the kind of the ledger event recorded in an entry.
type JournalKind string

const (
	KindIssuance          JournalKind = "ISSUANCE"
	KindTransfer          JournalKind = "TRANSFER"
	KindApproval          JournalKind = "APPROVAL"
	KindIssuerChange      JournalKind = "ISSUER_CHANGE"
	KindDeviceRegistered  JournalKind = "DEVICE_REGISTERED"
	KindDeviceDeactivated JournalKind = "DEVICE_DEACTIVATED"
	KindReading           JournalKind = "READING"
	KindListingCreated    JournalKind = "LISTING_CREATED"
	KindOfferCreated      JournalKind = "OFFER_CREATED"
	KindSale              JournalKind = "SALE"
	KindOfferAccepted     JournalKind = "OFFER_ACCEPTED"
)

// JournalEntry is a single record in the append-only audit journal. The
// journal mirrors committed ledger state; it is advisory and never gates a
// ledger operation. Amounts are decimal strings of token base units,
// payments decimal strings of native currency units.
type JournalEntry struct {
	EntryID     string      `json:"entry_id" dynamodbav:"entry_id"`
	Kind        JournalKind `json:"kind" dynamodbav:"kind"`
	Actor       string      `json:"actor,omitempty" dynamodbav:"actor,omitempty"`
	Device      string      `json:"device,omitempty" dynamodbav:"device,omitempty"`
	From        string      `json:"from,omitempty" dynamodbav:"from,omitempty"`
	To          string      `json:"to,omitempty" dynamodbav:"to,omitempty"`
	Amount      string      `json:"amount,omitempty" dynamodbav:"amount,omitempty"`
	Payment     string      `json:"payment,omitempty" dynamodbav:"payment,omitempty"`
	EnergyMilli uint64      `json:"energy_milli,omitempty" dynamodbav:"energy_milli,omitempty"`
	ListingID   uint64      `json:"listing_id,omitempty" dynamodbav:"listing_id,omitempty"`
	OfferID     uint64      `json:"offer_id,omitempty" dynamodbav:"offer_id,omitempty"`
	Note        string      `json:"note,omitempty" dynamodbav:"note,omitempty"`
	Timestamp   time.Time   `json:"timestamp" dynamodbav:"timestamp"`
	GSI1PK      string      `json:"-" dynamodbav:"gsi1pk"`
}
