package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// PurchaseRecordedEvent is emitted after a purchase is added to the ledger.
type PurchaseRecordedEvent struct {
	PurchaseID         string    `json:"purchase_id"`
	BuyerID            string    `json:"buyer_id"`
	ProductDescription string    `json:"product_description"`
	Amount             string    `json:"amount"`
	Note               string    `json:"note,omitempty"`
	RecordedBy         string    `json:"recorded_by,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// PurchaseRecordedV1 is the typed event definition for ledger entries.
// Subject: events.ledger.v1.purchase-recorded
var PurchaseRecordedV1 = helper.EventDefinition[PurchaseRecordedEvent](
	"ledger", "PurchaseRecorded", "v1",
)
