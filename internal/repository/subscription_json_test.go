package repository

import (
	"reflect"
	"testing"
	"time"

	"github.com/subvault/subscription-portal/internal/model"
)

// The finance sub-record travels through a JSON column; a populated
// AMLog and APAExecution must survive the trip byte-for-value.
func TestFinanceRecordRoundTrip(t *testing.T) {
	t.Parallel()
	apaID := uint64(3)
	queued := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	planned := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	paid := time.Date(2026, 3, 16, 14, 30, 0, 0, time.UTC)

	in := model.FinanceRecord{
		APAApproverID: &apaID,
		QueueAddedAt:  &queued,
		AMLog: &model.AMLog{
			Note:               "verified vendor invoice",
			RecommendedPayment: "corporate card",
			PlannedAmountCents: 12000,
			PlannedCurrency:    "USD",
			PlannedDate:        &planned,
			SubmittedBy:        5,
			SubmittedAt:        queued,
		},
		APAExecution: &model.APAExecution{
			PaymentType:     "corporate card",
			PaymentDate:     &paid,
			TransactionID:   "TX1",
			AmountPaidCents: 12000,
			Currency:        "USD",
			ReceiptRef:      "receipts/2026/tx1.pdf",
			InvoiceNumber:   "INV-889",
			Notes:           "paid in full",
			ExecutedBy:      3,
			ExecutedAt:      paid,
		},
	}

	b, err := encodeFinance(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeFinance(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !reflect.DeepEqual(in, out) {
		t.Errorf("finance record changed across round-trip:\n in: %+v\nout: %+v", in, out)
	}
}

func TestFinanceRecordEmptyColumn(t *testing.T) {
	t.Parallel()
	out, err := decodeFinance(nil)
	if err != nil {
		t.Fatalf("decode nil: %v", err)
	}
	if !out.Empty() {
		t.Errorf("nil column decoded non-empty: %+v", out)
	}
}

func TestContinuationMapRoundTrip(t *testing.T) {
	t.Parallel()
	in := map[string]string{
		"2026-02": model.ContinuationContinued,
		"2026-03": model.ContinuationDeclined,
	}
	b, err := encodeContinuation(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeContinuation(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out["2026-02"] != model.ContinuationContinued || out["2026-03"] != model.ContinuationDeclined {
		t.Errorf("map changed: %v", out)
	}

	// A nil map encodes as {} rather than null so the column stays valid JSON.
	b, err = encodeContinuation(nil)
	if err != nil {
		t.Fatalf("encode nil: %v", err)
	}
	if string(b) != "{}" {
		t.Errorf("nil map encoded as %s", b)
	}
}
