package types

import "encoding/json"

// MetricsSnapshot is the aggregate summary served by GET /metrics, held as
// decoded without schema checks: any field may be missing or of an
// unexpected type. Unknown fields are dropped.
//
//	kpi_total_tickets: number
//	breakdown_by_status: { [status]: number }
//	breakdown_by_year: { [year]: number } // optional
//	dataset_source: string                // optional
//	last_update: string                   // opaque, rendered as-is
//
// A backend that has not processed metrics yet answers {"error": "..."}.
type MetricsSnapshot struct {
	TotalTickets      Value            `json:"kpi_total_tickets"`
	BreakdownByStatus map[string]Value `json:"breakdown_by_status,omitempty"`
	BreakdownByYear   map[string]Value `json:"breakdown_by_year,omitempty"`
	DatasetSource     Value            `json:"dataset_source"`
	LastUpdate        Value            `json:"last_update"`
	Error             Value            `json:"error"`
}

// StatusDelivered is the breakdown key shown on the dashboard cards.
const StatusDelivered = "delivered"

// UnmarshalJSON accepts any valid JSON document. Something other than an
// object yields an empty snapshot, and a breakdown that is not an object
// is treated as absent.
func (m *MetricsSnapshot) UnmarshalJSON(b []byte) error {
	*m = MetricsSnapshot{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		if json.Valid(b) {
			return nil
		}
		return err
	}

	// Value never fails to decode
	_ = json.Unmarshal(orNull(fields["kpi_total_tickets"]), &m.TotalTickets)
	_ = json.Unmarshal(orNull(fields["dataset_source"]), &m.DatasetSource)
	_ = json.Unmarshal(orNull(fields["last_update"]), &m.LastUpdate)
	_ = json.Unmarshal(orNull(fields["error"]), &m.Error)
	m.BreakdownByStatus = breakdown(fields["breakdown_by_status"])
	m.BreakdownByYear = breakdown(fields["breakdown_by_year"])
	return nil
}

// StatusCount returns the displayed count for a status label, "0" when
// the entry is absent, null, zero or empty.
func (m MetricsSnapshot) StatusCount(status string) string {
	v := m.BreakdownByStatus[status]
	if v.Falsy() {
		return "0"
	}
	return v.Text()
}

func breakdown(raw json.RawMessage) map[string]Value {
	if len(raw) == 0 {
		return nil
	}
	var out map[string]Value
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func orNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
