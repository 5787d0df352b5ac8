package model

import "time"

// Style identifies the climbing style a tick field applies to. Top-rope and
// lead are tracked independently and orthogonally on the same tick row.
type Style string

const (
	StyleTopRope Style = "top_rope"
	StyleLead    Style = "lead"
)

// ParseStyle validates a client-supplied style string.
func ParseStyle(s string) (Style, bool) {
	switch Style(s) {
	case StyleTopRope, StyleLead:
		return Style(s), true
	}
	return "", false
}

// SendType is the wire value of a send request. The flash variants are sugar
// for "sent on the first attempt" and force the attempt counters accordingly.
type SendType string

const (
	SendTopRope   SendType = "top_rope"
	SendLead      SendType = "lead"
	SendFlash     SendType = "flash"
	SendLeadFlash SendType = "lead_flash"
)

// ParseSendType validates a client-supplied send type string.
func ParseSendType(s string) (SendType, bool) {
	switch SendType(s) {
	case SendTopRope, SendLead, SendFlash, SendLeadFlash:
		return SendType(s), true
	}
	return "", false
}

// Style resolves the send type to the style whose flags it touches.
func (st SendType) Style() Style {
	if st == SendLead || st == SendLeadFlash {
		return StyleLead
	}
	return StyleTopRope
}

// Tick is the interaction record for one (user, route) pair: attempt counters,
// send and flash flags per style, plus free-text notes. A tick is a mutable
// aggregate reflecting current known state, not an event log, and a row with
// all counters at zero is legal (it then only carries notes).
//
// Invariants held after every transition:
//   - flash for a style implies that style's attempt count is exactly 1 at
//     the moment flash was set; any later attempt increment clears the flash.
//   - a send for a style implies at least one attempt in that style.
type Tick struct {
	ID              uint64    // ticks.id
	UserID          uint64    // ticks.user_id
	RouteID         uint64    // ticks.route_id
	TopRopeAttempts uint32    // ticks.top_rope_attempts
	LeadAttempts    uint32    // ticks.lead_attempts
	TopRopeSend     bool      // ticks.top_rope_send
	TopRopeFlash    bool      // ticks.top_rope_flash
	LeadSend        bool      // ticks.lead_send
	LeadFlash       bool      // ticks.lead_flash
	Notes           string    // ticks.notes
	CreatedAt       time.Time // ticks.created_at
	UpdatedAt       time.Time // ticks.updated_at
}

// AddAttempts increments the attempt counter for the given style. Once the
// style's total exceeds one attempt the flash flag for that style no longer
// holds and is cleared. Notes follow the last-non-empty-wins policy.
func (t *Tick) AddAttempts(style Style, count uint32, notes string) {
	switch style {
	case StyleTopRope:
		t.TopRopeAttempts += count
		if t.TopRopeAttempts > 1 {
			t.TopRopeFlash = false
		}
	case StyleLead:
		t.LeadAttempts += count
		if t.LeadAttempts > 1 {
			t.LeadFlash = false
		}
	}
	t.SetNotes(notes)
}

// MarkSend records a successful send. Plain styles raise the style's attempt
// count to at least 1, preserving any existing higher count (a send after
// many attempts is not a flash). The flash variants are recorded atomically
// as a first-attempt send: that style's attempts are forced to 1 and the
// other style's attempts are zeroed.
func (t *Tick) MarkSend(st SendType, notes string) {
	switch st {
	case SendTopRope:
		t.TopRopeSend = true
		if t.TopRopeAttempts < 1 {
			t.TopRopeAttempts = 1
		}
	case SendLead:
		t.LeadSend = true
		if t.LeadAttempts < 1 {
			t.LeadAttempts = 1
		}
	case SendFlash:
		t.TopRopeSend = true
		t.TopRopeFlash = true
		t.TopRopeAttempts = 1
		t.LeadAttempts = 0
	case SendLeadFlash:
		t.LeadSend = true
		t.LeadFlash = true
		t.LeadAttempts = 1
		t.TopRopeAttempts = 0
	}
	t.SetNotes(notes)
}

// ClearSend drops only the send flag for a style. Attempts and flash are left
// untouched; clients rely on attempt history surviving an unsend.
func (t *Tick) ClearSend(style Style) {
	switch style {
	case StyleTopRope:
		t.TopRopeSend = false
	case StyleLead:
		t.LeadSend = false
	}
}

// SetNotes overwrites stored notes only when the new value is non-empty.
func (t *Tick) SetNotes(notes string) {
	if notes != "" {
		t.Notes = notes
	}
}

// Sent reports whether the route has been sent in any style.
func (t *Tick) Sent() bool {
	return t.TopRopeSend || t.LeadSend
}
