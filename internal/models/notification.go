package models

// DeliveryStatus summarizes a multi-channel dispatch attempt.
type DeliveryStatus string

const (
	// DeliverySuccess means every enabled channel succeeded.
	DeliverySuccess DeliveryStatus = "success"
	// DeliveryPartial means some enabled channels succeeded.
	DeliveryPartial DeliveryStatus = "partial"
	// DeliveryFailed means no enabled channel succeeded.
	DeliveryFailed DeliveryStatus = "failed"
)

// ChannelResult records one channel's delivery outcome. Channel failures are
// independent; one failing channel never blocks the others.
type ChannelResult struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DispatchResult is the outcome of dispatching one batch of notification-worthy
// appointments across all enabled channels.
type DispatchResult struct {
	AppointmentCount int             `json:"appointment_count"`
	Channels         []ChannelResult `json:"channels"`
	DeliveryStatus   DeliveryStatus  `json:"delivery_status"`
}

// Delivered reports whether at least one channel accepted the notification.
// The ledger is only committed for delivered batches: a duplicate notification
// on retry is preferable to silently losing a genuine availability event.
func (dr *DispatchResult) Delivered() bool {
	return dr.DeliveryStatus == DeliverySuccess || dr.DeliveryStatus == DeliveryPartial
}
