package notifications

// DeliveryInterface defines the contract for posting the finished digest.
type DeliveryInterface interface {
	SendDigest(text string) error
}

// Notifier is a best-effort operational side channel. Notify must never
// fail the caller; delivery problems are logged and swallowed.
type Notifier interface {
	Notify(message string)
}
