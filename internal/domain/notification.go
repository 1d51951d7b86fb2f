package domain

const (
	NotifyPending = "pending"
	NotifySending = "sending"
	NotifySent    = "sent"
	NotifyDead    = "dead"
)

const KindOrderCancelled = "order.cancelled"

// Notification is an outbox row waiting to be handed to a notifier.
type Notification struct {
	ID            int64  `db:"id"`
	Kind          string `db:"kind"`
	Recipient     string `db:"recipient"`
	Payload       []byte `db:"payload"`
	Status        string `db:"status"`
	Attempts      int    `db:"attempts"`
	LastError     string `db:"last_error"`
	NextAttemptAt string `db:"next_attempt_at"`
	CreatedAt     string `db:"created_at"`
}
