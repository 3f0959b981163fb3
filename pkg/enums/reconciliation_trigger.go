package enums

// ReconciliationTrigger records what initiated a reconciliation sweep.
type ReconciliationTrigger string

const (
	TriggerWorker ReconciliationTrigger = "worker"
	TriggerAPI    ReconciliationTrigger = "api"
)

// String implements fmt.Stringer.
func (t ReconciliationTrigger) String() string {
	return string(t)
}
